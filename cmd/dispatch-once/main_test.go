package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("csrfmiddlewaretoken") != "tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.PostForm.Get("group[id]") == "13" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, "<li>"+r.PostForm.Get("group[id]")+"</li>")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_SharedFromStdin(t *testing.T) {
	srv := groupServer(t)
	in := strings.NewReader(`{"groups": [{"id": 1}], "group_url": "/submit", "userid": "u1", "csrf_token": "tok"}`)
	var stdout, stderr bytes.Buffer

	code := run([]string{"-base-url", srv.URL}, in, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "<div id=\"groups\"><li>1</li></div>\n", stdout.String())
}

func TestRun_PerRecordFromFileWithFailure(t *testing.T) {
	srv := groupServer(t)
	path := filepath.Join(t.TempDir(), "context.json")
	body := fmt.Sprintf(`{"groups": [{"id": 1, "nsid": %q}, {"id": 13, "nsid": %q}], "csrf_token": "tok"}`,
		srv.URL+"/g/1", srv.URL+"/g/13")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	var stdout, stderr bytes.Buffer

	code := run([]string{"-mode", "per_record", "-context", path}, strings.NewReader(""), &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "<li>1</li>")
	assert.NotContains(t, stdout.String(), "13")
	assert.Contains(t, stderr.String(), "group 13")
}

func TestRun_RejectsBadInput(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(nil, strings.NewReader("{"), &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"-mode", "fanout"}, strings.NewReader(`{"csrf_token": "t"}`), &stdout, &stderr))
	assert.Equal(t, 2, run(nil, strings.NewReader(`{"groups": [{"id": 1}], "group_url": "/x"}`), &stdout, &stderr))
	assert.Empty(t, stdout.String())
}
