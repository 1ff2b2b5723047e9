package dispatch

import (
	"encoding/json"
	"ms-groups/internal/models"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeForm_SharedMode(t *testing.T) {
	pc := models.PageContext{GroupURL: "/submit", UserID: "u1", CSRFToken: "tok"}

	body := EncodeForm(models.ModeSharedURL, models.Group{ID: "1"}, pc)

	assert.Equal(t, "group%5Bid%5D=1&userid=u1&csrfmiddlewaretoken=tok", body)
}

func TestEncodeForm_PerRecordModeOmitsUserID(t *testing.T) {
	pc := models.PageContext{UserID: "u1", CSRFToken: "tok"}

	body := EncodeForm(models.ModePerRecordURL, models.Group{ID: "1", NSID: "/g/1"}, pc)

	assert.Equal(t, "group%5Bid%5D=1&group%5Bnsid%5D=%2Fg%2F1&csrfmiddlewaretoken=tok", body)
}

func TestEncodeForm_NestedExtraFields(t *testing.T) {
	var g models.Group
	require.NoError(t, json.Unmarshal([]byte(`{
		"nsid": "123@N01",
		"tags": ["a", "b"],
		"owner": {"name": "x y", "pro": true},
		"icons": [{"farm": 1}],
		"rules": null
	}`), &g))

	body := EncodeForm(models.ModePerRecordURL, g, models.PageContext{CSRFToken: "tok"})

	values, err := url.ParseQuery(body)
	require.NoError(t, err)
	assert.Equal(t, "123@N01", values.Get("group[nsid]"))
	assert.Equal(t, []string{"a", "b"}, values["group[tags][]"])
	assert.Equal(t, "x y", values.Get("group[owner][name]"))
	assert.Equal(t, "true", values.Get("group[owner][pro]"))
	assert.Equal(t, "1", values.Get("group[icons][0][farm]"))
	assert.Contains(t, values, "group[rules]")
	assert.Equal(t, "", values.Get("group[rules]"))
	assert.Equal(t, "tok", values.Get("csrfmiddlewaretoken"))
	assert.NotContains(t, values, "userid")
}

func TestEncodeForm_ExtraKeysAreSorted(t *testing.T) {
	g := models.Group{ID: "7", Extra: map[string]any{"zeta": "z", "alpha": "a"}}

	body := EncodeForm(models.ModePerRecordURL, g, models.PageContext{CSRFToken: "t"})

	assert.Equal(t, "group%5Bid%5D=7&group%5Balpha%5D=a&group%5Bzeta%5D=z&csrfmiddlewaretoken=t", body)
}
