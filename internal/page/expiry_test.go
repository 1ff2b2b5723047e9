package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageIDFromExpiredKey(t *testing.T) {
	tests := []struct {
		key    string
		pageID string
		ok     bool
	}{
		{"page:people-u1-groups:alive", "people-u1-groups", true},
		{"page:a:b:alive", "a:b", true},
		{"page:p1:#groups", "", false},
		{"page::alive", "", false},
		{"seat_lock:A1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			pageID, ok := PageIDFromExpiredKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.pageID, pageID)
		})
	}
}

func TestPageIDFromExpiredKey_MatchesAliveKey(t *testing.T) {
	r := NewRedis(nil, "p-42", GroupsSelector, 0)

	pageID, ok := PageIDFromExpiredKey(r.aliveKey())
	assert.True(t, ok)
	assert.Equal(t, "p-42", pageID)
}
