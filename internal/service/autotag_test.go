package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoTagsDetectsConstructs(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"loop", "for i := 0; i < 10; i++ {}", "loop"},
		{"api", "resp, err := http.Get(url)", "api"},
		{"error handling", "try { risky() } catch (e) {}", "error handling"},
		{"debugging", "console.log(value)", "debugging"},
		{"async", "await fetchUser()", "async"},
		{"dom", "document.querySelector('#root')", "dom"},
		{"sql", "SELECT id FROM users WHERE active", "sql"},
		{"auth", "header.Set(\"Authorization\", token)", "auth"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, AutoTags(tc.content, "", nil), tc.want)
		})
	}
}

func TestAutoTagsCaseInsensitive(t *testing.T) {
	tags := AutoTags("FOR X IN RANGE", "", nil)
	assert.Contains(t, tags, "loop")
}

func TestAutoTagsScansDescription(t *testing.T) {
	tags := AutoTags("alpha beta gamma", "helper for the login token refresh", nil)
	assert.Contains(t, tags, "auth")
}

func TestAutoTagsManualFirst(t *testing.T) {
	tags := AutoTags("while (true) {}", "", []string{"favorites"})
	assert.Equal(t, "favorites", tags[0])
	assert.Contains(t, tags, "loop")
}

func TestAutoTagsNoMatches(t *testing.T) {
	assert.Empty(t, AutoTags("alpha beta gamma", "", nil))
}

func TestDedupNames(t *testing.T) {
	assert.Equal(t,
		[]string{"go", "cli", "sql"},
		dedupNames([]string{" go ", "go", "", "cli", "  ", "sql", "cli"}))
	assert.Empty(t, dedupNames(nil))
}
