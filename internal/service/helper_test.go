package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipstash/snipstash-back/internal/db"
)

type testEnv struct {
	db       *gorm.DB
	snippets *Snippets
	folders  *Folders
	search   *Search
	tags     *Tags
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.NewTestClient()
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	return &testEnv{
		db:       gdb,
		snippets: NewSnippets(gdb, logger),
		folders:  NewFolders(gdb, logger),
		search:   NewSearch(gdb, logger),
		tags:     NewTags(gdb, logger),
	}
}

func (env *testEnv) createUser(t *testing.T, email string) *db.User {
	t.Helper()

	user := db.User{
		Name:     "Test User",
		Email:    email,
		Password: "not-a-real-hash",
	}
	require.NoError(t, env.db.Create(&user).Error)
	return &user
}

// createSnippet seeds a snippet with an exact tag set. Content is neutral so
// rule detection contributes nothing; the tag set is pinned afterwards with
// the replace operation.
func (env *testEnv) createSnippet(t *testing.T, userID uint64, title string, tags ...string) *db.Snippet {
	t.Helper()

	snippet, err := env.snippets.Create(userID, CreateSnippetInput{
		Title:    title,
		Content:  "alpha beta gamma",
		Language: "go",
	})
	require.NoError(t, err)

	if len(tags) > 0 {
		snippet, err = env.snippets.AttachTags(userID, snippet.ID, tags)
		require.NoError(t, err)
	}
	return snippet
}

func tagNames(snippet *db.Snippet) []string {
	names := make([]string, len(snippet.Tags))
	for i := range snippet.Tags {
		names[i] = snippet.Tags[i].Name
	}
	return names
}

func snippetIDs(snippets []db.Snippet) []uint64 {
	ids := make([]uint64, len(snippets))
	for i := range snippets {
		ids[i] = snippets[i].ID
	}
	return ids
}
