package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snipstash/snipstash-back/internal/apperror"
)

func TestFolderCreate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com")

	folder, err := env.folders.Create(user.ID, "algorithms", "sorting and searching")
	require.NoError(t, err)
	assert.NotZero(t, folder.ID)
	assert.Equal(t, user.ID, folder.UserID)
}

func TestFolderNameUniquePerUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com")
	other := env.createUser(t, "other@example.com")

	_, err := env.folders.Create(user.ID, "work", "")
	require.NoError(t, err)

	_, err = env.folders.Create(user.ID, "work", "")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// Same name under a different user is fine: uniqueness is per user.
	_, err = env.folders.Create(other.ID, "work", "")
	assert.NoError(t, err)
}

func TestFolderGetScopedByOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com")
	other := env.createUser(t, "other@example.com")

	folder, err := env.folders.Create(owner.ID, "private", "")
	require.NoError(t, err)

	_, err = env.folders.Get(other.ID, folder.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFolderGetWithSnippets(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com")

	folder, err := env.folders.Create(user.ID, "work", "")
	require.NoError(t, err)

	member := env.createSnippet(t, user.ID, "Member", "go")
	env.createSnippet(t, user.ID, "Loose")

	_, err = env.snippets.AttachFolders(user.ID, member.ID, []uint64{folder.ID})
	require.NoError(t, err)

	got, err := env.folders.GetWithSnippets(user.ID, folder.ID)
	require.NoError(t, err)
	require.Len(t, got.Snippets, 1)
	assert.Equal(t, member.ID, got.Snippets[0].ID)
	assert.Equal(t, []string{"go"}, tagNames(&got.Snippets[0]))
}

func TestFolderRenameConflict(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com")

	_, err := env.folders.Create(user.ID, "first", "")
	require.NoError(t, err)
	second, err := env.folders.Create(user.ID, "second", "")
	require.NoError(t, err)

	name := "first"
	_, err = env.folders.Update(user.ID, second.ID, &name, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestFolderDeleteKeepsSnippets(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "user@example.com")

	folder, err := env.folders.Create(user.ID, "doomed", "")
	require.NoError(t, err)

	member := env.createSnippet(t, user.ID, "Member")
	_, err = env.snippets.AttachFolders(user.ID, member.ID, []uint64{folder.ID})
	require.NoError(t, err)

	require.NoError(t, env.folders.Delete(user.ID, folder.ID))

	_, err = env.folders.Get(user.ID, folder.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The snippet survives its folder.
	_, err = env.snippets.Get(user.ID, member.ID)
	assert.NoError(t, err)

	var joinRows int64
	require.NoError(t, env.db.Table("folder_snippets").
		Where("folder_id = ?", folder.ID).Count(&joinRows).Error)
	assert.Zero(t, joinRows)
}
