package test_functional

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	authResp struct {
		ID    uint64 `json:"id"`
		Token string `json:"token"`
	}

	snippetResp struct {
		ID       uint64   `json:"id"`
		Title    string   `json:"title"`
		Language string   `json:"language"`
		Tags     []string `json:"tags"`
	}

	snippetPageResp struct {
		Items []snippetResp `json:"items"`
		Total int64         `json:"total"`
		Page  int           `json:"page"`
	}

	folderResp struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}

	tagCountResp struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
	}
)

// registerUser creates a fresh account with a unique email so runs never
// collide on a shared database.
func registerUser(t *testing.T, ctx context.Context) *authResp {
	t.Helper()

	u := AppBaseURL
	u.Path = "/auth/register"

	body := fmt.Sprintf(
		`{"name": "Functional Tester", "email": "%s@example.com", "password": "111111111111"}`,
		uuid.New().String())

	resp, err := resty.New().
		R().
		SetHeader("Content-Type", "application/json").
		SetContext(ctx).
		SetResult(&authResp{}).
		SetBody(body).
		Post(u.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	got, ok := resp.Result().(*authResp)
	require.True(t, ok)
	require.NotEmpty(t, got.Token)
	return got
}

func authed(token string) *resty.Request {
	return resty.New().
		R().
		SetHeader("Content-Type", "application/json").
		SetAuthToken(token)
}

func TestRegister(t *testing.T) {
	u := AppBaseURL
	u.Path = "/auth/register"

	t.Run("successful register", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		user := registerUser(t, ctx)

		meURL := AppBaseURL
		meURL.Path = "/auth/me"
		resp, err := authed(user.Token).SetContext(ctx).Get(meURL.String())
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	})

	t.Run("bad body", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetHeader("Content-Type", "application/json").
			SetContext(ctx).
			SetBody(`{"something": "???"}`).
			Post(u.String())
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		meURL := AppBaseURL
		meURL.Path = "/auth/me"
		resp, err := resty.New().R().SetContext(ctx).Get(meURL.String())
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})
}

func TestSnippetFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	user := registerUser(t, ctx)

	createURL := AppBaseURL
	createURL.Path = "/snippet"

	created := snippetResp{}
	resp, err := authed(user.Token).
		SetContext(ctx).
		SetResult(&created).
		SetBody(`{
			"title": "retry helper",
			"content": "for i := 0; i < retries; i++ { if err := fn(); err == nil { return nil } }",
			"language": "go",
			"tags": ["helpers"]
		}`).
		Post(createURL.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	require.NotZero(t, created.ID)
	assert.Contains(t, created.Tags, "helpers")
	assert.Contains(t, created.Tags, "loop")

	listURL := AppBaseURL
	listURL.Path = "/snippet/list"

	page := snippetPageResp{}
	resp, err = authed(user.Token).
		SetContext(ctx).
		SetResult(&page).
		SetBody(`{"query": "RETRY", "tags": ["helpers"]}`).
		Post(listURL.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)
	assert.Equal(t, int64(1), page.Total)

	useURL := AppBaseURL
	useURL.Path = fmt.Sprintf("/snippet/%d/use", created.ID)
	resp, err = authed(user.Token).
		SetContext(ctx).
		SetBody(`{"action": "copy"}`).
		Post(useURL.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	mostUsedURL := AppBaseURL
	mostUsedURL.Path = "/tag/most-used"
	counts := []tagCountResp{}
	resp, err = authed(user.Token).
		SetContext(ctx).
		SetResult(&counts).
		Get(mostUsedURL.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	names := make([]string, len(counts))
	for i := range counts {
		names[i] = counts[i].Name
	}
	assert.Contains(t, names, "helpers")

	deleteURL := AppBaseURL
	deleteURL.Path = fmt.Sprintf("/snippet/%d", created.ID)
	resp, err = authed(user.Token).SetContext(ctx).Delete(deleteURL.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	resp, err = authed(user.Token).SetContext(ctx).Get(deleteURL.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestFolderFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	user := registerUser(t, ctx)

	folderURL := AppBaseURL
	folderURL.Path = "/folder"

	folder := folderResp{}
	resp, err := authed(user.Token).
		SetContext(ctx).
		SetResult(&folder).
		SetBody(`{"name": "algorithms"}`).
		Post(folderURL.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	require.NotZero(t, folder.ID)

	resp, err = authed(user.Token).
		SetContext(ctx).
		SetBody(`{"name": "algorithms"}`).
		Post(folderURL.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())

	listed := []folderResp{}
	resp, err = authed(user.Token).
		SetContext(ctx).
		SetResult(&listed).
		Get(folderURL.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, listed, 1)
	assert.Equal(t, "algorithms", listed[0].Name)
}
