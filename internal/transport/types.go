package transport

import (
	"time"

	"github.com/snipstash/snipstash-back/internal/db"
)

type (
	RegisterReq struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	LoginReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	VerifyRequestReq struct {
		Email string `json:"email" validate:"required,email"`
	}

	VerifyReq struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
	}

	AuthResp struct {
		ID    uint64 `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Token string `json:"token"`
	}

	UserResp struct {
		ID       uint64 `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Verified bool   `json:"verified"`
	}

	SnippetReq struct {
		Title       string   `json:"title" validate:"required"`
		Content     string   `json:"content" validate:"required"`
		Language    string   `json:"language" validate:"required"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		FolderIDs   []uint64 `json:"folderIds"`
	}

	SnippetPatchReq struct {
		Title       *string  `json:"title"`
		Content     *string  `json:"content"`
		Language    *string  `json:"language"`
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
		FolderIDs   []uint64 `json:"folderIds"`
	}

	SnippetListReq struct {
		Query    string   `json:"query"`
		Tags     []string `json:"tags"`
		Language string   `json:"language"`
		FolderID uint64   `json:"folderId"`
		Page     int      `json:"page"`
		PageSize int      `json:"pageSize"`
		Sort     string   `json:"sort"`
	}

	SnippetUseReq struct {
		Action string `json:"action"`
	}

	SnippetFoldersReq struct {
		FolderIDs []uint64 `json:"folderIds" validate:"required,min=1"`
	}

	SnippetResp struct {
		ID          uint64     `json:"id"`
		Title       string     `json:"title"`
		Content     string     `json:"content"`
		Language    string     `json:"language"`
		Description string     `json:"description,omitempty"`
		UsageCount  int        `json:"usageCount"`
		LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
		Tags        []string   `json:"tags"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   time.Time  `json:"updatedAt"`
	}

	SnippetPageResp struct {
		Items []SnippetResp `json:"items"`
		Total int64         `json:"total"`
		Page  int           `json:"page"`
	}

	FolderReq struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
	}

	FolderPatchReq struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	FolderResp struct {
		ID          uint64        `json:"id"`
		Name        string        `json:"name"`
		Description string        `json:"description,omitempty"`
		Snippets    []SnippetResp `json:"snippets,omitempty"`
	}

	TagResp struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}
)

func toSnippetResp(s *db.Snippet) SnippetResp {
	tags := make([]string, len(s.Tags))
	for i := range s.Tags {
		tags[i] = s.Tags[i].Name
	}
	return SnippetResp{
		ID:          s.ID,
		Title:       s.Title,
		Content:     s.Content,
		Language:    s.Language,
		Description: s.Description,
		UsageCount:  s.UsageCount,
		LastUsedAt:  s.LastUsedAt,
		Tags:        tags,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toFolderResp(f *db.Folder, withSnippets bool) FolderResp {
	resp := FolderResp{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
	}
	if withSnippets {
		resp.Snippets = make([]SnippetResp, len(f.Snippets))
		for i := range f.Snippets {
			resp.Snippets[i] = toSnippetResp(&f.Snippets[i])
		}
	}
	return resp
}
