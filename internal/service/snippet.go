package service

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipstash/snipstash-back/internal/apperror"
	"github.com/snipstash/snipstash-back/internal/db"
)

type (
	Snippets struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	CreateSnippetInput struct {
		Title       string
		Content     string
		Language    string
		Description string
		Tags        []string
		FolderIDs   []uint64
	}

	UpdateSnippetInput struct {
		Title       *string
		Content     *string
		Language    *string
		Description *string
		Tags        []string
		FolderIDs   []uint64
	}
)

func NewSnippets(gdb *gorm.DB, l *zap.SugaredLogger) *Snippets {
	return &Snippets{
		db:     gdb,
		logger: l,
	}
}

// Create stores a new snippet for the given user and attaches its tag set,
// combining the caller's tags with rule-detected ones.
func (s *Snippets) Create(userID uint64, in CreateSnippetInput) (*db.Snippet, error) {
	if in.Title == "" {
		return nil, apperror.InvalidArgument("title", "title is required")
	}
	if in.Content == "" {
		return nil, apperror.InvalidArgument("content", "content is required")
	}
	if in.Language == "" {
		return nil, apperror.InvalidArgument("language", "language is required")
	}

	tagNames := AutoTags(in.Content, in.Description, in.Tags)

	// Tag rows are resolved before the snippet transaction: a lost
	// find-or-create race must not poison the enclosing transaction.
	tags, err := s.resolveTags(tagNames)
	if err != nil {
		return nil, err
	}

	folders, err := ownedFolders(s.db, userID, in.FolderIDs)
	if err != nil {
		return nil, err
	}

	model := db.Snippet{
		Title:       in.Title,
		Content:     in.Content,
		Language:    in.Language,
		Description: in.Description,
		UserID:      userID,
		Tags:        tags,
		Folders:     folders,
	}

	if err := s.db.Create(&model).Error; err != nil {
		return nil, errors.Wrap(err, "create snippet")
	}

	s.logger.Infow("snippet created", "id", model.ID, "user", userID, "tags", len(tags))
	return &model, nil
}

// Get returns the snippet with its tags and folders. The lookup is scoped by
// the owning user, so a foreign snippet id answers NotFound just like an
// absent one.
func (s *Snippets) Get(userID, snippetID uint64) (*db.Snippet, error) {
	snippet := db.Snippet{}
	err := s.db.
		Preload("Tags").
		Preload("Folders").
		Where("id = ? AND user_id = ?", snippetID, userID).
		First(&snippet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("snippet", snippetID)
		}
		return nil, errors.Wrap(err, "get snippet")
	}
	return &snippet, nil
}

// Update applies the provided fields in place and replaces the tag set. Nil
// field pointers keep the stored value; the tag set is always recomputed from
// the provided manual tags plus detection, matching Create.
func (s *Snippets) Update(userID, snippetID uint64, in UpdateSnippetInput) (*db.Snippet, error) {
	snippet, err := s.Get(userID, snippetID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && *in.Title != "" {
		snippet.Title = *in.Title
	}
	if in.Content != nil && *in.Content != "" {
		snippet.Content = *in.Content
	}
	if in.Language != nil && *in.Language != "" {
		snippet.Language = *in.Language
	}
	if in.Description != nil {
		snippet.Description = *in.Description
	}

	tagNames := AutoTags(snippet.Content, snippet.Description, in.Tags)
	tags, err := s.resolveTags(tagNames)
	if err != nil {
		return nil, err
	}

	var folders []db.Folder
	if in.FolderIDs != nil {
		folders, err = ownedFolders(s.db, userID, in.FolderIDs)
		if err != nil {
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(snippet).
			Select("Title", "Content", "Language", "Description").
			Updates(snippet).Error; err != nil {
			return errors.Wrap(err, "update snippet")
		}
		if err := tx.Model(snippet).Association("Tags").Replace(tags); err != nil {
			return errors.Wrap(err, "replace tags")
		}
		if in.FolderIDs != nil {
			if err := tx.Model(snippet).Association("Folders").Replace(folders); err != nil {
				return errors.Wrap(err, "replace folders")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, snippetID)
}

// Delete removes the snippet and its join rows. Tags survive even when the
// last referencing snippet goes away.
func (s *Snippets) Delete(userID, snippetID uint64) error {
	snippet, err := s.Get(userID, snippetID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(snippet).Association("Tags").Clear(); err != nil {
			return errors.Wrap(err, "clear tags")
		}
		if err := tx.Model(snippet).Association("Folders").Clear(); err != nil {
			return errors.Wrap(err, "clear folders")
		}
		if err := tx.Delete(&db.Snippet{}, snippet.ID).Error; err != nil {
			return errors.Wrap(err, "delete snippet")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infow("snippet deleted", "id", snippetID, "user", userID)
	return nil
}

// AttachTags sets the snippet's tag membership to exactly the given names:
// a full replace, not an incremental add. Names are deduplicated and resolved
// through find-or-create first.
func (s *Snippets) AttachTags(userID, snippetID uint64, names []string) (*db.Snippet, error) {
	snippet, err := s.Get(userID, snippetID)
	if err != nil {
		return nil, err
	}

	tags, err := s.resolveTags(dedupNames(names))
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return errors.Wrap(tx.Model(snippet).Association("Tags").Replace(tags), "replace tags")
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, snippetID)
}

// AttachFolders sets the snippet's folder membership to exactly the given
// folder ids. Every folder must belong to the same user.
func (s *Snippets) AttachFolders(userID, snippetID uint64, folderIDs []uint64) (*db.Snippet, error) {
	snippet, err := s.Get(userID, snippetID)
	if err != nil {
		return nil, err
	}

	folders, err := ownedFolders(s.db, userID, folderIDs)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return errors.Wrap(tx.Model(snippet).Association("Folders").Replace(folders), "replace folders")
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, snippetID)
}

// RecordUsage increments the usage counter, stamps the last-used time, and
// appends a usage log row, all in one transaction. The counter only ever
// goes up.
func (s *Snippets) RecordUsage(userID, snippetID uint64, action string) (*db.Snippet, error) {
	if action == "" {
		action = "copy"
	}

	snippet, err := s.Get(userID, snippetID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Snippet{}).
			Where("id = ?", snippet.ID).
			Updates(map[string]interface{}{
				"usage_count":  gorm.Expr("usage_count + 1"),
				"last_used_at": time.Now(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "increment usage count")
		}
		log := db.UsageLog{
			SnippetID: snippet.ID,
			UserID:    userID,
			Action:    action,
		}
		return errors.Wrap(tx.Create(&log).Error, "create usage log")
	})
	if err != nil {
		return nil, err
	}

	return s.Get(userID, snippetID)
}

// FindOrCreateTag returns the tag with the given name, creating it when
// missing. Tag names are globally unique; a concurrent creator losing the
// race reads the winner's row instead of surfacing a conflict.
func (s *Snippets) FindOrCreateTag(name string) (*db.Tag, error) {
	return findOrCreateTag(s.db, name)
}

func (s *Snippets) resolveTags(names []string) ([]db.Tag, error) {
	tags := make([]db.Tag, 0, len(names))
	for _, name := range names {
		tag, err := findOrCreateTag(s.db, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

func findOrCreateTag(gdb *gorm.DB, name string) (*db.Tag, error) {
	if name == "" {
		return nil, apperror.InvalidArgument("name", "tag name is required")
	}

	tag := db.Tag{}
	err := gdb.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "find tag")
	}

	tag = db.Tag{Name: name}
	err = gdb.Create(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errors.Wrap(err, "create tag")
	}

	// Lost the create race: the unique index rejected us, so the row exists.
	tag = db.Tag{}
	if err := gdb.Where("name = ?", name).First(&tag).Error; err != nil {
		return nil, errors.Wrap(err, "reread tag after conflict")
	}
	return &tag, nil
}

// ownedFolders loads the given folders scoped to the user. Any id that is
// absent or foreign makes the whole call fail with NotFound, so callers can
// never attach a snippet to someone else's folder.
func ownedFolders(gdb *gorm.DB, userID uint64, folderIDs []uint64) ([]db.Folder, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}

	folders := make([]db.Folder, 0, len(folderIDs))
	err := gdb.Where("id IN ? AND user_id = ?", folderIDs, userID).Find(&folders).Error
	if err != nil {
		return nil, errors.Wrap(err, "find folders")
	}

	found := make(map[uint64]struct{}, len(folders))
	for _, f := range folders {
		found[f.ID] = struct{}{}
	}
	for _, id := range folderIDs {
		if _, ok := found[id]; !ok {
			return nil, apperror.NotFound("folder", id)
		}
	}
	return folders, nil
}
