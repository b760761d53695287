package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipstash/snipstash-back/internal/apperror"
	"github.com/snipstash/snipstash-back/internal/db"
)

type Folders struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewFolders(gdb *gorm.DB, l *zap.SugaredLogger) *Folders {
	return &Folders{
		db:     gdb,
		logger: l,
	}
}

// Create stores a folder for the user. Folder names are unique per user, not
// globally; the composite unique index is authoritative, so a concurrent
// duplicate resolves to Conflict just like a sequential one.
func (s *Folders) Create(userID uint64, name, description string) (*db.Folder, error) {
	if name == "" {
		return nil, apperror.InvalidArgument("name", "folder name is required")
	}

	model := db.Folder{
		Name:        name,
		Description: description,
		UserID:      userID,
	}

	err := s.db.Create(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("folder with this name already exists")
		}
		return nil, errors.Wrap(err, "create folder")
	}

	s.logger.Infow("folder created", "id", model.ID, "user", userID)
	return &model, nil
}

// Get returns the folder without its snippets; use GetWithSnippets when the
// caller needs the membership.
func (s *Folders) Get(userID, folderID uint64) (*db.Folder, error) {
	folder := db.Folder{}
	err := s.db.Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("folder", folderID)
		}
		return nil, errors.Wrap(err, "get folder")
	}
	return &folder, nil
}

func (s *Folders) GetWithSnippets(userID, folderID uint64) (*db.Folder, error) {
	folder := db.Folder{}
	err := s.db.
		Preload("Snippets.Tags").
		Where("id = ? AND user_id = ?", folderID, userID).
		First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("folder", folderID)
		}
		return nil, errors.Wrap(err, "get folder with snippets")
	}
	return &folder, nil
}

func (s *Folders) List(userID uint64) ([]db.Folder, error) {
	folders := make([]db.Folder, 0)
	err := s.db.Where("user_id = ?", userID).Order("name ASC").Find(&folders).Error
	if err != nil {
		return nil, errors.Wrap(err, "list folders")
	}
	return folders, nil
}

// Update renames the folder; the per-user uniqueness rule applies the same
// way it does on create.
func (s *Folders) Update(userID, folderID uint64, name, description *string) (*db.Folder, error) {
	folder, err := s.Get(userID, folderID)
	if err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		folder.Name = *name
	}
	if description != nil {
		folder.Description = *description
	}

	err = s.db.Model(folder).
		Select("Name", "Description").
		Updates(folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("folder with this name already exists")
		}
		return nil, errors.Wrap(err, "update folder")
	}

	return folder, nil
}

// Delete removes the folder and its membership rows. Snippets in the folder
// are untouched.
func (s *Folders) Delete(userID, folderID uint64) error {
	folder, err := s.Get(userID, folderID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(folder).Association("Snippets").Clear(); err != nil {
			return errors.Wrap(err, "clear folder snippets")
		}
		return errors.Wrap(tx.Delete(&db.Folder{}, folder.ID).Error, "delete folder")
	})
	if err != nil {
		return err
	}

	s.logger.Infow("folder deleted", "id", folderID, "user", userID)
	return nil
}
