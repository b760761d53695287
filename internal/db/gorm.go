package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/snipstash/snipstash-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Name          string `gorm:"not null"`
		Email         string `gorm:"unique;not null"`
		Password      string `gorm:"not null"`
		EmailVerified bool   `gorm:"not null;default:false"`
		Snippets      []Snippet
		Folders       []Folder
	}

	Snippet struct {
		GormForkedModel
		Title       string `gorm:"not null"`
		Content     string `gorm:"not null"`
		Language    string `gorm:"not null"`
		Description string
		UserID      uint64 `gorm:"not null;index"`
		User        User
		UsageCount  int `gorm:"not null;default:0"`
		LastUsedAt  *time.Time
		Tags        []Tag    `gorm:"many2many:snippet_tags;"`
		Folders     []Folder `gorm:"many2many:folder_snippets;"`
	}

	// Tag names are a shared vocabulary: unique across the whole table,
	// not per user. Ownership is only ever enforced through snippets.
	Tag struct {
		GormForkedModel
		Name     string    `gorm:"not null;uniqueIndex:uidx_tags_name"`
		Snippets []Snippet `gorm:"many2many:snippet_tags;"`
	}

	Folder struct {
		GormForkedModel
		Name        string `gorm:"not null;uniqueIndex:uidx_folders_user_id_name"`
		Description string
		UserID      uint64 `gorm:"not null;uniqueIndex:uidx_folders_user_id_name"`
		User        User
		Snippets    []Snippet `gorm:"many2many:folder_snippets;"`
	}

	VerificationToken struct {
		GormForkedModel
		Email     string `gorm:"not null;index"`
		Code      string `gorm:"not null"`
		ExpiresAt time.Time
		Used      bool `gorm:"not null;default:false"`
	}

	UsageLog struct {
		GormForkedModel
		SnippetID uint64 `gorm:"not null;index"`
		UserID    uint64 `gorm:"not null"`
		Action    string `gorm:"not null"`
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
		// Duplicate-key violations surface as gorm.ErrDuplicatedKey so the
		// find-or-create and folder-name paths can react without parsing
		// driver-specific errors.
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// NewTestClient opens an in-memory sqlite database with the same schema,
// used by the service test suites. The DSN is unique per call so parallel
// tests do not share state, while cache=shared keeps every connection of one
// client's pool on the same database.
func NewTestClient() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	for _, model := range []interface{}{
		&User{}, &Snippet{}, &Tag{}, &Folder{}, &VerificationToken{}, &UsageLog{},
	} {
		if err := db.AutoMigrate(model); err != nil {
			return errors.Wrapf(err, "migrate %T", model)
		}
	}
	return nil
}
