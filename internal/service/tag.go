package service

import (
	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipstash/snipstash-back/internal/db"
)

type (
	Tags struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	TagCount struct {
		Name  string `json:"name"`
		Count int64  `json:"count"`
	}
)

func NewTags(gdb *gorm.DB, l *zap.SugaredLogger) *Tags {
	return &Tags{
		db:     gdb,
		logger: l,
	}
}

// MostUsed ranks the user's tags by how many of their snippets reference
// each, descending. Equal counts order by name ascending so the ranking is
// deterministic.
func (s *Tags) MostUsed(userID uint64) ([]TagCount, error) {
	sql, args, err := squirrel.
		Select("t.name AS name", "COUNT(DISTINCT s.id) AS count").
		From("tags t").
		Join("snippet_tags st ON st.tag_id = t.id").
		Join("snippets s ON s.id = st.snippet_id").
		Where(squirrel.Eq{"s.user_id": userID}).
		GroupBy("t.name").
		OrderBy("COUNT(DISTINCT s.id) DESC", "t.name ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	counts := make([]TagCount, 0)
	if err := s.db.Raw(sql, args...).Scan(&counts).Error; err != nil {
		return nil, errors.Wrap(err, "scan tag counts")
	}
	return counts, nil
}

// ListForUser returns the tags referenced by at least one of the user's
// snippets. A tag used only by other users is not in the user's vocabulary.
func (s *Tags) ListForUser(userID uint64) ([]db.Tag, error) {
	sql, args, err := squirrel.
		Select("t.id", "t.name", "t.created_at", "t.updated_at").
		Distinct().
		From("tags t").
		Join("snippet_tags st ON st.tag_id = t.id").
		Join("snippets s ON s.id = st.snippet_id").
		Where(squirrel.Eq{"s.user_id": userID}).
		OrderBy("t.name ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	tags := make([]db.Tag, 0)
	if err := s.db.Raw(sql, args...).Scan(&tags).Error; err != nil {
		return nil, errors.Wrap(err, "scan tags")
	}
	return tags, nil
}
