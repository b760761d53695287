package service

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snipstash/snipstash-back/internal/apperror"
	"github.com/snipstash/snipstash-back/internal/db"
)

type SortKey string

const (
	SortUpdated      SortKey = "updated"
	SortCreated      SortKey = "created"
	SortMostUsed     SortKey = "most-used"
	SortRecentlyUsed SortKey = "recently-used"

	maxPageSize = 100
)

// Every ordering gets a deterministic id tie-break so equal sort keys cannot
// shuffle rows between pages.
var sortColumns = map[SortKey]string{
	SortUpdated:      "s.updated_at DESC",
	SortCreated:      "s.created_at DESC",
	SortMostUsed:     "s.usage_count DESC",
	SortRecentlyUsed: "s.last_used_at DESC",
}

type (
	Search struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	SearchQuery struct {
		Text     string
		Tags     []string
		Language string
		FolderID uint64
		Page     int
		PageSize int
		Sort     SortKey
	}
)

func NewSearch(gdb *gorm.DB, l *zap.SugaredLogger) *Search {
	return &Search{
		db:     gdb,
		logger: l,
	}
}

// Search returns one page of the user's snippets matching every provided
// predicate, plus the total match count before pagination.
//
// Predicates AND together: ownership (always), case-insensitive substring
// match over title/content/description, tag intersection (the snippet must
// carry every requested tag), exact language, and folder membership. An empty
// result set is a valid answer, not an error.
func (s *Search) Search(userID uint64, q SearchQuery) ([]db.Snippet, int64, error) {
	if q.Page < 1 {
		return nil, 0, apperror.InvalidArgument("page", "page must be positive")
	}
	if q.PageSize < 1 {
		return nil, 0, apperror.InvalidArgument("pageSize", "page size must be positive")
	}
	pageSize := q.PageSize
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sort := q.Sort
	if sort == "" {
		sort = SortUpdated
	}
	orderBy, ok := sortColumns[sort]
	if !ok {
		return nil, 0, apperror.InvalidArgument("sort", "unknown sort key")
	}

	base := squirrel.
		Select("s.id").From("snippets s").
		Where(squirrel.Eq{"s.user_id": userID})

	if q.Text != "" {
		like := "%" + strings.ToLower(q.Text) + "%"
		base = base.Where(squirrel.Or{
			squirrel.Expr("LOWER(s.title) LIKE ?", like),
			squirrel.Expr("LOWER(s.content) LIKE ?", like),
			squirrel.Expr("LOWER(s.description) LIKE ?", like),
		})
	}

	if q.Language != "" {
		base = base.Where(squirrel.Eq{"s.language": q.Language})
	}

	if q.FolderID != 0 {
		base = base.
			Join("folder_snippets fs ON fs.snippet_id = s.id").
			Where(squirrel.Eq{"fs.folder_id": q.FolderID})
	}

	// Tag intersection: restrict the join to the requested names, then keep
	// only snippets whose distinct match count equals the deduplicated
	// request size. The snippet must carry all requested tags, not any.
	tags := dedupNames(q.Tags)
	if len(tags) != 0 {
		base = base.
			Join("snippet_tags st ON st.snippet_id = s.id").
			Join("tags t ON t.id = st.tag_id").
			Where(squirrel.Eq{"t.name": tags}).
			GroupBy("s.id").
			Having("COUNT(DISTINCT t.name) = ?", len(tags))
	}

	// Total before pagination, over the identical predicate set.
	countSQL, countArgs, err := squirrel.
		Select("COUNT(*)").FromSelect(base, "matched").ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build count sql")
	}
	var total int64
	if err := s.db.Raw(countSQL, countArgs...).Scan(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count matches")
	}

	pageSQL, pageArgs, err := base.
		OrderBy(orderBy, "s.id ASC").
		Limit(uint64(pageSize)).
		Offset(uint64((q.Page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build page sql")
	}

	ids := make([]uint64, 0, pageSize)
	if err := s.db.Raw(pageSQL, pageArgs...).Scan(&ids).Error; err != nil {
		return nil, 0, errors.Wrap(err, "select page")
	}
	if len(ids) == 0 {
		return []db.Snippet{}, total, nil
	}

	// Second, explicit fetch for the page's relations; IN loses the page
	// order, so rows are rearranged by id index afterwards.
	loaded := make([]db.Snippet, 0, len(ids))
	if err := s.db.Preload("Tags").Where("id IN ?", ids).Find(&loaded).Error; err != nil {
		return nil, 0, errors.Wrap(err, "load page snippets")
	}

	byID := make(map[uint64]db.Snippet, len(loaded))
	for _, sn := range loaded {
		byID[sn.ID] = sn
	}
	items := make([]db.Snippet, 0, len(ids))
	for _, id := range ids {
		if sn, ok := byID[id]; ok {
			items = append(items, sn)
		}
	}

	return items, total, nil
}
