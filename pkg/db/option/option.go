package option

import (
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type orderBy struct {
	expr string
}

func (o orderBy) Apply(db *gorm.DB) *gorm.DB { return db.Order(o.expr) }

func WithOrderBy(expr string) QueryOption { return orderBy{expr: expr} }

type limit struct {
	n int
}

func (o limit) Apply(db *gorm.DB) *gorm.DB { return db.Limit(o.n) }

func WithLimit(n int) QueryOption { return limit{n: n} }

type offset struct {
	n int
}

func (o offset) Apply(db *gorm.DB) *gorm.DB { return db.Offset(o.n) }

func WithOffset(n int) QueryOption { return offset{n: n} }

type where struct {
	query string
	args  []any
}

func (o where) Apply(db *gorm.DB) *gorm.DB { return db.Where(o.query, o.args...) }

func WithWhere(query string, args ...any) QueryOption { return where{query: query, args: args} }

type cursorPage struct {
	page pagination.Pagination
}

// Apply seeks past the cursor and fetches one extra row so callers can
// detect whether another page exists.
func (o cursorPage) Apply(db *gorm.DB) *gorm.DB {
	if o.page.PageToken != "" {
		if cursor, err := pagination.DecodeCursor(o.page.PageToken); err == nil && cursor != nil {
			db = db.Where(
				"created_at < ? OR (created_at = ? AND id < ?)",
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
			)
		}
	}
	size := o.page.PageSize
	if size <= 0 {
		size = 50
	}
	return db.Limit(size + 1)
}

func ApplyPagination(page pagination.Pagination) QueryOption { return cursorPage{page: page} }
