package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Base is embedded by the domain repositories and carries the connection
// their queries run on.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx yields the raw connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// FindOne loads the first row of tx into a new T. A miss yields (nil, nil) so
// callers can treat absence as a normal outcome.
func FindOne[T any](tx *gorm.DB) (*T, error) {
	var row T
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Active restricts a query to rows with is_active set.
func Active(tx *gorm.DB) *gorm.DB {
	return tx.Where("is_active = ?", true)
}

// Page applies offset/limit. A non-positive limit leaves the query unbounded.
func Page(offset, limit int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if offset > 0 {
			tx = tx.Offset(offset)
		}
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		return tx
	}
}

// CreatedBefore restricts a query to rows created before cutoff. Timestamps
// are stored in UTC.
func CreatedBefore(cutoff time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("created_at < ?", cutoff.UTC())
	}
}

// ContainsAny matches rows where any of columns contains query,
// case-insensitively. LIKE wildcards in query are matched literally.
func ContainsAny(query string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if len(columns) == 0 {
			return tx
		}
		pattern := "%" + EscapeLike(strings.ToLower(query)) + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			clauses = append(clauses, "LOWER(COALESCE("+col+", '')) LIKE ? ESCAPE '\\'")
			args = append(args, pattern)
		}
		return tx.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
}

// EscapeLike escapes LIKE metacharacters using backslash.
func EscapeLike(value string) string {
	return likeEscaper.Replace(value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
