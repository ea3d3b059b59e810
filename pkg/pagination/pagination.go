package pagination

import (
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100

	wildcard = "*"
)

// Params holds offset pagination inputs from controllers or services.
// Page is 0-based.
type Params struct {
	Page  int
	Limit int
	Name  string
}

// Normalize clamps page and limit and trims the name filter.
func (p Params) Normalize() Params {
	if p.Page < 0 {
		p.Page = 0
	}
	p.Limit = NormalizeLimit(p.Limit)
	p.Name = strings.TrimSpace(p.Name)
	return p
}

// Offset is the number of rows skipped before the page starts.
func (p Params) Offset() int {
	n := p.Normalize()
	return n.Page * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// ParseNameFilter splits a filter into its literal value and whether it is a
// prefix match. Only a trailing "*" is a wildcard.
func ParseNameFilter(filter string) (value string, prefix bool) {
	filter = strings.TrimSpace(filter)
	if strings.HasSuffix(filter, wildcard) {
		return strings.TrimSuffix(filter, wildcard), true
	}
	return filter, false
}

// MatchName reports whether candidate passes filter with the same semantics
// the SQL scope applies: empty matches all, "prefix*" matches by prefix,
// anything else must be equal. Comparison is case-sensitive.
func MatchName(filter, candidate string) bool {
	value, prefix := ParseNameFilter(filter)
	switch {
	case value == "":
		return true
	case prefix:
		return strings.HasPrefix(candidate, value)
	default:
		return candidate == value
	}
}

// NameScope filters column by the name filter. Prefix matching compares a
// leading substring instead of using LIKE so behaviour is case-sensitive on
// both postgres and sqlite and needs no escaping of % or _.
func NameScope(column, filter string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		value, prefix := ParseNameFilter(filter)
		if value == "" {
			return db
		}
		if prefix {
			return db.Where("SUBSTR("+column+", 1, ?) = ?", utf8.RuneCountInString(value), value)
		}
		return db.Where(column+" = ?", value)
	}
}

// PageScope orders by idColumn and fetches one row past the page so callers
// can detect whether more rows exist.
func PageScope(idColumn string, p Params) func(*gorm.DB) *gorm.DB {
	n := p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(idColumn + " ASC").Offset(n.Page * n.Limit).Limit(n.Limit + 1)
	}
}

// Trim drops the buffer row fetched by PageScope and reports whether it existed.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	limit = NormalizeLimit(limit)
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
