package repository

import (
	"sort"
	"strings"

	"github.com/lockbox/lockbox/internal/model"
)

// Page size bounds for ListSecrets. DefaultListLimit applies when the
// caller supplies no limit at all; an explicit limit is clamped to
// [MinListLimit, MaxListLimit].
const (
	DefaultListLimit = 100
	MinListLimit     = 1
	MaxListLimit     = 100
)

// SecretFilter narrows and pages an owner's secrets.
type SecretFilter struct {
	Offset int
	Limit  int
	// Search matches title or login name, case-insensitively, as a substring.
	Search string
}

// Normalize clamps paging values into range and trims the search term.
func (f SecretFilter) Normalize() SecretFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit < MinListLimit {
		f.Limit = MinListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Matches reports whether s satisfies the search term.
func (f SecretFilter) Matches(s *model.Secret) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(s.Title), needle) ||
		strings.Contains(strings.ToLower(s.LoginName), needle)
}

// Apply filters, orders and pages secrets in memory. It is used by the
// stores that cannot push the query down to the backend.
func (f SecretFilter) Apply(secrets []*model.Secret) []*model.Secret {
	f = f.Normalize()

	matched := make([]*model.Secret, 0, len(secrets))
	for _, s := range secrets {
		if f.Matches(s) {
			matched = append(matched, s)
		}
	}

	SortNewestFirst(matched)

	if f.Offset >= len(matched) {
		return []*model.Secret{}
	}
	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end]
}

// SortNewestFirst orders by created_at DESC, id DESC.
func SortNewestFirst(secrets []*model.Secret) {
	sort.SliceStable(secrets, func(i, j int) bool {
		a, b := secrets[i], secrets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// likePattern escapes LIKE metacharacters and wraps term for substring matching.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
