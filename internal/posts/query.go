package posts

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/authz"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Filter is the raw list request as supplied by a client.
type Filter struct {
	Page     int
	Limit    int
	Category *uuid.UUID
	Status   *Status
	Search   string
	Author   *uuid.UUID
}

// Query is a normalized Filter. Every repository renders the same Query into
// its item and count statements so both always agree.
type Query struct {
	Status   Status
	Category *uuid.UUID
	Author   *uuid.UUID
	Search   string
	Page     int
	Limit    int
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// BuildQuery normalizes f for caller. Status defaults to published, and only
// authenticated callers may list drafts: admins see all of them, everyone
// else only their own.
func BuildQuery(f Filter, caller *authz.Identity) Query {
	q := Query{
		Status:   Published,
		Category: f.Category,
		Author:   f.Author,
		Search:   strings.TrimSpace(f.Search),
		Page:     f.Page,
		Limit:    f.Limit,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	if f.Status != nil && *f.Status == Draft && caller != nil {
		q.Status = Draft
		if !caller.Role.IsAdmin() {
			self := caller.UserID
			q.Author = &self
		}
	}
	return q
}

// SearchPredicate reports whether p matches a free-text term. It backs
// repositories without a native text index.
type SearchPredicate func(p *Post, term string) bool

// SubstringSearch matches term case-insensitively against title, content and
// excerpt.
func SubstringSearch(p *Post, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{p.Title, p.Content, p.Excerpt} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Matches applies q to p using search for the text predicate.
func (q Query) Matches(p *Post, search SearchPredicate) bool {
	if p.Status != q.Status {
		return false
	}
	if q.Category != nil && p.CategoryID != *q.Category {
		return false
	}
	if q.Author != nil && p.AuthorID != *q.Author {
		return false
	}
	if q.Search != "" && !search(p, q.Search) {
		return false
	}
	return true
}
