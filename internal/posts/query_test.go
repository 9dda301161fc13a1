package posts

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jeremyjsx/inkwell/internal/authz"
)

func TestBuildQuery(t *testing.T) {
	draft, published := Draft, Published
	user := &authz.Identity{UserID: uuid.New(), Role: authz.RoleUser}
	admin := &authz.Identity{UserID: uuid.New(), Role: authz.RoleAdmin}
	someone := uuid.New()

	tests := []struct {
		name       string
		filter     Filter
		caller     *authz.Identity
		wantStatus Status
		wantAuthor *uuid.UUID
		wantPage   int
		wantLimit  int
	}{
		{name: "defaults", wantStatus: Published, wantPage: 1, wantLimit: DefaultLimit},
		{name: "limit capped", filter: Filter{Page: 3, Limit: 500}, wantStatus: Published, wantPage: 3, wantLimit: MaxLimit},
		{name: "negative values", filter: Filter{Page: -2, Limit: -1}, wantStatus: Published, wantPage: 1, wantLimit: DefaultLimit},
		{name: "explicit published", filter: Filter{Status: &published}, caller: user, wantStatus: Published, wantPage: 1, wantLimit: DefaultLimit},
		{name: "anonymous draft", filter: Filter{Status: &draft}, wantStatus: Published, wantPage: 1, wantLimit: DefaultLimit},
		{name: "user draft scoped to self", filter: Filter{Status: &draft, Author: &someone}, caller: user, wantStatus: Draft, wantAuthor: &user.UserID, wantPage: 1, wantLimit: DefaultLimit},
		{name: "admin draft unscoped", filter: Filter{Status: &draft}, caller: admin, wantStatus: Draft, wantPage: 1, wantLimit: DefaultLimit},
		{name: "author filter kept", filter: Filter{Author: &someone}, wantStatus: Published, wantAuthor: &someone, wantPage: 1, wantLimit: DefaultLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildQuery(tt.filter, tt.caller)
			assert.Equal(t, tt.wantStatus, q.Status)
			assert.Equal(t, tt.wantPage, q.Page)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, (tt.wantPage-1)*tt.wantLimit, q.Offset())
			if tt.wantAuthor == nil {
				assert.Nil(t, q.Author)
			} else if assert.NotNil(t, q.Author) {
				assert.Equal(t, *tt.wantAuthor, *q.Author)
			}
		})
	}
}

func TestBuildQuery_TrimsSearch(t *testing.T) {
	q := BuildQuery(Filter{Search: "  trains  "}, nil)
	assert.Equal(t, "trains", q.Search)
}

func TestSubstringSearch(t *testing.T) {
	p := &Post{Title: "Night Trains", Content: "<p>Sleeper cars</p>", Excerpt: "rail"}
	assert.True(t, SubstringSearch(p, "night"))
	assert.True(t, SubstringSearch(p, "SLEEPER"))
	assert.True(t, SubstringSearch(p, "rail"))
	assert.False(t, SubstringSearch(p, "ferry"))
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, limit int
		total       int64
		want        Pagination
	}{
		{1, 10, 0, Pagination{CurrentPage: 1, TotalPages: 0, TotalPosts: 0}},
		{1, 10, 10, Pagination{CurrentPage: 1, TotalPages: 1, TotalPosts: 10}},
		{1, 10, 11, Pagination{CurrentPage: 1, TotalPages: 2, TotalPosts: 11, HasNext: true}},
		{2, 10, 11, Pagination{CurrentPage: 2, TotalPages: 2, TotalPosts: 11, HasPrev: true}},
		{5, 10, 11, Pagination{CurrentPage: 5, TotalPages: 2, TotalPosts: 11, HasPrev: true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewPagination(tt.page, tt.limit, tt.total))
	}
}

func TestDeriveExcerpt(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "hello", "hello"},
		{"tags and whitespace", "<h1>Title</h1>\n<p>First   line</p><p>second</p>", "Title First line second"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
		{"script dropped", "<p>ok</p><script>alert(1)</script><style>p{}</style>", "ok"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveExcerpt(tt.in))
		})
	}

	t.Run("truncated to 200 characters", func(t *testing.T) {
		long := "<p>" + strings.Repeat("é", 300) + "</p>"
		got := DeriveExcerpt(long)
		assert.Equal(t, 200, len([]rune(got)))
	})
}
