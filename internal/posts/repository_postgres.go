package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/users"
)

var _ Repository = (*postgresRepository)(nil)

// SQLSearch renders the free-text predicate for the Postgres backend. param
// is the placeholder index bound to the value returned by Arg.
type SQLSearch interface {
	Clause(param int) string
	Arg(term string) any
}

// FullTextSearch matches the generated tsvector over title, content and
// excerpt.
type FullTextSearch struct{}

func (FullTextSearch) Clause(param int) string {
	return fmt.Sprintf("p.search @@ websearch_to_tsquery('english', $%d)", param)
}

func (FullTextSearch) Arg(term string) any { return term }

// SubstringSQLSearch is a case-insensitive ILIKE match, useful where the
// text configuration does not fit the content language.
type SubstringSQLSearch struct{}

func (SubstringSQLSearch) Clause(param int) string {
	return fmt.Sprintf("(p.title ILIKE $%[1]d OR p.content ILIKE $%[1]d OR p.excerpt ILIKE $%[1]d)", param)
}

func (SubstringSQLSearch) Arg(term string) any {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
	return "%" + escaped + "%"
}

type postgresRepository struct {
	db     *sql.DB
	search SQLSearch
}

type PostgresOption func(*postgresRepository)

func WithSQLSearch(s SQLSearch) PostgresOption {
	return func(r *postgresRepository) { r.search = s }
}

func NewPostgresRepository(db *sql.DB, opts ...PostgresOption) Repository {
	r := &postgresRepository{db: db, search: FullTextSearch{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const selectPost = `
SELECT p.id, p.title, p.content, p.excerpt, p.author_id, p.category_id, p.tags,
       p.status, p.featured_image, p.views, p.created_at, p.updated_at,
       u.username, u.first_name, u.last_name, u.avatar, %s,
       c.name, c.slug, c.color,
       COALESCE((SELECT array_agg(l.user_id::text ORDER BY l.created_at, l.user_id)
                 FROM post_likes l WHERE l.post_id = p.id), '{}')
FROM posts p
JOIN users u ON u.id = p.author_id
JOIN categories c ON c.id = p.category_id`

var (
	selectSummary = fmt.Sprintf(selectPost, "''")
	selectDetail  = fmt.Sprintf(selectPost, "u.bio")
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		p        Post
		author   users.Author
		category CategoryRef
		image    sql.NullString
		tags     pq.StringArray
		likes    pq.StringArray
		status   string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.AuthorID, &p.CategoryID, &tags,
		&status, &image, &p.Views, &p.CreatedAt, &p.UpdatedAt,
		&author.Username, &author.FirstName, &author.LastName, &author.Avatar, &author.Bio,
		&category.Name, &category.Slug, &category.Color,
		&likes)
	if err != nil {
		return nil, err
	}

	p.Status = Status(status)
	p.Tags = []string(tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if image.Valid {
		ref := assets.Ref(image.String)
		p.FeaturedImage = &ref
	}
	p.Likes = make([]uuid.UUID, 0, len(likes))
	for _, s := range likes {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse like %q: %w", s, err)
		}
		p.Likes = append(p.Likes, id)
	}
	p.LikesCount = len(p.Likes)

	author.ID = p.AuthorID
	category.ID = p.CategoryID
	p.Author = &author
	p.Category = &category
	return &p, nil
}

func (r *postgresRepository) where(q Query) (string, []any) {
	conds := []string{"p.status = $1"}
	args := []any{string(q.Status)}
	if q.Category != nil {
		args = append(args, *q.Category)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if q.Author != nil {
		args = append(args, *q.Author)
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, r.search.Arg(q.Search))
		conds = append(conds, r.search.Clause(len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (r *postgresRepository) List(ctx context.Context, q Query) ([]*Post, error) {
	where, args := r.where(q)
	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf("%s WHERE %s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d",
		selectSummary, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []*Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postgresRepository) Count(ctx context.Context, q Query) (int64, error) {
	where, args := r.where(q)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts p WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	return r.get(ctx, selectSummary, id)
}

func (r *postgresRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Post, error) {
	return r.get(ctx, selectDetail, id)
}

func (r *postgresRepository) get(ctx context.Context, base string, id uuid.UUID) (*Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, base+" WHERE p.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

const insertPost = `
INSERT INTO posts (title, content, excerpt, author_id, category_id, tags, status, featured_image)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

func (r *postgresRepository) Create(ctx context.Context, p *Post) (*Post, error) {
	var image sql.NullString
	if p.FeaturedImage != nil {
		image = sql.NullString{String: string(*p.FeaturedImage), Valid: true}
	}
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, insertPost,
		p.Title, p.Content, p.Excerpt, p.AuthorID, p.CategoryID, pq.StringArray(p.Tags), string(p.Status), image,
	).Scan(&id)
	if err != nil {
		return nil, mapPQError("create post", err)
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, patch Patch) (assets.Ref, error) {
	var sets []string
	args := []any{id}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Content != nil {
		set("content", *patch.Content)
	}
	if patch.Excerpt != nil {
		set("excerpt", *patch.Excerpt)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.Tags != nil {
		set("tags", pq.StringArray(*patch.Tags))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.FeaturedImage != nil {
		set("featured_image", string(*patch.FeaturedImage))
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`
UPDATE posts p SET %s
FROM (SELECT id, featured_image FROM posts WHERE id = $1 FOR UPDATE) old
WHERE p.id = old.id
RETURNING old.featured_image`, strings.Join(sets, ", "))

	var previous sql.NullString
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", mapPQError("update post", err)
	}
	return assets.Ref(previous.String), nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var views int64
	err := r.db.QueryRowContext(ctx, "UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING views", id).Scan(&views)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

// toggleLike flips membership in one statement. The outer SELECT sees the
// snapshot taken before either CTE ran, so the count is adjusted by hand.
const toggleLike = `
WITH removed AS (
    DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2
    RETURNING 1
), added AS (
    INSERT INTO post_likes (post_id, user_id)
    SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM removed)
    ON CONFLICT DO NOTHING
    RETURNING 1
)
SELECT EXISTS (SELECT 1 FROM added),
       (SELECT COUNT(*) FROM post_likes WHERE post_id = $1)
         + (SELECT COUNT(*) FROM added)
         - (SELECT COUNT(*) FROM removed)`

func (r *postgresRepository) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (LikeResult, error) {
	var res LikeResult
	err := r.db.QueryRowContext(ctx, toggleLike, postID, userID).Scan(&res.IsLiked, &res.LikesCount)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" && pqErr.Constraint == "post_likes_post_id_fkey" {
			return LikeResult{}, ErrNotFound
		}
		return LikeResult{}, mapPQError("toggle like", err)
	}
	return res, nil
}

func mapPQError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidReference, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}
