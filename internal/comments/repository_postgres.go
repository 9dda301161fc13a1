package comments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

var _ Repository = (*postgresRepository)(nil)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const listByPostQuery = `
SELECT c.id, c.post_id, c.content, c.created_at,
       u.id, u.username, u.first_name, u.last_name, u.avatar
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.post_id = $1
ORDER BY c.created_at, c.id`

func (r *postgresRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	rows, err := r.db.QueryContext(ctx, listByPostQuery, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Content, &c.CreatedAt,
			&c.Author.ID, &c.Author.Username, &c.Author.FirstName, &c.Author.LastName, &c.Author.Avatar); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
