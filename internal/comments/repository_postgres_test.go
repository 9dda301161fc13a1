package comments

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/database/dbtest"
)

func TestPostgresRepository(t *testing.T) {
	db := dbtest.Postgres(t)
	testRepository(t, repoFixture{
		repo: NewPostgresRepository(db),
		newPost: func(t *testing.T) (uuid.UUID, uuid.UUID) {
			author := dbtest.PostgresUser(t, db, uniqueName("ann"))
			category := dbtest.PostgresCategory(t, db, uniqueName("Talk"))
			var id uuid.UUID
			err := db.QueryRow("INSERT INTO posts (title, content, author_id, category_id) VALUES ('t', 'c', $1, $2) RETURNING id",
				author, category).Scan(&id)
			if err != nil {
				t.Fatalf("insert post: %v", err)
			}
			return id, author
		},
		add: func(t *testing.T, postID, authorID uuid.UUID, content string, at time.Time) {
			_, err := db.Exec("INSERT INTO comments (post_id, author_id, content, created_at) VALUES ($1, $2, $3, $4)",
				postID, authorID, content, at)
			if err != nil {
				t.Fatalf("insert comment: %v", err)
			}
		},
	})
}
