package comments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/jeremyjsx/inkwell/internal/database/dbtest"
)

func TestMongoRepository(t *testing.T) {
	db := dbtest.Mongo(t)
	testRepository(t, repoFixture{
		repo: NewMongoRepository(db),
		newPost: func(t *testing.T) (uuid.UUID, uuid.UUID) {
			return uuid.New(), dbtest.MongoUser(t, db, uniqueName("ann"))
		},
		add: func(t *testing.T, postID, authorID uuid.UUID, content string, at time.Time) {
			_, err := db.Collection("comments").InsertOne(context.Background(), bson.M{
				"_id":        uuid.NewString(),
				"post_id":    postID.String(),
				"author_id":  authorID.String(),
				"content":    content,
				"created_at": at,
			})
			if err != nil {
				t.Fatalf("insert comment: %v", err)
			}
		},
	})
}
