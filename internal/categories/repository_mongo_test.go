package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/jeremyjsx/inkwell/internal/database/dbtest"
)

func TestMongoRepository(t *testing.T) {
	db := dbtest.Mongo(t)
	testRepository(t, repoFixture{
		repo: NewMongoRepository(db),
		reference: func(t *testing.T, categoryID uuid.UUID) {
			_, err := db.Collection("posts").InsertOne(context.Background(), bson.M{
				"_id":         uuid.NewString(),
				"title":       "t",
				"category_id": categoryID.String(),
				"status":      "draft",
			})
			if err != nil {
				t.Fatalf("insert post: %v", err)
			}
		},
	})
}
