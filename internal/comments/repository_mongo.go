package comments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jeremyjsx/inkwell/internal/users"
)

var _ Repository = (*mongoRepository)(nil)

type mongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{col: db.Collection("comments")}
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	PostID    string    `bson:"post_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	Author    struct {
		ID        string `bson:"_id"`
		Username  string `bson:"username"`
		FirstName string `bson:"first_name"`
		LastName  string `bson:"last_name"`
		Avatar    string `bson:"avatar"`
	} `bson:"author"`
}

func (r *mongoRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]Comment, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"post_id": postID.String()}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "author_id",
			"foreignField": "_id",
			"as":           "author",
		}}},
		{{Key: "$unwind", Value: "$author"}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}

	out := make([]Comment, 0, len(docs))
	for _, d := range docs {
		c := Comment{
			PostID:    postID,
			Content:   d.Content,
			CreatedAt: d.CreatedAt,
			Author: users.Author{
				Username:  d.Author.Username,
				FirstName: d.Author.FirstName,
				LastName:  d.Author.LastName,
				Avatar:    d.Author.Avatar,
			},
		}
		c.ID, _ = uuid.Parse(d.ID)
		c.Author.ID, _ = uuid.Parse(d.Author.ID)
		out = append(out, c)
	}
	return out, nil
}
