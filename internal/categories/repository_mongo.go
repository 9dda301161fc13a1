package categories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Repository = (*mongoRepository)(nil)

type categoryDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Slug        string    `bson:"slug"`
	Color       string    `bson:"color"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d categoryDoc) toCategory() (*Category, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse category id %q: %w", d.ID, err)
	}
	return &Category{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Slug:        d.Slug,
		Color:       d.Color,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type mongoRepository struct {
	col   *mongo.Collection
	posts *mongo.Collection
	now   func() time.Time
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		col:   db.Collection("categories"),
		posts: db.Collection("posts"),
		now:   time.Now,
	}
}

func (r *mongoRepository) List(ctx context.Context) ([]Category, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]Category, 0, len(docs))
	for _, d := range docs {
		c, err := d.toCategory()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var d categoryDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return d.toCategory()
}

func (r *mongoRepository) Create(ctx context.Context, c *Category) (*Category, error) {
	now := r.now().UTC()
	d := categoryDoc{
		ID:          uuid.NewString(),
		Name:        c.Name,
		Description: c.Description,
		Slug:        c.Slug,
		Color:       c.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.col.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("create category: %w", ErrDuplicateSlug)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return d.toCategory()
}

func (r *mongoRepository) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Category, error) {
	set := bson.M{"updated_at": r.now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Color != nil {
		set["color"] = *patch.Color
	}
	var d categoryDoc
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, fmt.Errorf("update category: %w", ErrDuplicateSlug)
	case err != nil:
		return nil, fmt.Errorf("update category: %w", err)
	}
	return d.toCategory()
}

// Delete checks for referencing posts first. Mongo has no foreign keys, so
// a post created between the check and the delete can still slip through.
func (r *mongoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.posts.CountDocuments(ctx, bson.M{"category_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n > 0 {
		return ErrInUse
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("category exists: %w", err)
	}
	return n > 0, nil
}
