package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/users"
)

var _ Repository = (*mongoRepository)(nil)

// Identifiers are stored as canonical UUID strings.
type postDoc struct {
	ID            string    `bson:"_id"`
	Title         string    `bson:"title"`
	Content       string    `bson:"content"`
	Excerpt       string    `bson:"excerpt"`
	AuthorID      string    `bson:"author_id"`
	CategoryID    string    `bson:"category_id"`
	Tags          []string  `bson:"tags"`
	Status        string    `bson:"status"`
	FeaturedImage *string   `bson:"featured_image"`
	Likes         []string  `bson:"likes"`
	Views         int64     `bson:"views"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`

	Author   []userDoc     `bson:"author,omitempty"`
	Category []categoryDoc `bson:"category,omitempty"`
}

type userDoc struct {
	ID        string `bson:"_id"`
	Username  string `bson:"username"`
	FirstName string `bson:"first_name"`
	LastName  string `bson:"last_name"`
	Avatar    string `bson:"avatar"`
	Bio       string `bson:"bio"`
}

type categoryDoc struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Slug  string `bson:"slug"`
	Color string `bson:"color"`
}

type mongoRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{col: db.Collection("posts"), now: time.Now}
}

func (r *mongoRepository) filter(q Query) bson.M {
	f := bson.M{"status": string(q.Status)}
	if q.Category != nil {
		f["category_id"] = q.Category.String()
	}
	if q.Author != nil {
		f["author_id"] = q.Author.String()
	}
	if q.Search != "" {
		f["$text"] = bson.M{"$search": q.Search}
	}
	return f
}

func lookupStages(detail bool) mongo.Pipeline {
	userFields := bson.M{"username": 1, "first_name": 1, "last_name": 1, "avatar": 1}
	if detail {
		userFields["bio"] = 1
	}
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from": "users",
			"let":  bson.M{"author": "$author_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$author"}}}},
				bson.M{"$project": userFields},
			},
			"as": "author",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": "categories",
			"let":  bson.M{"category": "$category_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$_id", "$$category"}}}},
				bson.M{"$project": bson.M{"name": 1, "slug": 1, "color": 1}},
			},
			"as": "category",
		}}},
	}
}

func (r *mongoRepository) List(ctx context.Context, q Query) ([]*Post, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: r.filter(q)}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64(q.Offset())}},
		{{Key: "$limit", Value: int64(q.Limit)}},
	}
	pipeline = append(pipeline, lookupStages(false)...)
	return r.aggregate(ctx, pipeline)
}

func (r *mongoRepository) Count(ctx context.Context, q Query) (int64, error) {
	n, err := r.col.CountDocuments(ctx, r.filter(q))
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	return r.get(ctx, id, false)
}

func (r *mongoRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Post, error) {
	return r.get(ctx, id, true)
}

func (r *mongoRepository) get(ctx context.Context, id uuid.UUID, detail bool) (*Post, error) {
	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: bson.M{"_id": id.String()}}}}, lookupStages(detail)...)
	out, err := r.aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

func (r *mongoRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]*Post, error) {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	out := make([]*Post, 0, len(docs))
	for _, d := range docs {
		p, err := d.toPost()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (d postDoc) toPost() (*Post, error) {
	p := &Post{
		Title:     d.Title,
		Content:   d.Content,
		Excerpt:   d.Excerpt,
		Tags:      d.Tags,
		Status:    Status(d.Status),
		Views:     d.Views,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Likes:     make([]uuid.UUID, 0, len(d.Likes)),
	}
	var err error
	if p.ID, err = uuid.Parse(d.ID); err != nil {
		return nil, fmt.Errorf("parse post id %q: %w", d.ID, err)
	}
	if p.AuthorID, err = uuid.Parse(d.AuthorID); err != nil {
		return nil, fmt.Errorf("parse author id %q: %w", d.AuthorID, err)
	}
	if p.CategoryID, err = uuid.Parse(d.CategoryID); err != nil {
		return nil, fmt.Errorf("parse category id %q: %w", d.CategoryID, err)
	}
	for _, s := range d.Likes {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse like %q: %w", s, err)
		}
		p.Likes = append(p.Likes, id)
	}
	p.LikesCount = len(p.Likes)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if d.FeaturedImage != nil {
		ref := assets.Ref(*d.FeaturedImage)
		p.FeaturedImage = &ref
	}

	author := users.Author{ID: p.AuthorID}
	if len(d.Author) > 0 {
		u := d.Author[0]
		author.Username, author.FirstName, author.LastName = u.Username, u.FirstName, u.LastName
		author.Avatar, author.Bio = u.Avatar, u.Bio
	}
	p.Author = &author
	if len(d.Category) > 0 {
		c := d.Category[0]
		p.Category = &CategoryRef{ID: p.CategoryID, Name: c.Name, Slug: c.Slug, Color: c.Color}
	}
	return p, nil
}

func (r *mongoRepository) Create(ctx context.Context, p *Post) (*Post, error) {
	now := r.now().UTC()
	doc := postDoc{
		ID:         uuid.NewString(),
		Title:      p.Title,
		Content:    p.Content,
		Excerpt:    p.Excerpt,
		AuthorID:   p.AuthorID.String(),
		CategoryID: p.CategoryID.String(),
		Tags:       p.Tags,
		Status:     string(p.Status),
		Likes:      []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if p.FeaturedImage != nil {
		s := string(*p.FeaturedImage)
		doc.FeaturedImage = &s
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return r.GetByID(ctx, uuid.MustParse(doc.ID))
}

func (r *mongoRepository) Update(ctx context.Context, id uuid.UUID, patch Patch) (assets.Ref, error) {
	set := bson.M{"updated_at": r.now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		set["excerpt"] = *patch.Excerpt
	}
	if patch.CategoryID != nil {
		set["category_id"] = patch.CategoryID.String()
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.FeaturedImage != nil {
		set["featured_image"] = string(*patch.FeaturedImage)
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"featured_image": 1})
	var before struct {
		FeaturedImage *string `bson:"featured_image"`
	}
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update post: %w", err)
	}
	if before.FeaturedImage == nil {
		return "", nil
	}
	return assets.Ref(*before.FeaturedImage), nil
}

func (r *mongoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"views": 1})
	var after struct {
		Views int64 `bson:"views"`
	}
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$inc": bson.M{"views": 1}}, opts).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return after.Views, nil
}

// maxToggleAttempts bounds retries when a concurrent toggle by the same user
// changes membership between the pull and the add.
const maxToggleAttempts = 3

func (r *mongoRepository) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (LikeResult, error) {
	pid, uid := postID.String(), userID.String()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})
	var after struct {
		Likes []string `bson:"likes"`
	}

	for range maxToggleAttempts {
		err := r.col.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "likes": uid},
			bson.M{"$pull": bson.M{"likes": uid}}, opts).Decode(&after)
		if err == nil {
			return LikeResult{IsLiked: false, LikesCount: len(after.Likes)}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return LikeResult{}, fmt.Errorf("unlike post: %w", err)
		}

		err = r.col.FindOneAndUpdate(ctx,
			bson.M{"_id": pid, "likes": bson.M{"$ne": uid}},
			bson.M{"$addToSet": bson.M{"likes": uid}}, opts).Decode(&after)
		if err == nil {
			return LikeResult{IsLiked: true, LikesCount: len(after.Likes)}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return LikeResult{}, fmt.Errorf("like post: %w", err)
		}

		n, err := r.col.CountDocuments(ctx, bson.M{"_id": pid})
		if err != nil {
			return LikeResult{}, fmt.Errorf("toggle like: %w", err)
		}
		if n == 0 {
			return LikeResult{}, ErrNotFound
		}
	}
	return LikeResult{}, fmt.Errorf("toggle like: membership kept changing after %d attempts", maxToggleAttempts)
}
