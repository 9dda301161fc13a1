package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/comments"
	"github.com/jeremyjsx/inkwell/internal/events"
	"github.com/jeremyjsx/inkwell/internal/metrics"
	"github.com/jeremyjsx/inkwell/internal/validate"
)

const defaultTimeout = 5 * time.Second

// CategoryChecker answers whether a category exists.
type CategoryChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type AssetStore interface {
	Store(ctx context.Context, u assets.Upload) (assets.Ref, error)
	DeleteIfExists(ctx context.Context, ref assets.Ref) error
	URL(ref assets.Ref) string
}

type Dependencies struct {
	Categories CategoryChecker
	Comments   comments.Repository
	Assets     AssetStore
	Events     events.Publisher
	Logger     *slog.Logger
	// Timeout bounds every individual storage and asset call.
	Timeout time.Duration
}

type Service struct {
	repo       Repository
	categories CategoryChecker
	comments   comments.Repository
	assets     AssetStore
	events     events.Publisher
	logger     *slog.Logger
	timeout    time.Duration
}

func NewService(repo Repository, deps Dependencies) *Service {
	s := &Service{
		repo:       repo,
		categories: deps.Categories,
		comments:   deps.Comments,
		assets:     deps.Assets,
		events:     deps.Events,
		logger:     deps.Logger,
		timeout:    deps.Timeout,
	}
	if s.events == nil {
		s.events = events.NoopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	return s
}

// bounded runs fn under the per-operation timeout and classifies its error.
func (s *Service) bounded(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return classify(fn(ctx))
}

// classify passes domain errors through and turns everything else into a
// retryable ErrStorageFailure.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidReference),
		errors.Is(err, ErrStorageFailure),
		errors.Is(err, assets.ErrInvalidAsset),
		errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

func (s *Service) List(ctx context.Context, caller *authz.Identity, f Filter) (*ListResult, error) {
	q := BuildQuery(f, caller)

	var items []*Post
	var total int64
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		if items, err = s.repo.List(ctx, q); err != nil {
			return err
		}
		total, err = s.repo.Count(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, p := range items {
		s.decorate(p)
	}
	return &ListResult{
		Posts:      items,
		Pagination: NewPagination(q.Page, q.Limit, total),
	}, nil
}

// Get returns the post with author profile and comments and counts the
// read. Drafts are reported as missing to anyone but their author or an
// admin.
func (s *Service) Get(ctx context.Context, caller *authz.Identity, id uuid.UUID) (*Post, error) {
	var p *Post
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetDetail(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !visible(p, caller) {
		return nil, ErrNotFound
	}

	err = s.bounded(ctx, func(ctx context.Context) error {
		views, err := s.repo.IncrementViews(ctx, id)
		if err != nil {
			return err
		}
		p.Views = views
		if s.comments == nil {
			p.Comments = []comments.Comment{}
			return nil
		}
		p.Comments, err = s.comments.ListByPost(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.decorate(p)
	return p, nil
}

func (s *Service) Create(ctx context.Context, caller *authz.Identity, in CreateInput, upload *assets.Upload) (*Post, error) {
	if caller == nil {
		return nil, authz.ErrUnauthorized
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	categoryID, err := uuid.Parse(in.Category)
	if err != nil {
		return nil, validate.Field("category", "must be a valid id")
	}
	status := Draft
	if in.Status != "" {
		if status, err = ParseStatus(in.Status); err != nil {
			return nil, validate.Field("status", err.Error())
		}
	}
	if err := s.requireCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	post := &Post{
		Title:      in.Title,
		Content:    in.Content,
		Excerpt:    in.Excerpt,
		AuthorID:   caller.UserID,
		CategoryID: categoryID,
		Tags:       ParseTags(in.Tags),
		Status:     status,
	}
	if post.Excerpt == "" {
		post.Excerpt = DeriveExcerpt(post.Content)
	}

	if upload != nil {
		ref, err := s.storeAsset(ctx, *upload)
		if err != nil {
			return nil, err
		}
		post.FeaturedImage = &ref
	}

	var created *Post
	err = s.bounded(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.Create(ctx, post)
		return err
	})
	if err != nil {
		if post.FeaturedImage != nil {
			s.releaseAsset(ctx, *post.FeaturedImage, uuid.Nil, "create")
		}
		return nil, err
	}

	if created.Status == Published {
		s.published(ctx, created)
	}
	s.decorate(created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, caller *authz.Identity, id uuid.UUID, in UpdateInput, upload *assets.Upload) (*Post, error) {
	if caller == nil {
		return nil, authz.ErrUnauthorized
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwnerOrAdmin(caller, current.AuthorID); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	patch, err := s.buildPatch(ctx, in)
	if err != nil {
		return nil, err
	}
	if upload != nil {
		ref, err := s.storeAsset(ctx, *upload)
		if err != nil {
			return nil, err
		}
		patch.FeaturedImage = &ref
	}
	if patch.Empty() {
		s.decorate(current)
		return current, nil
	}

	var previous assets.Ref
	err = s.bounded(ctx, func(ctx context.Context) error {
		var err error
		previous, err = s.repo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		if patch.FeaturedImage != nil {
			s.releaseAsset(ctx, *patch.FeaturedImage, id, "update")
		}
		return nil, err
	}
	if patch.FeaturedImage != nil && previous != "" && previous != *patch.FeaturedImage {
		s.releaseAsset(ctx, previous, id, "update")
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != Published && updated.Status == Published {
		s.published(ctx, updated)
	}
	s.decorate(updated)
	return updated, nil
}

// Delete removes the featured image first and then the record. A failed
// image delete does not block the record delete; the asset is handed to the
// worker instead.
func (s *Service) Delete(ctx context.Context, caller *authz.Identity, id uuid.UUID) error {
	if caller == nil {
		return authz.ErrUnauthorized
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.RequireOwnerOrAdmin(caller, current.AuthorID); err != nil {
		return err
	}
	if current.FeaturedImage != nil {
		s.releaseAsset(ctx, *current.FeaturedImage, id, "delete")
	}
	return s.bounded(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

func (s *Service) ToggleLike(ctx context.Context, caller *authz.Identity, id uuid.UUID) (*LikeResult, error) {
	if caller == nil {
		return nil, authz.ErrUnauthorized
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(current, caller) {
		return nil, ErrNotFound
	}

	var res LikeResult
	err = s.bounded(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.repo.ToggleLike(ctx, id, caller.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	state := "unliked"
	if res.IsLiked {
		state = "liked"
	}
	metrics.LikeToggles.WithLabelValues(state).Inc()
	return &res, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Post, error) {
	var p *Post
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetByID(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) buildPatch(ctx context.Context, in UpdateInput) (Patch, error) {
	patch := Patch{
		Title:   in.Title,
		Content: in.Content,
		Excerpt: in.Excerpt,
	}
	if in.Category != nil {
		categoryID, err := uuid.Parse(*in.Category)
		if err != nil {
			return Patch{}, validate.Field("category", "must be a valid id")
		}
		if err := s.requireCategory(ctx, categoryID); err != nil {
			return Patch{}, err
		}
		patch.CategoryID = &categoryID
	}
	if in.Tags != nil {
		tags := ParseTags(*in.Tags)
		patch.Tags = &tags
	}
	if in.Status != nil {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return Patch{}, validate.Field("status", err.Error())
		}
		patch.Status = &status
	}
	return patch, nil
}

func (s *Service) requireCategory(ctx context.Context, id uuid.UUID) error {
	if s.categories == nil {
		return nil
	}
	var ok bool
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.categories.Exists(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("category %s: %w", id, ErrInvalidReference)
	}
	return nil
}

func (s *Service) storeAsset(ctx context.Context, u assets.Upload) (assets.Ref, error) {
	if s.assets == nil {
		return "", fmt.Errorf("%w: no asset store configured", ErrStorageFailure)
	}
	var ref assets.Ref
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.assets.Store(ctx, u)
		return err
	})
	return ref, err
}

// releaseAsset deletes ref best-effort. Failures are logged, counted and
// published as orphaned for the worker to reap.
func (s *Service) releaseAsset(ctx context.Context, ref assets.Ref, postID uuid.UUID, op string) {
	if s.assets == nil {
		return
	}
	err := s.bounded(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return s.assets.DeleteIfExists(ctx, ref)
	})
	if err == nil {
		return
	}
	metrics.AssetCleanupFailures.WithLabelValues(op).Inc()
	s.logger.Warn("asset cleanup failed", "ref", ref, "post_id", postID, "operation", op, "error", err)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.events.PublishAssetOrphaned(pubCtx, events.NewAssetOrphaned(string(ref), postID)); err != nil {
		s.logger.Error("publish asset.orphaned failed", "ref", ref, "error", err)
	}
}

func (s *Service) published(ctx context.Context, p *Post) {
	metrics.PostsPublished.Inc()
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	e := events.NewPostPublished(p.ID, p.Title, p.CategoryID, p.AuthorID)
	if err := s.events.PublishPostPublished(pubCtx, e); err != nil {
		s.logger.Error("publish post.published failed", "post_id", p.ID, "error", err)
	}
}

func (s *Service) decorate(p *Post) {
	if p.FeaturedImage != nil && s.assets != nil {
		p.FeaturedImageURL = s.assets.URL(*p.FeaturedImage)
	}
	p.LikesCount = len(p.Likes)
}

func visible(p *Post, caller *authz.Identity) bool {
	if p.Status == Published {
		return true
	}
	return caller != nil && authz.CanMutate(caller.UserID, caller.Role, p.AuthorID)
}

// ParseTags splits a comma-separated list, trimming entries and dropping
// empty ones and repeats.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}
