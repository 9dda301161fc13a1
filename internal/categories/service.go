package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/slug"
	"github.com/jeremyjsx/inkwell/internal/validate"
)

// ListCache holds the full category list between mutations. Get reports a
// generation on a miss; Set must drop the value if Invalidate has run since.
type ListCache interface {
	Get(ctx context.Context) ([]Category, int64, bool)
	Set(ctx context.Context, gen int64, v []Category)
	Invalidate(ctx context.Context)
}

type Service struct {
	repo    Repository
	cache   ListCache
	logger  *slog.Logger
	timeout time.Duration
}

// NewService returns a category service. cache may be nil.
func NewService(repo Repository, cache ListCache, logger *slog.Logger, timeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, cache: cache, logger: logger, timeout: timeout}
}

func (s *Service) bounded(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err := fn(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateSlug),
		errors.Is(err, ErrInUse),
		errors.Is(err, context.Canceled):
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	var gen int64
	if s.cache != nil {
		cached, g, ok := s.cache.Get(ctx)
		if ok {
			return cached, nil
		}
		gen = g
	}
	var out []Category
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, gen, out)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c *Category
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.GetByID(ctx, id)
		return err
	})
	return c, err
}

func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.repo.Exists(ctx, id)
		return err
	})
	return ok, err
}

func (s *Service) Create(ctx context.Context, caller *authz.Identity, in CreateInput) (*Category, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	c := &Category{
		Name:        in.Name,
		Description: in.Description,
		Slug:        slug.Make(in.Name),
		Color:       in.Color,
	}
	if c.Color == "" {
		c.Color = DefaultColor
	}

	var created *Category
	err := s.bounded(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.Create(ctx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info("category created", "category_id", created.ID, "slug", created.Slug)
	return created, nil
}

// Update applies a partial update. The slug is regenerated only when the
// name actually changes.
func (s *Service) Update(ctx context.Context, caller *authz.Identity, id uuid.UUID, in UpdateInput) (*Category, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return nil, err
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := Patch{Description: in.Description, Color: in.Color}
	if in.Name != nil && *in.Name != current.Name {
		newSlug := slug.Make(*in.Name)
		patch.Name = in.Name
		patch.Slug = &newSlug
	}

	var updated *Category
	err = s.bounded(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.Update(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, caller *authz.Identity, id uuid.UUID) error {
	if err := authz.RequireAdmin(caller); err != nil {
		return err
	}
	err := s.bounded(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("category deleted", "category_id", id)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx))
	}
}
