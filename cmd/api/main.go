package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/cache"
	"github.com/jeremyjsx/inkwell/internal/categories"
	"github.com/jeremyjsx/inkwell/internal/comments"
	"github.com/jeremyjsx/inkwell/internal/config"
	"github.com/jeremyjsx/inkwell/internal/database"
	"github.com/jeremyjsx/inkwell/internal/events"
	"github.com/jeremyjsx/inkwell/internal/handlers"
	"github.com/jeremyjsx/inkwell/internal/posts"
	"github.com/jeremyjsx/inkwell/internal/router"
	"github.com/jeremyjsx/inkwell/internal/session"
	"github.com/jeremyjsx/inkwell/internal/storage"
)

// store is the set of repositories behind one STORE_DRIVER.
type store struct {
	posts      posts.Repository
	categories categories.Repository
	comments   comments.Repository
	close      func()
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()
	health := &handlers.HealthDeps{}

	st, err := openStore(ctx, cfg, health)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	blobs, baseURL, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open asset storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	health.Storage = blobs
	// Assets addressed under /uploads are served by this process whatever
	// the backend.
	var uploads storage.Storage
	if strings.TrimSuffix(baseURL, "/") == "/uploads" {
		uploads = blobs
	}

	var sessions session.Store = session.NewMemoryStore()
	var categoryCache categories.ListCache
	if cfg.RedisAddr != "" {
		redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		health.Redis = redisClient
		sessions = session.NewRedisStore(redisClient)
		categoryCache = cache.NewJSON[[]categories.Category](redisClient, "categories:all", cfg.CategoryCacheTTL, logger)
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process sessions and no category cache")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		health.RabbitMQ = rabbit
		publisher = rabbit
		logger.Info("rabbitmq publisher ready", "exchange", events.ExchangeName)
	}

	categoryService := categories.NewService(st.categories, categoryCache, logger, cfg.OperationTimeout)
	postService := posts.NewService(st.posts, posts.Dependencies{
		Categories: categoryService,
		Comments:   st.comments,
		Assets:     assets.NewStore(blobs, baseURL),
		Events:     publisher,
		Logger:     logger,
		Timeout:    cfg.OperationTimeout,
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Deps{
			Logger:     logger,
			Sessions:   sessions,
			Posts:      handlers.NewPostsHandler(postService, logger),
			Categories: handlers.NewCategoriesHandler(categoryService, logger),
			Health:     health,
			Uploads:    uploads,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, health *handlers.HealthDeps) (*store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		health.DB = db
		return &store{
			posts:      posts.NewPostgresRepository(db),
			categories: categories.NewPostgresRepository(db),
			comments:   comments.NewPostgresRepository(db),
			close:      func() { _ = db.Close() },
		}, nil

	case "mongo":
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		health.Mongo = client
		return &store{
			posts:      posts.NewMongoRepository(db),
			categories: categories.NewMongoRepository(db),
			comments:   comments.NewMongoRepository(db),
			close:      func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case "memory":
		categoryRepo := categories.NewMemoryRepository()
		postRepo := posts.NewMemoryRepository(func(id uuid.UUID) (posts.CategoryRef, bool) {
			c, ok := categoryRepo.Lookup(id)
			return posts.CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug, Color: c.Color}, ok
		})
		categoryRepo.SetDeleteGuard(postRepo.GuardCategoryDelete)
		return &store{
			posts:      postRepo,
			categories: categoryRepo,
			comments:   comments.NewMemoryRepository(),
			close:      func() {},
		}, nil
	}
	return nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}
