package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/gotube/internal/api/handler"
	"github.com/hszk-dev/gotube/internal/api/middleware"
	"github.com/hszk-dev/gotube/internal/config"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/memory"
	"github.com/hszk-dev/gotube/internal/infrastructure/postgres"
	"github.com/hszk-dev/gotube/internal/infrastructure/queue"
	"github.com/hszk-dev/gotube/internal/infrastructure/session"
	"github.com/hszk-dev/gotube/internal/infrastructure/storage"
	"github.com/hszk-dev/gotube/internal/usecase"
)

const readinessTimeout = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	readiness := make(map[string]handler.Pinger)

	// Document store
	var docs repository.DocumentStore
	switch strings.ToLower(cfg.Database.Backend) {
	case "memory":
		docs = memory.NewDocumentStore()
		logger.Warn("using in-memory document store; data is lost on restart")
	default:
		pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		defer pgClient.Close()
		if err := pgClient.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare schema: %w", err)
		}
		docs = postgres.NewDocumentStore(pgClient.Pool())
		readiness["postgres"] = pgClient
		logger.Info("connected to PostgreSQL")
	}

	// Blob store
	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pinger, ok := blobs.(handler.Pinger); ok {
		readiness["blob_store"] = pinger
	}
	logger.Info("blob store ready", slog.String("backend", cfg.Storage.Backend), slog.String("bucket", cfg.Storage.Bucket))

	// Sessions
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	sessions := session.NewRedisStore(redisClient, cfg.Redis.SessionTTL)
	readiness["redis"] = sessions
	logger.Info("connected to Redis")

	// Cleanup queue is optional; without it failed releases are only logged.
	var cleanupQueue repository.CleanupQueue
	if cfg.RabbitMQ.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		cleanupQueue = queueClient
		logger.Info("connected to RabbitMQ")
	}

	collections := cfg.Collections.Names()
	identity := usecase.NewIdentityResolver(sessions)
	assetSvc := usecase.NewAssetService(blobs, cleanupQueue, usecase.AssetServiceConfig{
		Bucket: cfg.Storage.Bucket,
	})
	videoSvc := usecase.NewVideoService(docs, assetSvc, identity, collections)
	engagementSvc := usecase.NewEngagementService(docs, identity, collections)
	profileSvc := usecase.NewProfileService(docs, assetSvc, engagementSvc, identity, collections, usecase.ProfileServiceConfig{
		InitialsAvatarURL: cfg.Profile.InitialsAvatarURL,
	})

	r := setupRouter(logger, routes{
		video:      handler.NewVideoHandler(videoSvc, cfg.Server.MaxUploadBytes),
		engagement: handler.NewEngagementHandler(engagementSvc, identity),
		profile:    handler.NewProfileHandler(profileSvc, cfg.Server.MaxUploadBytes),
		storage:    handler.NewStorageHandler(assetSvc),
		readiness:  readiness,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (repository.BlobStore, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		return memory.NewBlobStore(cfg.Storage.PublicBaseURL), nil
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			Bucket:          cfg.Storage.Bucket,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to S3: %w", err)
		}
		return store, nil
	default:
		client, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			UseSSL:        cfg.MinIO.UseSSL,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return client, nil
	}
}

type routes struct {
	video      *handler.VideoHandler
	engagement *handler.EngagementHandler
	profile    *handler.ProfileHandler
	storage    *handler.StorageHandler
	readiness  map[string]handler.Pinger
}

func setupRouter(logger *slog.Logger, h routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready(h.readiness, readinessTimeout))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate)

		r.Route("/videos", func(r chi.Router) {
			r.Post("/", h.video.Publish)
			r.Get("/", h.video.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.video.Get)
				r.Patch("/", h.video.Update)
				r.Delete("/", h.video.Delete)
				r.Post("/views", h.video.IncrementViews)

				r.Post("/like", h.engagement.ToggleLike)
				r.Get("/likes", h.engagement.ListLikes)
				r.Post("/bookmark", h.engagement.ToggleBookmark)
				r.Get("/comments", h.engagement.ListComments)
				r.Post("/comments", h.engagement.Comment)
			})
		})

		r.Route("/channels/{id}", func(r chi.Router) {
			r.Post("/subscription", h.engagement.ToggleSubscription)
			r.Get("/subscribers", h.engagement.ListSubscribers)
		})

		r.Get("/me", h.profile.Me)
		r.Get("/me/bookmarks", h.engagement.ListBookmarks)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.profile.Search)
			r.Put("/me/avatar", h.profile.UpdateAvatar)
			r.Get("/{id}", h.profile.Get)
			r.Patch("/{id}", h.profile.Update)
		})

		r.Get("/storage/buckets/{bucket}/files/{fileID}/view", h.storage.View)
	})

	return r
}
