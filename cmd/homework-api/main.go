package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/download"
	"github.com/noah-isme/homework-board/internal/feed"
	"github.com/noah-isme/homework-board/internal/guard"
	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/internal/repository"
	"github.com/noah-isme/homework-board/internal/service"
	"github.com/noah-isme/homework-board/pkg/cache"
	"github.com/noah-isme/homework-board/pkg/config"
	"github.com/noah-isme/homework-board/pkg/database"
	"github.com/noah-isme/homework-board/pkg/logger"
	"github.com/noah-isme/homework-board/pkg/storage"
)

// @title Homework Board API
// @version 1.0.0
// @description Homework feed for students and parents, with a signed-in editor for teachers.
// @BasePath /api/v1
// @schemes http https

const draftSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient == nil {
		logr.Info("redis disabled, using in-process feed notifier and session denylist")
	}

	app, err := build(cfg, logr, db, redisClient)
	if err != nil {
		return err
	}
	defer app.cacheRepo.Close() //nolint:errcheck

	go func() {
		if err := app.hub.Run(ctx); err != nil {
			logr.Error("feed hub stopped", zap.Error(err))
		}
	}()
	go app.drafts.Run(ctx, draftSweepInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type application struct {
	metrics   *service.MetricsService
	cacheRepo *repository.CacheRepository
	hub       *feed.Hub
	auth      *service.AuthService
	homeworks *service.HomeworkService
	drafts    *service.DraftService
	exports   *service.ExportService
	download  *download.Downloader
	policy    guard.Policy
	media     *storage.LocalStore
	ready     func() error
}

func build(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) (*application, error) {
	policy, err := guard.NewPolicy(cfg.Auth.Policy, cfg.Auth.TeacherEmail)
	if err != nil {
		return nil, err
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Feed.CacheTTL, logr, redisClient != nil)

	var notifier feed.Notifier = feed.NewLocalNotifier()
	if redisClient != nil {
		channel := cfg.Feed.ChangeChannel
		if channel == "" {
			channel = feed.DefaultChannel
		}
		notifier = feed.NewRedisNotifier(redisClient, channel)
	}

	uploader, media, err := newUploader(cfg)
	if err != nil {
		return nil, err
	}

	app := &application{metrics: metrics, cacheRepo: cacheRepo, policy: policy, media: media}

	// The hub and the homework service depend on each other: the service
	// publishes changes through the hub, the hub reloads through the service.
	var homeworks *service.HomeworkService
	app.hub = feed.NewHub(
		feed.LoaderFunc(func(ctx context.Context) ([]models.Homework, error) { return homeworks.Load(ctx) }),
		notifier,
		feed.WithLogger(logr.Named("feed")),
		feed.WithSubscriberObserver(metrics.SetFeedSubscribers),
	)
	homeworks = service.NewHomeworkService(
		repository.NewHomeworkRepository(db),
		uploader,
		app.hub,
		cacheSvc,
		metrics,
		cfg.Feed.CacheTTL,
		logr.Named("homework"),
	)
	app.homeworks = homeworks

	app.drafts = service.NewDraftService(
		homeworks,
		storage.NewPreviewSigner(cfg.Drafts.PreviewURLSecret, cfg.Drafts.PreviewURLTTL),
		validate,
		logr.Named("drafts"),
		service.DraftConfig{TTL: cfg.Drafts.TTL, PreviewPath: cfg.APIPrefix + previewRoute},
	)
	app.exports = service.NewExportService(homeworks, logr.Named("export"))

	var verifier service.IDTokenVerifier
	if cfg.Auth.GoogleClientID != "" {
		verifier = service.NewGoogleVerifier(cfg.Auth.GoogleClientID)
	}
	app.auth = service.NewAuthService(
		repository.NewAccountRepository(db),
		repository.NewTokenDenylist(redisClient),
		verifier,
		validate,
		logr.Named("auth"),
		service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		},
	)

	app.download = download.New(
		download.WithHTTPClient(&http.Client{Timeout: cfg.Download.Timeout}),
		download.WithDelay(cfg.Download.ItemDelay),
		download.WithLogger(logr.Named("download")),
	)

	app.ready = func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	return app, nil
}

func imagePolicy(cfg *config.Config) storage.ImagePolicy {
	return storage.ImagePolicy{
		MaxBytes:     cfg.Images.MaxFileSizeBytes,
		MaxDimension: cfg.Images.MaxDimension,
		AllowedMIMEs: cfg.Images.AllowedMIMEs,
	}
}

// newUploader returns the image uploader for the configured driver. The
// local store is also returned so its directory can be served.
func newUploader(cfg *config.Config) (storage.Uploader, *storage.LocalStore, error) {
	policy := imagePolicy(cfg)

	switch cfg.Storage.Driver {
	case config.StorageDriverRemote:
		remote, err := storage.NewRemoteUploader(cfg.Storage.UploadEndpoint, cfg.Storage.UploadPreset, cfg.Storage.UploadTimeout, nil)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewProcessingUploader(remote, policy), nil, nil
	case config.StorageDriverLocal, "":
		local, err := storage.NewLocalStore(cfg.Storage.MediaDir, cfg.Storage.MediaBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewProcessingUploader(local, policy), local, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
