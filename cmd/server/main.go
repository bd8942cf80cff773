package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	httpctx "github.com/dtroode/smartmarks-server/internal/api/http/context"
	"github.com/dtroode/smartmarks-server/internal/api/http/router"
	httpserver "github.com/dtroode/smartmarks-server/internal/api/http/server"
	"github.com/dtroode/smartmarks-server/internal/config"
	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/realtime"
	"github.com/dtroode/smartmarks-server/internal/repository/postgres"
	"github.com/dtroode/smartmarks-server/internal/server"
	"github.com/dtroode/smartmarks-server/internal/service"
	storage "github.com/dtroode/smartmarks-server/internal/storage/minio"
	"github.com/dtroode/smartmarks-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	logAppVersion()

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	source, publisher, closeFeed, err := buildFeed(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("failed to initialize realtime feed", "error", err)
	}
	defer closeFeed()

	exports, err := buildExportStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize export storage", "error", err)
	}

	userRepo := postgres.NewUserRepository(db)
	bookmarkRepo := postgres.NewBookmarkRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, cfg.JWT.RefreshTTL, logger)
	authService := service.NewAuth(userRepo, tokenService, logger)
	bookmarkService := service.NewBookmark(bookmarkRepo, publisher, logger)
	exportService := service.NewExport(bookmarkRepo, exports, logger)

	hub := realtime.NewHub(cfg.Realtime.BufferSize, logger)

	r := router.New(router.Services{
		Bookmarks: bookmarkService,
		Auth:      authService,
		Exports:   exportService,
		Tokens:    tokenService,
		Feed:      hub,
		Database:  db,
	}, router.Options{
		AuthRateLimit: cfg.Auth.RateLimit,
		AuthRateBurst: cfg.Auth.RateBurst,
		PingInterval:  cfg.Realtime.PingInterval,
	}, httpctx.NewManager(), logger)

	srv := httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadHeaderTimeout)
	sl := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Closing subscriptions on return ends every open websocket stream.
		if err := hub.Run(gctx, source); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("realtime hub stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting server on", "address", srv.Address(), "https", cfg.HTTP.EnableHTTPS)
		if err := srv.Start(sl); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", srv.Address())
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// buildFeed picks where change events come from. With postgres the trigger
// publishes, so the gateway publisher is a no-op; with redis the gateway
// publishes to the channel the hub subscribes to.
func buildFeed(ctx context.Context, cfg *config.Config, db *postgres.Connection, logger *logger.Logger) (model.ChangeSource, model.ChangePublisher, func(), error) {
	switch cfg.Realtime.Source {
	case config.RealtimeSourceRedis:
		client, err := realtime.NewRedisClient(ctx, realtime.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closeClient := func() {
			if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
				logger.Warn("failed to close redis client", "error", err)
			}
		}
		return realtime.NewRedisSource(client, cfg.Realtime.Channel, logger),
			realtime.NewRedisPublisher(client, cfg.Realtime.Channel),
			closeClient, nil
	default:
		return postgres.NewChangeListener(db, logger), realtime.NopPublisher{}, func() {}, nil
	}
}

// buildExportStorage returns nil when exports are disabled.
func buildExportStorage(ctx context.Context, cfg config.Storage, logger *logger.Logger) (model.Storage, error) {
	if !cfg.Enabled {
		logger.Info("export storage disabled")
		return nil, nil
	}
	client, err := storage.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("export storage ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return client, nil
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
