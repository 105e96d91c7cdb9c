// Package server wires the application together: configuration, database and
// Redis connections, schema migrations, the auth services, and the HTTP API.
// It also owns graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/homedash/internal/buildinfo"
	"github.com/dmitrijs2005/homedash/internal/logging"
	"github.com/dmitrijs2005/homedash/internal/server/auth"
	"github.com/dmitrijs2005/homedash/internal/server/config"
	"github.com/dmitrijs2005/homedash/internal/server/httpapi"
	"github.com/dmitrijs2005/homedash/internal/server/ratelimit"
	"github.com/dmitrijs2005/homedash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/homedash/internal/server/services"
	"github.com/dmitrijs2005/homedash/internal/server/sessions"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	httpServer *httpapi.HTTPServer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// the disable-auth switch only exists in dev builds
	if cfg.InsecureDisableAuth && !buildinfo.DevBuild {
		return nil, errors.New("InsecureDisableAuth is set but this is not a dev build")
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	issuer, err := auth.NewTokenIssuer([]byte(cfg.AccessTokenSecret), []byte(cfg.RefreshTokenSecret),
		cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("token issuer init error: %w", err)
	}

	userService, err := services.NewUserService(db, rm, hasher, issuer, sessions.NewRedisStore(rdb), logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("user service init error: %w", err)
	}

	limiter := ratelimit.New(rdb, ratelimit.Config{Limit: cfg.AuthRateLimit, Window: cfg.AuthRateWindow})

	httpServer, err := httpapi.NewHTTPServer(cfg, logger, userService, services.NewUploadService(cfg), limiter, issuer)
	if err != nil {
		return nil, fmt.Errorf("http server init error: %w", err)
	}

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		redis:      rdb,
		httpServer: httpServer,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, "redis close error", "error", err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
