// Package httpapi exposes the authentication service over REST using echo.
// It owns the route table, the auth and rate-limit middleware, and the
// mapping from service errors to HTTP statuses.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/homedash/internal/logging"
	"github.com/dmitrijs2005/homedash/internal/server/auth"
	"github.com/dmitrijs2005/homedash/internal/server/config"
	"github.com/dmitrijs2005/homedash/internal/server/ratelimit"
	"github.com/dmitrijs2005/homedash/internal/server/services"
)

type HTTPServer struct {
	address string
	echo    *echo.Echo
	users   *services.UserService
	uploads *services.UploadService
	limiter *ratelimit.Limiter
	issuer  *auth.TokenIssuer
	logger  logging.Logger
	config  *config.Config
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, us *services.UserService,
	up *services.UploadService, rl *ratelimit.Limiter, issuer *auth.TokenIssuer) (*HTTPServer, error) {

	s := &HTTPServer{
		address: cfg.EndpointAddrHTTP,
		users:   us,
		uploads: up,
		limiter: rl,
		issuer:  issuer,
		logger:  l.With("module", "http_server"),
		config:  cfg,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", s.handleHealthz)

	a := e.Group("/auth")
	a.POST("/register", s.handleRegister, s.rateLimitMiddleware("register"))
	a.POST("/login", s.handleLogin, s.rateLimitMiddleware("login"))
	a.POST("/refresh-token", s.handleRefreshToken, s.rateLimitMiddleware("refresh"))
	a.POST("/logout", s.handleLogout)
	a.GET("/session", s.handleSession, s.optionalAuth)
	a.GET("/profile", s.handleGetProfile, s.requireAuth)
	a.PUT("/profile", s.handleUpdateProfile, s.requireAuth)
	a.POST("/change-password", s.handleChangePassword, s.requireAuth)
	a.POST("/avatar-upload", s.handleAvatarUpload, s.requireAuth)
	a.GET("/avatar-download", s.handleAvatarDownload, s.requireAuth)

	s.echo = e
	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
