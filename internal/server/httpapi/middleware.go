package httpapi

import (
	"math"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/homedash/internal/buildinfo"
	"github.com/dmitrijs2005/homedash/internal/common"
	"github.com/dmitrijs2005/homedash/internal/server/auth"
)

const userIDContextKey = "userID"

// currentUserID returns the authenticated subject set by the auth middleware,
// or "" for anonymous requests.
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(userIDContextKey).(string); ok {
		return id
	}
	return ""
}

// authenticate resolves the request identity from the Authorization header.
// The token must be a valid access token and its subject must still exist.
func (s *HTTPServer) authenticate(c echo.Context) (string, error) {
	// development identity substitution; compiled out of release builds
	if buildinfo.DevBuild && s.config.InsecureDisableAuth {
		return s.config.DevUserID, nil
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", common.ErrorUnauthenticated
	}

	claims, err := s.issuer.Verify(token, auth.TokenAccess)
	if err != nil {
		return "", common.ErrorUnauthenticated
	}

	ok, err := s.users.Exists(c.Request().Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", common.ErrorUnauthenticated
	}

	return claims.UserID, nil
}

// requireAuth rejects requests without a valid identity.
func (s *HTTPServer) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := s.authenticate(c)
		if err != nil {
			return s.writeError(c, err)
		}
		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

// optionalAuth runs the same checks but lets failures through anonymously.
func (s *HTTPServer) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if userID, err := s.authenticate(c); err == nil && userID != "" {
			c.Set(userIDContextKey, userID)
		}
		return next(c)
	}
}

// rateLimitMiddleware gates an endpoint class per client address. A limiter
// store outage fails the request; it never silently waves traffic through.
func (s *HTTPServer) rateLimitMiddleware(class string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			retryAfter, err := s.limiter.Allow(c.Request().Context(), class, c.RealIP())
			if err != nil {
				if retryAfter > 0 {
					seconds := int(math.Ceil(retryAfter.Seconds()))
					c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				}
				return s.writeError(c, err)
			}
			return next(c)
		}
	}
}
