package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const refreshCookieName = "refresh_token"

// The refresh token travels in a cookie scoped to /auth so the browser never
// attaches it to other routes. Non-browser clients may send it in the request
// body instead.

func (s *HTTPServer) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		MaxAge:   int(s.issuer.RefreshTTL().Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *HTTPServer) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// refreshTokenFromRequest prefers the cookie and falls back to the value the
// handler decoded from the body.
func refreshTokenFromRequest(c echo.Context, bodyToken string) string {
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bodyToken
}
