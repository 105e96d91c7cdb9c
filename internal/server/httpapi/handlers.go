package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/homedash/internal/common"
	"github.com/dmitrijs2005/homedash/internal/server/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type updateProfileRequest struct {
	Name        string          `json:"name"`
	AvatarKey   string          `json:"avatar_key"`
	Preferences json.RawMessage `json:"preferences"`
}

type userResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name,omitempty"`
	AvatarKey   string          `json:"avatar_key,omitempty"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

type authResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"access_token"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		AvatarKey:   u.AvatarKey,
		Preferences: json.RawMessage(u.Preferences),
	}
}

func bindRequest(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrorValidation)
	}
	return nil
}

func (s *HTTPServer) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := bindRequest(c, &req); err != nil {
		return s.writeError(c, err)
	}

	user, pair, err := s.users.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return s.writeError(c, err)
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusCreated, authResponse{User: toUserResponse(user), AccessToken: pair.AccessToken})
}

func (s *HTTPServer) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := bindRequest(c, &req); err != nil {
		return s.writeError(c, err)
	}

	user, pair, err := s.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.writeError(c, err)
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, authResponse{User: toUserResponse(user), AccessToken: pair.AccessToken})
}

func (s *HTTPServer) handleRefreshToken(c echo.Context) error {
	var req refreshRequest
	if err := bindRequest(c, &req); err != nil {
		return s.writeError(c, err)
	}

	token := refreshTokenFromRequest(c, req.RefreshToken)
	if token == "" {
		return s.writeError(c, common.ErrSessionInvalid)
	}

	user, pair, err := s.users.Refresh(c.Request().Context(), token)
	if err != nil {
		return s.writeError(c, err)
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, authResponse{User: toUserResponse(user), AccessToken: pair.AccessToken})
}

// handleLogout always answers 200 so a stale token holder learns nothing.
func (s *HTTPServer) handleLogout(c echo.Context) error {
	var req refreshRequest
	_ = c.Bind(&req)

	s.users.Logout(c.Request().Context(), refreshTokenFromRequest(c, req.RefreshToken))
	s.clearRefreshCookie(c)

	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *HTTPServer) handleSession(c echo.Context) error {
	userID := currentUserID(c)
	if userID == "" {
		return c.JSON(http.StatusOK, map[string]any{"authenticated": false})
	}
	return c.JSON(http.StatusOK, map[string]any{"authenticated": true, "user_id": userID})
}

func (s *HTTPServer) handleGetProfile(c echo.Context) error {
	user, err := s.users.GetProfile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleUpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := bindRequest(c, &req); err != nil {
		return s.writeError(c, err)
	}

	user, err := s.users.UpdateProfile(c.Request().Context(), currentUserID(c), req.Name, req.AvatarKey, req.Preferences)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *HTTPServer) handleChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bindRequest(c, &req); err != nil {
		return s.writeError(c, err)
	}

	if err := s.users.ChangePassword(c.Request().Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "password changed"})
}

func (s *HTTPServer) handleAvatarUpload(c echo.Context) error {
	key, url, err := s.uploads.GetPresignedPutUrl(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"key": key, "upload_url": url})
}

func (s *HTTPServer) handleAvatarDownload(c echo.Context) error {
	user, err := s.users.GetProfile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return s.writeError(c, err)
	}
	if user.AvatarKey == "" {
		return s.writeError(c, fmt.Errorf("%w: no avatar uploaded", common.ErrorValidation))
	}

	url, err := s.uploads.GetPresignedGetUrl(c.Request().Context(), user.AvatarKey)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"download_url": url})
}

func (s *HTTPServer) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
