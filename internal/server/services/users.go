// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, token rotation, and the
// rest of the credential/session lifecycle.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/homedash/internal/common"
	"github.com/dmitrijs2005/homedash/internal/dbx"
	"github.com/dmitrijs2005/homedash/internal/logging"
	"github.com/dmitrijs2005/homedash/internal/server/auth"
	"github.com/dmitrijs2005/homedash/internal/server/config"
	"github.com/dmitrijs2005/homedash/internal/server/models"
	"github.com/dmitrijs2005/homedash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/homedash/internal/server/sessions"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLength = 8

// UserService provides authentication-related operations:
//   - Register / Login: create users and verify credentials
//   - Refresh: rotate refresh tokens and mint new access tokens
//   - Logout: revoke a refresh session
//   - ChangePassword / GetProfile / UpdateProfile: account maintenance
type UserService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	hasher       *auth.PasswordHasher
	issuer       *auth.TokenIssuer
	sessions     sessions.Store
	logger       logging.Logger
	storeTimeout time.Duration
	// dummyHash keeps the work profile of a login against an unknown email
	// comparable to one against a wrong password.
	dummyHash string
}

// NewUserService constructs a UserService using repositories, token
// primitives, the session store, and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher,
	issuer *auth.TokenIssuer, store sessions.Store, logger logging.Logger, cfg *config.Config) (*UserService, error) {

	placeholder, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("hashing init error: %w", err)
	}
	dummyHash, err := hasher.Hash(placeholder)
	if err != nil {
		return nil, fmt.Errorf("hashing init error: %w", err)
	}

	return &UserService{
		db:           db,
		repomanager:  m,
		hasher:       hasher,
		issuer:       issuer,
		sessions:     store,
		logger:       logger.With("module", "users_service"),
		storeTimeout: cfg.StoreTimeout,
		dummyHash:    dummyHash,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address; emails are unique
// under this normalization.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates input, hashes the password, creates the user, and
// starts a first session. Duplicate emails yield common.ErrorEmailTaken.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, *TokenPair, error) {
	email = NormalizeEmail(email)
	if !emailRe.MatchString(email) {
		return nil, nil, fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	if len(password) < minPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return nil, nil, common.ErrorInternal
	}

	storeCtx, cancel := s.boundStoreCtx(ctx)
	defer cancel()

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(storeCtx, &models.User{Email: email, PasswordHash: hash, Name: name})
	if err != nil {
		if errors.Is(err, common.ErrorEmailTaken) {
			return nil, nil, common.ErrorEmailTaken
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login verifies the provided credentials and, on success, returns the user
// and a new TokenPair. Unknown email and wrong password both return
// common.ErrorInvalidCredentials with no distinguishing detail.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn a comparison so the unknown-email path does similar work
			s.hasher.Verify(password, s.dummyHash)
			return nil, nil, common.ErrorInvalidCredentials
		}
		return nil, nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, common.ErrorInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh rotates a refresh token. The old session record is consumed
// atomically; a replayed, revoked, expired, or unknown token yields
// common.ErrSessionInvalid. Of two concurrent calls with the same token,
// exactly one can succeed.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.issuer.Verify(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, nil, common.ErrSessionInvalid
	}

	// the subject must still exist
	user, err := s.getUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrSessionInvalid
		}
		return nil, nil, err
	}

	// Mint the replacement pair before touching the store, so the only
	// durable sequence is consume-old then save-new.
	accessToken, err := s.issuer.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	newRefresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	storeCtx, cancel := s.boundStoreCtx(ctx)
	defer cancel()

	ownerID, err := s.sessions.Consume(storeCtx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			return nil, nil, common.ErrSessionInvalid
		}
		return nil, nil, err
	}
	if ownerID != claims.UserID {
		s.logger.Warn(ctx, "refresh session owner mismatch", "user", claims.UserID)
		return nil, nil, common.ErrSessionInvalid
	}

	if err := s.sessions.Save(storeCtx, newRefresh, user.ID, s.issuer.RefreshTTL()); err != nil {
		// The old session is gone and the new one was not stored. Not retried:
		// a blind retry could double-issue. The caller must log in again.
		return nil, nil, err
	}

	return user, &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes the refresh session for the given token. It never fails
// from the caller's perspective: revoking an unknown, expired, or already
// rotated token is a no-op, and store errors are logged but swallowed so a
// stale token holder cannot probe validity.
func (s *UserService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}

	storeCtx, cancel := s.boundStoreCtx(ctx)
	defer cancel()

	if err := s.sessions.Delete(storeCtx, refreshToken); err != nil {
		s.logger.Warn(ctx, "logout session delete failed", "error", err.Error())
	}
}

// ChangePassword re-verifies the current password and stores the new hash
// in one transaction, so a concurrent change cannot slip between the check
// and the update. Outstanding refresh sessions are left untouched.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minPasswordLength)
	}

	storeCtx, cancel := s.boundStoreCtx(ctx)
	defer cancel()

	return dbx.WithTx(storeCtx, s.db, nil, func(txCtx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByID(txCtx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthenticated
			}
			return fmt.Errorf("error reading user: %w", err)
		}

		if !s.hasher.Verify(current, user.PasswordHash) {
			return common.ErrorInvalidCredentials
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			s.logger.Error(ctx, "password hashing failed", "error", err.Error())
			return common.ErrorInternal
		}

		if err := repo.UpdatePassword(txCtx, userID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		return nil
	})
}

// GetProfile returns the user record for an authenticated subject.
// A subject that no longer exists yields common.ErrorUnauthenticated.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// Exists reports whether the subject is still present in the credential store.
func (s *UserService) Exists(ctx context.Context, userID string) (bool, error) {
	_, err := s.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdateProfile replaces the mutable profile fields. Preferences must be a
// valid JSON document; an empty value resets it to the empty object.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, avatarKey string, preferences []byte) (*models.User, error) {
	if len(preferences) == 0 {
		preferences = []byte(`{}`)
	}
	if !json.Valid(preferences) {
		return nil, fmt.Errorf("%w: preferences must be valid JSON", common.ErrorValidation)
	}

	storeCtx, cancel := s.boundStoreCtx(ctx)
	defer cancel()

	user, err := s.repomanager.Users(s.db).UpdateProfile(storeCtx, userID, name, avatarKey, preferences)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	return user, nil
}

// --- helpers below ---

func (s *UserService) boundStoreCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// getUserByEmail reads a user with one bounded retry; credential reads are
// idempotent, so a single transient store failure does not fail the request.
func (s *UserService) getUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.readUser(ctx, func(readCtx context.Context) (*models.User, error) {
		return s.repomanager.Users(s.db).GetByEmail(readCtx, email)
	})
}

func (s *UserService) getUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.readUser(ctx, func(readCtx context.Context) (*models.User, error) {
		return s.repomanager.Users(s.db).GetByID(readCtx, id)
	})
}

func (s *UserService) readUser(ctx context.Context, read func(context.Context) (*models.User, error)) (*models.User, error) {
	var user *models.User

	backoff := retry.WithMaxRetries(1, retry.NewConstant(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		readCtx, cancel := s.boundStoreCtx(ctx)
		defer cancel()

		u, err := read(readCtx)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return err
			}
			return retry.RetryableError(err)
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}

	return user, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := s.issuer.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	storeCtx, cancel := s.boundStoreCtx(ctx)
	defer cancel()

	if err := s.sessions.Save(storeCtx, refresh, user.ID, s.issuer.RefreshTTL()); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
