package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/homedash/internal/common"
)

// TokenKind selects which signing key a token is issued and verified with.
type TokenKind int

const (
	// TokenAccess is the short-lived stateless credential checked on every request.
	TokenAccess TokenKind = iota
	// TokenRefresh is the long-lived credential additionally registered in the
	// session store. It is signed with a separate key, so a leaked access
	// signing key cannot mint refresh tokens.
	TokenRefresh
)

// Claims carries the registered claims plus the user identity.
// Email is only set on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
}

// TokenIssuer mints and verifies HS256-signed tokens with independent
// access and refresh keys.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. Both secrets must be non-empty
// and distinct.
func NewTokenIssuer(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token validity durations must be positive")
	}
	return &TokenIssuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// RefreshTTL returns the configured refresh token lifetime. The session
// store uses it as the record TTL so both expire together.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// AccessTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

// IssueAccess mints a signed access token for the user.
func (i *TokenIssuer) IssueAccess(userID string, email string) (string, error) {
	return i.issue(TokenAccess, userID, email, i.accessTTL)
}

// IssueRefresh mints a signed refresh token for the user. The jti makes
// every issued token unique even within a single clock tick.
func (i *TokenIssuer) IssueRefresh(userID string) (string, error) {
	return i.issue(TokenRefresh, userID, "", i.refreshTTL)
}

func (i *TokenIssuer) issue(kind TokenKind, userID string, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(i.secret(kind))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks the signature and expiry of tokenString against the key for
// kind and returns its claims. Failures are reported as typed sentinels:
// common.ErrTokenExpired, common.ErrTokenMalformed (not a parseable token),
// or common.ErrTokenInvalid (well-formed but wrong signature or otherwise
// unacceptable). Verify never consults any store.
func (i *TokenIssuer) Verify(tokenString string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret(kind), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, common.ErrTokenMalformed
		default:
			return nil, common.ErrTokenInvalid
		}
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrTokenInvalid
	}

	return claims, nil
}

func (i *TokenIssuer) secret(kind TokenKind) []byte {
	if kind == TokenRefresh {
		return i.refreshSecret
	}
	return i.accessSecret
}
