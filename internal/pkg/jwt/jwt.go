// Package jwt is the token issuer: it mints and verifies the signed
// bearer credentials shared between the gateway, the auth service and
// the internal services. It holds no state beyond the signing secret.
package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTypeRefresh marks refresh credentials inside the claims.
	TokenTypeRefresh = "refresh"

	// DefaultAccessTTL and DefaultRefreshTTL apply when config leaves the
	// lifetimes unset.
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 24 * time.Hour
)

var (
	// ErrSigningKey means the shared secret is absent or not valid base64.
	ErrSigningKey = errors.New("jwt signing key is absent or malformed")

	ErrMalformedToken   = errors.New("malformed jwt token")
	ErrUnsupportedToken = errors.New("unsupported jwt token")
	ErrExpiredToken     = errors.New("jwt token has expired")
	ErrInvalidToken     = errors.New("invalid jwt token")
)

// Subject is the identity snapshot encoded into a token.
type Subject struct {
	ID       int64
	Username string
	Email    string
	Role     string
}

// Claims is the signed payload. It is the authoritative identity source
// for any party that can verify the signature.
type Claims struct {
	Email     string `json:"email"`
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"tokenType,omitempty"`
	jwtlib.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh credential.
func (c *Claims) IsRefresh() bool { return c.TokenType == TokenTypeRefresh }

// ToSubject rebuilds the identity snapshot carried by verified claims.
func (c *Claims) ToSubject() Subject {
	return Subject{ID: c.UserID, Username: c.Username, Email: c.Email, Role: c.Role}
}

// NormalizeBearer trims spaces and strips an optional Bearer prefix from
// a raw Authorization value.
func NormalizeBearer(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// Config holds the issuer settings.
type Config struct {
	// Secret is the base64-encoded HMAC-SHA256 key shared with the gateway.
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer signs and verifies tokens with a shared HMAC-SHA256 secret.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Issuer{cfg: cfg}
}

// AccessTTL returns the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *Issuer) key() ([]byte, error) {
	if i.cfg.Secret == "" {
		return nil, ErrSigningKey
	}
	key, err := base64.StdEncoding.DecodeString(i.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return key, nil
}

// IssueAccess mints a signed access token for the given subject.
func (i *Issuer) IssueAccess(sub Subject) (string, error) {
	return i.sign(sub, "", i.cfg.AccessTTL)
}

// IssueRefresh mints a signed refresh token: same claims plus
// tokenType=refresh, living for the refresh TTL.
func (i *Issuer) IssueRefresh(sub Subject) (string, error) {
	return i.sign(sub, TokenTypeRefresh, i.cfg.RefreshTTL)
}

func (i *Issuer) sign(sub Subject, tokenType string, ttl time.Duration) (string, error) {
	key, err := i.key()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		Email:     sub.Email,
		UserID:    sub.ID,
		Username:  sub.Username,
		Role:      sub.Role,
		TokenType: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   sub.Username,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(key)
}

// Verify checks the signature and expiry of a token and returns its
// claims. Expiry, structure and signing method each map to a distinct
// error so callers can tell them apart.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	key, err := i.key()
	if err != nil {
		return nil, err
	}

	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: alg %v", ErrUnsupportedToken, t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, ErrUnsupportedToken), errors.Is(err, jwtlib.ErrTokenUnverifiable):
			return nil, ErrUnsupportedToken
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	// The expiry check does not rely on the library validator alone.
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
