// Package identity is the narrow HTTP contract to the remote identity
// service. Every response arrives in a uniform envelope; non-2xx statuses
// are decoded into typed errors at this boundary so callers never see
// transport detail.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/orbitcommerce/auth-core/internal/config"
	"github.com/orbitcommerce/auth-core/internal/pkg/apperrors"
	"go.uber.org/zap"
)

// envelope is the uniform wrapper around every identity-service reply.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Reason  string          `json:"reason"`
	Success bool            `json:"success"`
}

// Client calls the identity service. All calls are bounded by the
// configured timeout; idempotent reads retry once, authenticate never
// does.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:   cfg.BaseURL,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GetByID fetches an identity record by id.
func (c *Client) GetByID(ctx context.Context, id int64) (*User, error) {
	return c.getUser(ctx, fmt.Sprintf("/api/users/internal/%d", id))
}

// GetByUsername fetches an identity record by username.
func (c *Client) GetByUsername(ctx context.Context, username string) (*User, error) {
	return c.getUser(ctx, "/api/users/username/"+url.PathEscape(username))
}

// GetByEmail fetches an identity record by email.
func (c *Client) GetByEmail(ctx context.Context, email string) (*User, error) {
	return c.getUser(ctx, "/api/users/email/"+url.PathEscape(email))
}

// Authenticate validates credentials remotely. The call has side effects
// on failure semantics (lockout counters), so it is never retried.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/users/authenticate", credentials{
		Username: username,
		Password: password,
	}, false)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

// Create registers a new identity record. The password inside reg must
// already be hashed.
func (c *Client) Create(ctx context.Context, reg Registration) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/users/register", reg, false)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

// UpdateLastLogin writes the last-login timestamp on the remote record.
func (c *Client) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/users/internal/%d/last-login", id),
		lastLoginUpdate{LastLoginAt: at}, false)
	return err
}

// Activate redeems an activation key.
func (c *Client) Activate(ctx context.Context, key string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/users/activate?key="+url.QueryEscape(key), nil, false)
	return err
}

// RequestPasswordReset asks the identity service to generate a reset key
// and returns the refreshed record carrying it.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*User, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/users/reset-password/init?email="+url.QueryEscape(email), nil, false)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

// VerifyResetKey checks a reset key without consuming it.
func (c *Client) VerifyResetKey(ctx context.Context, key string) error {
	_, err := c.do(ctx, http.MethodGet, "/api/users/reset-password/verify?key="+url.QueryEscape(key), nil, true)
	return err
}

// FinishPasswordReset persists the new (already hashed) password.
func (c *Client) FinishPasswordReset(ctx context.Context, email, key, hashedPassword string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/users/reset-password/finish", passwordReset{
		Email:       email,
		Key:         key,
		NewPassword: hashedPassword,
	}, false)
	return err
}

func (c *Client) getUser(ctx context.Context, path string) (*User, error) {
	env, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeUser(env)
}

// do performs one call, retrying exactly once on transport errors or 5xx
// when the call is idempotent.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, idempotent bool) (*envelope, error) {
	env, err := c.doOnce(ctx, method, path, payload)
	if err == nil || !idempotent {
		return env, err
	}
	if !isRetryable(err) {
		return nil, err
	}
	c.logger.Warn("identity call failed, retrying once",
		zap.String("method", method), zap.String("path", path), zap.Error(err))
	return c.doOnce(ctx, method, path, payload)
}

func isRetryable(err error) bool {
	return errors.Is(err, apperrors.ErrRemoteUnavailable)
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload interface{}) (*envelope, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if err := decodeStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	env := &envelope{}
	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return nil, fmt.Errorf("%w: bad envelope: %v", apperrors.ErrRemoteUnavailable, err)
	}
	if !env.Success {
		// A 2xx reply can still carry a failed envelope (the identity
		// service reports bad credentials this way).
		return nil, fmt.Errorf("%w: %s", apperrors.ErrRemoteDenied, env.Reason)
	}
	return env, nil
}

// decodeStatus is the explicit error decoder on the remote-call boundary:
// it distinguishes a true 404/400 from a dependency failure.
func decodeStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return apperrors.ErrRemoteNotFound
	case status == http.StatusBadRequest:
		return apperrors.ErrBadRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.ErrRemoteDenied
	default:
		return fmt.Errorf("%w: status %d", apperrors.ErrRemoteUnavailable, status)
	}
}

func decodeUser(env *envelope) (*User, error) {
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: empty data", apperrors.ErrRemoteUnavailable)
	}
	u := &User{}
	if err := json.Unmarshal(env.Data, u); err != nil {
		return nil, fmt.Errorf("%w: bad user payload: %v", apperrors.ErrRemoteUnavailable, err)
	}
	return u, nil
}
