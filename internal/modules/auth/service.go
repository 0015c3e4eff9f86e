// Package auth orchestrates the session lifecycle: login, logout,
// registration, refresh, activation and password reset. It is the only
// component that talks to the identity service, the token store and the
// audit trail together.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orbitcommerce/auth-core/internal/models"
	"github.com/orbitcommerce/auth-core/internal/modules/audit"
	"github.com/orbitcommerce/auth-core/internal/modules/identity"
	"github.com/orbitcommerce/auth-core/internal/modules/token"
	"github.com/orbitcommerce/auth-core/internal/pkg/apperrors"
	jwtpkg "github.com/orbitcommerce/auth-core/internal/pkg/jwt"
	"github.com/orbitcommerce/auth-core/internal/pkg/mail"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Notifier dispatches lifecycle notifications fire-and-forget.
type Notifier interface {
	Dispatch(kind mail.Kind, to mail.Recipient)
}

type Service struct {
	users    *identity.Client
	issuer   *jwtpkg.Issuer
	store    *token.Store
	audit    *audit.Service
	notifier Notifier
	// strictLastLogin makes a failed remote last-login update abort the
	// whole login instead of being logged and ignored.
	strictLastLogin bool
	logger          *zap.Logger
}

func NewService(
	users *identity.Client,
	issuer *jwtpkg.Issuer,
	store *token.Store,
	auditSvc *audit.Service,
	notifier Notifier,
	strictLastLogin bool,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:           users,
		issuer:          issuer,
		store:           store,
		audit:           auditSvc,
		notifier:        notifier,
		strictLastLogin: strictLastLogin,
		logger:          logger,
	}
}

// Login validates credentials remotely and, on success, issues a token
// pair, persists the session under the quota and updates the remote
// last-login timestamp. Every attempt leaves exactly one audit row.
func (s *Service) Login(ctx context.Context, dto LoginDTO, meta RequestMeta) (*LoginResult, error) {
	user, err := s.users.Authenticate(ctx, dto.Username, dto.Password)
	if err != nil {
		// The attempting user is unknown on failure; the row records it
		// with a zero user id.
		s.audit.Record(ctx, 0, meta.IP, meta.UserAgent, false)
		if errors.Is(err, apperrors.ErrRemoteUnavailable) {
			return nil, err
		}
		s.logger.Info("login rejected", zap.String("username", dto.Username))
		return nil, apperrors.ErrAuthenticationFailure
	}

	if !user.Activated && user.ActivationKey != "" {
		s.notifier.Dispatch(mail.KindActivation, recipientOf(user, user.ActivationKey))
		s.audit.Record(ctx, user.ID, meta.IP, meta.UserAgent, true)
		return nil, apperrors.ErrAccountNotActivated
	}

	access, err := s.issuer.IssueAccess(subjectOf(user))
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Add(ctx, user.ID, access, meta.IsMobile())
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		if s.strictLastLogin {
			// Discard the session just created so the failed login leaves
			// no usable credentials behind.
			if rerr := s.store.Revoke(ctx, access, user.ID); rerr != nil {
				s.logger.Error("failed to revoke session after aborted login",
					zap.Int64("user_id", user.ID), zap.Error(rerr))
			}
			return nil, fmt.Errorf("last-login update failed: %w", err)
		}
		s.logger.Warn("last-login update failed, continuing",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	if user.LastLoginAt == nil {
		s.notifier.Dispatch(mail.KindWelcome, recipientOf(user, ""))
	}

	s.audit.Record(ctx, user.ID, meta.IP, meta.UserAgent, true)

	return s.result(access, rec, user), nil
}

// Logout revokes the session holding rawToken. A missing token is a
// no-op, not an error.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	tokenStr := jwtpkg.NormalizeBearer(rawToken)
	if tokenStr == "" {
		return nil
	}
	claims, err := s.issuer.Verify(tokenStr)
	if err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, tokenStr, claims.UserID); err != nil {
		return err
	}
	s.logger.Info("user logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// Register creates a remote identity record after uniqueness checks. A
// remote "not found" on the lookups is the success path; any found
// record is a conflict. The password is hashed before it leaves the
// process.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) error {
	if err := s.ensureAvailable(ctx, "username", func() error {
		_, err := s.users.GetByUsername(ctx, dto.Username)
		return err
	}); err != nil {
		return err
	}
	if err := s.ensureAvailable(ctx, "email", func() error {
		_, err := s.users.GetByEmail(ctx, dto.Email)
		return err
	}); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	created, err := s.users.Create(ctx, identity.Registration{
		Username: dto.Username,
		Email:    dto.Email,
		Password: string(hash),
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrRemoteUnavailable) {
			return err
		}
		return fmt.Errorf("%w: identity creation failed", apperrors.ErrBadRequest)
	}

	s.logger.Info("user registered", zap.String("username", dto.Username))
	s.notifier.Dispatch(mail.KindActivation, recipientOf(created, created.ActivationKey))
	return nil
}

func (s *Service) ensureAvailable(ctx context.Context, field string, lookup func() error) error {
	err := lookup()
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s already exists", apperrors.ErrConflict, field)
	case errors.Is(err, apperrors.ErrRemoteNotFound):
		return nil
	default:
		return err
	}
}

// RefreshSession rotates the session record found by the refresh token
// and returns the new pair.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.issuer.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefresh() {
		return nil, apperrors.ErrTokenNotFound
	}

	rec, user, err := s.store.Refresh(ctx, refreshToken, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.result(rec.AccessValue, rec, user), nil
}

// ValidateToken reports whether a raw token verifies. Used by the public
// validate endpoint; it never reveals why a token is rejected.
func (s *Service) ValidateToken(rawToken string) bool {
	tokenStr := jwtpkg.NormalizeBearer(rawToken)
	if tokenStr == "" {
		return false
	}
	_, err := s.issuer.Verify(tokenStr)
	return err == nil
}

// Activate redeems an activation key. Any failure reads the same from
// the outside.
func (s *Service) Activate(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: activation key must not be blank", apperrors.ErrAccountResource)
	}
	if err := s.users.Activate(ctx, key); err != nil {
		s.logger.Warn("account activation failed", zap.Error(err))
		return fmt.Errorf("%w: no user found for this activation key", apperrors.ErrAccountResource)
	}
	return nil
}

// RequestPasswordReset starts a reset: verify the email exists, have the
// identity service mint a reset key, mail it out.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email must not be blank", apperrors.ErrAccountResource)
	}
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		return fmt.Errorf("%w: email address not found", apperrors.ErrAccountResource)
	}

	updated, err := s.users.RequestPasswordReset(ctx, email)
	if err != nil {
		s.logger.Warn("password reset init failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: could not initiate password reset", apperrors.ErrAccountResource)
	}

	s.notifier.Dispatch(mail.KindPasswordReset, recipientOf(updated, updated.ResetKey))
	return nil
}

// VerifyResetKey checks a reset key without consuming it.
func (s *Service) VerifyResetKey(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: reset key must not be blank", apperrors.ErrAccountResource)
	}
	if err := s.users.VerifyResetKey(ctx, key); err != nil {
		return fmt.Errorf("%w: invalid or expired password reset key", apperrors.ErrAccountResource)
	}
	return nil
}

// FinishPasswordReset re-verifies the key, hashes the new password and
// persists it remotely. Safe to retry.
func (s *Service) FinishPasswordReset(ctx context.Context, dto ResetFinishDTO) error {
	if err := s.VerifyResetKey(ctx, dto.Key); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.users.FinishPasswordReset(ctx, dto.Email, dto.Key, string(hash)); err != nil {
		s.logger.Warn("password reset finish failed", zap.String("email", dto.Email), zap.Error(err))
		return fmt.Errorf("%w: could not finish password reset", apperrors.ErrAccountResource)
	}
	return nil
}

func (s *Service) result(access string, rec *models.TokenModel, user *identity.User) *LoginResult {
	return &LoginResult{
		AccessToken:      access,
		RefreshToken:     rec.RefreshValue,
		TokenType:        rec.TokenType,
		ExpiresIn:        int64(s.issuer.AccessTTL().Seconds()),
		RefreshExpiresIn: int64(s.issuer.RefreshTTL().Seconds()),
		User:             *user,
	}
}

func subjectOf(u *identity.User) jwtpkg.Subject {
	return jwtpkg.Subject{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func recipientOf(u *identity.User, key string) mail.Recipient {
	return mail.Recipient{Username: u.Username, Email: u.Email, Key: key}
}
