// Package token is the stateful session-record store. It enforces the
// per-user quota with deterministic eviction and performs the soft-revoke
// and refresh-rotation flows. Only the auth service touches it; the
// gateway never does.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/orbitcommerce/auth-core/internal/models"
	"github.com/orbitcommerce/auth-core/internal/modules/identity"
	"github.com/orbitcommerce/auth-core/internal/pkg/apperrors"
	jwtpkg "github.com/orbitcommerce/auth-core/internal/pkg/jwt"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMaxActive is the per-user quota of non-revoked session records.
const DefaultMaxActive = 3

const tokenTypeBearer = "Bearer"

// IdentityReader is the slice of the identity client the store needs for
// re-minting during insert and refresh.
type IdentityReader interface {
	GetByID(ctx context.Context, id int64) (*identity.User, error)
}

// Store persists session records.
type Store struct {
	db     *gorm.DB
	issuer *jwtpkg.Issuer
	users  IdentityReader
	quota  int
	logger *zap.Logger
}

func NewStore(db *gorm.DB, issuer *jwtpkg.Issuer, users IdentityReader, quota int, logger *zap.Logger) *Store {
	if quota <= 0 {
		quota = DefaultMaxActive
	}
	return &Store{db: db, issuer: issuer, users: users, quota: quota, logger: logger}
}

// Add inserts a new session record for the user, evicting one first when
// the non-revoked count has reached the quota. Eviction prefers the
// oldest non-mobile record; when every active record is mobile it takes
// the oldest overall. The count-evict-insert sequence is deliberately not
// transactional across concurrent logins: a transient quota overshoot
// self-heals on the next Add.
func (s *Store) Add(ctx context.Context, userID int64, accessValue string, isMobile bool) (*models.TokenModel, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var active []models.TokenModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked = ?", userID, false).
		Order("created_at ASC").
		Find(&active).Error; err != nil {
		return nil, err
	}

	if len(active) >= s.quota {
		victim := pickEviction(active)
		if err := s.db.WithContext(ctx).Model(victim).Update("revoked", true).Error; err != nil {
			return nil, err
		}
		s.logger.Info("session quota reached, evicted record",
			zap.Int64("user_id", userID),
			zap.String("token_id", victim.ID),
			zap.Bool("was_mobile", victim.IsMobile))
	}

	refreshValue, err := s.issuer.IssueRefresh(subjectOf(user))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &models.TokenModel{
		UserID:           userID,
		AccessValue:      accessValue,
		RefreshValue:     refreshValue,
		TokenType:        tokenTypeBearer,
		ExpiresAt:        now.Add(s.issuer.AccessTTL()),
		RefreshExpiresAt: now.Add(s.issuer.RefreshTTL()),
		IsMobile:         isMobile,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// pickEviction chooses the record to revoke: oldest non-mobile if any
// exists, otherwise the oldest record. active must be sorted by creation
// time ascending.
func pickEviction(active []models.TokenModel) *models.TokenModel {
	for i := range active {
		if !active[i].IsMobile {
			return &active[i]
		}
	}
	return &active[0]
}

// FindByAccess looks a record up by its access-token value.
func (s *Store) FindByAccess(ctx context.Context, accessValue string) (*models.TokenModel, error) {
	return s.findBy(ctx, "access_value = ?", accessValue)
}

// FindByRefresh looks a record up by its refresh-token value.
func (s *Store) FindByRefresh(ctx context.Context, refreshValue string) (*models.TokenModel, error) {
	return s.findBy(ctx, "refresh_value = ?", refreshValue)
}

func (s *Store) findBy(ctx context.Context, query string, arg string) (*models.TokenModel, error) {
	rec := &models.TokenModel{}
	if err := s.db.WithContext(ctx).Where(query, arg).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Revoke soft-revokes the record holding accessValue. The row is kept for
// audit.
func (s *Store) Revoke(ctx context.Context, accessValue string, requestingUserID int64) error {
	rec, err := s.FindByAccess(ctx, accessValue)
	if err != nil {
		return err
	}
	if rec.Revoked {
		return apperrors.ErrTokenRevoked
	}
	if rec.UserID != requestingUserID {
		return apperrors.ErrOwnershipMismatch
	}
	return s.db.WithContext(ctx).Model(rec).Update("revoked", true).Error
}

// Refresh rotates both token values and both expiries of the record found
// by refreshValue. An expired refresh token deletes the record outright,
// so a second call with the same value reports not-found.
func (s *Store) Refresh(ctx context.Context, refreshValue string, userID int64) (*models.TokenModel, *identity.User, error) {
	rec, err := s.FindByRefresh(ctx, refreshValue)
	if err != nil {
		return nil, nil, err
	}
	if rec.UserID != userID {
		return nil, nil, apperrors.ErrOwnershipMismatch
	}
	if rec.RefreshExpiresAt.Before(time.Now()) {
		if err := s.db.WithContext(ctx).Delete(rec).Error; err != nil {
			return nil, nil, err
		}
		return nil, nil, apperrors.ErrExpiredToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sub := subjectOf(user)

	access, err := s.issuer.IssueAccess(sub)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.issuer.IssueRefresh(sub)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	rec.AccessValue = access
	rec.RefreshValue = refresh
	rec.ExpiresAt = now.Add(s.issuer.AccessTTL())
	rec.RefreshExpiresAt = now.Add(s.issuer.RefreshTTL())
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, nil, err
	}
	return rec, user, nil
}

func subjectOf(u *identity.User) jwtpkg.Subject {
	return jwtpkg.Subject{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
