// Package audit keeps the append-only login trail. One row is written
// per login attempt, successful or not, with a best-effort resolved
// location.
package audit

import (
	"context"
	"time"

	"github.com/orbitcommerce/auth-core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	geo    *GeoClient
	logger *zap.Logger
}

func NewService(db *gorm.DB, geo *GeoClient, logger *zap.Logger) *Service {
	return &Service{db: db, geo: geo, logger: logger}
}

// Record appends one audit row. Geolocation failures never block the
// write; insert failures are logged and swallowed so auditing can never
// fail a login.
func (s *Service) Record(ctx context.Context, userID int64, ip, userAgent string, success bool) {
	loc := s.geo.Lookup(ctx, ip)
	entry := &models.LoginAuditModel{
		UserID:    userID,
		LoginAt:   time.Now(),
		IP:        ip,
		UserAgent: userAgent,
		Location:  loc.String(),
		Success:   success,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Error("failed to record login audit",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.logger.Info("login attempt recorded",
		zap.Int64("user_id", userID),
		zap.String("ip", ip),
		zap.String("location", entry.Location),
		zap.Bool("success", success))
}

// Recent returns the latest attempts for a user, newest first.
func (s *Service) Recent(ctx context.Context, userID int64, limit int) ([]models.LoginAuditModel, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.LoginAuditModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("login_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
