package app

import (
	"context"
	"time"

	"github.com/orbitcommerce/auth-core/internal/models"
	pkgcron "github.com/orbitcommerce/auth-core/internal/pkg/cron"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Revoked and expired session rows are kept this long before the
	// cleanup job removes them.
	tokenRetention = 30 * 24 * time.Hour
	auditRetention = 90 * 24 * time.Hour
)

// registerCronJobs registers the scheduled housekeeping jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, logger *zap.Logger) {
	cronLogger := logger.Named("cron")

	sched.Register(pkgcron.Job{
		Name:        "purge_stale_sessions",
		Description: "remove long-revoked and long-expired session records",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-tokenRetention)
			result := db.WithContext(ctx).
				Where("refresh_expires_at < ?", cutoff).
				Or("revoked = ? AND updated_at < ?", true, cutoff).
				Delete(&models.TokenModel{})
			if result.Error != nil {
				cronLogger.Warn("session purge failed", zap.Error(result.Error))
				return result.Error
			}
			cronLogger.Info("session purge done", zap.Int64("removed", result.RowsAffected))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_login_audits",
		Description: "remove login audit rows past retention",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-auditRetention)
			result := db.WithContext(ctx).
				Where("login_at < ?", cutoff).
				Delete(&models.LoginAuditModel{})
			if result.Error != nil {
				cronLogger.Warn("audit cleanup failed", zap.Error(result.Error))
				return result.Error
			}
			cronLogger.Info("audit cleanup done", zap.Int64("removed", result.RowsAffected))
			return nil
		},
	})
}
