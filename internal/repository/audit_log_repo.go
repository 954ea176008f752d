package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reconciliation-console/internal/models"
)

type AuditLogRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db, now: time.Now}
}

// Record inserts an audit row, assigning its ID and timestamp when unset.
func (r *AuditLogRepository) Record(ctx context.Context, entry *models.MatchAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Recent returns the newest entries first, optionally narrowed to a session.
func (r *AuditLogRepository) Recent(ctx context.Context, sessionID string, limit int) ([]models.MatchAuditLog, error) {
	var logs []models.MatchAuditLog

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&logs).Error
	return logs, err
}

// FailuresSince counts failed actions after t, for the health endpoint.
func (r *AuditLogRepository) FailuresSince(ctx context.Context, t time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MatchAuditLog{}).
		Where("outcome = ? AND created_at >= ?", models.AuditOutcomeFailure, t).
		Count(&count).Error
	return count, err
}
