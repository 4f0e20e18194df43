package store

import (
	"context"
	"time"

	"auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditStore struct{ db *gorm.DB }

func (s *Store) Audits() *AuditStore { return &AuditStore{db: s.DB} }

func (a *AuditStore) Append(ctx context.Context, ev *domain.AuditEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return a.db.WithContext(ctx).Create(ev).Error
}

// RecentForUser exists for operator tooling and tests; the service itself
// never reads the audit trail.
func (a *AuditStore) RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEvent, error) {
	var events []domain.AuditEvent
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return events, nil
}
