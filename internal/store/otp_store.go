package store

import (
	"context"

	"auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OTPStore struct{ db *gorm.DB }

func (s *Store) OTPs() *OTPStore { return &OTPStore{db: s.DB} }

func (o *OTPStore) Create(ctx context.Context, rec *domain.OTPRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return o.db.WithContext(ctx).Create(rec).Error
}

// Latest returns the most recently created record for the user. Older rows
// may still exist briefly between issue and purge; they are never consulted.
func (o *OTPStore) Latest(ctx context.Context, userID uuid.UUID) (*domain.OTPRecord, error) {
	var rec domain.OTPRecord
	err := o.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// IncrementAttempts bumps the counter with a SQL expression so concurrent
// failures each land, even though the lock decision upstream still derives
// from the value read before this write.
func (o *OTPStore) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return o.db.WithContext(ctx).Model(&domain.OTPRecord{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

func (o *OTPStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return o.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.OTPRecord{}).Error
}
