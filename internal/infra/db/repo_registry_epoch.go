package db

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// RegistryEpochRepository stores one global epoch row that is bumped on
// every vendor registry mutation. The epoch participates in verdict
// cache keys, so a bump implicitly invalidates all cached verdicts.
type RegistryEpochRepository struct {
	db *gorm.DB
}

func NewRegistryEpochRepository(db *gorm.DB) *RegistryEpochRepository {
	return &RegistryEpochRepository{db: db}
}

func (r *RegistryEpochRepository) GetEpoch(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	if err := r.db.WithContext(ctx).Exec(
		`INSERT INTO registry_epoch (id, epoch, updated_at)
		 VALUES (1, 0, ?)
		 ON CONFLICT (id) DO NOTHING`,
		time.Now().UTC(),
	).Error; err != nil {
		return 0, err
	}
	var epoch int64
	if err := r.db.WithContext(ctx).
		Raw(`SELECT epoch FROM registry_epoch WHERE id = 1`).
		Scan(&epoch).Error; err != nil {
		return 0, err
	}
	return epoch, nil
}

func (r *RegistryEpochRepository) BumpEpoch(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var epoch int64
	if err := r.db.WithContext(ctx).
		Raw(
			`INSERT INTO registry_epoch (id, epoch, updated_at)
			 VALUES (1, 1, ?)
			 ON CONFLICT (id)
			 DO UPDATE SET epoch = registry_epoch.epoch + 1, updated_at = EXCLUDED.updated_at
			 RETURNING epoch`,
			time.Now().UTC(),
		).Scan(&epoch).Error; err != nil {
		return 0, err
	}
	return epoch, nil
}
