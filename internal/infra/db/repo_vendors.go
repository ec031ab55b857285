package db

import (
	"context"
	"errors"

	"trustfuse/internal/domain"

	"gorm.io/gorm"
)

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) Create(ctx context.Context, vendor domain.VendorRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := VendorModel{
		ID:                   vendor.VendorID,
		VendorName:           vendor.VendorName,
		PublicKeyFingerprint: vendor.PublicKeyFingerprint,
		Status:               string(vendor.Status),
		CreatedAt:            vendor.CreatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrVendorExists
	}
	return err
}

func (r *VendorRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.VendorRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model VendorModel
	err := r.db.WithContext(ctx).
		First(&model, "public_key_fingerprint = ?", fingerprint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	vendor := vendorFromModel(model)
	return &vendor, nil
}

func (r *VendorRepository) List(ctx context.Context) ([]domain.VendorRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []VendorModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.VendorRecord, 0, len(models))
	for _, model := range models {
		out = append(out, vendorFromModel(model))
	}
	return out, nil
}

func (r *VendorRepository) UpdateStatus(ctx context.Context, vendorID string, status domain.VendorStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&VendorModel{}).
		Where("id = ?", vendorID).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func vendorFromModel(model VendorModel) domain.VendorRecord {
	return domain.VendorRecord{
		VendorID:             model.ID,
		VendorName:           model.VendorName,
		PublicKeyFingerprint: model.PublicKeyFingerprint,
		Status:               domain.VendorStatus(model.Status),
		CreatedAt:            model.CreatedAt.UTC(),
	}
}
