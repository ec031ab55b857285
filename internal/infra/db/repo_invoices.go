package db

import (
	"context"
	"errors"

	"trustfuse/internal/domain"

	"gorm.io/gorm"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice domain.Invoice) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := InvoiceModel{
		ID:                invoice.InvoiceID,
		FileHash:          invoice.FileHash,
		IsSigned:          invoice.IsSigned,
		CryptoValid:       invoice.CryptoValid,
		SignerFingerprint: stringPtrIfNotEmpty(invoice.SignerFingerprint),
		Status:            string(invoice.Status),
		CreatedAt:         invoice.CreatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicateInvoice
	}
	return err
}

func (r *InvoiceRepository) GetByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return r.getOne(ctx, "id = ?", invoiceID)
}

func (r *InvoiceRepository) GetByFileHash(ctx context.Context, fileHash string) (*domain.Invoice, error) {
	return r.getOne(ctx, "file_hash = ?", fileHash)
}

func (r *InvoiceRepository) getOne(ctx context.Context, query string, arg string) (*domain.Invoice, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model InvoiceModel
	err := r.db.WithContext(ctx).First(&model, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	invoice := invoiceFromModel(model)
	return &invoice, nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&InvoiceModel{}).
		Where("id = ?", invoiceID).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepository) List(ctx context.Context) ([]domain.Invoice, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []InvoiceModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Invoice, 0, len(models))
	for _, model := range models {
		out = append(out, invoiceFromModel(model))
	}
	return out, nil
}

func invoiceFromModel(model InvoiceModel) domain.Invoice {
	return domain.Invoice{
		InvoiceID:         model.ID,
		FileHash:          model.FileHash,
		IsSigned:          model.IsSigned,
		CryptoValid:       model.CryptoValid,
		SignerFingerprint: stringValue(model.SignerFingerprint),
		Status:            domain.InvoiceStatus(model.Status),
		CreatedAt:         model.CreatedAt.UTC(),
	}
}
