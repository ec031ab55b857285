package db

import (
	"context"
	"encoding/json"
	"time"

	"trustfuse/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerdictRepository struct {
	db *gorm.DB
}

func NewVerdictRepository(db *gorm.DB) *VerdictRepository {
	return &VerdictRepository{db: db}
}

func (r *VerdictRepository) Create(ctx context.Context, invoiceID string, verdict domain.RiskVerdict) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	encoded, err := json.Marshal(verdict)
	if err != nil {
		return "", err
	}
	model := VerdictModel{
		ID:              uuid.NewString(),
		InvoiceID:       invoiceID,
		RiskLevel:       string(verdict.RiskLevel),
		ReviewRequired:  verdict.ReviewRequired,
		OverrideApplied: verdict.OverrideApplied,
		EngineVersion:   verdict.EngineVersion,
		VerdictJSON:     encoded,
		AssessedAt:      verdict.AssessedAt.UTC(),
	}
	if model.AssessedAt.IsZero() {
		model.AssessedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

func (r *VerdictRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]domain.RiskVerdict, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []VerdictModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("assessed_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.RiskVerdict, 0, len(models))
	for _, model := range models {
		var verdict domain.RiskVerdict
		if err := json.Unmarshal(model.VerdictJSON, &verdict); err != nil {
			return nil, err
		}
		out = append(out, verdict)
	}
	return out, nil
}
