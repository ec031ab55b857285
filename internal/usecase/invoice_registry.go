package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"trustfuse/internal/domain"

	"github.com/google/uuid"
)

// InvoiceRegistry records uploaded documents by file hash. Extraction
// and storage of the file bytes happen in the collaborator layer; only
// the identity row lives here.
type InvoiceRegistry struct {
	Invoices InvoiceRepository
	Audit    *AuditEmitter
	Clock    Clock
}

type RegisterInvoiceRequest struct {
	FileHash          string
	IsSigned          bool
	CryptoValid       *bool
	SignerFingerprint string
}

func (s *InvoiceRegistry) Register(ctx context.Context, req RegisterInvoiceRequest) (*domain.Invoice, error) {
	if s == nil || s.Invoices == nil {
		return nil, errors.New("invoice repository required")
	}
	fileHash := strings.ToLower(strings.TrimSpace(req.FileHash))
	if !validFingerprint(fileHash) {
		// File hashes share the SHA-256 hex shape with fingerprints.
		return nil, domain.ErrInvalidSignal
	}

	if existing, err := s.Invoices.GetByFileHash(ctx, fileHash); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrDuplicateInvoice
	}

	invoice := domain.Invoice{
		InvoiceID:         uuid.NewString(),
		FileHash:          fileHash,
		IsSigned:          req.IsSigned,
		CryptoValid:       req.CryptoValid,
		SignerFingerprint: req.SignerFingerprint,
		Status:            domain.InvoiceUploaded,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.Invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	if s.Audit != nil {
		_ = s.Audit.EmitInvoiceRegistered(ctx, invoice, domain.AuditResultSuccess, "")
	}
	return &invoice, nil
}

func (s *InvoiceRegistry) List(ctx context.Context) ([]domain.Invoice, error) {
	if s == nil || s.Invoices == nil {
		return nil, errors.New("invoice repository required")
	}
	return s.Invoices.List(ctx)
}

func (s *InvoiceRegistry) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}
