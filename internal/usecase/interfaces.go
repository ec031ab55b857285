package usecase

import (
	"context"
	"time"

	"trustfuse/internal/domain"
)

type VendorRepository interface {
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.VendorRecord, error)
	Create(ctx context.Context, vendor domain.VendorRecord) error
	List(ctx context.Context) ([]domain.VendorRecord, error)
	UpdateStatus(ctx context.Context, vendorID string, status domain.VendorStatus) error
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice domain.Invoice) error
	GetByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	GetByFileHash(ctx context.Context, fileHash string) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus) error
	List(ctx context.Context) ([]domain.Invoice, error)
}

type VerdictRepository interface {
	Create(ctx context.Context, invoiceID string, verdict domain.RiskVerdict) (string, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]domain.RiskVerdict, error)
}

type VerdictCache interface {
	Get(ctx context.Context, key string) (*domain.RiskVerdict, bool, error)
	Put(ctx context.Context, key string, verdict domain.RiskVerdict, ttl time.Duration) error
}

// RegistryEpochRepository tracks a monotonically increasing epoch that
// is bumped on every vendor registry mutation. The epoch participates
// in verdict cache keys so a deactivated vendor cannot be served from
// a stale cached verdict.
type RegistryEpochRepository interface {
	GetEpoch(ctx context.Context) (int64, error)
	BumpEpoch(ctx context.Context) (int64, error)
}

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
	ListByScope(ctx context.Context, scopeID string) ([]domain.AuditEvent, error)
}

// RoutingPolicy decides which review queue a fused verdict lands in.
// It is consulted after fusion and never alters the verdict itself.
type RoutingPolicy interface {
	Route(ctx context.Context, verdict domain.RiskVerdict) (RoutingDecision, error)
}

type RoutingDecision struct {
	Queue   string   `json:"queue"`
	Reasons []string `json:"reasons,omitempty"`
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }
