package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"trustfuse/internal/domain"

	"github.com/google/uuid"
)

// VendorRegistry owns vendor lifecycle: registration, listing and
// deactivation. Every mutation bumps the registry epoch so cached
// verdicts that embedded vendor trust cannot be served stale, and is
// mirrored into the audit chain.
type VendorRegistry struct {
	Vendors VendorRepository
	Epochs  RegistryEpochRepository
	Audit   *AuditEmitter
	Clock   Clock
}

type RegisterVendorRequest struct {
	VendorName           string
	PublicKeyFingerprint string
	ActorType            domain.AuditActorType
	ActorID              string
}

func (s *VendorRegistry) Register(ctx context.Context, req RegisterVendorRequest) (*domain.VendorRecord, error) {
	if s == nil || s.Vendors == nil {
		return nil, errors.New("vendor repository required")
	}
	if req.VendorName == "" {
		return nil, domain.ErrInvalidSignal
	}
	fingerprint := strings.ToLower(strings.TrimSpace(req.PublicKeyFingerprint))
	if !validFingerprint(fingerprint) {
		return nil, domain.ErrInvalidSignal
	}

	if existing, err := s.Vendors.GetByFingerprint(ctx, fingerprint); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrVendorExists
	}

	vendor := domain.VendorRecord{
		VendorID:             uuid.NewString(),
		VendorName:           req.VendorName,
		PublicKeyFingerprint: fingerprint,
		Status:               domain.VendorActive,
		CreatedAt:            s.now().UTC(),
	}
	if err := s.Vendors.Create(ctx, vendor); err != nil {
		return nil, err
	}
	s.bumpEpoch(ctx)
	if s.Audit != nil {
		_ = s.Audit.EmitVendorRegistered(ctx, req.ActorType, req.ActorID, vendor, domain.AuditResultSuccess, "")
	}
	return &vendor, nil
}

func (s *VendorRegistry) Deactivate(ctx context.Context, vendorID string, actorType domain.AuditActorType, actorID string) error {
	if s == nil || s.Vendors == nil {
		return errors.New("vendor repository required")
	}
	if err := s.Vendors.UpdateStatus(ctx, vendorID, domain.VendorInactive); err != nil {
		return err
	}
	s.bumpEpoch(ctx)
	if s.Audit != nil {
		_ = s.Audit.EmitVendorDeactivated(ctx, actorType, actorID, vendorID, domain.AuditResultSuccess, "")
	}
	return nil
}

func (s *VendorRegistry) List(ctx context.Context) ([]domain.VendorRecord, error) {
	if s == nil || s.Vendors == nil {
		return nil, errors.New("vendor repository required")
	}
	return s.Vendors.List(ctx)
}

func (s *VendorRegistry) bumpEpoch(ctx context.Context) {
	if s.Epochs == nil {
		return
	}
	// Epoch bump failures only widen the cache staleness window; the
	// registry write already succeeded.
	_, _ = s.Epochs.BumpEpoch(ctx)
}

func (s *VendorRegistry) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func validFingerprint(fingerprint string) bool {
	if len(fingerprint) != 64 {
		return false
	}
	for i := 0; i < len(fingerprint); i++ {
		c := fingerprint[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
