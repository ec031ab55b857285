package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"trustfuse/internal/domain"
)

type AuditEmitter struct {
	Repo  AuditEventRepository
	Clock Clock
}

func NewAuditEmitter(repo AuditEventRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{
		Repo:  repo,
		Clock: clock,
	}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEvent{}, errors.New("audit repository required")
	}
	if event.EventType == "" || event.TargetType == "" || event.Result == "" || event.ActorType == "" {
		return domain.AuditEvent{}, errors.New("audit event missing required fields")
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

func (e *AuditEmitter) EmitVendorRegistered(ctx context.Context, actorType domain.AuditActorType, actorID string, vendor domain.VendorRecord, result domain.AuditResult, errorCode string) error {
	payload := map[string]any{
		"vendor_id":   vendor.VendorID,
		"vendor_name": vendor.VendorName,
		"fingerprint": vendor.PublicKeyFingerprint,
	}
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:     domain.AuditSystemScopeID,
		ActorType:   actorType,
		ActorIDHash: hashString(actorID),
		EventType:   domain.AuditEventVendorRegistered,
		Payload:     payload,
		TargetType:  domain.AuditTargetVendor,
		TargetID:    vendor.VendorID,
		Result:      result,
		ErrorCode:   errorCode,
	})
	return err
}

func (e *AuditEmitter) EmitVendorDeactivated(ctx context.Context, actorType domain.AuditActorType, actorID string, vendorID string, result domain.AuditResult, errorCode string) error {
	payload := map[string]any{
		"vendor_id": vendorID,
	}
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:     domain.AuditSystemScopeID,
		ActorType:   actorType,
		ActorIDHash: hashString(actorID),
		EventType:   domain.AuditEventVendorDeactivated,
		Payload:     payload,
		TargetType:  domain.AuditTargetVendor,
		TargetID:    vendorID,
		Result:      result,
		ErrorCode:   errorCode,
	})
	return err
}

// EmitVerdictRecorded records the fused outcome. When the structural
// deviation override fired, a second explicit event is appended so the
// trail can distinguish "model said HIGH" from "override said HIGH".
func (e *AuditEmitter) EmitVerdictRecorded(ctx context.Context, invoiceID, verdictID string, verdict domain.RiskVerdict) error {
	payload := map[string]any{
		"invoice_id":          invoiceID,
		"verdict_id":          verdictID,
		"risk_level":          string(verdict.RiskLevel),
		"review_required":     verdict.ReviewRequired,
		"vendor_trust_status": string(verdict.VendorTrustStatus),
		"override_applied":    verdict.OverrideApplied,
		"engine_version":      verdict.EngineVersion,
	}
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:    domain.AuditSystemScopeID,
		ActorType:  domain.AuditActorService,
		EventType:  domain.AuditEventVerdictRecorded,
		Payload:    payload,
		TargetType: domain.AuditTargetVerdict,
		TargetID:   verdictID,
		Result:     domain.AuditResultSuccess,
	})
	if err != nil {
		return err
	}
	if !verdict.OverrideApplied {
		return nil
	}
	overridePayload := map[string]any{
		"invoice_id":       invoiceID,
		"verdict_id":       verdictID,
		"rule":             verdict.OverrideRule,
		"distance_z_score": verdict.DistanceZ,
	}
	_, err = e.Emit(ctx, domain.AuditEvent{
		ScopeID:    domain.AuditSystemScopeID,
		ActorType:  domain.AuditActorService,
		EventType:  domain.AuditEventOverrideApplied,
		Payload:    overridePayload,
		TargetType: domain.AuditTargetVerdict,
		TargetID:   verdictID,
		Result:     domain.AuditResultSuccess,
	})
	return err
}

func (e *AuditEmitter) EmitInvoiceRegistered(ctx context.Context, invoice domain.Invoice, result domain.AuditResult, errorCode string) error {
	payload := map[string]any{
		"invoice_id": invoice.InvoiceID,
		"file_hash":  invoice.FileHash,
	}
	_, err := e.Emit(ctx, domain.AuditEvent{
		ScopeID:    domain.AuditSystemScopeID,
		ActorType:  domain.AuditActorService,
		EventType:  domain.AuditEventInvoiceRegistered,
		Payload:    payload,
		TargetType: domain.AuditTargetInvoice,
		TargetID:   invoice.InvoiceID,
		Result:     result,
		ErrorCode:  errorCode,
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now()
	}
	return time.Now()
}

func hashString(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
