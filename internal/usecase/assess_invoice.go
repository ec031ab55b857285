package usecase

import (
	"context"
	"errors"

	"trustfuse/internal/domain"
)

type AssessInvoiceRequest struct {
	InvoiceID string
	Signature domain.SignatureVerification
	Anomaly   domain.AnomalySignal
	Amounts   domain.ExtractedAmounts
}

// AssessReceipt pairs the immutable verdict with the side effects that
// accompanied it: the persisted row ID and the review-queue routing.
type AssessReceipt struct {
	InvoiceID string
	VerdictID string
	Verdict   domain.RiskVerdict
	Routing   *RoutingDecision
}

// AssessInvoice runs the fusion engine against one registered invoice
// and records the outcome. Persistence, routing and audit are all
// optional so the same orchestration serves the offline CLI.
type AssessInvoice struct {
	Fuse     *FuseRisk
	Invoices InvoiceRepository
	Verdicts VerdictRepository
	Routing  RoutingPolicy
	Audit    *AuditEmitter
}

func (uc *AssessInvoice) Execute(ctx context.Context, req AssessInvoiceRequest) (*AssessReceipt, error) {
	if uc == nil || uc.Fuse == nil {
		return nil, errors.New("fusion engine required")
	}

	if uc.Invoices != nil {
		if _, err := uc.Invoices.GetByID(ctx, req.InvoiceID); err != nil {
			return nil, err
		}
	}

	verdict, err := uc.Fuse.Execute(ctx, FuseRiskRequest{
		InvoiceID: req.InvoiceID,
		Signature: req.Signature,
		Anomaly:   req.Anomaly,
		Amounts:   req.Amounts,
	})
	if err != nil {
		return nil, err
	}

	receipt := &AssessReceipt{
		InvoiceID: req.InvoiceID,
		Verdict:   *verdict,
	}

	if uc.Verdicts != nil {
		verdictID, err := uc.Verdicts.Create(ctx, req.InvoiceID, *verdict)
		if err != nil {
			return nil, err
		}
		receipt.VerdictID = verdictID
	}
	if uc.Invoices != nil {
		if err := uc.Invoices.UpdateStatus(ctx, req.InvoiceID, domain.InvoiceAnalyzed); err != nil {
			return nil, err
		}
	}
	if uc.Routing != nil {
		routing, err := uc.Routing.Route(ctx, *verdict)
		if err != nil {
			return nil, err
		}
		receipt.Routing = &routing
	}
	if uc.Audit != nil {
		// Audit append failure must not void an already-persisted
		// verdict; the chain gap is detectable by VerifyAuditChain.
		_ = uc.Audit.EmitVerdictRecorded(ctx, req.InvoiceID, receipt.VerdictID, *verdict)
	}
	return receipt, nil
}
