package usecase

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"trustfuse/internal/domain"
)

type fakeInvoiceRepo struct {
	byID     map[string]*domain.Invoice
	byHash   map[string]*domain.Invoice
	statuses map[string]domain.InvoiceStatus
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		byID:     make(map[string]*domain.Invoice),
		byHash:   make(map[string]*domain.Invoice),
		statuses: make(map[string]domain.InvoiceStatus),
	}
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, invoice domain.Invoice) error {
	copied := invoice
	f.byID[invoice.InvoiceID] = &copied
	f.byHash[invoice.FileHash] = &copied
	f.statuses[invoice.InvoiceID] = invoice.Status
	return nil
}

func (f *fakeInvoiceRepo) GetByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	if inv, ok := f.byID[invoiceID]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvoiceRepo) GetByFileHash(ctx context.Context, fileHash string) (*domain.Invoice, error) {
	if inv, ok := f.byHash[fileHash]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvoiceRepo) UpdateStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus) error {
	if _, ok := f.byID[invoiceID]; !ok {
		return domain.ErrNotFound
	}
	f.statuses[invoiceID] = status
	f.byID[invoiceID].Status = status
	return nil
}

func (f *fakeInvoiceRepo) List(ctx context.Context) ([]domain.Invoice, error) {
	out := make([]domain.Invoice, 0, len(f.byID))
	for _, inv := range f.byID {
		out = append(out, *inv)
	}
	return out, nil
}

type fakeVerdictRepo struct {
	byInvoice map[string][]domain.RiskVerdict
	nextID    int
}

func (f *fakeVerdictRepo) Create(ctx context.Context, invoiceID string, verdict domain.RiskVerdict) (string, error) {
	if f.byInvoice == nil {
		f.byInvoice = make(map[string][]domain.RiskVerdict)
	}
	f.nextID++
	f.byInvoice[invoiceID] = append(f.byInvoice[invoiceID], verdict)
	return "verdict-" + strconv.Itoa(f.nextID), nil
}

func (f *fakeVerdictRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]domain.RiskVerdict, error) {
	return f.byInvoice[invoiceID], nil
}

type fakeRoutingPolicy struct {
	decision RoutingDecision
	calls    int
}

func (f *fakeRoutingPolicy) Route(ctx context.Context, verdict domain.RiskVerdict) (RoutingDecision, error) {
	f.calls++
	return f.decision, nil
}

func seedInvoice(t *testing.T, invoices *fakeInvoiceRepo, id string) {
	t.Helper()
	err := invoices.Create(context.Background(), domain.Invoice{
		InvoiceID: id,
		FileHash:  testFingerprint,
		Status:    domain.InvoiceUploaded,
	})
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func TestAssessInvoice_FullPipeline(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	seedInvoice(t, invoices, "inv-1")
	verdicts := &fakeVerdictRepo{}
	routing := &fakeRoutingPolicy{decision: RoutingDecision{Queue: "fraud_review", Reasons: []string{"high_risk"}}}
	chain := newChainStore()

	uc := &AssessInvoice{
		Fuse:     newFuseRisk(&fakeVendorRepo{}),
		Invoices: invoices,
		Verdicts: verdicts,
		Routing:  routing,
		Audit:    NewAuditEmitter(chain, fixedClock{}),
	}

	receipt, err := uc.Execute(context.Background(), AssessInvoiceRequest{
		InvoiceID: "inv-1",
		Signature: domain.SignatureVerification{Present: false},
		Anomaly:   domain.AnomalySignal{NormalizedScore: 0.8, DistanceZ: 1.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.VerdictID == "" {
		t.Fatalf("verdict must be persisted and identified")
	}
	if receipt.Verdict.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected HIGH, got %s", receipt.Verdict.RiskLevel)
	}
	if len(verdicts.byInvoice["inv-1"]) != 1 {
		t.Fatalf("verdict not stored")
	}
	if invoices.statuses["inv-1"] != domain.InvoiceAnalyzed {
		t.Fatalf("invoice must transition to analyzed, got %s", invoices.statuses["inv-1"])
	}
	if receipt.Routing == nil || receipt.Routing.Queue != "fraud_review" {
		t.Fatalf("routing decision missing from receipt: %+v", receipt.Routing)
	}
	if routing.calls != 1 {
		t.Fatalf("routing policy must be consulted once, got %d", routing.calls)
	}

	events, _ := chain.ListByScope(context.Background(), domain.AuditSystemScopeID)
	if len(events) != 1 || events[0].EventType != domain.AuditEventVerdictRecorded {
		t.Fatalf("expected verdict_recorded audit event, got %+v", events)
	}
}

func TestAssessInvoice_UnknownInvoice(t *testing.T) {
	uc := &AssessInvoice{
		Fuse:     newFuseRisk(&fakeVendorRepo{}),
		Invoices: newFakeInvoiceRepo(),
	}
	_, err := uc.Execute(context.Background(), AssessInvoiceRequest{
		InvoiceID: "missing",
		Anomaly:   domain.AnomalySignal{NormalizedScore: 0.2},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssessInvoice_InvalidSignalLeavesStateUntouched(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	seedInvoice(t, invoices, "inv-1")
	verdicts := &fakeVerdictRepo{}
	uc := &AssessInvoice{
		Fuse:     newFuseRisk(&fakeVendorRepo{}),
		Invoices: invoices,
		Verdicts: verdicts,
	}
	_, err := uc.Execute(context.Background(), AssessInvoiceRequest{
		InvoiceID: "inv-1",
		Anomaly:   domain.AnomalySignal{NormalizedScore: 2.0},
	})
	if !errors.Is(err, domain.ErrInvalidSignal) {
		t.Fatalf("expected ErrInvalidSignal, got %v", err)
	}
	if len(verdicts.byInvoice["inv-1"]) != 0 {
		t.Fatalf("no verdict may be stored for a rejected signal")
	}
	if invoices.statuses["inv-1"] != domain.InvoiceUploaded {
		t.Fatalf("invoice status must not change on rejection")
	}
}

func TestAssessInvoice_OverrideAuditTrail(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	seedInvoice(t, invoices, "inv-1")
	chain := newChainStore()
	uc := &AssessInvoice{
		Fuse:     newFuseRisk(&fakeVendorRepo{}),
		Invoices: invoices,
		Verdicts: &fakeVerdictRepo{},
		Audit:    NewAuditEmitter(chain, fixedClock{}),
	}
	receipt, err := uc.Execute(context.Background(), AssessInvoiceRequest{
		InvoiceID: "inv-1",
		Anomaly:   domain.AnomalySignal{NormalizedScore: 0.1, DistanceZ: 2.8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !receipt.Verdict.OverrideApplied {
		t.Fatalf("z=2.8 must apply the override")
	}
	events, _ := chain.ListByScope(context.Background(), domain.AuditSystemScopeID)
	if len(events) != 2 || events[1].EventType != domain.AuditEventOverrideApplied {
		t.Fatalf("override must leave an explicit audit event, got %+v", events)
	}
}
