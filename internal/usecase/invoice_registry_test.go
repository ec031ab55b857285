package usecase

import (
	"context"
	"errors"
	"testing"

	"trustfuse/internal/domain"
)

func TestInvoiceRegistry_Register(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	chain := newChainStore()
	registry := &InvoiceRegistry{
		Invoices: invoices,
		Audit:    NewAuditEmitter(chain, fixedClock{}),
		Clock:    fixedClock{},
	}

	upper := "9F86D081884C7D659A2FEAA0C55AD015A3BF4F1B2B0B822CD15D6C15B0F00A08"
	invoice, err := registry.Register(context.Background(), RegisterInvoiceRequest{
		FileHash:          upper,
		IsSigned:          true,
		CryptoValid:       boolPtr(true),
		SignerFingerprint: testFingerprint,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.FileHash != testFingerprint {
		t.Fatalf("file hash must be stored lowercase, got %q", invoice.FileHash)
	}
	if invoice.Status != domain.InvoiceUploaded {
		t.Fatalf("new invoice must start uploaded, got %s", invoice.Status)
	}

	events, _ := chain.ListByScope(context.Background(), domain.AuditSystemScopeID)
	if len(events) != 1 || events[0].EventType != domain.AuditEventInvoiceRegistered {
		t.Fatalf("expected invoice_registered event, got %+v", events)
	}
}

func TestInvoiceRegistry_Duplicate(t *testing.T) {
	registry := &InvoiceRegistry{Invoices: newFakeInvoiceRepo(), Clock: fixedClock{}}
	req := RegisterInvoiceRequest{FileHash: testFingerprint}
	if _, err := registry.Register(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := registry.Register(context.Background(), req); !errors.Is(err, domain.ErrDuplicateInvoice) {
		t.Fatalf("expected ErrDuplicateInvoice, got %v", err)
	}
}

func TestInvoiceRegistry_BadHash(t *testing.T) {
	registry := &InvoiceRegistry{Invoices: newFakeInvoiceRepo(), Clock: fixedClock{}}
	for _, hash := range []string{"", "abc", "zz86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"} {
		if _, err := registry.Register(context.Background(), RegisterInvoiceRequest{FileHash: hash}); !errors.Is(err, domain.ErrInvalidSignal) {
			t.Fatalf("hash %q: expected ErrInvalidSignal, got %v", hash, err)
		}
	}
}
