package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"trustfuse/internal/domain"
)

func TestEngineRoutesByRiskLevel(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name        string
		verdict     domain.RiskVerdict
		wantQueue   string
		wantReasons []string
	}{
		{
			name: "high risk goes to fraud review",
			verdict: domain.RiskVerdict{
				RiskLevel:         domain.RiskHigh,
				ReviewRequired:    true,
				VendorTrustStatus: domain.VendorTrustVerified,
				SignatureStatus:   domain.SignatureTrusted,
			},
			wantQueue:   "fraud_review",
			wantReasons: []string{"high_risk"},
		},
		{
			name: "medium risk goes to manual review",
			verdict: domain.RiskVerdict{
				RiskLevel:         domain.RiskMedium,
				ReviewRequired:    true,
				VendorTrustStatus: domain.VendorTrustVerified,
				SignatureStatus:   domain.SignatureTrusted,
			},
			wantQueue:   "manual_review",
			wantReasons: []string{},
		},
		{
			name: "low risk is not routed",
			verdict: domain.RiskVerdict{
				RiskLevel:         domain.RiskLow,
				ReviewRequired:    false,
				VendorTrustStatus: domain.VendorTrustVerified,
				SignatureStatus:   domain.SignatureTrusted,
			},
			wantQueue:   "",
			wantReasons: []string{},
		},
		{
			name: "override and mismatch are surfaced as reasons",
			verdict: domain.RiskVerdict{
				RiskLevel:         domain.RiskHigh,
				ReviewRequired:    true,
				VendorTrustStatus: domain.VendorTrustMismatch,
				SignatureStatus:   domain.SignatureTrusted,
				OverrideApplied:   true,
			},
			wantQueue:   "fraud_review",
			wantReasons: []string{"high_risk", "override_applied", "vendor_unresolved"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Route(context.Background(), tt.verdict)
			if err != nil {
				t.Fatalf("route: %v", err)
			}
			if decision.Queue != tt.wantQueue {
				t.Fatalf("expected queue %q, got %q", tt.wantQueue, decision.Queue)
			}
			if !reflect.DeepEqual(decision.Reasons, tt.wantReasons) {
				t.Fatalf("expected reasons %v, got %v", tt.wantReasons, decision.Reasons)
			}
		})
	}
}

func TestEngineDeterministic(t *testing.T) {
	engine := newEngine(t)
	verdict := domain.RiskVerdict{
		RiskLevel:         domain.RiskHigh,
		ReviewRequired:    true,
		VendorTrustStatus: domain.VendorTrustUnregistered,
		SignatureStatus:   domain.SignatureTrusted,
		OverrideApplied:   true,
	}
	first, err := engine.Route(context.Background(), verdict)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	second, err := engine.Route(context.Background(), verdict)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic routing")
	}
	if engine.BundleHash() == "" {
		t.Fatalf("expected bundle hash to be set")
	}
}

func TestEngineRejectsTimeBuiltin(t *testing.T) {
	rejectBuiltin(t, "time.now_ns()")
}

func TestEngineRejectsHttpSend(t *testing.T) {
	rejectBuiltin(t, "http.send({\"method\": \"get\", \"url\": \"https://example.com\"})")
}

func TestEngineRejectsRand(t *testing.T) {
	rejectBuiltin(t, "rand.intn(10)")
}

func rejectBuiltin(t *testing.T, expr string) {
	t.Helper()
	dir := t.TempDir()
	regoContent := `package trustfuse.routing
result := {"queue": "", "reasons": []} {
  ` + expr + `
}`
	if err := os.WriteFile(filepath.Join(dir, "routing.rego"), []byte(regoContent), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	_, err := NewEngineFromBundlePath(context.Background(), dir, "test")
	if err == nil {
		t.Fatalf("expected builtin to be rejected")
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join("..", "..", "..", "policy", "bundles", "routing_v1")
	engine, err := NewEngineFromBundlePath(context.Background(), path, "routing_v1")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
