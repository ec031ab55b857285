package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"trustfuse/internal/domain"
	"trustfuse/internal/infra/policyopa"
	"trustfuse/internal/usecase"
	"trustfuse/pkg/signalfile"
)

type assessOutput struct {
	InvoiceID string                   `json:"invoice_id,omitempty"`
	Verdict   domain.RiskVerdict       `json:"verdict"`
	Routing   *usecase.RoutingDecision `json:"routing,omitempty"`
}

func runAssess(args []string) int {
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	signalsPath := fs.String("signals", "", "path to signal bundle json")
	policyPath := fs.String("policy", "", "path to routing policy bundle directory")
	pretty := fs.Bool("pretty", false, "indent output")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *signalsPath == "" {
		fmt.Fprintln(os.Stderr, "assess requires --signals <bundle.json>")
		return 1
	}

	bundle, err := signalfile.Load(*signalsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load signals: %v\n", err)
		return 1
	}

	fuse := &usecase.FuseRisk{
		Vendors:    &inlineVendors{records: bundle.VendorRecords()},
		Thresholds: usecase.DefaultRiskThresholds(),
	}
	verdict, err := fuse.Execute(context.Background(), usecase.FuseRiskRequest{
		InvoiceID: bundle.InvoiceID,
		Signature: bundle.Signature,
		Anomaly:   bundle.Anomaly,
		Amounts:   bundle.Amounts,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "assess: %v\n", err)
		return 1
	}

	out := assessOutput{
		InvoiceID: bundle.InvoiceID,
		Verdict:   *verdict,
	}
	if *policyPath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), *policyPath, "routing")
		if err != nil {
			fmt.Fprintf(os.Stderr, "load policy bundle: %v\n", err)
			return 1
		}
		routing, err := engine.Route(context.Background(), *verdict)
		if err != nil {
			fmt.Fprintf(os.Stderr, "route verdict: %v\n", err)
			return 1
		}
		out.Routing = &routing
	}

	var encoded []byte
	if *pretty {
		encoded, err = json.MarshalIndent(out, "", "  ")
	} else {
		encoded, err = json.Marshal(out)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		return 1
	}
	fmt.Println(string(encoded))
	return 0
}

// inlineVendors serves the bundle's vendor list as a read-only
// registry; the CLI never mutates vendors.
type inlineVendors struct {
	records []domain.VendorRecord
}

func (v *inlineVendors) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.VendorRecord, error) {
	for i := range v.records {
		if v.records[i].PublicKeyFingerprint == fingerprint {
			out := v.records[i]
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (v *inlineVendors) Create(ctx context.Context, vendor domain.VendorRecord) error {
	return domain.ErrUnauthorized
}

func (v *inlineVendors) List(ctx context.Context) ([]domain.VendorRecord, error) {
	out := make([]domain.VendorRecord, len(v.records))
	copy(out, v.records)
	return out, nil
}

func (v *inlineVendors) UpdateStatus(ctx context.Context, vendorID string, status domain.VendorStatus) error {
	return domain.ErrUnauthorized
}
