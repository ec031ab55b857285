package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"trustfuse/internal/domain"
)

type fakeVendorRepo struct {
	byFingerprint map[string]*domain.VendorRecord
	getCalls      int
}

func (f *fakeVendorRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.VendorRecord, error) {
	f.getCalls++
	if v, ok := f.byFingerprint[fingerprint]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeVendorRepo) Create(ctx context.Context, vendor domain.VendorRecord) error {
	if f.byFingerprint == nil {
		f.byFingerprint = make(map[string]*domain.VendorRecord)
	}
	copied := vendor
	f.byFingerprint[vendor.PublicKeyFingerprint] = &copied
	return nil
}

func (f *fakeVendorRepo) List(ctx context.Context) ([]domain.VendorRecord, error) {
	out := make([]domain.VendorRecord, 0, len(f.byFingerprint))
	for _, v := range f.byFingerprint {
		out = append(out, *v)
	}
	return out, nil
}

func (f *fakeVendorRepo) UpdateStatus(ctx context.Context, vendorID string, status domain.VendorStatus) error {
	for _, v := range f.byFingerprint {
		if v.VendorID == vendorID {
			v.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeVerdictCache struct {
	entries map[string]domain.RiskVerdict
	puts    int
}

func (f *fakeVerdictCache) Get(ctx context.Context, key string) (*domain.RiskVerdict, bool, error) {
	if v, ok := f.entries[key]; ok {
		copied := v
		return &copied, true, nil
	}
	return nil, false, nil
}

func (f *fakeVerdictCache) Put(ctx context.Context, key string, verdict domain.RiskVerdict, ttl time.Duration) error {
	if f.entries == nil {
		f.entries = make(map[string]domain.RiskVerdict)
	}
	f.entries[key] = verdict
	f.puts++
	return nil
}

type fakeEpochRepo struct {
	epoch int64
}

func (f *fakeEpochRepo) GetEpoch(ctx context.Context) (int64, error) { return f.epoch, nil }

func (f *fakeEpochRepo) BumpEpoch(ctx context.Context) (int64, error) {
	f.epoch++
	return f.epoch, nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newFuseRisk(vendors *fakeVendorRepo) *FuseRisk {
	return &FuseRisk{
		Vendors:    vendors,
		Thresholds: DefaultRiskThresholds(),
		Clock:      fixedClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestFuseRisk_TrustedHighScore(t *testing.T) {
	vendors := &fakeVendorRepo{byFingerprint: map[string]*domain.VendorRecord{
		testFingerprint: activeVendor(),
	}}
	uc := newFuseRisk(vendors)

	verdict, err := uc.Execute(context.Background(), FuseRiskRequest{
		InvoiceID: "inv-1",
		Signature: domain.SignatureVerification{
			Present:           true,
			CryptoValid:       boolPtr(true),
			ChainTrusted:      boolPtr(true),
			SignerFingerprint: testFingerprint,
		},
		Anomaly: domain.AnomalySignal{NormalizedScore: 0.85, DistanceZ: 1.2},
		Amounts: domain.ExtractedAmounts{
			Subtotal:      floatPtr(100.0),
			Total:         floatPtr(100.0),
			LineItemSum:   100.0,
			LineItemCount: 2,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.VendorTrustStatus != domain.VendorTrustVerified {
		t.Fatalf("expected verified vendor, got %s", verdict.VendorTrustStatus)
	}
	if verdict.SignatureStatus != domain.SignatureTrusted {
		t.Fatalf("expected trusted signature, got %s", verdict.SignatureStatus)
	}
	if verdict.RiskLevel != domain.RiskHigh || !verdict.ReviewRequired {
		t.Fatalf("score 0.85 must classify HIGH with review, got %s review=%v", verdict.RiskLevel, verdict.ReviewRequired)
	}
	if verdict.OverrideApplied || verdict.OverrideRule != "" {
		t.Fatalf("override must not fire at z=1.2")
	}
	want := []string{explainStructuralNotic, explainScoreHigh}
	if !reflect.DeepEqual(verdict.Explanations, want) {
		t.Fatalf("expected findings %v, got %v", want, verdict.Explanations)
	}
	if verdict.Reconciliation.TotalMatchesSubtotal != domain.CheckMatch {
		t.Fatalf("amounts line up, got %s", verdict.Reconciliation.TotalMatchesSubtotal)
	}
	if verdict.EngineVersion != FusionEngineVersion {
		t.Fatalf("expected engine version %q, got %q", FusionEngineVersion, verdict.EngineVersion)
	}
}

func TestFuseRisk_UnsignedLowScore(t *testing.T) {
	uc := newFuseRisk(&fakeVendorRepo{})

	verdict, err := uc.Execute(context.Background(), FuseRiskRequest{
		InvoiceID: "inv-2",
		Signature: domain.SignatureVerification{Present: false},
		Anomaly:   domain.AnomalySignal{NormalizedScore: 0.1, DistanceZ: 0.1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.VendorTrustStatus != domain.VendorTrustNotVerified {
		t.Fatalf("unsigned must resolve not_verified, got %s", verdict.VendorTrustStatus)
	}
	if verdict.SignatureStatus != domain.SignatureUnsigned {
		t.Fatalf("expected unsigned, got %s", verdict.SignatureStatus)
	}
	if verdict.RiskLevel != domain.RiskLow || verdict.ReviewRequired {
		t.Fatalf("low score must not require review, got %s review=%v", verdict.RiskLevel, verdict.ReviewRequired)
	}
	if verdict.Reconciliation.Status != domain.ReconciliationInsufficientAmounts {
		t.Fatalf("no amounts given, got %s", verdict.Reconciliation.Status)
	}
	want := []string{explainStructuralClose, explainScoreLow}
	if !reflect.DeepEqual(verdict.Explanations, want) {
		t.Fatalf("not_verified adds no vendor finding; expected %v, got %v", want, verdict.Explanations)
	}
}

func TestFuseRisk_StructuralOverride(t *testing.T) {
	uc := newFuseRisk(&fakeVendorRepo{})

	verdict, err := uc.Execute(context.Background(), FuseRiskRequest{
		InvoiceID: "inv-3",
		Signature: domain.SignatureVerification{Present: false},
		Anomaly:   domain.AnomalySignal{NormalizedScore: 0.2, DistanceZ: 3.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.RiskLevel != domain.RiskHigh || !verdict.ReviewRequired {
		t.Fatalf("z=3.0 must force HIGH with review, got %s review=%v", verdict.RiskLevel, verdict.ReviewRequired)
	}
	if !verdict.OverrideApplied || verdict.OverrideRule != StructuralDeviationOverride {
		t.Fatalf("expected %s, got applied=%v rule=%q", StructuralDeviationOverride, verdict.OverrideApplied, verdict.OverrideRule)
	}
	if verdict.Explanations[0] != explainStructuralAlien {
		t.Fatalf("z=3.0 falls in the top structural bucket, got %q", verdict.Explanations[0])
	}
}

func TestFuseRisk_VendorFindingPrepended(t *testing.T) {
	cases := []struct {
		name   string
		vendor *domain.VendorRecord
		fp     string
		want   string
	}{
		{"unregistered", nil, testFingerprint, explainVendorUnregistered},
		{"mismatch", activeVendor(), "ab86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", explainVendorMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vendors := &fakeVendorRepo{byFingerprint: map[string]*domain.VendorRecord{}}
			if tc.vendor != nil {
				vendors.byFingerprint[tc.fp] = tc.vendor
			}
			uc := newFuseRisk(vendors)
			verdict, err := uc.Execute(context.Background(), FuseRiskRequest{
				InvoiceID: "inv-4",
				Signature: domain.SignatureVerification{
					Present:           true,
					CryptoValid:       boolPtr(true),
					ChainTrusted:      boolPtr(true),
					SignerFingerprint: tc.fp,
				},
				Anomaly: domain.AnomalySignal{NormalizedScore: 0.5, DistanceZ: 0.8},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(verdict.Explanations) != 3 {
				t.Fatalf("expected vendor finding plus two anomaly findings, got %v", verdict.Explanations)
			}
			if verdict.Explanations[0] != tc.want {
				t.Fatalf("vendor finding must come first, got %q", verdict.Explanations[0])
			}
		})
	}
}

func TestFuseRisk_InactiveVendorFinding(t *testing.T) {
	inactive := activeVendor()
	inactive.Status = domain.VendorInactive
	vendors := &fakeVendorRepo{byFingerprint: map[string]*domain.VendorRecord{
		testFingerprint: inactive,
	}}
	uc := newFuseRisk(vendors)
	verdict, err := uc.Execute(context.Background(), FuseRiskRequest{
		InvoiceID: "inv-5",
		Signature: domain.SignatureVerification{
			Present:           true,
			CryptoValid:       boolPtr(true),
			ChainTrusted:      boolPtr(true),
			SignerFingerprint: testFingerprint,
		},
		Anomaly: domain.AnomalySignal{NormalizedScore: 0.1, DistanceZ: 0.1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.VendorTrustStatus != domain.VendorTrustInactive {
		t.Fatalf("expected vendor_inactive, got %s", verdict.VendorTrustStatus)
	}
	if verdict.Explanations[0] != explainVendorInactive {
		t.Fatalf("expected inactive finding first, got %q", verdict.Explanations[0])
	}
}

func TestFuseRisk_InvalidSignals(t *testing.T) {
	uc := newFuseRisk(&fakeVendorRepo{})
	cases := []FuseRiskRequest{
		{Anomaly: domain.AnomalySignal{NormalizedScore: 1.5}},
		{Anomaly: domain.AnomalySignal{NormalizedScore: -0.5}},
		{
			Signature: domain.SignatureVerification{Present: true, SignerFingerprint: "not-a-digest"},
			Anomaly:   domain.AnomalySignal{NormalizedScore: 0.5},
		},
	}
	for _, req := range cases {
		if _, err := uc.Execute(context.Background(), req); !errors.Is(err, domain.ErrInvalidSignal) {
			t.Fatalf("request %+v: expected ErrInvalidSignal, got %v", req, err)
		}
	}
}

func TestFuseRisk_Deterministic(t *testing.T) {
	vendors := &fakeVendorRepo{byFingerprint: map[string]*domain.VendorRecord{
		testFingerprint: activeVendor(),
	}}
	uc := newFuseRisk(vendors)
	req := FuseRiskRequest{
		InvoiceID: "inv-6",
		Signature: domain.SignatureVerification{
			Present:           true,
			CryptoValid:       boolPtr(true),
			ChainTrusted:      boolPtr(true),
			SignerFingerprint: testFingerprint,
		},
		Anomaly: domain.AnomalySignal{NormalizedScore: 0.42, DistanceZ: 1.1},
		Amounts: domain.ExtractedAmounts{Subtotal: floatPtr(10.0), LineItemSum: 10.0, LineItemCount: 1},
	}
	first, err := uc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical signals under a fixed clock must fuse identically:\n%+v\n%+v", first, second)
	}
}

func TestFuseRisk_CacheHitSkipsLookup(t *testing.T) {
	vendors := &fakeVendorRepo{byFingerprint: map[string]*domain.VendorRecord{
		testFingerprint: activeVendor(),
	}}
	cache := &fakeVerdictCache{}
	epochs := &fakeEpochRepo{epoch: 3}
	uc := newFuseRisk(vendors)
	uc.Cache = cache
	uc.RegistryEpochs = epochs
	uc.CacheTTL = time.Minute

	req := FuseRiskRequest{
		InvoiceID: "inv-7",
		Signature: domain.SignatureVerification{
			Present:           true,
			CryptoValid:       boolPtr(true),
			ChainTrusted:      boolPtr(true),
			SignerFingerprint: testFingerprint,
		},
		Anomaly: domain.AnomalySignal{NormalizedScore: 0.2, DistanceZ: 0.2},
	}
	first, err := uc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}

	second, err := uc.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vendors.getCalls != 1 {
		t.Fatalf("cache hit must not hit the registry again, got %d lookups", vendors.getCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached verdict differs from original")
	}

	// A registry mutation bumps the epoch and rotates the key.
	if _, err := epochs.BumpEpoch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uc.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vendors.getCalls != 2 {
		t.Fatalf("epoch bump must invalidate the cached verdict, got %d lookups", vendors.getCalls)
	}
}
