package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"trustfuse/internal/domain"
)

const FusionEngineVersion = "fusion.v1"

type FuseRiskRequest struct {
	InvoiceID string
	Signature domain.SignatureVerification
	Anomaly   domain.AnomalySignal
	Amounts   domain.ExtractedAmounts
}

// FuseRisk combines the three independent evidence signals into one
// verdict. All collaborator outputs arrive fully materialized; the
// engine itself does no I/O beyond the vendor registry lookup and the
// optional cache, and holds no mutable state between invocations.
type FuseRisk struct {
	Vendors        VendorRepository
	Thresholds     RiskThresholds
	Cache          VerdictCache
	CacheTTL       time.Duration
	RegistryEpochs RegistryEpochRepository
	Clock          Clock
}

func (uc *FuseRisk) Execute(ctx context.Context, req FuseRiskRequest) (*domain.RiskVerdict, error) {
	if err := validateSignature(req.Signature); err != nil {
		return nil, err
	}
	if err := validateAnomalySignal(req.Anomaly); err != nil {
		return nil, err
	}

	epoch := int64(0)
	cacheEnabled := uc.Cache != nil && uc.RegistryEpochs != nil
	if cacheEnabled {
		e, err := uc.RegistryEpochs.GetEpoch(ctx)
		if err != nil {
			return nil, err
		}
		epoch = e
		key := verdictCacheKey(req, epoch)
		if cached, ok, err := uc.Cache.Get(ctx, key); err == nil && ok && cached != nil {
			return cached, nil
		}
	}

	sigStatus := DeriveSignatureStatus(req.Signature)

	var vendor *domain.VendorRecord
	if req.Signature.SignerFingerprint != "" && uc.Vendors != nil {
		// Registry fingerprints are stored lowercased.
		v, err := uc.Vendors.GetByFingerprint(ctx, strings.ToLower(req.Signature.SignerFingerprint))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		vendor = v
	}
	vendorTrust := ResolveVendorTrust(sigStatus, req.Signature.SignerFingerprint, vendor)

	classification, err := ClassifyAnomaly(req.Anomaly, uc.Thresholds)
	if err != nil {
		return nil, err
	}

	reconciliation := CheckReconciliation(req.Amounts)

	explanations := Explanations(req.Anomaly.DistanceZ, req.Anomaly.NormalizedScore)
	if finding, ok := vendorFinding(vendorTrust); ok {
		explanations = append([]string{finding}, explanations...)
	}

	verdict := &domain.RiskVerdict{
		RiskLevel:         classification.RiskLevel,
		ReviewRequired:    classification.ReviewRequired,
		VendorTrustStatus: vendorTrust,
		SignatureStatus:   sigStatus,
		Reconciliation:    reconciliation,
		AnomalyScore:      req.Anomaly.NormalizedScore,
		DistanceZ:         req.Anomaly.DistanceZ,
		OverrideApplied:   classification.OverrideApplied,
		Explanations:      explanations,
		EngineVersion:     FusionEngineVersion,
		AssessedAt:        uc.now().UTC(),
	}
	if classification.OverrideApplied {
		verdict.OverrideRule = StructuralDeviationOverride
	}

	if cacheEnabled {
		// Best effort; a failed cache write never fails the verdict.
		_ = uc.Cache.Put(ctx, verdictCacheKey(req, epoch), *verdict, uc.CacheTTL)
	}
	return verdict, nil
}

func (uc *FuseRisk) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now()
	}
	return time.Now()
}

// validateSignature rejects contract violations from the external
// validator: a fingerprint, when present, must be a SHA-256 hex digest.
// An absent fingerprint is not an error.
func validateSignature(sig domain.SignatureVerification) error {
	if sig.SignerFingerprint == "" {
		return nil
	}
	if len(sig.SignerFingerprint) != 64 {
		return domain.ErrInvalidSignal
	}
	for i := 0; i < len(sig.SignerFingerprint); i++ {
		c := sig.SignerFingerprint[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return domain.ErrInvalidSignal
		}
	}
	return nil
}

func vendorFinding(status domain.VendorTrustStatus) (string, bool) {
	switch status {
	case domain.VendorTrustMismatch:
		return explainVendorMismatch, true
	case domain.VendorTrustUnregistered:
		return explainVendorUnregistered, true
	case domain.VendorTrustInactive:
		return explainVendorInactive, true
	}
	return "", false
}

// verdictCacheKey digests the full signal tuple plus the registry
// epoch, mirroring how stale reads are fenced elsewhere: any vendor
// registry mutation bumps the epoch and orphans prior entries.
func verdictCacheKey(req FuseRiskRequest, epoch int64) string {
	payload := make([]byte, 0, 160)
	payload = append(payload, req.InvoiceID...)
	payload = append(payload, '|')
	payload = append(payload, boolByte(req.Signature.Present))
	payload = append(payload, triStateByte(req.Signature.CryptoValid))
	payload = append(payload, triStateByte(req.Signature.ChainTrusted))
	payload = append(payload, '|')
	payload = append(payload, req.Signature.SignerFingerprint...)
	payload = append(payload, '|')
	payload = appendFloat(payload, req.Anomaly.NormalizedScore)
	payload = appendFloat(payload, req.Anomaly.DistanceZ)
	payload = appendOptFloat(payload, req.Amounts.Subtotal)
	payload = appendOptFloat(payload, req.Amounts.Tax)
	payload = appendOptFloat(payload, req.Amounts.Total)
	payload = appendFloat(payload, req.Amounts.LineItemSum)
	payload = append(payload, strconv.Itoa(req.Amounts.LineItemCount)...)
	payload = append(payload, '|')
	payload = append(payload, strconv.FormatInt(epoch, 10)...)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func boolByte(v bool) byte {
	if v {
		return 'T'
	}
	return 'F'
}

func triStateByte(v *bool) byte {
	if v == nil {
		return 'U'
	}
	return boolByte(*v)
}

func appendFloat(payload []byte, v float64) []byte {
	payload = append(payload, strconv.FormatFloat(v, 'g', -1, 64)...)
	return append(payload, '|')
}

func appendOptFloat(payload []byte, v *float64) []byte {
	if v == nil {
		return append(payload, "nil|"...)
	}
	return appendFloat(payload, *v)
}
