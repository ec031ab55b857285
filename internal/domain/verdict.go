package domain

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// rank orders risk levels for monotonicity checks; an override may only
// move the level upward.
func (r RiskLevel) rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	}
	return -1
}

func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.rank() >= other.rank()
}

// RiskVerdict is the primary output of the fusion engine. It is
// constructed once per assessment and never mutated afterwards; it is
// safe to serialize and persist verbatim.
type RiskVerdict struct {
	RiskLevel         RiskLevel            `json:"risk_level"`
	ReviewRequired    bool                 `json:"review_required"`
	VendorTrustStatus VendorTrustStatus    `json:"vendor_trust_status"`
	SignatureStatus   SignatureStatus      `json:"signature_status"`
	Reconciliation    ReconciliationSignal `json:"reconciliation"`
	AnomalyScore      float64              `json:"anomaly_score"`
	DistanceZ         float64              `json:"distance_z_score"`
	OverrideApplied   bool                 `json:"override_applied"`
	OverrideRule      string               `json:"override_rule,omitempty"`
	Explanations      []string             `json:"explanations"`
	EngineVersion     string               `json:"engine_version"`
	AssessedAt        time.Time            `json:"assessed_at"`
}

// InvoiceStatus lifecycle: uploaded -> analyzed.
type InvoiceStatus string

const (
	InvoiceUploaded InvoiceStatus = "uploaded"
	InvoiceAnalyzed InvoiceStatus = "analyzed"
)

// Invoice is the registered document record keyed by its SHA-256 file
// hash. Extraction and storage of the file itself happen elsewhere.
type Invoice struct {
	InvoiceID         string
	FileHash          string
	IsSigned          bool
	CryptoValid       *bool
	SignerFingerprint string
	Status            InvoiceStatus
	CreatedAt         time.Time
}
