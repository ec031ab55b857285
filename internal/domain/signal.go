package domain

// SignatureVerification is the raw outcome of the external PDF
// signature validator. Nil pointers mean the validator could not
// determine the value; an empty fingerprint means no signer key was
// recovered. Invariant: if Present is false the validator reports
// nothing else.
type SignatureVerification struct {
	Present           bool   `json:"present"`
	CryptoValid       *bool  `json:"crypto_valid"`
	ChainTrusted      *bool  `json:"chain_trusted"`
	SignerFingerprint string `json:"signer_fingerprint,omitempty"`
}

type SignatureStatus string

const (
	SignatureUnsigned              SignatureStatus = "unsigned"
	SignatureInvalid               SignatureStatus = "invalid"
	SignatureTrusted               SignatureStatus = "trusted"
	SignatureSelfSignedOrUntrusted SignatureStatus = "self_signed_or_untrusted"
	SignatureUnknown               SignatureStatus = "unknown"
)

// AnomalySignal carries the embedding-based outlier outputs computed by
// the external inference service. NormalizedScore is the sigmoid of the
// raw detector score, in [0,1]; DistanceZ is the signed z-score of the
// embedding distance from the reference centroid.
type AnomalySignal struct {
	NormalizedScore float64 `json:"normalized_score"`
	DistanceZ       float64 `json:"distance_z_score"`
}

type CheckResult string

const (
	CheckMatch         CheckResult = "match"
	CheckMismatch      CheckResult = "mismatch"
	CheckIndeterminate CheckResult = "indeterminate"
)

type ReconciliationStatus string

const (
	ReconciliationOK                  ReconciliationStatus = "ok"
	ReconciliationInsufficientAmounts ReconciliationStatus = "insufficient_amounts"
)

// ExtractedAmounts is what the external text/amount parser recovered
// from the document. Nil pointers mean the amount was not found.
type ExtractedAmounts struct {
	Subtotal      *float64 `json:"subtotal"`
	Tax           *float64 `json:"tax"`
	Total         *float64 `json:"total"`
	LineItemSum   float64  `json:"line_item_sum"`
	LineItemCount int      `json:"line_item_count"`
}

// ReconciliationSignal is the advisory arithmetic cross-check result.
// A mismatch never escalates risk on its own; it is surfaced for human
// review.
type ReconciliationSignal struct {
	Status               ReconciliationStatus `json:"status"`
	Subtotal             *float64             `json:"subtotal"`
	Tax                  *float64             `json:"tax"`
	Total                *float64             `json:"total"`
	LineItemSum          float64              `json:"line_item_sum"`
	LineItemCount        int                  `json:"line_item_count"`
	SubtotalMatchesItems CheckResult          `json:"subtotal_matches_items"`
	SubtotalDelta        *float64             `json:"subtotal_delta"`
	TotalMatchesSubtotal CheckResult          `json:"total_matches_subtotal_tax"`
	TotalDelta           *float64             `json:"total_delta"`
}
