package domain

// RoutingInput is the document handed to the review-routing policy.
// It is a flattened projection of the verdict; the policy never sees
// raw signals.
type RoutingInput struct {
	RiskLevel         string  `json:"risk_level"`
	ReviewRequired    bool    `json:"review_required"`
	VendorTrustStatus string  `json:"vendor_trust_status"`
	SignatureStatus   string  `json:"signature_status"`
	OverrideApplied   bool    `json:"override_applied"`
	AnomalyScore      float64 `json:"anomaly_score"`
}

// RoutingResult is what the policy rule set returns. An empty queue
// means the verdict needs no human review.
type RoutingResult struct {
	Queue   string   `json:"queue"`
	Reasons []string `json:"reasons"`
}
