package usecase

import (
	"math"

	"trustfuse/internal/domain"
)

// StructuralDeviationOverride is the named escalation rule: a document
// whose embedding sits far outside the reference population forces a
// HIGH verdict regardless of the detector's own score. Naming the rule
// lets audits distinguish "model said HIGH" from "override said HIGH".
const StructuralDeviationOverride = "structural_deviation_override"

// RiskThresholds are policy constants, not learned values. They are
// loaded once at startup and treated as read-only for the process
// lifetime.
type RiskThresholds struct {
	MediumScore float64
	HighScore   float64
	OverrideZ   float64
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{
		MediumScore: 0.4,
		HighScore:   0.7,
		OverrideZ:   2.5,
	}
}

// AnomalyClassification is the outcome of the base bucketing plus the
// structural override.
type AnomalyClassification struct {
	RiskLevel       domain.RiskLevel
	ReviewRequired  bool
	OverrideApplied bool
}

// ClassifyAnomaly buckets the normalized anomaly score into a risk
// level (half-open intervals, lower bound inclusive) and applies the
// structural deviation override. The override can only escalate.
func ClassifyAnomaly(signal domain.AnomalySignal, thresholds RiskThresholds) (AnomalyClassification, error) {
	if err := validateAnomalySignal(signal); err != nil {
		return AnomalyClassification{}, err
	}

	out := AnomalyClassification{RiskLevel: domain.RiskLow}
	switch {
	case signal.NormalizedScore >= thresholds.HighScore:
		out.RiskLevel = domain.RiskHigh
		out.ReviewRequired = true
	case signal.NormalizedScore >= thresholds.MediumScore:
		out.RiskLevel = domain.RiskMedium
		out.ReviewRequired = true
	}

	if signal.DistanceZ >= thresholds.OverrideZ {
		out.OverrideApplied = true
		out.RiskLevel = domain.RiskHigh
		out.ReviewRequired = true
	}
	return out, nil
}

func validateAnomalySignal(signal domain.AnomalySignal) error {
	if math.IsNaN(signal.NormalizedScore) || math.IsInf(signal.NormalizedScore, 0) {
		return domain.ErrInvalidSignal
	}
	if signal.NormalizedScore < 0 || signal.NormalizedScore > 1 {
		return domain.ErrInvalidSignal
	}
	if math.IsNaN(signal.DistanceZ) || math.IsInf(signal.DistanceZ, 0) {
		return domain.ErrInvalidSignal
	}
	return nil
}

// ComputeZScore normalizes a centroid distance against the reference
// population. A degenerate population (zero std) is defined as z=0
// rather than a division fault.
func ComputeZScore(distance, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (distance - mean) / std
}
