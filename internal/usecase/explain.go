package usecase

// Explanation texts for the structural-deviation buckets, lowest bucket
// first. Bucket boundaries match the classifier so that narrative and
// verdict can never disagree.
const (
	explainStructuralClose = "The invoice closely matches the structure and layout of previously verified invoices."
	explainStructuralMinor = "The invoice is largely consistent with known invoices, with only minor structural differences."
	explainStructuralNotic = "The invoice shows noticeable structural differences compared to typical submissions."
	explainStructuralMajor = "The invoice structure deviates significantly from most known invoice formats."
	explainStructuralAlien = "The invoice is structurally very different from previously verified invoices, which may indicate manipulation or synthetic generation."

	explainScoreHigh = "Multiple document characteristics contributed to the elevated anomaly score."
	explainScoreMid  = "Some document characteristics contributed to the anomaly score."
	explainScoreLow  = "Only minor deviations were detected in this invoice."

	explainVendorMismatch     = "The document is signed with a key that does not match the registered vendor fingerprint."
	explainVendorUnregistered = "The signing key does not belong to any registered vendor."
	explainVendorInactive     = "The signing vendor is registered but no longer active."
)

// Explanations converts the two numeric anomaly signals into exactly
// two ordered findings: one structural, one confidence-based. The
// output is deterministic for identical inputs, which audit trails
// rely on.
func Explanations(distanceZ, normalizedScore float64) []string {
	findings := make([]string, 0, 2)

	switch {
	case distanceZ < 0.5:
		findings = append(findings, explainStructuralClose)
	case distanceZ < 1.0:
		findings = append(findings, explainStructuralMinor)
	case distanceZ < 1.5:
		findings = append(findings, explainStructuralNotic)
	case distanceZ < 2.0:
		findings = append(findings, explainStructuralMajor)
	default:
		findings = append(findings, explainStructuralAlien)
	}

	switch {
	case normalizedScore >= 0.7:
		findings = append(findings, explainScoreHigh)
	case normalizedScore >= 0.4:
		findings = append(findings, explainScoreMid)
	default:
		findings = append(findings, explainScoreLow)
	}

	return findings
}
