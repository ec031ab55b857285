package usecase

import (
	"math"

	"trustfuse/internal/domain"
)

// AmountEpsilon is the currency-unit tolerance for arithmetic checks,
// forgiving of per-line rounding.
const AmountEpsilon = 0.01

// CheckReconciliation cross-checks the extracted amounts. Each check is
// tri-state: indeterminate whenever a required operand is absent.
// The result is advisory; a mismatch never escalates the fused risk
// level by itself.
func CheckReconciliation(amounts domain.ExtractedAmounts) domain.ReconciliationSignal {
	out := domain.ReconciliationSignal{
		Status:               domain.ReconciliationOK,
		Subtotal:             amounts.Subtotal,
		Tax:                  amounts.Tax,
		Total:                amounts.Total,
		LineItemSum:          amounts.LineItemSum,
		LineItemCount:        amounts.LineItemCount,
		SubtotalMatchesItems: domain.CheckIndeterminate,
		TotalMatchesSubtotal: domain.CheckIndeterminate,
	}

	if amounts.Subtotal != nil && amounts.LineItemCount > 0 {
		delta := *amounts.Subtotal - amounts.LineItemSum
		out.SubtotalDelta = roundedDelta(delta)
		out.SubtotalMatchesItems = checkWithin(delta)
	}

	if amounts.Total != nil && amounts.Subtotal != nil {
		tax := 0.0
		if amounts.Tax != nil {
			tax = *amounts.Tax
		}
		delta := *amounts.Total - (*amounts.Subtotal + tax)
		out.TotalDelta = roundedDelta(delta)
		out.TotalMatchesSubtotal = checkWithin(delta)
	}

	// No amounts at all is reported, not treated as an error.
	if amounts.LineItemCount == 0 && amounts.Subtotal == nil && amounts.Total == nil {
		out.Status = domain.ReconciliationInsufficientAmounts
	}
	return out
}

func checkWithin(delta float64) domain.CheckResult {
	if math.Abs(delta) < AmountEpsilon {
		return domain.CheckMatch
	}
	return domain.CheckMismatch
}

func roundedDelta(delta float64) *float64 {
	r := math.Round(delta*100) / 100
	return &r
}
