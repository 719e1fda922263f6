package chartdata

import "github.com/opscart/subscriptions-utilized/pkg/models"

// OverUtilizedThreshold is the percentage above which an indicator is
// considered over its subscription threshold
const OverUtilizedThreshold = 100

// ShouldReverse reports whether the first product should be surfaced ahead
// of the second: its percentage must exceed both the second product's and
// OverUtilizedThreshold.
//
// Comparison follows loose relational semantics: an undefined operand never
// compares greater or smaller, a null operand compares as 0.
func ShouldReverse(one, two models.Value) bool {
	return greater(one, two) && greater(one, models.Number(OverUtilizedThreshold))
}

func greater(a, b models.Value) bool {
	if a.IsUndefined() || b.IsUndefined() {
		return false
	}
	return a.OrZero() > b.OrZero()
}

// Order returns the two indicators in display order. The second product is
// shown first unless ShouldReverse holds for the first product's percentage.
func Order[T any](one, two T, onePct, twoPct models.Value) []T {
	if ShouldReverse(onePct, twoPct) {
		return []T{one, two}
	}
	return []T{two, one}
}
