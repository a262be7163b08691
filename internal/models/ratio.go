package models

// ZeroDenominatorValue is returned by every ratio whose denominator is zero:
// empty groups, courses without items, courses without mandatory sessions and
// students without weighted work all report 0 instead of failing.
const ZeroDenominatorValue = 0.0

// SafeRatio divides numerator by denominator, applying the zero-denominator policy.
func SafeRatio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return ZeroDenominatorValue
	}
	return numerator / denominator
}

// SafePercentage is SafeRatio scaled to 0-100.
func SafePercentage(numerator, denominator float64) float64 {
	return SafeRatio(numerator, denominator) * 100
}
