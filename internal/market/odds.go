package market

import (
	"fmt"
	"math"
)

// AmericanToDecimal converts American odds to decimal odds.
// +150 → 2.50, -150 → 1.6667.
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("american odds: zero")
	}
	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}
	return 100.0/float64(-american) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to the nearest American odds.
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("decimal odds: %v not above 1.0", decimal)
	}
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// ImpliedProbability converts decimal odds to the implied win probability.
func ImpliedProbability(decimal float64) (float64, error) {
	if decimal <= 0 {
		return 0, fmt.Errorf("decimal odds: %v not positive", decimal)
	}
	return 1.0 / decimal, nil
}
