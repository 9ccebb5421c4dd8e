package market

import "fmt"

// HedgePlan is an equal-payout hedge for an open bet: staking HedgeStake on
// the opposite side at OppositeOdds returns the same total regardless of
// outcome.
type HedgePlan struct {
	Stake        float64 // original stake S
	OriginalOdds float64 // decimal odds D1 at placement
	OppositeOdds float64 // current decimal odds D2 on the other side
	HedgeStake   float64 // H = S*D1/D2
	Profit       float64 // guaranteed profit in stake currency
	ProfitRate   float64 // Profit / (S + H)
}

// SolveHedge computes the equal-payout hedge for stake S at original decimal
// odds d1 against current opposite-side decimal odds d2. The hedge stake
// equalizes both payouts at S*D1; the plan is profitable only when the
// original position has gained enough value that S*D1 exceeds total outlay.
func SolveHedge(stake, d1, d2 float64) (HedgePlan, error) {
	if stake <= 0 {
		return HedgePlan{}, fmt.Errorf("hedge: stake %v not positive", stake)
	}
	if d1 <= 1.0 || d2 <= 1.0 {
		return HedgePlan{}, fmt.Errorf("hedge: odds %v/%v not above 1.0", d1, d2)
	}
	h := stake * d1 / d2
	payout := stake * d1
	outlay := stake + h
	profit := payout - outlay
	return HedgePlan{
		Stake:        stake,
		OriginalOdds: d1,
		OppositeOdds: d2,
		HedgeStake:   h,
		Profit:       profit,
		ProfitRate:   profit / outlay,
	}, nil
}

// Arbitrage reports whether two opposite decimal odds guarantee profit for a
// fresh equal-payout pair, i.e. 1/d1 + 1/d2 < 1.
func Arbitrage(d1, d2 float64) bool {
	if d1 <= 0 || d2 <= 0 {
		return false
	}
	return 1.0/d1+1.0/d2 < 1.0
}
