package reward

import "math/big"

// BasisPoints is the denominator for the payout percent parameter.
const BasisPoints = 10000

// FactorBase is the weight of a winner with a clean record. Each penalty
// reduces the weight by one until it reaches zero.
const FactorBase = 9

// PenaltyFactor maps a unit's penalty count to its payout weight.
func PenaltyFactor(penaltyCount uint64) uint64 {
	if penaltyCount >= FactorBase {
		return 0
	}
	return FactorBase - penaltyCount
}

// Shares splits the reward pool across winners by their factors:
//
//	amount_i = floor(pool * payoutPercentBP * factor_i / (10000 * sumFactors))
//
// The multiplication happens before the division, with big.Int
// intermediates, so shares are exact to the floor. A zero factor sum
// yields all-zero shares.
func Shares(pool uint64, payoutPercentBP uint64, factors []uint64) []uint64 {
	amounts := make([]uint64, len(factors))
	var sum uint64
	for _, f := range factors {
		sum += f
	}
	if sum == 0 || pool == 0 || payoutPercentBP == 0 {
		return amounts
	}

	numeratorBase := new(big.Int).Mul(new(big.Int).SetUint64(pool), new(big.Int).SetUint64(payoutPercentBP))
	denominator := new(big.Int).Mul(big.NewInt(BasisPoints), new(big.Int).SetUint64(sum))
	for i, f := range factors {
		if f == 0 {
			continue
		}
		numerator := new(big.Int).Mul(numeratorBase, new(big.Int).SetUint64(f))
		amounts[i] = numerator.Div(numerator, denominator).Uint64()
	}
	return amounts
}
