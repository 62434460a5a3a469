package asset

import "math/big"

// BasisPoints is the denominator for percentage parameters.
const BasisPoints = 10000

// SaleSplit is the exact three-way split of a primary sale.
// ReferrerCut + PoolCut + TreasuryCut == Gross always holds.
type SaleSplit struct {
	ReferrerCut uint64
	PoolCut     uint64
	TreasuryCut uint64
}

// CutBP computes floor(amount * bp / 10000) without intermediate overflow.
func CutBP(amount uint64, bp uint64) uint64 {
	product := new(big.Int).Mul(new(big.Int).SetUint64(amount), new(big.Int).SetUint64(bp))
	return product.Div(product, big.NewInt(BasisPoints)).Uint64()
}

// SplitSale divides gross sale proceeds. The referrer cut is taken first
// (zero when there is no referrer), then the pool cut is taken from the
// remainder. The treasury receives whatever is left, so rounding dust
// always lands in the treasury cut and the three parts sum to gross.
func SplitSale(gross uint64, hasReferrer bool, referrerBP, poolBP uint64) SaleSplit {
	var split SaleSplit
	if hasReferrer {
		split.ReferrerCut = CutBP(gross, referrerBP)
	}
	remainder := gross - split.ReferrerCut
	split.PoolCut = CutBP(remainder, poolBP)
	split.TreasuryCut = remainder - split.PoolCut
	return split
}

// DistributeEven splits total into n chunks that sum to total exactly.
// The first chunk absorbs the remainder.
func DistributeEven(total uint64, n int) []uint64 {
	if n <= 0 {
		return nil
	}
	chunks := make([]uint64, n)
	per := total / uint64(n)
	for i := range chunks {
		chunks[i] = per
	}
	chunks[0] += total % uint64(n)
	return chunks
}
