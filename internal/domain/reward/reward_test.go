package reward

import "testing"

func TestPenaltyFactor(t *testing.T) {
	cases := []struct {
		penalties uint64
		want      uint64
	}{
		{0, 9},
		{1, 8},
		{8, 1},
		{9, 0},
		{10, 0},
		{1000, 0},
	}
	for _, c := range cases {
		if got := PenaltyFactor(c.penalties); got != c.want {
			t.Errorf("PenaltyFactor(%d) = %d, want %d", c.penalties, got, c.want)
		}
	}
}

func TestSharesReferenceVector(t *testing.T) {
	got := Shares(1_000_000, 100, []uint64{9, 0, 3})
	want := []uint64{7500, 0, 2500}
	if len(got) != len(want) {
		t.Fatalf("got %d shares, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("share %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSharesZeroFactorSum(t *testing.T) {
	got := Shares(1_000_000, 100, []uint64{0, 0})
	for i, a := range got {
		if a != 0 {
			t.Errorf("share %d = %d, want 0", i, a)
		}
	}
}

func TestSharesMultipliesBeforeDividing(t *testing.T) {
	// pool * percent alone exceeds uint64 when multiplied naively with
	// the factor; the big.Int path must stay exact
	pool := uint64(1 << 62)
	got := Shares(pool, 10_000, []uint64{9, 9})
	half := pool / 2
	for i, a := range got {
		if a != half {
			t.Errorf("share %d = %d, want %d", i, a, half)
		}
	}
}

func TestSharesFloorNeverOverpays(t *testing.T) {
	pool := uint64(1_000_003)
	factors := []uint64{7, 5, 2}
	got := Shares(pool, 10_000, factors)
	var sum uint64
	for _, a := range got {
		sum += a
	}
	if sum > pool {
		t.Fatalf("shares sum %d exceeds pool %d", sum, pool)
	}
}
