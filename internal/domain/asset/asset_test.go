package asset

import "testing"

func TestCreditAndDebit(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 500, NativeToken)
	l.Credit(1, 250, "USDQ")

	if got := l.Balance(1, NativeToken); got != 500 {
		t.Fatalf("native balance = %d, want 500", got)
	}
	if got := l.Balance(1, "USDQ"); got != 250 {
		t.Fatalf("token balance = %d, want 250", got)
	}

	if err := l.Debit(1, 400, NativeToken); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.Balance(1, NativeToken); got != 100 {
		t.Fatalf("native balance after debit = %d, want 100", got)
	}

	if err := l.Debit(1, 101, NativeToken); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := l.Debit(2, 1, NativeToken); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds for unknown venue, got %v", err)
	}
}

func TestFundedCounterIncrementsOncePerVenue(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 0, NativeToken) // zero credit does not fund
	if got := l.FundedCount(); got != 0 {
		t.Fatalf("funded count = %d, want 0", got)
	}

	l.Credit(1, 10, NativeToken)
	l.Credit(1, 10, "USDQ")
	l.Credit(2, 10, NativeToken)
	if got := l.FundedCount(); got != 2 {
		t.Fatalf("funded count = %d, want 2", got)
	}

	// draining a venue does not unfund it
	if err := l.Debit(2, 10, NativeToken); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.FundedCount(); got != 2 {
		t.Fatalf("funded count after drain = %d, want 2", got)
	}

	ids := l.FundedVenueIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("funded venue ids = %v, want [1 2]", ids)
	}
}

func TestTotalDepositedAccumulates(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 100, NativeToken)
	l.Credit(1, 50, "USDQ")
	if got := l.View(1).TotalDeposited; got != 150 {
		t.Fatalf("total deposited = %d, want 150", got)
	}
}

func TestSplitSaleIsExact(t *testing.T) {
	cases := []struct {
		gross       uint64
		hasReferrer bool
		referrerBP  uint64
		poolBP      uint64
	}{
		{10_001, true, 1000, 5000},
		{10_000, false, 1000, 5000},
		{1, true, 1000, 5000},
		{999_999_999, true, 333, 6666},
		{7, true, 9999, 9999},
	}
	for _, c := range cases {
		split := SplitSale(c.gross, c.hasReferrer, c.referrerBP, c.poolBP)
		sum := split.ReferrerCut + split.PoolCut + split.TreasuryCut
		if sum != c.gross {
			t.Errorf("SplitSale(%d) parts sum to %d", c.gross, sum)
		}
		if !c.hasReferrer && split.ReferrerCut != 0 {
			t.Errorf("SplitSale(%d) referrer cut %d without referrer", c.gross, split.ReferrerCut)
		}
	}
}

func TestDistributeEvenFoldsRemainderIntoFirst(t *testing.T) {
	chunks := DistributeEven(10, 3)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0] != 4 || chunks[1] != 3 || chunks[2] != 3 {
		t.Fatalf("chunks = %v, want [4 3 3]", chunks)
	}

	var sum uint64
	for _, c := range DistributeEven(1_000_001, 7) {
		sum += c
	}
	if sum != 1_000_001 {
		t.Fatalf("chunks sum to %d, want 1000001", sum)
	}

	if DistributeEven(10, 0) != nil {
		t.Fatal("expected nil for zero recipients")
	}
}

func TestLedgerSnapshotRoundTrip(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 100, NativeToken)
	l.Credit(2, 200, "USDQ")

	restored := NewLedger()
	restored.Restore(l.Export())

	if got := restored.Balance(1, NativeToken); got != 100 {
		t.Fatalf("restored native balance = %d, want 100", got)
	}
	if got := restored.Balance(2, "USDQ"); got != 200 {
		t.Fatalf("restored token balance = %d, want 200", got)
	}
	if got := restored.FundedCount(); got != 2 {
		t.Fatalf("restored funded count = %d, want 2", got)
	}
}
