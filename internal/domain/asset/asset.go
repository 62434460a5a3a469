package asset

import (
	"errors"
	"sort"
)

// NativeToken is the token symbol for the platform's native sub-ledger.
const NativeToken = "NATIVE"

var ErrInsufficientFunds = errors.New("insufficient venue funds")

// Account holds the balances of a single venue.
type Account struct {
	Native         uint64            `json:"native"`
	Tokens         map[string]uint64 `json:"tokens,omitempty"`
	TotalDeposited uint64            `json:"totalDeposited"`
	HasAssets      bool              `json:"hasAssets"`
}

// BalanceView is a read-only snapshot of a venue account.
type BalanceView struct {
	VenueID        uint64            `json:"venueId"`
	Native         uint64            `json:"native"`
	Tokens         map[string]uint64 `json:"tokens"`
	TotalDeposited uint64            `json:"totalDeposited"`
	HasAssets      bool              `json:"hasAssets"`
}

// Ledger keeps per-venue balances. It is not safe for concurrent use;
// callers serialize access.
type Ledger struct {
	accounts map[uint64]*Account
	funded   uint64
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[uint64]*Account)}
}

func (l *Ledger) account(venueID uint64) *Account {
	acct, ok := l.accounts[venueID]
	if !ok {
		acct = &Account{Tokens: make(map[string]uint64)}
		l.accounts[venueID] = acct
	}
	return acct
}

// Credit adds amount to the venue's sub-ledger for token. The first
// nonzero credit marks the venue as funded and bumps the funded counter,
// exactly once per venue.
func (l *Ledger) Credit(venueID uint64, amount uint64, token string) {
	if amount == 0 {
		return
	}
	acct := l.account(venueID)
	if token == NativeToken {
		acct.Native += amount
	} else {
		acct.Tokens[token] += amount
	}
	acct.TotalDeposited += amount
	if !acct.HasAssets {
		acct.HasAssets = true
		l.funded++
	}
}

// Debit removes amount from the venue's sub-ledger for token.
func (l *Ledger) Debit(venueID uint64, amount uint64, token string) error {
	acct, ok := l.accounts[venueID]
	if !ok {
		if amount == 0 {
			return nil
		}
		return ErrInsufficientFunds
	}
	if token == NativeToken {
		if acct.Native < amount {
			return ErrInsufficientFunds
		}
		acct.Native -= amount
		return nil
	}
	if acct.Tokens[token] < amount {
		return ErrInsufficientFunds
	}
	acct.Tokens[token] -= amount
	return nil
}

// Balance returns the venue's balance in the given token sub-ledger.
func (l *Ledger) Balance(venueID uint64, token string) uint64 {
	acct, ok := l.accounts[venueID]
	if !ok {
		return 0
	}
	if token == NativeToken {
		return acct.Native
	}
	return acct.Tokens[token]
}

// View returns a copy of the venue's account for read paths.
func (l *Ledger) View(venueID uint64) BalanceView {
	v := BalanceView{VenueID: venueID, Tokens: make(map[string]uint64)}
	acct, ok := l.accounts[venueID]
	if !ok {
		return v
	}
	v.Native = acct.Native
	v.TotalDeposited = acct.TotalDeposited
	v.HasAssets = acct.HasAssets
	for token, bal := range acct.Tokens {
		v.Tokens[token] = bal
	}
	return v
}

// FundedCount returns how many venues have ever held assets.
func (l *Ledger) FundedCount() uint64 {
	return l.funded
}

// FundedVenueIDs returns the ids of funded venues in ascending order.
func (l *Ledger) FundedVenueIDs() []uint64 {
	ids := make([]uint64, 0, len(l.accounts))
	for id, acct := range l.accounts {
		if acct.HasAssets {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot is the serializable state of a Ledger.
type Snapshot struct {
	Accounts map[uint64]Account `json:"accounts"`
	Funded   uint64             `json:"funded"`
}

func (l *Ledger) Export() Snapshot {
	snap := Snapshot{Accounts: make(map[uint64]Account, len(l.accounts)), Funded: l.funded}
	for id, acct := range l.accounts {
		copied := *acct
		copied.Tokens = make(map[string]uint64, len(acct.Tokens))
		for token, bal := range acct.Tokens {
			copied.Tokens[token] = bal
		}
		snap.Accounts[id] = copied
	}
	return snap
}

func (l *Ledger) Restore(snap Snapshot) {
	l.accounts = make(map[uint64]*Account, len(snap.Accounts))
	l.funded = snap.Funded
	for id, acct := range snap.Accounts {
		copied := acct
		if copied.Tokens == nil {
			copied.Tokens = make(map[string]uint64)
		}
		l.accounts[id] = &copied
	}
}
