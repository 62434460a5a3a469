package journal

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the settlement operation a journal entry records.
type Kind string

const (
	KindDeposit          Kind = "DEPOSIT"
	KindPrimarySale      Kind = "PRIMARY_SALE"
	KindPoolDistribution Kind = "POOL_DISTRIBUTION"
	KindSessionResolved  Kind = "SESSION_RESOLVED"
	KindEscrowRequest    Kind = "ESCROW_REQUEST"
	KindEscrowConfirm    Kind = "ESCROW_CONFIRM"
	KindTreasurySettle   Kind = "TREASURY_SETTLE"
	KindOwnerChange      Kind = "OWNER_CHANGE"
)

// Status is the settlement status of a journal entry.
type Status string

const (
	// StatusApplied means state and external transfer both succeeded.
	StatusApplied Status = "APPLIED"
	// StatusTransferFailed means state was mutated but the external
	// transfer failed; the entry awaits operator reconciliation.
	StatusTransferFailed Status = "TRANSFER_FAILED"
	// StatusReconciled means an operator settled a failed transfer.
	StatusReconciled Status = "RECONCILED"
)

// Entry is one record in the settlement journal.
type Entry struct {
	ID           uuid.UUID  `json:"id"`
	Kind         Kind       `json:"kind"`
	VenueID      uint64     `json:"venueId"`
	SessionID    uint64     `json:"sessionId,omitempty"`
	Wallet       string     `json:"wallet,omitempty"`
	Amount       uint64     `json:"amount"`
	Token        string     `json:"token"`
	Status       Status     `json:"status"`
	Detail       string     `json:"detail,omitempty"`
	Note         *string    `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReconciledAt *time.Time `json:"reconciledAt,omitempty"`
}

// Filter narrows journal listings. Zero values match everything.
type Filter struct {
	Kind    Kind
	Status  Status
	VenueID uint64
	Wallet  string
}
