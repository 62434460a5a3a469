package engine

import (
	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/escrow"
	"github.com/arena-ledger/arena-ledger/internal/domain/session"
)

// SessionByID returns a copy of the session, or nil when unknown.
func (s *Service) SessionByID(id uint64) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions.ByID(id)
	if !ok {
		return nil
	}
	return sess
}

// ActiveSessionsByVenue pages through the venue's active sessions in
// ascending id order.
func (s *Service) ActiveSessionsByVenue(venueID uint64, limit, offset int) ([]*session.Session, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.ListActiveByVenue(venueID, limit, offset)
}

// ActiveSessionsByParticipant pages through the wallet's active
// sessions in ascending id order.
func (s *Service) ActiveSessionsByParticipant(wallet string, limit, offset int) ([]*session.Session, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.ListActiveByParticipant(wallet, limit, offset)
}

// VenueBalance returns a snapshot of the venue's pools.
func (s *Service) VenueBalance(venueID uint64) asset.BalanceView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.View(venueID)
}

// FundedVenueCount returns how many venues have ever held assets.
func (s *Service) FundedVenueCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.FundedCount()
}

// WaitingList returns the escrow queue contents in current order.
func (s *Service) WaitingList() []escrow.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Entries()
}

// PlatformPool returns the undistributed platform pool per token.
func (s *Service) PlatformPool() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.platformPool))
	for token, amount := range s.platformPool {
		out[token] = amount
	}
	return out
}

// TreasuryBalance returns the accrued, unsettled treasury balance per
// token.
func (s *Service) TreasuryBalance() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.treasuryAccrued))
	for token, amount := range s.treasuryAccrued {
		out[token] = amount
	}
	return out
}

// WalletRewards is the combined rewards view of one wallet: amounts
// already sitting in escrow and resolved amounts not yet escrowed,
// keyed by token.
type WalletRewards struct {
	Wallet   string            `json:"wallet"`
	Escrowed map[string]uint64 `json:"escrowed"`
	Pending  map[string]uint64 `json:"pending"`
}

// RewardsOf reports the wallet's escrowed and still-pending rewards.
func (s *Service) RewardsOf(wallet string) WalletRewards {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := WalletRewards{
		Wallet:   wallet,
		Escrowed: make(map[string]uint64),
		Pending:  make(map[string]uint64),
	}
	for _, e := range s.queue.Entries() {
		if e.Wallet == wallet {
			view.Escrowed[e.Token] += e.Amount
		}
	}
	for _, p := range s.sessions.PendingFor(wallet) {
		if s.queue.Contains(wallet, p.SessionID) {
			continue
		}
		view.Pending[p.Token] += p.Amount
	}
	return view
}
