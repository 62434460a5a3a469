package engine

import (
	"context"
	"fmt"

	"github.com/arena-ledger/arena-ledger/internal/domain/escrow"
	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
)

// ClaimResult reports a reward moved into escrow.
type ClaimResult struct {
	SessionID uint64 `json:"sessionId"`
	Amount    uint64 `json:"amount"`
	Token     string `json:"token"`
}

// RequestClaim moves the caller's earliest pending reward into escrow.
// The scan walks sessions in ascending id order and stops at the first
// one holding an unpaid, not-yet-queued reward for the wallet; rewards
// in later sessions wait for further requests. The venue pool is
// debited, the escrow entry queued and journaled, and finally the
// amount is transferred to the escrow wallet. A failed transfer leaves
// the debit and the queue entry in place and returns a
// *payment.TransferError.
func (s *Service) RequestClaim(ctx context.Context, wallet string) (*ClaimResult, error) {
	if wallet == "" {
		return nil, validationErr("wallet is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var claim *ClaimResult
	for _, p := range s.sessions.PendingFor(wallet) {
		if s.queue.Contains(wallet, p.SessionID) {
			continue
		}
		if err := s.ledger.Debit(p.VenueID, p.Amount, p.Token); err != nil {
			return nil, fmt.Errorf("venue %d: %w", p.VenueID, err)
		}
		s.queue.Push(escrow.Entry{
			Wallet:    wallet,
			Amount:    p.Amount,
			Token:     p.Token,
			SessionID: p.SessionID,
		})
		claim = &ClaimResult{SessionID: p.SessionID, Amount: p.Amount, Token: p.Token}
		break
	}
	if claim == nil {
		return nil, validationErr("no claimable rewards for wallet %s", wallet)
	}

	entry := &journal.Entry{
		Kind:      journal.KindEscrowRequest,
		SessionID: claim.SessionID,
		Wallet:    wallet,
		Amount:    claim.Amount,
		Token:     claim.Token,
	}
	err := s.send(ctx, entry, s.params.EscrowWallet, claim.Amount, claim.Token)

	s.logger.Info().
		Str("wallet", wallet).
		Uint64("session_id", claim.SessionID).
		Uint64("amount", claim.Amount).
		Msg("claim requested")
	return claim, err
}

// EscrowSessionWinnersInput escrows every outstanding winner reward of
// one session at once.
type EscrowSessionWinnersInput struct {
	Caller    string
	SessionID uint64
}

// EscrowResult reports a pooled escrow of several winners.
type EscrowResult struct {
	SessionID uint64   `json:"sessionId"`
	Wallets   []string `json:"wallets"`
	Total     uint64   `json:"total"`
	Token     string   `json:"token"`
}

// EscrowSessionWinners debits the venue once for all unpaid, unqueued
// winners of a session, queues one escrow entry per winner and makes a
// single pooled transfer to the escrow wallet. Authorized session
// callers only. The whole batch is checked against the venue balance
// before anything is applied.
func (s *Service) EscrowSessionWinners(ctx context.Context, in EscrowSessionWinnersInput) (*EscrowResult, error) {
	if err := s.requireSessionCaller(ctx, in.Caller); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions.ByID(in.SessionID)
	if !ok {
		return nil, validationErr("session %d not found", in.SessionID)
	}
	if sess.Distributed {
		return nil, validationErr("session %d is already distributed", in.SessionID)
	}
	if len(sess.WinnerWallets) == 0 {
		return nil, validationErr("session %d has no resolved winners", in.SessionID)
	}

	var (
		wallets []string
		amounts []uint64
		total   uint64
	)
	for i, w := range sess.WinnerWallets {
		if sess.WinnerPaid[i] || sess.WinnerAmounts[i] == 0 {
			continue
		}
		if s.queue.Contains(w, sess.ID) {
			continue
		}
		wallets = append(wallets, w)
		amounts = append(amounts, sess.WinnerAmounts[i])
		total += sess.WinnerAmounts[i]
	}
	if total == 0 {
		return nil, validationErr("session %d has nothing left to escrow", in.SessionID)
	}

	if err := s.ledger.Debit(sess.VenueID, total, sess.RewardToken); err != nil {
		return nil, fmt.Errorf("venue %d: %w", sess.VenueID, err)
	}
	for i, w := range wallets {
		s.queue.Push(escrow.Entry{
			Wallet:    w,
			Amount:    amounts[i],
			Token:     sess.RewardToken,
			SessionID: sess.ID,
		})
	}

	entry := &journal.Entry{
		Kind:      journal.KindEscrowRequest,
		VenueID:   sess.VenueID,
		SessionID: sess.ID,
		Amount:    total,
		Token:     sess.RewardToken,
		Detail:    fmt.Sprintf("pooled winners=%d", len(wallets)),
	}
	err := s.send(ctx, entry, s.params.EscrowWallet, total, sess.RewardToken)

	s.logger.Info().
		Uint64("session_id", sess.ID).
		Int("winners", len(wallets)).
		Uint64("total", total).
		Msg("session winners escrowed")
	return &EscrowResult{
		SessionID: sess.ID,
		Wallets:   wallets,
		Total:     total,
		Token:     sess.RewardToken,
	}, err
}

// ConfirmClaimInput releases one escrowed reward to its winner.
type ConfirmClaimInput struct {
	Caller string
	Winner string
}

// ConfirmResult reports a released escrow entry.
type ConfirmResult struct {
	SessionID   uint64 `json:"sessionId"`
	Amount      uint64 `json:"amount"`
	Token       string `json:"token"`
	Distributed bool   `json:"distributed"`
}

// ConfirmClaim releases the winner's first queued escrow entry: the
// entry is removed, the winner's sub-record on the session is marked
// paid, and the session becomes distributed once every winner is paid.
// The payout transfer happens last; a failure keeps the bookkeeping and
// returns a *payment.TransferError. Admin only.
func (s *Service) ConfirmClaim(ctx context.Context, in ConfirmClaimInput) (*ConfirmResult, error) {
	if err := s.requireAdmin(ctx, in.Caller); err != nil {
		return nil, err
	}
	if in.Winner == "" {
		return nil, validationErr("winner wallet is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queued, idx, ok := s.queue.FirstByWallet(in.Winner)
	if !ok {
		return nil, validationErr("no escrowed reward for wallet %s", in.Winner)
	}
	if queued.Amount == 0 {
		return nil, validationErr("escrowed amount for wallet %s is zero", in.Winner)
	}
	s.queue.RemoveAt(idx)

	allPaid, err := s.sessions.MarkWinnerPaid(queued.SessionID, in.Winner, s.now())
	if err != nil {
		return nil, fmt.Errorf("inconsistent escrow entry: %w", err)
	}
	if allPaid {
		if err := s.sessions.MarkDistributed(queued.SessionID, s.now()); err != nil {
			return nil, err
		}
	}

	entry := &journal.Entry{
		Kind:      journal.KindEscrowConfirm,
		SessionID: queued.SessionID,
		Wallet:    in.Winner,
		Amount:    queued.Amount,
		Token:     queued.Token,
	}
	sendErr := s.send(ctx, entry, in.Winner, queued.Amount, queued.Token)

	s.logger.Info().
		Str("winner", in.Winner).
		Uint64("session_id", queued.SessionID).
		Uint64("amount", queued.Amount).
		Bool("distributed", allPaid).
		Msg("claim confirmed")
	return &ConfirmResult{
		SessionID:   queued.SessionID,
		Amount:      queued.Amount,
		Token:       queued.Token,
		Distributed: allPaid,
	}, sendErr
}
