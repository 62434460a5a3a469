package engine

import (
	"context"
	"fmt"

	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
)

// CreditInput deposits value into a venue's pool.
type CreditInput struct {
	Caller  string
	VenueID uint64
	Amount  uint64
	Token   string
}

// CreditResult reports how a deposit was applied.
type CreditResult struct {
	Credited   uint64 `json:"credited"`
	OwnerShare uint64 `json:"ownerShare"`
}

// Credit deposits into the venue pool. When the venue has a registered
// owner, the owner's income share is carved out and transferred first;
// if that transfer fails the whole credit is rejected with nothing
// applied. Only the remainder is credited to the pool.
func (s *Service) Credit(ctx context.Context, in CreditInput) (*CreditResult, error) {
	if err := s.requireDepositor(ctx, in.Caller); err != nil {
		return nil, err
	}
	if in.VenueID == 0 {
		return nil, validationErr("venue id is required")
	}
	if in.Amount == 0 {
		return nil, validationErr("amount must be positive")
	}
	if in.Token == "" {
		return nil, validationErr("token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ownerShare uint64
	owner, hasOwner := s.owners[in.VenueID]
	if hasOwner && s.params.OwnerIncomeBP > 0 {
		ownerShare = asset.CutBP(in.Amount, s.params.OwnerIncomeBP)
	}
	if ownerShare > 0 {
		if err := s.transfer.Send(ctx, owner, ownerShare, in.Token); err != nil {
			s.logger.Error().Err(err).
				Uint64("venue_id", in.VenueID).Str("owner", owner).
				Msg("owner share transfer failed, credit rejected")
			return nil, &payment.TransferError{To: owner, Amount: ownerShare, Token: in.Token, Err: err}
		}
	}

	credited := in.Amount - ownerShare
	s.ledger.Credit(in.VenueID, credited, in.Token)
	s.record(ctx, &journal.Entry{
		Kind:    journal.KindDeposit,
		VenueID: in.VenueID,
		Wallet:  in.Caller,
		Amount:  credited,
		Token:   in.Token,
		Status:  journal.StatusApplied,
		Detail:  fmt.Sprintf("gross=%d ownerShare=%d", in.Amount, ownerShare),
	})

	s.logger.Info().
		Uint64("venue_id", in.VenueID).
		Uint64("credited", credited).
		Uint64("owner_share", ownerShare).
		Str("token", in.Token).
		Msg("venue credited")
	return &CreditResult{Credited: credited, OwnerShare: ownerShare}, nil
}

// PrimarySaleInput settles the proceeds of a primary sale.
type PrimarySaleInput struct {
	Caller         string
	Gross          uint64
	Token          string
	Referrer       string
	DistributePool bool
}

// PrimarySaleResult reports the exact split of a sale.
type PrimarySaleResult struct {
	ReferrerCut uint64 `json:"referrerCut"`
	PoolCut     uint64 `json:"poolCut"`
	TreasuryCut uint64 `json:"treasuryCut"`
	Distributed bool   `json:"distributed"`
}

// PrimarySale splits sale proceeds into referrer, pool and treasury
// cuts. The cuts always sum to the gross amount. The pool cut is either
// spread across funded venues immediately or parked in the platform
// pool, and the treasury cut accrues to the internal treasury balance,
// paid out later through SettleTreasury. At most one external transfer
// happens per call: the referrer leg, attempted after the state
// mutation and journaled for reconciliation when it fails.
func (s *Service) PrimarySale(ctx context.Context, in PrimarySaleInput) (*PrimarySaleResult, error) {
	if err := s.requireDepositor(ctx, in.Caller); err != nil {
		return nil, err
	}
	if in.Gross == 0 {
		return nil, validationErr("gross amount must be positive")
	}
	if in.Token == "" {
		return nil, validationErr("token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	split := asset.SplitSale(in.Gross, in.Referrer != "", s.params.ReferrerBP, s.params.PoolBP)
	result := &PrimarySaleResult{
		ReferrerCut: split.ReferrerCut,
		PoolCut:     split.PoolCut,
		TreasuryCut: split.TreasuryCut,
	}

	if split.PoolCut > 0 {
		if in.DistributePool {
			result.Distributed = s.distributePoolLocked(ctx, split.PoolCut, in.Token)
		}
		if !result.Distributed {
			s.platformPool[in.Token] += split.PoolCut
		}
	}

	if split.TreasuryCut > 0 {
		s.treasuryAccrued[in.Token] += split.TreasuryCut
		s.record(ctx, &journal.Entry{
			Kind:   journal.KindPrimarySale,
			Wallet: s.params.TreasuryWallet,
			Amount: split.TreasuryCut,
			Token:  in.Token,
			Status: journal.StatusApplied,
			Detail: fmt.Sprintf("gross=%d leg=treasury accrued", in.Gross),
		})
	}

	var sendErr error
	if split.ReferrerCut > 0 {
		entry := &journal.Entry{
			Kind:   journal.KindPrimarySale,
			Wallet: in.Referrer,
			Amount: split.ReferrerCut,
			Token:  in.Token,
			Detail: fmt.Sprintf("gross=%d leg=referrer", in.Gross),
		}
		sendErr = s.send(ctx, entry, in.Referrer, split.ReferrerCut, in.Token)
	}

	s.logger.Info().
		Uint64("gross", in.Gross).
		Uint64("referrer_cut", split.ReferrerCut).
		Uint64("pool_cut", split.PoolCut).
		Uint64("treasury_cut", split.TreasuryCut).
		Bool("distributed", result.Distributed).
		Msg("primary sale settled")
	return result, sendErr
}

// SettleTreasuryInput pays out the accrued treasury balance for a token.
type SettleTreasuryInput struct {
	Caller string
	Token  string
}

// SettleTreasuryResult reports the settled amount.
type SettleTreasuryResult struct {
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}

// SettleTreasury transfers the accrued treasury balance for a token to
// the treasury wallet in one external transfer. Admin only. The accrual
// is cleared before the transfer; a failed transfer is journaled for
// reconciliation and not rolled back, like every other post-mutation
// failure.
func (s *Service) SettleTreasury(ctx context.Context, in SettleTreasuryInput) (*SettleTreasuryResult, error) {
	if err := s.requireAdmin(ctx, in.Caller); err != nil {
		return nil, err
	}
	if in.Token == "" {
		return nil, validationErr("token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.treasuryAccrued[in.Token]
	if amount == 0 {
		return nil, validationErr("no accrued treasury balance for token %s", in.Token)
	}
	s.treasuryAccrued[in.Token] = 0

	entry := &journal.Entry{
		Kind:   journal.KindTreasurySettle,
		Wallet: s.params.TreasuryWallet,
		Amount: amount,
		Token:  in.Token,
	}
	err := s.send(ctx, entry, s.params.TreasuryWallet, amount, in.Token)

	s.logger.Info().
		Uint64("amount", amount).
		Str("token", in.Token).
		Msg("treasury settled")
	return &SettleTreasuryResult{Amount: amount, Token: in.Token}, err
}

// DistributePoolInput spreads the accumulated platform pool for a token
// across funded venues.
type DistributePoolInput struct {
	Caller string
	Token  string
}

// DistributePool credits every funded venue with an even share of the
// platform pool balance, remainder to the first venue. Admin only.
func (s *Service) DistributePool(ctx context.Context, in DistributePoolInput) error {
	if err := s.requireAdmin(ctx, in.Caller); err != nil {
		return err
	}
	if in.Token == "" {
		return validationErr("token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.platformPool[in.Token]
	if amount == 0 {
		return validationErr("platform pool is empty for token %s", in.Token)
	}
	if !s.distributePoolLocked(ctx, amount, in.Token) {
		return validationErr("no funded venues to distribute to")
	}
	s.platformPool[in.Token] = 0
	return nil
}

// distributePoolLocked spreads amount across funded venues and journals
// the distribution. Returns false when there are no funded venues.
// Callers hold the engine lock.
func (s *Service) distributePoolLocked(ctx context.Context, amount uint64, token string) bool {
	venueIDs := s.ledger.FundedVenueIDs()
	if len(venueIDs) == 0 {
		return false
	}
	chunks := asset.DistributeEven(amount, len(venueIDs))
	for i, venueID := range venueIDs {
		s.ledger.Credit(venueID, chunks[i], token)
	}
	s.record(ctx, &journal.Entry{
		Kind:   journal.KindPoolDistribution,
		Amount: amount,
		Token:  token,
		Status: journal.StatusApplied,
		Detail: fmt.Sprintf("venues=%d", len(venueIDs)),
	})
	s.logger.Info().
		Uint64("amount", amount).
		Int("venues", len(venueIDs)).
		Str("token", token).
		Msg("platform pool distributed")
	return true
}

// SetVenueOwnerInput registers the income recipient of a venue.
type SetVenueOwnerInput struct {
	Caller  string
	VenueID uint64
	Owner   string
}

// SetVenueOwner registers the wallet that receives the venue's owner
// income share on future deposits. Admin only.
func (s *Service) SetVenueOwner(ctx context.Context, in SetVenueOwnerInput) error {
	if err := s.requireAdmin(ctx, in.Caller); err != nil {
		return err
	}
	if in.VenueID == 0 {
		return validationErr("venue id is required")
	}
	if in.Owner == "" {
		return validationErr("owner wallet is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.owners[in.VenueID] = in.Owner
	s.record(ctx, &journal.Entry{
		Kind:    journal.KindOwnerChange,
		VenueID: in.VenueID,
		Wallet:  in.Owner,
		Status:  journal.StatusApplied,
	})
	s.logger.Info().Uint64("venue_id", in.VenueID).Str("owner", in.Owner).Msg("venue owner set")
	return nil
}
