package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/escrow"
	"github.com/arena-ledger/arena-ledger/internal/domain/identity"
	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
	"github.com/arena-ledger/arena-ledger/internal/domain/session"
)

var (
	ErrUnauthorized = errors.New("caller is not authorized")
	ErrValidation   = errors.New("validation failed")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Params are the settlement parameters of the engine. Percentages are
// basis points out of 10000.
type Params struct {
	PayoutPercentBP uint64
	OwnerIncomeBP   uint64
	ReferrerBP      uint64
	PoolBP          uint64
	TreasuryWallet  string
	EscrowWallet    string
	NativeDisabled  bool
}

func (p Params) validate() error {
	if p.PayoutPercentBP > asset.BasisPoints ||
		p.OwnerIncomeBP > asset.BasisPoints ||
		p.ReferrerBP > asset.BasisPoints ||
		p.PoolBP > asset.BasisPoints {
		return fmt.Errorf("percent parameters must not exceed %d basis points", asset.BasisPoints)
	}
	if p.TreasuryWallet == "" {
		return fmt.Errorf("treasury wallet is required")
	}
	if p.EscrowWallet == "" {
		return fmt.Errorf("escrow wallet is required")
	}
	return nil
}

// Service is the settlement orchestrator. It owns all engine state and
// serializes every operation behind a single mutex. Mutating operations
// check authorization first, then validate, then mutate and record, and
// only then touch the external transfer rail; a failed transfer is
// surfaced but never rolled back.
type Service struct {
	mu sync.Mutex

	sessions        *session.Store
	ledger          *asset.Ledger
	queue           *escrow.Queue
	owners          map[uint64]string
	platformPool    map[string]uint64
	treasuryAccrued map[string]uint64

	params      Params
	identity    identity.Resolver
	transfer    payment.Transfer
	authz       payment.Authorization
	journalRepo journal.Repository
	events      EventSink
	logger      zerolog.Logger
	now         func() time.Time
}

// EventSink receives journal entries as they are recorded, for live
// subscribers. Delivery must not block.
type EventSink interface {
	Publish(entry *journal.Entry)
}

// AttachEventSink wires a live event sink. Call before serving traffic.
func (s *Service) AttachEventSink(sink EventSink) {
	s.events = sink
}

// NewService creates a settlement engine.
func NewService(
	resolver identity.Resolver,
	transfer payment.Transfer,
	authz payment.Authorization,
	journalRepo journal.Repository,
	params Params,
	logger zerolog.Logger,
) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine params: %w", err)
	}
	return &Service{
		sessions:        session.NewStore(),
		ledger:          asset.NewLedger(),
		queue:           escrow.NewQueue(),
		owners:          make(map[uint64]string),
		platformPool:    make(map[string]uint64),
		treasuryAccrued: make(map[string]uint64),
		params:          params,
		identity:        resolver,
		transfer:        transfer,
		authz:           authz,
		journalRepo:     journalRepo,
		logger:          logger.With().Str("service", "engine").Logger(),
		now:             func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) requireDepositor(ctx context.Context, wallet string) error {
	ok, err := s.authz.IsAuthorizedDepositor(ctx, wallet)
	if err != nil {
		s.logger.Warn().Err(err).Str("wallet", wallet).Msg("depositor check failed, denying")
		return fmt.Errorf("%w: depositor check failed", ErrUnauthorized)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an authorized depositor", ErrUnauthorized, wallet)
	}
	return nil
}

func (s *Service) requireSessionCaller(ctx context.Context, wallet string) error {
	ok, err := s.authz.IsAuthorizedSessionCaller(ctx, wallet)
	if err != nil {
		s.logger.Warn().Err(err).Str("wallet", wallet).Msg("session caller check failed, denying")
		return fmt.Errorf("%w: session caller check failed", ErrUnauthorized)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an authorized session caller", ErrUnauthorized, wallet)
	}
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, wallet string) error {
	ok, err := s.authz.IsAdmin(ctx, wallet)
	if err != nil {
		s.logger.Warn().Err(err).Str("wallet", wallet).Msg("admin check failed, denying")
		return fmt.Errorf("%w: admin check failed", ErrUnauthorized)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an admin", ErrUnauthorized, wallet)
	}
	return nil
}

// record appends a journal entry. Journal failures are logged, not
// propagated; the journal trails engine state, it does not gate it.
func (s *Service) record(ctx context.Context, entry *journal.Entry) {
	entry.ID = uuid.New()
	entry.CreatedAt = s.now()
	if err := s.journalRepo.Insert(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("kind", string(entry.Kind)).Msg("failed to append journal entry")
	}
	if s.events != nil {
		s.events.Publish(entry)
	}
}

// send performs the single external transfer of an operation and
// journals the outcome. The returned error, if any, is a
// *payment.TransferError; engine state stays as mutated.
func (s *Service) send(ctx context.Context, entry *journal.Entry, to string, amount uint64, token string) error {
	if err := s.transfer.Send(ctx, to, amount, token); err != nil {
		entry.Status = journal.StatusTransferFailed
		s.record(ctx, entry)
		s.logger.Error().Err(err).
			Str("to", to).Uint64("amount", amount).Str("token", token).
			Msg("external transfer failed, state kept for reconciliation")
		return &payment.TransferError{To: to, Amount: amount, Token: token, Err: err}
	}
	entry.Status = journal.StatusApplied
	s.record(ctx, entry)
	return nil
}

// rewardToken picks the token rewards are paid in: the native token, or
// the first registry-supported token when native payouts are disabled.
func (s *Service) rewardToken(ctx context.Context) (string, error) {
	if !s.params.NativeDisabled {
		return asset.NativeToken, nil
	}
	tokens, err := s.identity.SupportedTokens(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve supported tokens: %w", err)
	}
	if len(tokens) == 0 {
		return "", validationErr("no supported reward token configured")
	}
	return tokens[0], nil
}
