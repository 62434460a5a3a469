package recon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
)

// Service is the operator tooling around failed external transfers.
// Settlement operations never roll back state when the transfer rail
// fails; this service is how the owed amounts eventually get settled.
type Service struct {
	repo     journal.Repository
	transfer payment.Transfer
	logger   zerolog.Logger
}

// NewService creates a reconciliation service.
func NewService(repo journal.Repository, transfer payment.Transfer, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		transfer: transfer,
		logger:   logger.With().Str("service", "recon").Logger(),
	}
}

// ListFailed returns unreconciled failed-transfer entries, optionally
// narrowed by a filter expression over kind, status, venue_id, session_id,
// wallet, amount and token. Empty filter matches everything.
func (s *Service) ListFailed(ctx context.Context, filter string, limit int) ([]*journal.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	entries, err := s.repo.ListFailedTransfers(ctx, limit)
	if err != nil {
		return nil, err
	}

	filter = strings.TrimSpace(filter)
	if filter == "" {
		return entries, nil
	}
	expr, err := govaluate.NewEvaluableExpression(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	matched := make([]*journal.Entry, 0, len(entries))
	for _, e := range entries {
		result, err := expr.Evaluate(entryParams(e))
		if err != nil {
			return nil, fmt.Errorf("filter evaluation failed: %w", err)
		}
		ok, isBool := result.(bool)
		if !isBool {
			return nil, errors.New("filter did not evaluate to boolean")
		}
		if ok {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func entryParams(e *journal.Entry) map[string]interface{} {
	return map[string]interface{}{
		"kind":       string(e.Kind),
		"status":     string(e.Status),
		"venue_id":   float64(e.VenueID),
		"session_id": float64(e.SessionID),
		"wallet":     e.Wallet,
		"amount":     float64(e.Amount),
		"token":      e.Token,
	}
}

// Retry re-attempts the external transfer of a failed entry and marks
// it reconciled on success.
func (s *Service) Retry(ctx context.Context, id uuid.UUID, actor string) (*journal.Entry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("journal entry not found: %s", id)
	}
	if entry.Status != journal.StatusTransferFailed {
		return nil, fmt.Errorf("journal entry %s is not a failed transfer", id)
	}
	if entry.Wallet == "" {
		return nil, fmt.Errorf("journal entry %s has no recipient wallet", id)
	}

	if err := s.transfer.Send(ctx, entry.Wallet, entry.Amount, entry.Token); err != nil {
		s.logger.Error().Err(err).Str("entry_id", id.String()).Msg("retry transfer failed")
		return nil, &payment.TransferError{To: entry.Wallet, Amount: entry.Amount, Token: entry.Token, Err: err}
	}
	note := fmt.Sprintf("retried by %s", actor)
	if err := s.repo.MarkReconciled(ctx, id, note); err != nil {
		return nil, err
	}

	s.logger.Info().Str("entry_id", id.String()).Str("actor", actor).Msg("failed transfer retried")
	entry.Status = journal.StatusReconciled
	return entry, nil
}

// Resolve marks a failed entry reconciled without a new transfer, for
// cases settled out of band.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, actor, note string) error {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("journal entry not found: %s", id)
	}
	if entry.Status != journal.StatusTransferFailed {
		return fmt.Errorf("journal entry %s is not a failed transfer", id)
	}
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("a resolution note is required")
	}

	if err := s.repo.MarkReconciled(ctx, id, fmt.Sprintf("%s: %s", actor, note)); err != nil {
		return err
	}
	s.logger.Info().Str("entry_id", id.String()).Str("actor", actor).Msg("failed transfer resolved manually")
	return nil
}
