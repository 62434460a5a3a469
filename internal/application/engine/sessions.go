package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
	"github.com/arena-ledger/arena-ledger/internal/domain/reward"
	"github.com/arena-ledger/arena-ledger/internal/domain/session"
)

// CreateSoloSessionInput creates a session for a single player.
type CreateSoloSessionInput struct {
	Caller      string
	VenueID     uint64
	Player      string
	CharacterID uint64
	EquipmentID uint64
}

// CreateSoloSession registers a solo session for a venue.
func (s *Service) CreateSoloSession(ctx context.Context, in CreateSoloSessionInput) (*session.Session, error) {
	if err := s.requireSessionCaller(ctx, in.Caller); err != nil {
		return nil, err
	}
	lineUp := session.LineUp{
		CharacterIDs: []uint64{in.CharacterID},
		EquipmentIDs: []uint64{in.EquipmentID},
	}
	return s.createSession(ctx, in.VenueID, session.KindSolo, []string{in.Player}, []session.LineUp{lineUp})
}

// CreateTeamSessionInput creates a session for one team of players.
type CreateTeamSessionInput struct {
	Caller       string
	VenueID      uint64
	Participants []string
	CharacterIDs []uint64
	EquipmentIDs []uint64
}

// CreateTeamSession registers a team session for a venue.
func (s *Service) CreateTeamSession(ctx context.Context, in CreateTeamSessionInput) (*session.Session, error) {
	if err := s.requireSessionCaller(ctx, in.Caller); err != nil {
		return nil, err
	}
	lineUp := session.LineUp{
		CharacterIDs: in.CharacterIDs,
		EquipmentIDs: in.EquipmentIDs,
	}
	return s.createSession(ctx, in.VenueID, session.KindTeam, in.Participants, []session.LineUp{lineUp})
}

// CreateMultiplayerSessionInput creates a head-to-head session between
// two players with their own line-ups.
type CreateMultiplayerSessionInput struct {
	Caller       string
	VenueID      uint64
	Participants []string
	LineUps      []session.LineUp
}

// CreateMultiplayerSession registers a head-to-head session for a venue.
func (s *Service) CreateMultiplayerSession(ctx context.Context, in CreateMultiplayerSessionInput) (*session.Session, error) {
	if err := s.requireSessionCaller(ctx, in.Caller); err != nil {
		return nil, err
	}
	return s.createSession(ctx, in.VenueID, session.KindMultiplayer, in.Participants, in.LineUps)
}

func (s *Service) createSession(ctx context.Context, venueID uint64, kind session.Kind, participants []string, lineUps []session.LineUp) (*session.Session, error) {
	if venueID == 0 {
		return nil, validationErr("venue id is required")
	}
	for _, lu := range lineUps {
		for _, unitID := range lu.CharacterIDs {
			eligible, err := s.identity.IsEligibleUnit(ctx, unitID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve eligibility of unit %d: %w", unitID, err)
			}
			if !eligible {
				return nil, validationErr("unit %d is not eligible", unitID)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.sessions.Create(venueID, kind, participants, lineUps, s.now())
	if err != nil {
		if errors.Is(err, session.ErrDuplicateActive) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, validationErr("%v", err)
	}

	s.logger.Info().
		Uint64("session_id", created.ID).
		Uint64("venue_id", venueID).
		Str("kind", string(kind)).
		Msg("session created")
	return created, nil
}

// UpdateSessionInput records the outcome of a session.
type UpdateSessionInput struct {
	Caller          string
	SessionID       uint64
	Outcome         session.Outcome
	DeclaredWinners []uint64
	Completed       bool
}

// UpdateSession stores the declared outcome on an active session. When
// the outcome names winners, their rewards are resolved immediately:
// owners and penalty factors come from the identity registry, the pool
// is the venue's balance in the reward token, and the resulting snapshot
// is frozen on the session. Completion deactivates the session and frees
// its duplicate key.
func (s *Service) UpdateSession(ctx context.Context, in UpdateSessionInput) (*session.Session, error) {
	if err := s.requireSessionCaller(ctx, in.Caller); err != nil {
		return nil, err
	}
	if _, err := session.ParseOutcome(string(in.Outcome)); err != nil {
		return nil, validationErr("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions.ByID(in.SessionID)
	if !ok {
		return nil, validationErr("session %d not found", in.SessionID)
	}
	if !current.Active {
		return nil, validationErr("session %d is not active", in.SessionID)
	}

	if in.Outcome != session.OutcomeNone && len(in.DeclaredWinners) > 0 {
		res, err := s.resolveRewards(ctx, current, in.Outcome, in.DeclaredWinners)
		if err != nil {
			return nil, err
		}
		if err := s.sessions.SetResolution(in.SessionID, res, s.now()); err != nil {
			return nil, err
		}
		var total uint64
		for _, a := range res.Amounts {
			total += a
		}
		s.record(ctx, &journal.Entry{
			Kind:      journal.KindSessionResolved,
			VenueID:   current.VenueID,
			SessionID: current.ID,
			Amount:    total,
			Token:     res.Token,
			Status:    journal.StatusApplied,
			Detail:    fmt.Sprintf("winners=%d outcome=%s", len(res.Wallets), res.Outcome),
		})
	}

	if in.Completed {
		if err := s.sessions.Complete(in.SessionID, s.now()); err != nil {
			return nil, err
		}
	}

	updated, _ := s.sessions.ByID(in.SessionID)
	s.logger.Info().
		Uint64("session_id", in.SessionID).
		Str("outcome", string(in.Outcome)).
		Bool("completed", in.Completed).
		Msg("session updated")
	return updated, nil
}

// resolveRewards builds the reward snapshot for the declared winner
// units. Units without a resolvable owner or no longer reward-eligible
// are dropped from the resolved lists, not recorded with a zero share;
// the declared list itself is stored verbatim. Callers hold the engine
// lock.
func (s *Service) resolveRewards(ctx context.Context, sess *session.Session, outcome session.Outcome, declared []uint64) (session.Resolution, error) {
	wallets := make([]string, 0, len(declared))
	factors := make([]uint64, 0, len(declared))
	for _, unitID := range declared {
		owner, err := s.identity.OwnerOf(ctx, unitID)
		if err != nil {
			return session.Resolution{}, fmt.Errorf("failed to resolve owner of unit %d: %w", unitID, err)
		}
		if owner == "" {
			s.logger.Debug().Uint64("unit_id", unitID).Msg("dropping winner unit without owner")
			continue
		}
		eligible, err := s.identity.IsEligibleUnit(ctx, unitID)
		if err != nil {
			return session.Resolution{}, fmt.Errorf("failed to resolve eligibility of unit %d: %w", unitID, err)
		}
		if !eligible {
			s.logger.Debug().Uint64("unit_id", unitID).Msg("dropping ineligible winner unit")
			continue
		}
		penalties, err := s.identity.PenaltyCount(ctx, unitID)
		if err != nil {
			return session.Resolution{}, fmt.Errorf("failed to resolve penalty count of unit %d: %w", unitID, err)
		}
		wallets = append(wallets, owner)
		factors = append(factors, reward.PenaltyFactor(penalties))
	}

	token, err := s.rewardToken(ctx)
	if err != nil {
		return session.Resolution{}, err
	}
	pool := s.ledger.Balance(sess.VenueID, token)
	amounts := reward.Shares(pool, s.params.PayoutPercentBP, factors)

	return session.Resolution{
		Outcome:         outcome,
		DeclaredWinners: declared,
		Wallets:         wallets,
		Amounts:         amounts,
		Token:           token,
		PayoutPercentBP: s.params.PayoutPercentBP,
	}, nil
}
