package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrDuplicateActive = errors.New("an identical session is already active")
	ErrNotActive       = errors.New("session is not active")
)

// Pending is one unpaid, resolved reward owed to a wallet.
type Pending struct {
	SessionID uint64 `json:"sessionId"`
	VenueID   uint64 `json:"venueId"`
	Amount    uint64 `json:"amount"`
	Token     string `json:"token"`
}

// Store holds sessions in memory. Ids are assigned monotonically from 1.
// Active sessions are indexed by their duplicate key so an identical
// session cannot be created twice while the first is still running.
// Not safe for concurrent use; callers serialize access.
type Store struct {
	sessions   map[uint64]*Session
	activeKeys map[string]uint64
	nextID     uint64
}

func NewStore() *Store {
	return &Store{
		sessions:   make(map[uint64]*Session),
		activeKeys: make(map[string]uint64),
		nextID:     1,
	}
}

func validateShape(kind Kind, participants []string, lineUps []LineUp) error {
	for _, p := range participants {
		if p == "" {
			return fmt.Errorf("participant wallet must not be empty")
		}
	}
	for i, lu := range lineUps {
		if len(lu.CharacterIDs) == 0 {
			return fmt.Errorf("line-up %d has no characters", i)
		}
		if len(lu.CharacterIDs) != len(lu.EquipmentIDs) {
			return fmt.Errorf("line-up %d has %d characters but %d equipment entries",
				i, len(lu.CharacterIDs), len(lu.EquipmentIDs))
		}
	}
	switch kind {
	case KindSolo:
		if len(participants) != 1 || len(lineUps) != 1 {
			return fmt.Errorf("solo session requires exactly one participant and one line-up")
		}
	case KindTeam:
		if len(participants) == 0 || len(lineUps) != 1 {
			return fmt.Errorf("team session requires participants and exactly one line-up")
		}
	case KindMultiplayer:
		if len(participants) != 2 || len(lineUps) != 2 {
			return fmt.Errorf("multiplayer session requires exactly two participants and two line-ups")
		}
	default:
		return fmt.Errorf("invalid session kind: %s", kind)
	}
	return nil
}

// Create registers a new active session and returns a copy of it.
func (st *Store) Create(venueID uint64, kind Kind, participants []string, lineUps []LineUp, now time.Time) (*Session, error) {
	if err := validateShape(kind, participants, lineUps); err != nil {
		return nil, err
	}
	key, err := DuplicateKey(venueID, kind, participants, lineUps)
	if err != nil {
		return nil, err
	}
	if _, exists := st.activeKeys[key]; exists {
		return nil, ErrDuplicateActive
	}

	s := &Session{
		ID:           st.nextID,
		VenueID:      venueID,
		Kind:         kind,
		Participants: append([]string(nil), participants...),
		Active:       true,
		Outcome:      OutcomeNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.LineUps = make([]LineUp, len(lineUps))
	for i, lu := range lineUps {
		s.LineUps[i] = LineUp{
			CharacterIDs: append([]uint64(nil), lu.CharacterIDs...),
			EquipmentIDs: append([]uint64(nil), lu.EquipmentIDs...),
		}
	}
	st.sessions[s.ID] = s
	st.activeKeys[key] = s.ID
	st.nextID++
	return s.Clone(), nil
}

// ByID returns a copy of the session, or false when the id is unknown.
func (st *Store) ByID(id uint64) (*Session, bool) {
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SetResolution stores the reward snapshot on an active session,
// resetting the per-winner paid flags.
func (st *Store) SetResolution(id uint64, res Resolution, now time.Time) error {
	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if !s.Active {
		return ErrNotActive
	}
	s.Outcome = res.Outcome
	s.DeclaredWinners = append([]uint64(nil), res.DeclaredWinners...)
	s.WinnerWallets = append([]string(nil), res.Wallets...)
	s.WinnerAmounts = append([]uint64(nil), res.Amounts...)
	s.WinnerPaid = make([]bool, len(res.Wallets))
	s.RewardToken = res.Token
	s.PayoutPercentBP = res.PayoutPercentBP
	s.UpdatedAt = now
	return nil
}

// Complete deactivates the session and frees its duplicate key.
func (st *Store) Complete(id uint64, now time.Time) error {
	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if !s.Active {
		return nil
	}
	s.Active = false
	s.UpdatedAt = now
	key, err := DuplicateKey(s.VenueID, s.Kind, s.Participants, s.LineUps)
	if err != nil {
		return err
	}
	delete(st.activeKeys, key)
	return nil
}

// MarkWinnerPaid flags the wallet's first unpaid sub-record as paid for
// the given session and reports whether every winner is paid afterwards.
// A wallet owning several winning units has one sub-record per unit;
// each call consumes exactly one.
func (st *Store) MarkWinnerPaid(id uint64, wallet string, now time.Time) (bool, error) {
	s, ok := st.sessions[id]
	if !ok {
		return false, ErrNotFound
	}
	for i, w := range s.WinnerWallets {
		if w != wallet || s.WinnerPaid[i] {
			continue
		}
		s.WinnerPaid[i] = true
		s.UpdatedAt = now
		return s.AllPaid(), nil
	}
	return false, fmt.Errorf("wallet %s has no unpaid reward in session %d", wallet, id)
}

// MarkDistributed flags the session's rewards as fully distributed.
func (st *Store) MarkDistributed(id uint64, now time.Time) error {
	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Distributed = true
	s.UpdatedAt = now
	return nil
}

// PendingFor lists unpaid resolved rewards for a wallet, ascending by
// session id.
func (st *Store) PendingFor(wallet string) []Pending {
	var out []Pending
	for id := uint64(1); id < st.nextID; id++ {
		s, ok := st.sessions[id]
		if !ok || s.Distributed {
			continue
		}
		for i, w := range s.WinnerWallets {
			if w != wallet || s.WinnerPaid[i] || s.WinnerAmounts[i] == 0 {
				continue
			}
			out = append(out, Pending{
				SessionID: s.ID,
				VenueID:   s.VenueID,
				Amount:    s.WinnerAmounts[i],
				Token:     s.RewardToken,
			})
		}
	}
	return out
}

// Count returns the number of sessions ever created.
func (st *Store) Count() int {
	return len(st.sessions)
}

// ListActiveByVenue returns a page of the venue's active sessions in
// ascending id order, plus the total count of matches.
func (st *Store) ListActiveByVenue(venueID uint64, limit, offset int) ([]*Session, int) {
	return st.listActive(func(s *Session) bool { return s.VenueID == venueID }, limit, offset)
}

// ListActiveByParticipant returns a page of the wallet's active sessions
// in ascending id order, plus the total count of matches.
func (st *Store) ListActiveByParticipant(wallet string, limit, offset int) ([]*Session, int) {
	return st.listActive(func(s *Session) bool {
		for _, p := range s.Participants {
			if p == wallet {
				return true
			}
		}
		return false
	}, limit, offset)
}

func (st *Store) listActive(match func(*Session) bool, limit, offset int) ([]*Session, int) {
	var matched []*Session
	for id := uint64(1); id < st.nextID; id++ {
		s, ok := st.sessions[id]
		if !ok || !s.Active || !match(s) {
			continue
		}
		matched = append(matched, s)
	}
	total := len(matched)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Session{}, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]*Session, 0, end-offset)
	for _, s := range matched[offset:end] {
		page = append(page, s.Clone())
	}
	return page, total
}

// Snapshot is the serializable state of a Store.
type Snapshot struct {
	Sessions   map[uint64]*Session `json:"sessions"`
	ActiveKeys map[string]uint64   `json:"activeKeys"`
	NextID     uint64              `json:"nextId"`
}

func (st *Store) Export() Snapshot {
	snap := Snapshot{
		Sessions:   make(map[uint64]*Session, len(st.sessions)),
		ActiveKeys: make(map[string]uint64, len(st.activeKeys)),
		NextID:     st.nextID,
	}
	for id, s := range st.sessions {
		snap.Sessions[id] = s.Clone()
	}
	for key, id := range st.activeKeys {
		snap.ActiveKeys[key] = id
	}
	return snap
}

func (st *Store) Restore(snap Snapshot) {
	st.sessions = make(map[uint64]*Session, len(snap.Sessions))
	st.activeKeys = make(map[string]uint64, len(snap.ActiveKeys))
	st.nextID = snap.NextID
	if st.nextID == 0 {
		st.nextID = 1
	}
	for id, s := range snap.Sessions {
		st.sessions[id] = s.Clone()
	}
	for key, id := range snap.ActiveKeys {
		st.activeKeys[key] = id
	}
}
