package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies how a session is populated.
type Kind string

const (
	KindSolo        Kind = "SOLO"
	KindTeam        Kind = "TEAM"
	KindMultiplayer Kind = "MULTIPLAYER"
)

// ParseKind parses a string to Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSolo, KindTeam, KindMultiplayer:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("invalid session kind: %s", s)
	}
}

// Outcome is the declared result of a finished session.
type Outcome string

const (
	OutcomeNone           Outcome = "NONE"
	OutcomeWinAgainstBots Outcome = "WIN_AGAINST_BOTS"
	OutcomeWinMatch       Outcome = "WIN_MATCH"
	OutcomeWinMatchTeam   Outcome = "WIN_MATCH_TEAM"
)

// ParseOutcome parses a string to Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeNone, OutcomeWinAgainstBots, OutcomeWinMatch, OutcomeWinMatchTeam:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("invalid session outcome: %s", s)
	}
}

// LineUp is one side's units: characters paired positionally with the
// equipment they carry.
type LineUp struct {
	CharacterIDs []uint64 `json:"characterIds"`
	EquipmentIDs []uint64 `json:"equipmentIds"`
}

// Resolution is the reward snapshot taken when a session resolves.
// Wallets and Amounts are positionally aligned.
type Resolution struct {
	Outcome         Outcome  `json:"outcome"`
	DeclaredWinners []uint64 `json:"declaredWinners"`
	Wallets         []string `json:"wallets"`
	Amounts         []uint64 `json:"amounts"`
	Token           string   `json:"token"`
	PayoutPercentBP uint64   `json:"payoutPercentBp"`
}

// Session is one game session hosted by a venue.
type Session struct {
	ID              uint64    `json:"id"`
	VenueID         uint64    `json:"venueId"`
	Kind            Kind      `json:"kind"`
	Participants    []string  `json:"participants"`
	LineUps         []LineUp  `json:"lineUps"`
	Active          bool      `json:"active"`
	Outcome         Outcome   `json:"outcome"`
	DeclaredWinners []uint64  `json:"declaredWinners,omitempty"`
	WinnerWallets   []string  `json:"winnerWallets,omitempty"`
	WinnerAmounts   []uint64  `json:"winnerAmounts,omitempty"`
	WinnerPaid      []bool    `json:"winnerPaid,omitempty"`
	RewardToken     string    `json:"rewardToken,omitempty"`
	PayoutPercentBP uint64    `json:"payoutPercentBp,omitempty"`
	Distributed     bool      `json:"distributed"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	copied := *s
	copied.Participants = append([]string(nil), s.Participants...)
	copied.LineUps = make([]LineUp, len(s.LineUps))
	for i, lu := range s.LineUps {
		copied.LineUps[i] = LineUp{
			CharacterIDs: append([]uint64(nil), lu.CharacterIDs...),
			EquipmentIDs: append([]uint64(nil), lu.EquipmentIDs...),
		}
	}
	copied.DeclaredWinners = append([]uint64(nil), s.DeclaredWinners...)
	copied.WinnerWallets = append([]string(nil), s.WinnerWallets...)
	copied.WinnerAmounts = append([]uint64(nil), s.WinnerAmounts...)
	copied.WinnerPaid = append([]bool(nil), s.WinnerPaid...)
	return &copied
}

// AllPaid reports whether every winner sub-record is marked paid.
// A session with no winners is never fully paid.
func (s *Session) AllPaid() bool {
	if len(s.WinnerPaid) == 0 {
		return false
	}
	for _, paid := range s.WinnerPaid {
		if !paid {
			return false
		}
	}
	return true
}

type keyInput struct {
	VenueID      uint64   `json:"venueId"`
	Kind         Kind     `json:"kind"`
	Participants []string `json:"participants"`
	LineUps      []LineUp `json:"lineUps"`
}

// DuplicateKey derives the deterministic key that indexes active
// sessions. Two sessions with the same venue, kind, participants and
// line-ups collide on it.
func DuplicateKey(venueID uint64, kind Kind, participants []string, lineUps []LineUp) (string, error) {
	data, err := json.Marshal(keyInput{
		VenueID:      venueID,
		Kind:         kind,
		Participants: participants,
		LineUps:      lineUps,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize session key: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
