package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/escrow"
	"github.com/arena-ledger/arena-ledger/internal/domain/session"
	"github.com/arena-ledger/arena-ledger/internal/p2p/protocol"
)

type snapshot struct {
	Sessions  session.Snapshot  `json:"sessions"`
	Ledger    asset.Snapshot    `json:"ledger"`
	Escrow    escrow.Snapshot   `json:"escrow"`
	Owners    map[uint64]string `json:"owners"`
	AppliedTx map[string]bool   `json:"appliedTx"`
}

// Machine is the deterministic replicated ledger state machine. Every
// node applies the same signed transactions in log order and converges
// on identical session, balance and escrow state. External transfers
// never happen here; resolutions arrive pre-computed in the payload.
type Machine struct {
	mu       sync.RWMutex
	sessions *session.Store
	ledger   *asset.Ledger
	queue    *escrow.Queue
	owners   map[uint64]string
	applied  map[string]bool
}

func NewMachine() *Machine {
	return &Machine{
		sessions: session.NewStore(),
		ledger:   asset.NewLedger(),
		queue:    escrow.NewQueue(),
		owners:   map[uint64]string{},
		applied:  map[string]bool{},
	}
}

// Marshal serializes current machine snapshot.
func (m *Machine) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := snapshot{
		Sessions:  m.sessions.Export(),
		Ledger:    m.ledger.Export(),
		Escrow:    m.queue.Export(),
		Owners:    make(map[uint64]string, len(m.owners)),
		AppliedTx: make(map[string]bool, len(m.applied)),
	}
	for k, v := range m.owners {
		snap.Owners[k] = v
	}
	for k, v := range m.applied {
		snap.AppliedTx[k] = v
	}
	return json.Marshal(snap)
}

// Unmarshal restores machine state from snapshot payload.
func (m *Machine) Unmarshal(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty snapshot")
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Restore(snap.Sessions)
	m.ledger.Restore(snap.Ledger)
	m.queue.Restore(snap.Escrow)
	m.owners = snap.Owners
	if m.owners == nil {
		m.owners = map[uint64]string{}
	}
	m.applied = snap.AppliedTx
	if m.applied == nil {
		m.applied = map[string]bool{}
	}
	return nil
}

// ApplyTx validates and applies one signed transaction. Replays of an
// already-applied tx id are a no-op.
func (m *Machine) ApplyTx(tx protocol.Tx) error {
	if err := tx.Verify(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[tx.TxID] {
		return nil
	}
	at := tx.Timestamp.UTC()

	var err error
	switch tx.Op {
	case protocol.OpSessionCreate:
		err = m.applySessionCreateLocked(tx, at)
	case protocol.OpSessionUpdate:
		err = m.applySessionUpdateLocked(tx, at)
	case protocol.OpDeposit:
		err = m.applyDepositLocked(tx)
	case protocol.OpOwnerSet:
		err = m.applyOwnerSetLocked(tx)
	case protocol.OpEscrowRequest:
		err = m.applyEscrowRequestLocked(tx)
	case protocol.OpEscrowConfirm:
		err = m.applyEscrowConfirmLocked(tx, at)
	case protocol.OpPoolDistribute:
		err = m.applyPoolDistributeLocked(tx)
	default:
		err = fmt.Errorf("unsupported op: %s", tx.Op)
	}
	if err != nil {
		return err
	}
	m.applied[tx.TxID] = true
	return nil
}

func (m *Machine) applySessionCreateLocked(tx protocol.Tx, at time.Time) error {
	payload, err := protocol.DecodePayload[protocol.SessionCreatePayload](tx.Payload)
	if err != nil {
		return err
	}
	if payload.VenueID == 0 {
		return errors.New("venue_id is required")
	}
	kind, err := session.ParseKind(string(payload.Kind))
	if err != nil {
		return err
	}
	_, err = m.sessions.Create(payload.VenueID, kind, payload.Participants, payload.LineUps, at)
	return err
}

func (m *Machine) applySessionUpdateLocked(tx protocol.Tx, at time.Time) error {
	payload, err := protocol.DecodePayload[protocol.SessionUpdatePayload](tx.Payload)
	if err != nil {
		return err
	}
	if payload.Resolution == nil && !payload.Completed {
		return errors.New("update carries neither resolution nor completion")
	}
	if payload.Resolution != nil {
		res := *payload.Resolution
		if len(res.Wallets) != len(res.Amounts) {
			return errors.New("resolution wallets and amounts are misaligned")
		}
		if err := m.sessions.SetResolution(payload.SessionID, res, at); err != nil {
			return err
		}
	}
	if payload.Completed {
		return m.sessions.Complete(payload.SessionID, at)
	}
	return nil
}

func (m *Machine) applyDepositLocked(tx protocol.Tx) error {
	payload, err := protocol.DecodePayload[protocol.DepositPayload](tx.Payload)
	if err != nil {
		return err
	}
	if payload.VenueID == 0 {
		return errors.New("venue_id is required")
	}
	if payload.Amount == 0 {
		return errors.New("amount must be positive")
	}
	if strings.TrimSpace(payload.Token) == "" {
		return errors.New("token is required")
	}
	m.ledger.Credit(payload.VenueID, payload.Amount, payload.Token)
	return nil
}

func (m *Machine) applyOwnerSetLocked(tx protocol.Tx) error {
	payload, err := protocol.DecodePayload[protocol.OwnerSetPayload](tx.Payload)
	if err != nil {
		return err
	}
	if payload.VenueID == 0 {
		return errors.New("venue_id is required")
	}
	owner := strings.TrimSpace(payload.Owner)
	if owner == "" {
		return errors.New("owner is required")
	}
	m.owners[payload.VenueID] = owner
	return nil
}

// applyEscrowRequestLocked moves the wallet's earliest pending reward
// into the escrow queue, debiting the hosting venue. The scan stops at
// the first session that is not already queued for this wallet.
func (m *Machine) applyEscrowRequestLocked(tx protocol.Tx) error {
	payload, err := protocol.DecodePayload[protocol.EscrowRequestPayload](tx.Payload)
	if err != nil {
		return err
	}
	wallet := strings.TrimSpace(payload.Wallet)
	if wallet == "" {
		return errors.New("wallet is required")
	}
	for _, pending := range m.sessions.PendingFor(wallet) {
		if m.queue.Contains(wallet, pending.SessionID) {
			continue
		}
		if err := m.ledger.Debit(pending.VenueID, pending.Amount, pending.Token); err != nil {
			return err
		}
		m.queue.Push(escrow.Entry{
			Wallet:    wallet,
			Amount:    pending.Amount,
			Token:     pending.Token,
			SessionID: pending.SessionID,
		})
		return nil
	}
	return fmt.Errorf("no pending reward for wallet %s", wallet)
}

func (m *Machine) applyEscrowConfirmLocked(tx protocol.Tx, at time.Time) error {
	payload, err := protocol.DecodePayload[protocol.EscrowConfirmPayload](tx.Payload)
	if err != nil {
		return err
	}
	winner := strings.TrimSpace(payload.Winner)
	if winner == "" {
		return errors.New("winner is required")
	}
	entry, idx, ok := m.queue.FirstByWallet(winner)
	if !ok {
		return fmt.Errorf("no escrow entry for wallet %s", winner)
	}
	if entry.Amount == 0 {
		return fmt.Errorf("escrow entry for wallet %s has zero amount", winner)
	}
	m.queue.RemoveAt(idx)
	allPaid, err := m.sessions.MarkWinnerPaid(entry.SessionID, winner, at)
	if err != nil {
		return err
	}
	if allPaid {
		return m.sessions.MarkDistributed(entry.SessionID, at)
	}
	return nil
}

func (m *Machine) applyPoolDistributeLocked(tx protocol.Tx) error {
	payload, err := protocol.DecodePayload[protocol.PoolDistributePayload](tx.Payload)
	if err != nil {
		return err
	}
	if payload.Amount == 0 {
		return errors.New("amount must be positive")
	}
	if strings.TrimSpace(payload.Token) == "" {
		return errors.New("token is required")
	}
	venueIDs := m.ledger.FundedVenueIDs()
	if len(venueIDs) == 0 {
		return errors.New("no funded venues")
	}
	chunks := asset.DistributeEven(payload.Amount, len(venueIDs))
	for i, venueID := range venueIDs {
		m.ledger.Credit(venueID, chunks[i], payload.Token)
	}
	return nil
}

// GetSession returns a copy of the replicated session.
func (m *Machine) GetSession(id uint64) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions.ByID(id)
}

// VenueBalance returns the replicated balance view for a venue.
func (m *Machine) VenueBalance(venueID uint64) asset.BalanceView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.View(venueID)
}

// OwnerOf returns the replicated owner wallet for a venue.
func (m *Machine) OwnerOf(venueID uint64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[venueID]
	return owner, ok
}

// WaitingList returns the replicated escrow queue in order.
func (m *Machine) WaitingList() []escrow.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queue.Entries()
}

// Stats summarizes replicated state for the node API.
type Stats struct {
	Sessions     int    `json:"sessions"`
	FundedVenues uint64 `json:"fundedVenues"`
	EscrowDepth  int    `json:"escrowDepth"`
	AppliedTx    int    `json:"appliedTx"`
}

func (m *Machine) StateStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Sessions:     m.sessions.Count(),
		FundedVenues: m.ledger.FundedCount(),
		EscrowDepth:  m.queue.Len(),
		AppliedTx:    len(m.applied),
	}
}
