package state

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/arena-ledger/arena-ledger/internal/domain/session"
	"github.com/arena-ledger/arena-ledger/internal/p2p/protocol"
)

func mustKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func signedTx(t *testing.T, priv ed25519.PrivateKey, txID, actor string, ts time.Time, op protocol.Operation, payload interface{}) protocol.Tx {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	tx := protocol.Tx{
		TxID:      txID,
		Nonce:     "nonce-" + txID,
		Timestamp: ts,
		Actor:     actor,
		Op:        op,
		Payload:   raw,
	}
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tx
}

func mustApply(t *testing.T, m *Machine, tx protocol.Tx) {
	t.Helper()
	if err := m.ApplyTx(tx); err != nil {
		t.Fatalf("apply %s (%s): %v", tx.TxID, tx.Op, err)
	}
}

func TestMachineEndToEnd(t *testing.T) {
	m := NewMachine()
	_, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mustApply(t, m, signedTx(t, priv, "tx-001", "gateway", base,
		protocol.OpOwnerSet, protocol.OwnerSetPayload{VenueID: 1, Owner: "wallet-owner"}))
	mustApply(t, m, signedTx(t, priv, "tx-002", "gateway", base.Add(1*time.Second),
		protocol.OpDeposit, protocol.DepositPayload{VenueID: 1, Amount: 1_000_000, Token: "NATIVE"}))
	mustApply(t, m, signedTx(t, priv, "tx-003", "wallet-alice", base.Add(2*time.Second),
		protocol.OpSessionCreate, protocol.SessionCreatePayload{
			VenueID:      1,
			Kind:         session.KindTeam,
			Participants: []string{"wallet-alice", "wallet-bob"},
			LineUps: []session.LineUp{{
				CharacterIDs: []uint64{101, 102},
				EquipmentIDs: []uint64{201, 202},
			}},
		}))
	mustApply(t, m, signedTx(t, priv, "tx-004", "gateway", base.Add(3*time.Second),
		protocol.OpSessionUpdate, protocol.SessionUpdatePayload{
			SessionID: 1,
			Completed: true,
			Resolution: &session.Resolution{
				Outcome:         session.OutcomeWinMatchTeam,
				DeclaredWinners: []uint64{101, 102},
				Wallets:         []string{"wallet-alice", "wallet-bob"},
				Amounts:         []uint64{7500, 2500},
				Token:           "NATIVE",
				PayoutPercentBP: 100,
			},
		}))

	mustApply(t, m, signedTx(t, priv, "tx-005", "wallet-alice", base.Add(4*time.Second),
		protocol.OpEscrowRequest, protocol.EscrowRequestPayload{Wallet: "wallet-alice"}))
	if got := m.VenueBalance(1).Native; got != 992_500 {
		t.Fatalf("expected 992500 after escrow debit, got %d", got)
	}
	if entries := m.WaitingList(); len(entries) != 1 || entries[0].Wallet != "wallet-alice" || entries[0].Amount != 7500 {
		t.Fatalf("unexpected waiting list: %+v", entries)
	}

	mustApply(t, m, signedTx(t, priv, "tx-006", "admin", base.Add(5*time.Second),
		protocol.OpEscrowConfirm, protocol.EscrowConfirmPayload{Winner: "wallet-alice"}))
	mustApply(t, m, signedTx(t, priv, "tx-007", "wallet-bob", base.Add(6*time.Second),
		protocol.OpEscrowRequest, protocol.EscrowRequestPayload{Wallet: "wallet-bob"}))
	mustApply(t, m, signedTx(t, priv, "tx-008", "admin", base.Add(7*time.Second),
		protocol.OpEscrowConfirm, protocol.EscrowConfirmPayload{Winner: "wallet-bob"}))

	sess, ok := m.GetSession(1)
	if !ok {
		t.Fatalf("session not found")
	}
	if !sess.Distributed {
		t.Fatalf("expected distributed session after both confirms")
	}
	if sess.Active {
		t.Fatalf("expected completed session")
	}

	owner, ok := m.OwnerOf(1)
	if !ok || owner != "wallet-owner" {
		t.Fatalf("unexpected owner: %q", owner)
	}

	stats := m.StateStats()
	if stats.Sessions != 1 || stats.EscrowDepth != 0 || stats.AppliedTx != 8 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMachineRepeatedWinnerWalletPaysEachRecordOnce(t *testing.T) {
	m := NewMachine()
	_, priv := mustKey(t)
	base := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mustApply(t, m, signedTx(t, priv, "tx-rw-1", "gateway", base,
		protocol.OpDeposit, protocol.DepositPayload{VenueID: 3, Amount: 1_200_000, Token: "NATIVE"}))
	mustApply(t, m, signedTx(t, priv, "tx-rw-2", "wallet-alice", base.Add(time.Second),
		protocol.OpSessionCreate, protocol.SessionCreatePayload{
			VenueID:      3,
			Kind:         session.KindTeam,
			Participants: []string{"wallet-alice"},
			LineUps: []session.LineUp{{
				CharacterIDs: []uint64{101, 102},
				EquipmentIDs: []uint64{201, 202},
			}},
		}))
	mustApply(t, m, signedTx(t, priv, "tx-rw-3", "gateway", base.Add(2*time.Second),
		protocol.OpSessionUpdate, protocol.SessionUpdatePayload{
			SessionID: 1,
			Completed: true,
			Resolution: &session.Resolution{
				Outcome:         session.OutcomeWinMatchTeam,
				DeclaredWinners: []uint64{101, 102},
				Wallets:         []string{"wallet-alice", "wallet-alice"},
				Amounts:         []uint64{6000, 6000},
				Token:           "NATIVE",
				PayoutPercentBP: 100,
			},
		}))

	for i := 0; i < 2; i++ {
		mustApply(t, m, signedTx(t, priv, fmt.Sprintf("tx-rw-req-%d", i), "wallet-alice", base.Add(time.Duration(3+2*i)*time.Second),
			protocol.OpEscrowRequest, protocol.EscrowRequestPayload{Wallet: "wallet-alice"}))
		mustApply(t, m, signedTx(t, priv, fmt.Sprintf("tx-rw-con-%d", i), "admin", base.Add(time.Duration(4+2*i)*time.Second),
			protocol.OpEscrowConfirm, protocol.EscrowConfirmPayload{Winner: "wallet-alice"}))
	}

	sess, ok := m.GetSession(1)
	if !ok || !sess.Distributed {
		t.Fatalf("expected distributed session after both confirms, got %+v", sess)
	}
	extra := signedTx(t, priv, "tx-rw-extra", "wallet-alice", base.Add(10*time.Second),
		protocol.OpEscrowRequest, protocol.EscrowRequestPayload{Wallet: "wallet-alice"})
	if err := m.ApplyTx(extra); err == nil {
		t.Fatal("expected no pending reward after both sub-records are paid")
	}
	if got := m.VenueBalance(3).Native; got != 1_188_000 {
		t.Fatalf("venue debited %d, want exactly the owed 12000", 1_200_000-got)
	}
}

func TestMachineReplayIsIdempotent(t *testing.T) {
	m := NewMachine()
	_, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)

	tx := signedTx(t, priv, "tx-dup", "gateway", base,
		protocol.OpDeposit, protocol.DepositPayload{VenueID: 5, Amount: 300, Token: "NATIVE"})
	mustApply(t, m, tx)
	mustApply(t, m, tx)

	if got := m.VenueBalance(5).Native; got != 300 {
		t.Fatalf("expected single credit on replay, got %d", got)
	}
}

func TestMachinePoolDistributeSpreadsEvenly(t *testing.T) {
	m := NewMachine()
	_, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)

	for i, venue := range []uint64{1, 2, 3} {
		mustApply(t, m, signedTx(t, priv, "tx-seed-"+string(rune('a'+i)), "gateway", base.Add(time.Duration(i)*time.Second),
			protocol.OpDeposit, protocol.DepositPayload{VenueID: venue, Amount: 1, Token: "NATIVE"}))
	}
	mustApply(t, m, signedTx(t, priv, "tx-pool", "admin", base.Add(10*time.Second),
		protocol.OpPoolDistribute, protocol.PoolDistributePayload{Amount: 10_000, Token: "NATIVE"}))

	if got := m.VenueBalance(1).Native; got != 3335 {
		t.Fatalf("expected first venue to absorb remainder, got %d", got)
	}
	if got := m.VenueBalance(2).Native; got != 3334 {
		t.Fatalf("expected 3334 for venue 2, got %d", got)
	}
	if got := m.VenueBalance(3).Native; got != 3334 {
		t.Fatalf("expected 3334 for venue 3, got %d", got)
	}
}

func TestMachineRejectsMisalignedResolution(t *testing.T) {
	m := NewMachine()
	_, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)

	mustApply(t, m, signedTx(t, priv, "tx-s1", "wallet-alice", base,
		protocol.OpSessionCreate, protocol.SessionCreatePayload{
			VenueID:      1,
			Kind:         session.KindSolo,
			Participants: []string{"wallet-alice"},
			LineUps: []session.LineUp{{
				CharacterIDs: []uint64{101},
				EquipmentIDs: []uint64{201},
			}},
		}))
	bad := signedTx(t, priv, "tx-s2", "gateway", base.Add(time.Second),
		protocol.OpSessionUpdate, protocol.SessionUpdatePayload{
			SessionID: 1,
			Resolution: &session.Resolution{
				Outcome: session.OutcomeWinAgainstBots,
				Wallets: []string{"wallet-alice"},
				Amounts: []uint64{100, 200},
			},
		})
	if err := m.ApplyTx(bad); err == nil {
		t.Fatalf("expected misaligned resolution error")
	}
}

func TestMachineSnapshotRoundTrip(t *testing.T) {
	m := NewMachine()
	_, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC)

	mustApply(t, m, signedTx(t, priv, "tx-snap-1", "gateway", base,
		protocol.OpDeposit, protocol.DepositPayload{VenueID: 9, Amount: 4200, Token: "ARC"}))
	mustApply(t, m, signedTx(t, priv, "tx-snap-2", "gateway", base.Add(time.Second),
		protocol.OpOwnerSet, protocol.OwnerSetPayload{VenueID: 9, Owner: "wallet-nine"}))

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored := NewMachine()
	if err := restored.Unmarshal(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := restored.VenueBalance(9).Tokens["ARC"]; got != 4200 {
		t.Fatalf("expected restored token balance, got %d", got)
	}
	owner, ok := restored.OwnerOf(9)
	if !ok || owner != "wallet-nine" {
		t.Fatalf("unexpected restored owner: %q", owner)
	}
	if restored.StateStats().AppliedTx != 2 {
		t.Fatalf("expected applied tx set restored")
	}
}
