package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/escrow"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
	"github.com/arena-ledger/arena-ledger/internal/domain/session"
)

// resolveTeam funds a venue and resolves a team session with the given
// winners, returning the session id.
func resolveTeam(t *testing.T, f *fixture, venueID uint64, pool uint64, winners map[uint64]string) uint64 {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.Credit(ctx, CreditInput{
		Caller: "depositor", VenueID: venueID, Amount: pool, Token: asset.NativeToken,
	})
	require.NoError(t, err)

	var (
		participants []string
		characters   []uint64
		equipment    []uint64
		declared     []uint64
	)
	for unitID, wallet := range winners {
		_ = wallet
		characters = append(characters, unitID)
		equipment = append(equipment, unitID+1000)
		declared = append(declared, unitID)
	}
	for _, wallet := range winners {
		participants = append(participants, wallet)
	}

	created, err := f.svc.CreateTeamSession(ctx, CreateTeamSessionInput{
		Caller:       "game-server",
		VenueID:      venueID,
		Participants: participants,
		CharacterIDs: characters,
		EquipmentIDs: equipment,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateSession(ctx, UpdateSessionInput{
		Caller:          "game-server",
		SessionID:       created.ID,
		Outcome:         session.OutcomeWinMatchTeam,
		DeclaredWinners: declared,
	})
	require.NoError(t, err)
	return created.ID
}

func TestRequestClaimStopsAtFirstSession(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.allowAllTransfers()
	f.winner(101, "alice", uint64(0))
	ctx := context.Background()

	first := resolveTeam(t, f, 1, 1_000_000, map[uint64]string{101: "alice"})
	second := resolveTeam(t, f, 2, 2_000_000, map[uint64]string{101: "alice"})

	claim, err := f.svc.RequestClaim(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first, claim.SessionID)
	assert.Equal(t, uint64(10_000), claim.Amount) // 1% of 1,000,000

	// the second session's reward waits for another request
	claim, err = f.svc.RequestClaim(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, second, claim.SessionID)
	assert.Equal(t, uint64(20_000), claim.Amount)

	_, err = f.svc.RequestClaim(ctx, "alice")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestClaimDebitsVenueAndQueues(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.winner(101, "alice", uint64(0))
	f.transfer.On("Send", mock.Anything, "escrow-vault", uint64(10_000), asset.NativeToken).Return(nil)
	ctx := context.Background()

	id := resolveTeam(t, f, 4, 1_000_000, map[uint64]string{101: "alice"})

	before := f.svc.VenueBalance(4).Native
	claim, err := f.svc.RequestClaim(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, before-claim.Amount, f.svc.VenueBalance(4).Native)
	waiting := f.svc.WaitingList()
	require.Len(t, waiting, 1)
	assert.Equal(t, "alice", waiting[0].Wallet)
	assert.Equal(t, id, waiting[0].SessionID)
	f.transfer.AssertExpectations(t)
}

func TestRequestClaimTransferFailureKeepsState(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.winner(101, "alice", uint64(0))
	f.transfer.On("Send", mock.Anything, "escrow-vault", mock.Anything, mock.Anything).
		Return(errors.New("rail down"))
	ctx := context.Background()

	resolveTeam(t, f, 4, 1_000_000, map[uint64]string{101: "alice"})

	claim, err := f.svc.RequestClaim(ctx, "alice")
	require.Error(t, err)
	var transferErr *payment.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "escrow-vault", transferErr.To)

	// debit and queue entry stand; the failure is for reconciliation
	require.NotNil(t, claim)
	assert.Equal(t, uint64(990_000), f.svc.VenueBalance(4).Native)
	assert.Len(t, f.svc.WaitingList(), 1)
}

func TestConfirmClaimMarksDistributedOnLastWinner(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.allowAllTransfers()
	f.winner(101, "w1", uint64(0))
	f.winner(102, "w2", uint64(3))
	f.winner(103, "w3", uint64(6))
	ctx := context.Background()

	id := resolveTeam(t, f, 6, 1_200_000, map[uint64]string{101: "w1", 102: "w2", 103: "w3"})

	_, err := f.svc.EscrowSessionWinners(ctx, EscrowSessionWinnersInput{
		Caller: "game-server", SessionID: id,
	})
	require.NoError(t, err)

	for i, wallet := range []string{"w1", "w2", "w3"} {
		res, err := f.svc.ConfirmClaim(ctx, ConfirmClaimInput{Caller: "admin", Winner: wallet})
		require.NoError(t, err)
		assert.Equal(t, id, res.SessionID)
		assert.Equal(t, i == 2, res.Distributed, "distributed only after the last winner")
	}

	sess := f.svc.SessionByID(id)
	require.NotNil(t, sess)
	assert.True(t, sess.Distributed)
	assert.Equal(t, []bool{true, true, true}, sess.WinnerPaid)

	_, err = f.svc.ConfirmClaim(ctx, ConfirmClaimInput{Caller: "admin", Winner: "w1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClaimCycleWithRepeatedWinnerWallet(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.allowAllTransfers()
	f.winner(101, "alice", uint64(6))
	f.winner(102, "alice", uint64(6))
	ctx := context.Background()

	// alice owns both winning units, 6,000 each (1% of 1.2M, equal factors)
	id := resolveTeam(t, f, 9, 1_200_000, map[uint64]string{101: "alice", 102: "alice"})

	for round := 0; round < 2; round++ {
		claim, err := f.svc.RequestClaim(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(6_000), claim.Amount)

		res, err := f.svc.ConfirmClaim(ctx, ConfirmClaimInput{Caller: "admin", Winner: "alice"})
		require.NoError(t, err)
		assert.Equal(t, round == 1, res.Distributed, "distributed only after the second sub-record")
	}

	sess := f.svc.SessionByID(id)
	require.NotNil(t, sess)
	assert.Equal(t, []bool{true, true}, sess.WinnerPaid)
	assert.True(t, sess.Distributed)

	// nothing is claimable a third time and the venue owes nothing more
	_, err := f.svc.RequestClaim(ctx, "alice")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, uint64(1_200_000-12_000), f.svc.VenueBalance(9).Native)
}

func TestConfirmClaimRejectsZeroAmountEntry(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()

	f.svc.queue.Push(escrow.Entry{Wallet: "ghost", Amount: 0, Token: asset.NativeToken, SessionID: 1})

	_, err := f.svc.ConfirmClaim(context.Background(), ConfirmClaimInput{Caller: "admin", Winner: "ghost"})
	assert.ErrorIs(t, err, ErrValidation)
	// the malformed entry stays queued for inspection
	assert.Len(t, f.svc.WaitingList(), 1)
}

func TestConfirmClaimAdminOnly(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.authz.On("IsAdmin", mock.Anything, "mallory").Return(false, nil)

	_, err := f.svc.ConfirmClaim(context.Background(), ConfirmClaimInput{Caller: "mallory", Winner: "w1"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEscrowSessionWinnersPoolsOneTransfer(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.winner(101, "w1", uint64(0))
	f.winner(102, "w2", uint64(6))
	ctx := context.Background()

	id := resolveTeam(t, f, 8, 1_200_000, map[uint64]string{101: "w1", 102: "w2"})
	sess := f.svc.SessionByID(id)
	require.NotNil(t, sess)
	var total uint64
	for _, a := range sess.WinnerAmounts {
		total += a
	}
	require.NotZero(t, total)

	f.transfer.On("Send", mock.Anything, "escrow-vault", total, asset.NativeToken).Return(nil).Once()

	res, err := f.svc.EscrowSessionWinners(ctx, EscrowSessionWinnersInput{
		Caller: "game-server", SessionID: id,
	})
	require.NoError(t, err)
	assert.Equal(t, total, res.Total)
	assert.Len(t, f.svc.WaitingList(), 2)
	f.transfer.AssertExpectations(t)

	// nothing left to escrow a second time
	_, err = f.svc.EscrowSessionWinners(ctx, EscrowSessionWinnersInput{
		Caller: "game-server", SessionID: id,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRewardsOfCombinesEscrowedAndPending(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllUnits()
	f.allowAllTransfers()
	f.winner(101, "alice", uint64(0))
	ctx := context.Background()

	resolveTeam(t, f, 1, 1_000_000, map[uint64]string{101: "alice"})
	resolveTeam(t, f, 2, 2_000_000, map[uint64]string{101: "alice"})

	_, err := f.svc.RequestClaim(ctx, "alice")
	require.NoError(t, err)

	view := f.svc.RewardsOf("alice")
	assert.Equal(t, uint64(10_000), view.Escrowed[asset.NativeToken])
	assert.Equal(t, uint64(20_000), view.Pending[asset.NativeToken])
}
