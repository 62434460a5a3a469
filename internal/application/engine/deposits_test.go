package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arena-ledger/arena-ledger/internal/domain/asset"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
)

func TestCreditWithoutOwnerCreditsFullAmount(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	ctx := context.Background()

	res, err := f.svc.Credit(ctx, CreditInput{
		Caller: "depositor", VenueID: 1, Amount: 10_000, Token: asset.NativeToken,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), res.Credited)
	assert.Equal(t, uint64(0), res.OwnerShare)
	assert.Equal(t, uint64(10_000), f.svc.VenueBalance(1).Native)
}

func TestCreditCarvesOwnerShare(t *testing.T) {
	f := newFixture(t, defaultParams()) // owner income 5%
	f.allowAll()
	f.transfer.On("Send", mock.Anything, "venue-owner", uint64(500), asset.NativeToken).Return(nil).Once()
	ctx := context.Background()

	require.NoError(t, f.svc.SetVenueOwner(ctx, SetVenueOwnerInput{
		Caller: "admin", VenueID: 1, Owner: "venue-owner",
	}))

	res, err := f.svc.Credit(ctx, CreditInput{
		Caller: "depositor", VenueID: 1, Amount: 10_000, Token: asset.NativeToken,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), res.OwnerShare)
	assert.Equal(t, uint64(9_500), res.Credited)
	assert.Equal(t, uint64(9_500), f.svc.VenueBalance(1).Native)
	f.transfer.AssertExpectations(t)
}

func TestCreditOwnerTransferFailureIsAtomic(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.transfer.On("Send", mock.Anything, "venue-owner", mock.Anything, mock.Anything).
		Return(errors.New("rail down"))
	ctx := context.Background()

	require.NoError(t, f.svc.SetVenueOwner(ctx, SetVenueOwnerInput{
		Caller: "admin", VenueID: 1, Owner: "venue-owner",
	}))

	_, err := f.svc.Credit(ctx, CreditInput{
		Caller: "depositor", VenueID: 1, Amount: 10_000, Token: asset.NativeToken,
	})
	var transferErr *payment.TransferError
	require.ErrorAs(t, err, &transferErr)

	// nothing was applied
	view := f.svc.VenueBalance(1)
	assert.Equal(t, uint64(0), view.Native)
	assert.False(t, view.HasAssets)
	assert.Equal(t, uint64(0), f.svc.FundedVenueCount())
}

func TestCreditMarksVenueFundedOnce(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Credit(ctx, CreditInput{
			Caller: "depositor", VenueID: 2, Amount: 100, Token: asset.NativeToken,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(1), f.svc.FundedVenueCount())

	_, err := f.svc.Credit(ctx, CreditInput{
		Caller: "depositor", VenueID: 3, Amount: 100, Token: "USDQ",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.svc.FundedVenueCount())
	assert.Equal(t, uint64(100), f.svc.VenueBalance(3).Tokens["USDQ"])
}

func TestPrimarySaleSplitsExactly(t *testing.T) {
	f := newFixture(t, defaultParams()) // referrer 10%, pool 50%
	f.allowAll()
	f.transfer.On("Send", mock.Anything, "ref-wallet", uint64(1_000), "USDQ").Return(nil).Once()
	ctx := context.Background()

	res, err := f.svc.PrimarySale(ctx, PrimarySaleInput{
		Caller: "depositor", Gross: 10_001, Token: "USDQ", Referrer: "ref-wallet",
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000), res.ReferrerCut)
	assert.Equal(t, uint64(4_500), res.PoolCut)
	assert.Equal(t, uint64(4_501), res.TreasuryCut)
	assert.Equal(t, res.ReferrerCut+res.PoolCut+res.TreasuryCut, uint64(10_001))
	assert.False(t, res.Distributed)
	assert.Equal(t, uint64(4_500), f.svc.PlatformPool()["USDQ"])
	// the treasury cut accrues, it is not transferred here
	assert.Equal(t, uint64(4_501), f.svc.TreasuryBalance()["USDQ"])
	f.transfer.AssertExpectations(t)
	f.transfer.AssertNumberOfCalls(t, "Send", 1)
}

func TestPrimarySaleWithoutReferrer(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	ctx := context.Background()

	res, err := f.svc.PrimarySale(ctx, PrimarySaleInput{
		Caller: "depositor", Gross: 10_000, Token: "USDQ",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.ReferrerCut)
	assert.Equal(t, uint64(5_000), res.PoolCut)
	assert.Equal(t, uint64(5_000), res.TreasuryCut)
	assert.Equal(t, uint64(5_000), f.svc.TreasuryBalance()["USDQ"])
	// no referrer, no external transfer at all
	f.transfer.AssertNumberOfCalls(t, "Send", 0)
}

func TestPrimarySaleDistributesPoolAcrossVenues(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.allowAllTransfers()
	ctx := context.Background()

	// three funded venues
	for _, venueID := range []uint64{1, 2, 3} {
		_, err := f.svc.Credit(ctx, CreditInput{
			Caller: "depositor", VenueID: venueID, Amount: 10, Token: "USDQ",
		})
		require.NoError(t, err)
	}

	res, err := f.svc.PrimarySale(ctx, PrimarySaleInput{
		Caller: "depositor", Gross: 20_000, Token: "USDQ", DistributePool: true,
	})
	require.NoError(t, err)
	require.True(t, res.Distributed)

	// pool cut 10,000 over 3 venues: 3334 + 3333 + 3333
	assert.Equal(t, uint64(10+3334), f.svc.VenueBalance(1).Tokens["USDQ"])
	assert.Equal(t, uint64(10+3333), f.svc.VenueBalance(2).Tokens["USDQ"])
	assert.Equal(t, uint64(10+3333), f.svc.VenueBalance(3).Tokens["USDQ"])
	assert.Equal(t, uint64(0), f.svc.PlatformPool()["USDQ"])
}

func TestPrimarySaleTransferFailureKeepsSplit(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.transfer.On("Send", mock.Anything, "ref-wallet", mock.Anything, mock.Anything).
		Return(errors.New("rail down"))
	ctx := context.Background()

	_, err := f.svc.PrimarySale(ctx, PrimarySaleInput{
		Caller: "depositor", Gross: 10_000, Token: "USDQ", Referrer: "ref-wallet",
	})
	var transferErr *payment.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "ref-wallet", transferErr.To)

	// the failed referrer leg was the only transfer; the pool cut and
	// treasury accrual are still parked
	f.transfer.AssertNumberOfCalls(t, "Send", 1)
	assert.NotZero(t, f.svc.PlatformPool()["USDQ"])
	assert.NotZero(t, f.svc.TreasuryBalance()["USDQ"])
}

func TestSettleTreasuryTransfersOnce(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.PrimarySale(ctx, PrimarySaleInput{
			Caller: "depositor", Gross: 10_000, Token: "USDQ",
		})
		require.NoError(t, err)
	}
	require.Equal(t, uint64(10_000), f.svc.TreasuryBalance()["USDQ"])

	f.transfer.On("Send", mock.Anything, "treasury-wallet", uint64(10_000), "USDQ").Return(nil).Once()
	res, err := f.svc.SettleTreasury(ctx, SettleTreasuryInput{Caller: "admin", Token: "USDQ"})
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), res.Amount)
	assert.Equal(t, uint64(0), f.svc.TreasuryBalance()["USDQ"])
	f.transfer.AssertExpectations(t)

	_, err = f.svc.SettleTreasury(ctx, SettleTreasuryInput{Caller: "admin", Token: "USDQ"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSettleTreasuryTransferFailureKeepsClearedBalance(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()
	f.transfer.On("Send", mock.Anything, "treasury-wallet", mock.Anything, mock.Anything).
		Return(errors.New("rail down"))
	ctx := context.Background()

	_, err := f.svc.PrimarySale(ctx, PrimarySaleInput{
		Caller: "depositor", Gross: 10_000, Token: "USDQ",
	})
	require.NoError(t, err)

	_, err = f.svc.SettleTreasury(ctx, SettleTreasuryInput{Caller: "admin", Token: "USDQ"})
	var transferErr *payment.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, "treasury-wallet", transferErr.To)

	// the accrual stays cleared; the owed amount lives in the journal
	// for reconciliation
	assert.Equal(t, uint64(0), f.svc.TreasuryBalance()["USDQ"])
	_, err = f.svc.SettleTreasury(ctx, SettleTreasuryInput{Caller: "admin", Token: "USDQ"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDistributePoolAdminOnly(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.authz.On("IsAdmin", mock.Anything, "mallory").Return(false, nil)

	err := f.svc.DistributePool(context.Background(), DistributePoolInput{Caller: "mallory", Token: "USDQ"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDistributePoolEmpty(t *testing.T) {
	f := newFixture(t, defaultParams())
	f.allowAll()

	err := f.svc.DistributePool(context.Background(), DistributePoolInput{Caller: "admin", Token: "USDQ"})
	assert.ErrorIs(t, err, ErrValidation)
}
