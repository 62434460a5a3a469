package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/arena-ledger/arena-ledger/internal/domain/journal"
	journalMocks "github.com/arena-ledger/arena-ledger/internal/domain/journal/mocks"
	"github.com/arena-ledger/arena-ledger/internal/domain/payment"
	payMocks "github.com/arena-ledger/arena-ledger/internal/domain/payment/mocks"
)

func failedEntry(kind journal.Kind, wallet string, amount uint64, token string) *journal.Entry {
	return &journal.Entry{
		ID:        uuid.New(),
		Kind:      kind,
		Wallet:    wallet,
		Amount:    amount,
		Token:     token,
		Status:    journal.StatusTransferFailed,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestService_ListFailed(t *testing.T) {
	entries := []*journal.Entry{
		failedEntry(journal.KindEscrowRequest, "alice", 10_000, "NATIVE"),
		failedEntry(journal.KindEscrowConfirm, "bob", 250, "USDQ"),
		failedEntry(journal.KindPrimarySale, "carol", 99_000, "NATIVE"),
	}

	t.Run("no filter returns everything", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := journalMocks.NewMockRepository(ctrl)
		repo.EXPECT().ListFailedTransfers(gomock.Any(), 500).Return(entries, nil)

		service := NewService(repo, &payMocks.MockTransfer{}, zerolog.Nop())
		got, err := service.ListFailed(context.Background(), "", 0)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("expression filter narrows the list", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := journalMocks.NewMockRepository(ctrl)
		repo.EXPECT().ListFailedTransfers(gomock.Any(), 500).Return(entries, nil)

		service := NewService(repo, &payMocks.MockTransfer{}, zerolog.Nop())
		got, err := service.ListFailed(context.Background(), `token == 'NATIVE' && amount > 50000`, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "carol", got[0].Wallet)
	})

	t.Run("invalid expression is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := journalMocks.NewMockRepository(ctrl)
		repo.EXPECT().ListFailedTransfers(gomock.Any(), 500).Return(entries, nil)

		service := NewService(repo, &payMocks.MockTransfer{}, zerolog.Nop())
		_, err := service.ListFailed(context.Background(), `token ==`, 0)
		assert.Error(t, err)
	})
}

func TestService_Retry(t *testing.T) {
	t.Run("success marks reconciled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		entry := failedEntry(journal.KindEscrowConfirm, "alice", 500, "NATIVE")
		repo := journalMocks.NewMockRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), entry.ID).Return(entry, nil)
		repo.EXPECT().MarkReconciled(gomock.Any(), entry.ID, "retried by operator-1").Return(nil)

		transfer := &payMocks.MockTransfer{}
		transfer.On("Send", mock.Anything, "alice", uint64(500), "NATIVE").Return(nil).Once()

		service := NewService(repo, transfer, zerolog.Nop())
		got, err := service.Retry(context.Background(), entry.ID, "operator-1")
		require.NoError(t, err)
		assert.Equal(t, journal.StatusReconciled, got.Status)
		transfer.AssertExpectations(t)
	})

	t.Run("transfer failure keeps entry failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		entry := failedEntry(journal.KindEscrowConfirm, "alice", 500, "NATIVE")
		repo := journalMocks.NewMockRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), entry.ID).Return(entry, nil)

		transfer := &payMocks.MockTransfer{}
		transfer.On("Send", mock.Anything, "alice", uint64(500), "NATIVE").
			Return(errors.New("rail still down"))

		service := NewService(repo, transfer, zerolog.Nop())
		_, err := service.Retry(context.Background(), entry.ID, "operator-1")
		var transferErr *payment.TransferError
		require.ErrorAs(t, err, &transferErr)
	})

	t.Run("only failed transfers can be retried", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		entry := failedEntry(journal.KindDeposit, "alice", 500, "NATIVE")
		entry.Status = journal.StatusApplied
		repo := journalMocks.NewMockRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), entry.ID).Return(entry, nil)

		service := NewService(repo, &payMocks.MockTransfer{}, zerolog.Nop())
		_, err := service.Retry(context.Background(), entry.ID, "operator-1")
		assert.Error(t, err)
	})
}

func TestService_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	entry := failedEntry(journal.KindEscrowRequest, "bob", 42, "USDQ")
	repo := journalMocks.NewMockRepository(ctrl)
	repo.EXPECT().GetByID(gomock.Any(), entry.ID).Return(entry, nil).Times(2)
	repo.EXPECT().MarkReconciled(gomock.Any(), entry.ID, "operator-1: settled by bank wire").Return(nil)

	service := NewService(repo, &payMocks.MockTransfer{}, zerolog.Nop())
	require.NoError(t, service.Resolve(context.Background(), entry.ID, "operator-1", "settled by bank wire"))

	// a note is mandatory
	assert.Error(t, service.Resolve(context.Background(), entry.ID, "operator-1", "  "))
}
