package engine

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	idmocks "github.com/arena-ledger/arena-ledger/internal/domain/identity/mocks"
	journalmocks "github.com/arena-ledger/arena-ledger/internal/domain/journal/mocks"
	paymocks "github.com/arena-ledger/arena-ledger/internal/domain/payment/mocks"
)

type fixture struct {
	svc      *Service
	resolver *idmocks.MockResolver
	transfer *paymocks.MockTransfer
	authz    *paymocks.MockAuthorization
	journal  *journalmocks.MockRepository
}

func newFixture(t *testing.T, params Params) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	journalRepo := journalmocks.NewMockRepository(ctrl)
	journalRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f := &fixture{
		resolver: &idmocks.MockResolver{},
		transfer: &paymocks.MockTransfer{},
		authz:    &paymocks.MockAuthorization{},
		journal:  journalRepo,
	}
	svc, err := NewService(f.resolver, f.transfer, f.authz, journalRepo, params, zerolog.Nop())
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func defaultParams() Params {
	return Params{
		PayoutPercentBP: 100,
		OwnerIncomeBP:   500,
		ReferrerBP:      1000,
		PoolBP:          5000,
		TreasuryWallet:  "treasury-wallet",
		EscrowWallet:    "escrow-vault",
	}
}

func (f *fixture) allowAll() {
	f.authz.On("IsAuthorizedDepositor", mock.Anything, mock.Anything).Return(true, nil)
	f.authz.On("IsAuthorizedSessionCaller", mock.Anything, mock.Anything).Return(true, nil)
	f.authz.On("IsAdmin", mock.Anything, mock.Anything).Return(true, nil)
}

func (f *fixture) allowAllUnits() {
	f.resolver.On("IsEligibleUnit", mock.Anything, mock.Anything).Return(true, nil)
}

func (f *fixture) allowAllTransfers() {
	f.transfer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

// winner wires a unit id to its owner wallet and penalty count.
func (f *fixture) winner(unitID uint64, owner string, penalties uint64) {
	f.resolver.On("OwnerOf", mock.Anything, unitID).Return(owner, nil)
	f.resolver.On("PenaltyCount", mock.Anything, unitID).Return(penalties, nil)
}
