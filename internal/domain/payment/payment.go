package payment

import (
	"context"
	"fmt"
)

// Transfer moves value to an external wallet. A Send either fully
// succeeds or fully fails; there is no partial transfer.
type Transfer interface {
	Send(ctx context.Context, to string, amount uint64, token string) error
}

// Authorization answers role checks for engine callers. Implementations
// that cannot decide must return an error; the engine fails closed.
type Authorization interface {
	IsAuthorizedDepositor(ctx context.Context, wallet string) (bool, error)
	IsAuthorizedSessionCaller(ctx context.Context, wallet string) (bool, error)
	IsAdmin(ctx context.Context, wallet string) (bool, error)
}

// TransferError reports a failed external transfer. By the time it is
// returned the engine state has already been mutated and recorded; the
// failure is a signal for reconciliation, not a rollback.
type TransferError struct {
	To     string
	Amount uint64
	Token  string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %d %s to %s failed: %v", e.Amount, e.Token, e.To, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
