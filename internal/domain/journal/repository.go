package journal

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for the settlement journal.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Entry, error)

	// Reconciliation support
	ListFailedTransfers(ctx context.Context, limit int) ([]*Entry, error)
	MarkReconciled(ctx context.Context, id uuid.UUID, note string) error
}
