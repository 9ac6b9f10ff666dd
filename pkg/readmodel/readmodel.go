// Package readmodel defines the ports for the query-optimized projection
// store. All mutation goes through the projector; queries never touch the
// write path.
package readmodel

import (
	"context"
	"time"

	"github.com/amirasaad/ledger/pkg/dto"
)

// BalanceRepository maintains one row per account. Create is insert-if-absent
// so redelivered AccountCreated events are no-ops; Adjust applies a relative
// delta, which is why the processed-event ledger check in the projector is
// load-bearing rather than cosmetic.
type BalanceRepository interface {
	Create(ctx context.Context, create dto.BalanceCreate) error
	// Adjust adds delta to the account's balance and returns the balance
	// after the adjustment.
	Adjust(ctx context.Context, accountID string, delta float64, at time.Time) (float64, error)
	// Get returns the projection row, or domain.ErrAccountNotFound when no
	// row exists for the account.
	Get(ctx context.Context, accountID string) (*dto.BalanceRead, error)
}

// TransactionRepository stores one line item per money-moving event, keyed by
// the event's own id. Insert is insert-if-absent.
type TransactionRepository interface {
	Insert(ctx context.Context, create dto.TransactionCreate) error
	// ListByAccount returns the account's transactions newest first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]dto.TransactionRead, error)
}

// TransferRepository stores the coordination row for a transfer, keyed by
// transfer id. Either leg of the transfer may insert it; the second insert is
// a no-op.
type TransferRepository interface {
	Insert(ctx context.Context, create dto.TransferCreate) error
}

// ProcessedEventRepository is the ledger of event ids the projector has
// applied. It makes the catch-up replay idempotent against live delivery.
type ProcessedEventRepository interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Repositories bundles the four read model ports handed to the projector and
// the query engine.
type Repositories struct {
	Balances     BalanceRepository
	Transactions TransactionRepository
	Transfers    TransferRepository
	Processed    ProcessedEventRepository
}
