// Package query serves reads without touching the write path: current state
// comes from the projection tables, historical state from replaying the raw
// event log.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/eventstore"
	"github.com/amirasaad/ledger/pkg/readmodel"
)

// Service is the query engine.
type Service struct {
	store  eventstore.Store
	repos  readmodel.Repositories
	logger *slog.Logger
}

// New creates a query engine over the read model and the event store.
func New(store eventstore.Store, repos readmodel.Repositories, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		repos:  repos,
		logger: logger.With("service", "query"),
	}
}

// BalanceAt is the result of a time-travel balance reconstruction.
type BalanceAt struct {
	AccountID string    `json:"account_id"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	At        time.Time `json:"at"`
}

// GetCurrentBalance reads the account's projection row. An event that has
// not been projected yet is reflected as stale (pre-event) state rather than
// an error.
func (s *Service) GetCurrentBalance(ctx context.Context, accountID string) (*dto.BalanceRead, error) {
	row, err := s.repos.Balances.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return row, nil
}

// GetTransactionHistory returns the account's transaction line items newest
// first, bounded by limit.
func (s *Service) GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]dto.TransactionRead, error) {
	txs, err := s.repos.Transactions.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return txs, nil
}

// GetBalanceAt reconstructs the account's balance as of a past instant by
// folding only the events at or before the bound. It bypasses the read model
// entirely and fails with ErrAccountNotFound when no qualifying events exist
// (the account did not exist yet at that time).
func (s *Service) GetBalanceAt(ctx context.Context, accountID string, at time.Time) (*BalanceAt, error) {
	events, err := s.store.ByAggregate(ctx, accountID, nil, &at)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	balance, exists, currency := event.ReplayBalance(events)
	if !exists {
		return nil, fmt.Errorf("%w: account %s did not exist at %s",
			domain.ErrAccountNotFound, accountID, at.Format(time.RFC3339))
	}
	return &BalanceAt{
		AccountID: accountID,
		Balance:   balance,
		Currency:  currency,
		At:        at,
	}, nil
}

// ListEvents returns the raw audit listing from the event store, newest
// first, bounded by limit.
func (s *Service) ListEvents(ctx context.Context, limit int) ([]event.Event, error) {
	events, err := s.store.All(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return events, nil
}
