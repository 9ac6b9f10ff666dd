// Package ledger implements the command side of the account ledger: it turns
// validated commands into appended, published events after checking
// aggregate-level preconditions by replaying that aggregate's history.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/amirasaad/ledger/pkg/eventstore"
	"github.com/google/uuid"
)

// Service is the command processor. It owns all balance-affecting decisions.
//
// The precondition check (replay balance) and the effect (append) are
// serialized per aggregate id, so two concurrent withdrawals cannot both read
// a pre-deduction balance and both pass the sufficiency check.
type Service struct {
	store  eventstore.Store
	bus    eventbus.Bus
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a command processor over the given event store and bus.
func New(store eventstore.Store, bus eventbus.Bus, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger.With("service", "ledger"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// TransferResult reports the two events produced by a transfer.
type TransferResult struct {
	TransferID        uuid.UUID
	WithdrawalEventID uuid.UUID
	DepositEventID    uuid.UUID
}

// lockAggregates acquires the per-aggregate mutexes for the given ids in
// sorted order, so a concurrent A→B and B→A transfer cannot deadlock.
func (s *Service) lockAggregates(ids ...string) func() {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		s.mu.Lock()
		lock, ok := s.locks[id]
		if !ok {
			lock = &sync.Mutex{}
			s.locks[id] = lock
		}
		s.mu.Unlock()
		lock.Lock()
		held = append(held, lock)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// CreateAccount appends an AccountCreated event for a new account id.
// Creating an id that already has an AccountCreated event is rejected with
// ErrAlreadyExists.
func (s *Service) CreateAccount(
	ctx context.Context,
	accountID, ownerName string,
	initialBalance float64,
	currency string,
) (uuid.UUID, error) {
	if accountID == "" || ownerName == "" {
		return uuid.Nil, fmt.Errorf("%w: account_id and owner_name are required", domain.ErrValidation)
	}
	if currency == "" {
		currency = "USD"
	}

	unlock := s.lockAggregates(accountID)
	defer unlock()

	exists, err := s.store.AccountExists(ctx, accountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if exists {
		return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, accountID)
	}

	e, err := event.New(accountID, event.TypeAccountCreated, event.AccountCreated{
		AccountID:      accountID,
		OwnerName:      ownerName,
		InitialBalance: initialBalance,
		Currency:       currency,
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.store.Append(ctx, e); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.publish(ctx, e)

	s.logger.Info("account created", "account_id", accountID, "event_id", e.ID)
	return e.ID, nil
}

// Deposit appends a MoneyDeposited event for an existing account.
func (s *Service) Deposit(
	ctx context.Context,
	accountID string,
	amount float64,
	description string,
) (uuid.UUID, error) {
	if accountID == "" {
		return uuid.Nil, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if amount <= 0 {
		return uuid.Nil, domain.ErrInvalidAmount
	}
	if description == "" {
		description = "Deposit"
	}

	unlock := s.lockAggregates(accountID)
	defer unlock()

	exists, err := s.store.AccountExists(ctx, accountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if !exists {
		return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}

	e, err := event.New(accountID, event.TypeMoneyDeposited, event.MoneyDeposited{
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.store.Append(ctx, e); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.publish(ctx, e)
	return e.ID, nil
}

// Withdraw replays the account's history, rejects with ErrInsufficientFunds
// when the balance does not cover the amount, and appends a MoneyWithdrawn
// event otherwise. Draining the balance to exactly zero succeeds.
func (s *Service) Withdraw(
	ctx context.Context,
	accountID string,
	amount float64,
	description string,
) (uuid.UUID, error) {
	if accountID == "" {
		return uuid.Nil, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
	}
	if amount <= 0 {
		return uuid.Nil, domain.ErrInvalidAmount
	}
	if description == "" {
		description = "Withdrawal"
	}

	unlock := s.lockAggregates(accountID)
	defer unlock()

	balance, exists, err := s.replayBalance(ctx, accountID)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	if balance < amount {
		return uuid.Nil, fmt.Errorf(
			"%w: current balance %.2f, required %.2f",
			domain.ErrInsufficientFunds, balance, amount)
	}

	e, err := event.New(accountID, event.TypeMoneyWithdrawn, event.MoneyWithdrawn{
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.store.Append(ctx, e); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.publish(ctx, e)
	return e.ID, nil
}

// Transfer moves funds between two accounts as a pair of events joined by a
// shared transfer id: a MoneyWithdrawn on the source and a MoneyDeposited on
// the destination, timestamped identically and appended in one atomic
// transaction.
func (s *Service) Transfer(
	ctx context.Context,
	fromAccountID, toAccountID string,
	amount float64,
	description string,
) (*TransferResult, error) {
	if fromAccountID == "" || toAccountID == "" {
		return nil, fmt.Errorf("%w: from_account_id and to_account_id are required", domain.ErrValidation)
	}
	if fromAccountID == toAccountID {
		return nil, fmt.Errorf("%w: cannot transfer to same account", domain.ErrValidation)
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	unlock := s.lockAggregates(fromAccountID, toAccountID)
	defer unlock()

	balance, exists, err := s.replayBalance(ctx, fromAccountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, fromAccountID)
	}
	if balance < amount {
		return nil, fmt.Errorf(
			"%w: current balance %.2f, required %.2f",
			domain.ErrInsufficientFunds, balance, amount)
	}

	recipientExists, err := s.store.AccountExists(ctx, toAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if !recipientExists {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, toAccountID)
	}

	transferID := uuid.New()
	now := time.Now().UTC()

	withdrawDesc := description
	if withdrawDesc == "" {
		withdrawDesc = "Transfer to " + toAccountID
	}
	depositDesc := description
	if depositDesc == "" {
		depositDesc = "Transfer from " + fromAccountID
	}

	withdrawal, err := event.NewAt(fromAccountID, event.TypeMoneyWithdrawn, event.MoneyWithdrawn{
		Amount:      amount,
		Description: withdrawDesc,
		TransferID:  transferID.String(),
		Recipient:   toAccountID,
	}, now)
	if err != nil {
		return nil, err
	}
	deposit, err := event.NewAt(toAccountID, event.TypeMoneyDeposited, event.MoneyDeposited{
		Amount:      amount,
		Description: depositDesc,
		TransferID:  transferID.String(),
		Sender:      fromAccountID,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendAll(ctx, withdrawal, deposit); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.publish(ctx, withdrawal)
	s.publish(ctx, deposit)

	s.logger.Info("transfer accepted",
		"transfer_id", transferID,
		"from", fromAccountID,
		"to", toAccountID,
		"amount", amount)
	return &TransferResult{
		TransferID:        transferID,
		WithdrawalEventID: withdrawal.ID,
		DepositEventID:    deposit.ID,
	}, nil
}

// replayBalance runs the shared balance fold over the aggregate's full
// history.
func (s *Service) replayBalance(ctx context.Context, accountID string) (float64, bool, error) {
	events, err := s.store.ByAggregate(ctx, accountID, event.AllTypes(), nil)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	balance, exists, _ := event.ReplayBalance(events)
	return balance, exists, nil
}

// publish hands a durably appended event to the bus. A publish failure is
// logged and swallowed: the event store remains authoritative and the next
// catch-up replay heals the read model.
func (s *Service) publish(ctx context.Context, e *event.Event) {
	if err := s.bus.Emit(ctx, e); err != nil {
		s.logger.Error("publish failed after append",
			"event_id", e.ID,
			"event_type", e.EventType,
			"aggregate_id", e.AggregateID,
			"error", err)
	}
}
