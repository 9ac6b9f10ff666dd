package readmodel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/readmodel"
)

// MemoryRepositories is an in-memory projection store with the same
// idempotency semantics as the gorm repositories. Used in tests and
// development.
type MemoryRepositories struct {
	mu           sync.RWMutex
	balances     map[string]*dto.BalanceRead
	transactions map[string]dto.TransactionRead
	transfers    map[string]dto.TransferCreate
	processed    map[string]bool
}

// NewMemory creates empty in-memory read model repositories.
func NewMemory() *MemoryRepositories {
	return &MemoryRepositories{
		balances:     make(map[string]*dto.BalanceRead),
		transactions: make(map[string]dto.TransactionRead),
		transfers:    make(map[string]dto.TransferCreate),
		processed:    make(map[string]bool),
	}
}

// Repositories exposes the memory store through the readmodel ports.
func (m *MemoryRepositories) Repositories() readmodel.Repositories {
	return readmodel.Repositories{
		Balances:     m,
		Transactions: m,
		Transfers:    &memoryTransfers{parent: m},
		Processed:    m,
	}
}

// memoryTransfers adapts the store to readmodel.TransferRepository; a
// separate type because the transaction repository already claims Insert.
type memoryTransfers struct {
	parent *MemoryRepositories
}

// Insert implements readmodel.TransferRepository.
func (t *memoryTransfers) Insert(ctx context.Context, create dto.TransferCreate) error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	if _, ok := t.parent.transfers[create.TransferID]; ok {
		return nil
	}
	t.parent.transfers[create.TransferID] = create
	return nil
}

// Create implements readmodel.BalanceRepository.
func (m *MemoryRepositories) Create(ctx context.Context, create dto.BalanceCreate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[create.AccountID]; ok {
		return nil
	}
	m.balances[create.AccountID] = &dto.BalanceRead{
		AccountID:   create.AccountID,
		OwnerName:   create.OwnerName,
		Balance:     create.Balance,
		Currency:    create.Currency,
		Status:      create.Status,
		LastUpdated: time.Now().UTC(),
	}
	return nil
}

// Adjust implements readmodel.BalanceRepository.
func (m *MemoryRepositories) Adjust(
	ctx context.Context,
	accountID string,
	delta float64,
	at time.Time,
) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.balances[accountID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	row.Balance += delta
	row.LastUpdated = at
	return row.Balance, nil
}

// Get implements readmodel.BalanceRepository.
func (m *MemoryRepositories) Get(ctx context.Context, accountID string) (*dto.BalanceRead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.balances[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
	}
	copied := *row
	return &copied, nil
}

// Insert implements readmodel.TransactionRepository.
func (m *MemoryRepositories) Insert(ctx context.Context, create dto.TransactionCreate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[create.EventID]; ok {
		return nil
	}
	m.transactions[create.EventID] = dto.TransactionRead{
		TransactionID: create.EventID,
		AccountID:     create.AccountID,
		Type:          create.Type,
		Amount:        create.Amount,
		BalanceAfter:  create.BalanceAfter,
		Description:   create.Description,
		Timestamp:     create.Timestamp,
	}
	return nil
}

// ListByAccount implements readmodel.TransactionRepository.
func (m *MemoryRepositories) ListByAccount(
	ctx context.Context,
	accountID string,
	limit int,
) ([]dto.TransactionRead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []dto.TransactionRead
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Transfers returns the transfer rows recorded so far, for test assertions.
func (m *MemoryRepositories) Transfers() []dto.TransferCreate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]dto.TransferCreate, 0, len(m.transfers))
	for _, t := range m.transfers {
		out = append(out, t)
	}
	return out
}

// Seen implements readmodel.ProcessedEventRepository.
func (m *MemoryRepositories) Seen(ctx context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processed[eventID], nil
}

// Mark implements readmodel.ProcessedEventRepository.
func (m *MemoryRepositories) Mark(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = true
	return nil
}
