// Package readmodel provides the gorm-backed projection store. Every write
// is idempotent on its natural key so at-least-once delivery is safe.
package readmodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/readmodel"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates the projection tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountBalance{},
		&Transaction{},
		&Transfer{},
		&ProcessedEvent{},
	)
}

// NewRepositories wires all four gorm repositories over one *gorm.DB.
func NewRepositories(db *gorm.DB) readmodel.Repositories {
	return readmodel.Repositories{
		Balances:     NewBalanceRepository(db),
		Transactions: NewTransactionRepository(db),
		Transfers:    NewTransferRepository(db),
		Processed:    NewProcessedEventRepository(db),
	}
}

type balanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a balance projection repository.
func NewBalanceRepository(db *gorm.DB) readmodel.BalanceRepository {
	return &balanceRepository{db: db}
}

// Create implements readmodel.BalanceRepository. A conflicting row is left
// untouched so redelivered AccountCreated events are no-ops.
func (r *balanceRepository) Create(ctx context.Context, create dto.BalanceCreate) error {
	row := AccountBalance{
		AccountID:   create.AccountID,
		OwnerName:   create.OwnerName,
		Balance:     create.Balance,
		Currency:    create.Currency,
		Status:      create.Status,
		LastUpdated: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// Adjust implements readmodel.BalanceRepository using a relative update so
// concurrent projections of different accounts never clobber each other.
func (r *balanceRepository) Adjust(
	ctx context.Context,
	accountID string,
	delta float64,
	at time.Time,
) (float64, error) {
	var balance float64
	err := r.db.WithContext(ctx).Raw(
		`UPDATE account_balance
		 SET balance = balance + ?, last_updated = ?
		 WHERE account_id = ?
		 RETURNING balance`,
		delta, at, accountID,
	).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Get implements readmodel.BalanceRepository.
func (r *balanceRepository) Get(ctx context.Context, accountID string) (*dto.BalanceRead, error) {
	var row AccountBalance
	if err := r.db.WithContext(ctx).First(&row, "account_id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountID)
		}
		return nil, err
	}
	return &dto.BalanceRead{
		AccountID:   row.AccountID,
		OwnerName:   row.OwnerName,
		Balance:     row.Balance,
		Currency:    row.Currency,
		Status:      row.Status,
		LastUpdated: row.LastUpdated,
	}, nil
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction history repository.
func NewTransactionRepository(db *gorm.DB) readmodel.TransactionRepository {
	return &transactionRepository{db: db}
}

// Insert implements readmodel.TransactionRepository, keyed by the source
// event id.
func (r *transactionRepository) Insert(ctx context.Context, create dto.TransactionCreate) error {
	id, err := uuid.Parse(create.EventID)
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	row := Transaction{
		TransactionID: id,
		AccountID:     create.AccountID,
		Type:          create.Type,
		Amount:        create.Amount,
		BalanceAfter:  create.BalanceAfter,
		Description:   create.Description,
		Timestamp:     create.Timestamp,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// ListByAccount implements readmodel.TransactionRepository.
func (r *transactionRepository) ListByAccount(
	ctx context.Context,
	accountID string,
	limit int,
) ([]dto.TransactionRead, error) {
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Transaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]dto.TransactionRead, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.TransactionRead{
			TransactionID: row.TransactionID.String(),
			AccountID:     row.AccountID,
			Type:          row.Type,
			Amount:        row.Amount,
			BalanceAfter:  row.BalanceAfter,
			Description:   row.Description,
			Timestamp:     row.Timestamp,
		})
	}
	return out, nil
}

type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a transfer coordination repository.
func NewTransferRepository(db *gorm.DB) readmodel.TransferRepository {
	return &transferRepository{db: db}
}

// Insert implements readmodel.TransferRepository, keyed by transfer id.
// Whichever leg of the transfer projects first wins; the other is a no-op.
func (r *transferRepository) Insert(ctx context.Context, create dto.TransferCreate) error {
	id, err := uuid.Parse(create.TransferID)
	if err != nil {
		return fmt.Errorf("transfer id: %w", err)
	}
	row := Transfer{
		TransferID:    id,
		FromAccountID: create.FromAccountID,
		ToAccountID:   create.ToAccountID,
		Amount:        create.Amount,
		Description:   create.Description,
		Status:        create.Status,
		Timestamp:     create.Timestamp,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

type processedEventRepository struct {
	db *gorm.DB
}

// NewProcessedEventRepository creates the processed-event ledger.
func NewProcessedEventRepository(db *gorm.DB) readmodel.ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

// Seen implements readmodel.ProcessedEventRepository.
func (r *processedEventRepository) Seen(ctx context.Context, eventID string) (bool, error) {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return false, fmt.Errorf("event id: %w", err)
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(&ProcessedEvent{}).
		Where("event_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Mark implements readmodel.ProcessedEventRepository.
func (r *processedEventRepository) Mark(ctx context.Context, eventID string) error {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ProcessedEvent{EventID: id}).Error
}
