package readmodel

import (
	"time"

	"github.com/google/uuid"
)

// AccountBalance is one row of the balance projection. Created on
// AccountCreated, mutated by every subsequent money event, never deleted.
type AccountBalance struct {
	AccountID   string    `gorm:"column:account_id;primaryKey"`
	OwnerName   string    `gorm:"column:owner_name;not null"`
	Balance     float64   `gorm:"type:decimal(18,2);column:balance;not null"`
	Currency    string    `gorm:"type:varchar(3);column:currency;not null;default:'USD'"`
	Status      string    `gorm:"column:status;not null;default:'active'"`
	LastUpdated time.Time `gorm:"column:last_updated"`
}

// TableName specifies the table name for the balance projection.
func (AccountBalance) TableName() string {
	return "account_balance"
}

// Transaction is one history line item. The source event's id is reused as
// the primary key, which is the idempotency key for this table.
type Transaction struct {
	TransactionID uuid.UUID `gorm:"type:uuid;column:transaction_id;primaryKey"`
	AccountID     string    `gorm:"column:account_id;index;not null"`
	Type          string    `gorm:"column:type;not null"`
	Amount        float64   `gorm:"type:decimal(18,2);column:amount;not null"`
	BalanceAfter  float64   `gorm:"type:decimal(18,2);column:balance_after"`
	Description   string    `gorm:"column:description"`
	Timestamp     time.Time `gorm:"column:timestamp;index"`
}

// TableName specifies the table name for transactions.
func (Transaction) TableName() string {
	return "transactions"
}

// Transfer joins the two legs of a transfer under their shared transfer id.
type Transfer struct {
	TransferID    uuid.UUID `gorm:"type:uuid;column:transfer_id;primaryKey"`
	FromAccountID string    `gorm:"column:from_account_id;not null"`
	ToAccountID   string    `gorm:"column:to_account_id;not null"`
	Amount        float64   `gorm:"type:decimal(18,2);column:amount;not null"`
	Description   string    `gorm:"column:description"`
	Status        string    `gorm:"column:status;not null;default:'completed'"`
	Timestamp     time.Time `gorm:"column:timestamp"`
}

// TableName specifies the table name for transfers.
func (Transfer) TableName() string {
	return "transfers"
}

// ProcessedEvent is the ledger of applied event ids.
type ProcessedEvent struct {
	EventID     uuid.UUID `gorm:"type:uuid;column:event_id;primaryKey"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}

// TableName specifies the table name for the processed-event ledger.
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
