// Package dto holds read-optimized data transfer objects exchanged between
// the projector, the read model repositories, and the query surface.
package dto

import "time"

// BalanceCreate seeds a projection row for a newly created account.
type BalanceCreate struct {
	AccountID string
	OwnerName string
	Balance   float64
	Currency  string
	Status    string
}

// BalanceRead is one row of the account balance projection.
type BalanceRead struct {
	AccountID   string    `json:"account_id"`
	OwnerName   string    `json:"owner_name"`
	Balance     float64   `json:"balance"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// TransactionCreate records one money-moving event as a history line item.
// EventID doubles as the transaction id and is the idempotency key.
type TransactionCreate struct {
	EventID      string
	AccountID    string
	Type         string
	Amount       float64
	BalanceAfter float64
	Description  string
	Timestamp    time.Time
}

// TransactionRead is one transaction history line item.
type TransactionRead struct {
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	BalanceAfter  float64   `json:"balance_after"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}

// TransferCreate records the coordination row joining the two legs of a
// transfer. TransferID is the idempotency key; either leg may insert it.
type TransferCreate struct {
	TransferID    string
	FromAccountID string
	ToAccountID   string
	Amount        float64
	Description   string
	Status        string
	Timestamp     time.Time
}
