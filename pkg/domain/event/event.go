// Package event defines the immutable event model for the account ledger.
// Events are the sole source of truth; every balance in the system is a fold
// over them.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AggregateTypeAccount is the only aggregate type currently emitted.
const AggregateTypeAccount = "Account"

// Event type discriminators. The set is extensible; unknown types are
// ignored by the balance fold.
const (
	TypeAccountCreated = "AccountCreated"
	TypeMoneyDeposited = "MoneyDeposited"
	TypeMoneyWithdrawn = "MoneyWithdrawn"
)

// Event is an immutable fact appended to the event store. It is never
// updated or deleted; any correction is itself a new event.
type Event struct {
	ID            uuid.UUID       `json:"event_id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"event_data"`
	Version       int             `json:"event_version"`
	Sequence      uint64          `json:"sequence,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Type returns the event type discriminator. It satisfies the bus contract.
func (e *Event) Type() string { return e.EventType }

// AccountCreated is the payload of a TypeAccountCreated event.
type AccountCreated struct {
	AccountID      string  `json:"account_id"`
	OwnerName      string  `json:"owner_name"`
	InitialBalance float64 `json:"initial_balance"`
	Currency       string  `json:"currency"`
}

// MoneyDeposited is the payload of a TypeMoneyDeposited event. TransferID
// and Sender are set only when the deposit is one leg of a transfer.
type MoneyDeposited struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	TransferID  string  `json:"transfer_id,omitempty"`
	Sender      string  `json:"sender,omitempty"`
}

// MoneyWithdrawn is the payload of a TypeMoneyWithdrawn event. TransferID
// and Recipient are set only when the withdrawal is one leg of a transfer.
type MoneyWithdrawn struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	TransferID  string  `json:"transfer_id,omitempty"`
	Recipient   string  `json:"recipient,omitempty"`
}

// New builds an event envelope for the given aggregate and payload,
// assigning a fresh event id and timestamp.
func New(aggregateID, eventType string, payload any) (*Event, error) {
	return NewAt(aggregateID, eventType, payload, time.Now().UTC())
}

// NewAt is New with an explicit timestamp. The two legs of a transfer share
// one timestamp so they replay as a unit.
func NewAt(aggregateID, eventType string, payload any, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.New(),
		AggregateID:   aggregateID,
		AggregateType: AggregateTypeAccount,
		EventType:     eventType,
		Data:          data,
		Version:       1,
		CreatedAt:     at,
	}, nil
}

// DecodeData unmarshals the payload into out.
func (e *Event) DecodeData(out any) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// AllTypes are the event types that participate in the balance fold.
func AllTypes() []string {
	return []string{TypeAccountCreated, TypeMoneyDeposited, TypeMoneyWithdrawn}
}

// ReplayBalance folds an account's events, ordered ascending by
// (created_at, sequence), into its balance. It is the single authoritative
// definition of "balance": the command processor validates withdrawals
// against it and the query engine answers time-travel reads with it.
//
// AccountCreated resets the accumulator to the initial balance (only one is
// expected per aggregate), MoneyDeposited adds, MoneyWithdrawn subtracts.
// The second return reports whether any event was seen at all, i.e. whether
// the account existed within the replayed window. The third is the account
// currency, defaulting to USD until an AccountCreated event is replayed.
func ReplayBalance(events []Event) (balance float64, exists bool, currency string) {
	currency = "USD"
	for i := range events {
		e := &events[i]
		switch e.EventType {
		case TypeAccountCreated:
			var d AccountCreated
			if err := e.DecodeData(&d); err != nil {
				continue
			}
			balance = d.InitialBalance
			if d.Currency != "" {
				currency = d.Currency
			}
			exists = true
		case TypeMoneyDeposited:
			var d MoneyDeposited
			if err := e.DecodeData(&d); err != nil {
				continue
			}
			balance += d.Amount
			exists = true
		case TypeMoneyWithdrawn:
			var d MoneyWithdrawn
			if err := e.DecodeData(&d); err != nil {
				continue
			}
			balance -= d.Amount
			exists = true
		}
	}
	return balance, exists, currency
}
