package domain

import "errors"

// Common domain errors
var (
	// ErrValidation is returned when command input is malformed or missing
	// required fields. It is the client's fault and is never retried.
	ErrValidation = errors.New("validation error")
	// ErrAccountNotFound is returned when no AccountCreated event exists
	// for the referenced aggregate.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAlreadyExists is returned when creating an account whose id already
	// has an AccountCreated event.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrInvalidAmount is returned when a money-moving command carries a
	// non-positive amount.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
	// ErrInsufficientFunds is returned when a withdrawal or transfer exceeds
	// the replayed balance. Deterministic and safe to retry after funding.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrStorage wraps event store and read model infrastructure faults.
	ErrStorage = errors.New("storage error")
	// ErrDelivery wraps bus publish/subscribe faults.
	ErrDelivery = errors.New("delivery error")
)
