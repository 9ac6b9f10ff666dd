// Package projection maintains the read model as a function of the event
// stream: exactly-once effect despite at-least-once delivery, and eventually
// consistent with the event store regardless of bus outages.
package projection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/amirasaad/ledger/pkg/eventstore"
	"github.com/amirasaad/ledger/pkg/readmodel"
)

// Projector applies each event to the read model exactly once per event id.
// The processed-event ledger check guards the relative balance adjustment:
// replaying the same event twice without it would double-count.
type Projector struct {
	store  eventstore.Store
	repos  readmodel.Repositories
	logger *slog.Logger
}

// New creates a projector over the given event store and read model.
func New(store eventstore.Store, repos readmodel.Repositories, logger *slog.Logger) *Projector {
	return &Projector{
		store:  store,
		repos:  repos,
		logger: logger.With("service", "projection"),
	}
}

// Apply projects one delivered event: already-applied events are skipped,
// anything else is applied and then recorded in the processed-event ledger.
func (p *Projector) Apply(ctx context.Context, e *event.Event) error {
	seen, err := p.repos.Processed.Seen(ctx, e.ID.String())
	if err != nil {
		return fmt.Errorf("processed ledger check: %w", err)
	}
	if seen {
		p.logger.Debug("event already applied, skipping",
			"event_id", e.ID, "event_type", e.EventType)
		return nil
	}

	switch e.EventType {
	case event.TypeAccountCreated:
		err = p.applyAccountCreated(ctx, e)
	case event.TypeMoneyDeposited:
		err = p.applyMoneyDeposited(ctx, e)
	case event.TypeMoneyWithdrawn:
		err = p.applyMoneyWithdrawn(ctx, e)
	default:
		p.logger.Warn("unknown event type, skipping",
			"event_id", e.ID, "event_type", e.EventType)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s (%s): %w", e.EventType, e.ID, err)
	}

	if err := p.repos.Processed.Mark(ctx, e.ID.String()); err != nil {
		return fmt.Errorf("mark processed (%s): %w", e.ID, err)
	}
	return nil
}

func (p *Projector) applyAccountCreated(ctx context.Context, e *event.Event) error {
	var d event.AccountCreated
	if err := e.DecodeData(&d); err != nil {
		return err
	}
	return p.repos.Balances.Create(ctx, dto.BalanceCreate{
		AccountID: d.AccountID,
		OwnerName: d.OwnerName,
		Balance:   d.InitialBalance,
		Currency:  d.Currency,
		Status:    "active",
	})
}

func (p *Projector) applyMoneyDeposited(ctx context.Context, e *event.Event) error {
	var d event.MoneyDeposited
	if err := e.DecodeData(&d); err != nil {
		return err
	}
	balanceAfter, err := p.repos.Balances.Adjust(ctx, e.AggregateID, d.Amount, e.CreatedAt)
	if err != nil {
		return err
	}
	if err := p.repos.Transactions.Insert(ctx, dto.TransactionCreate{
		EventID:      e.ID.String(),
		AccountID:    e.AggregateID,
		Type:         "deposit",
		Amount:       d.Amount,
		BalanceAfter: balanceAfter,
		Description:  d.Description,
		Timestamp:    e.CreatedAt,
	}); err != nil {
		return err
	}
	if d.TransferID != "" && d.Sender != "" {
		return p.repos.Transfers.Insert(ctx, dto.TransferCreate{
			TransferID:    d.TransferID,
			FromAccountID: d.Sender,
			ToAccountID:   e.AggregateID,
			Amount:        d.Amount,
			Description:   d.Description,
			Status:        "completed",
			Timestamp:     e.CreatedAt,
		})
	}
	return nil
}

func (p *Projector) applyMoneyWithdrawn(ctx context.Context, e *event.Event) error {
	var d event.MoneyWithdrawn
	if err := e.DecodeData(&d); err != nil {
		return err
	}
	balanceAfter, err := p.repos.Balances.Adjust(ctx, e.AggregateID, -d.Amount, e.CreatedAt)
	if err != nil {
		return err
	}
	if err := p.repos.Transactions.Insert(ctx, dto.TransactionCreate{
		EventID:      e.ID.String(),
		AccountID:    e.AggregateID,
		Type:         "withdrawal",
		Amount:       d.Amount,
		BalanceAfter: balanceAfter,
		Description:  d.Description,
		Timestamp:    e.CreatedAt,
	}); err != nil {
		return err
	}
	if d.TransferID != "" && d.Recipient != "" {
		return p.repos.Transfers.Insert(ctx, dto.TransferCreate{
			TransferID:    d.TransferID,
			FromAccountID: e.AggregateID,
			ToAccountID:   d.Recipient,
			Amount:        d.Amount,
			Description:   d.Description,
			Status:        "completed",
			Timestamp:     e.CreatedAt,
		})
	}
	return nil
}

// CatchUp replays the entire event store in (created_at, sequence) order,
// applying every event not already in the processed-event ledger. It heals
// any events missed while the projector was offline and is safe to run any
// number of times.
//
// A failure applying one event is logged and does not stop the replay; the
// projector is best-effort eventually consistent, not fail-fast.
func (p *Projector) CatchUp(ctx context.Context) error {
	p.logger.Info("starting event catch-up")
	var total, applied int
	err := p.store.Scan(ctx, func(e *event.Event) error {
		total++
		seen, err := p.repos.Processed.Seen(ctx, e.ID.String())
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
		if err := p.Apply(ctx, e); err != nil {
			p.logger.Error("catch-up apply failed",
				"event_id", e.ID, "event_type", e.EventType, "error", err)
			return nil
		}
		applied++
		return nil
	})
	if err != nil {
		return fmt.Errorf("catch-up scan: %w", err)
	}
	p.logger.Info("catch-up complete", "scanned", total, "applied", applied)
	return nil
}

// Run performs the startup catch-up replay (when enabled) and then registers
// the live subscriptions, one per event-type subject. Handler failures are
// logged by the bus; they never crash the consumer or block later events.
func (p *Projector) Run(ctx context.Context, bus eventbus.Bus, catchUp bool) error {
	if catchUp {
		if err := p.CatchUp(ctx); err != nil {
			return err
		}
	}
	for _, eventType := range event.AllTypes() {
		bus.Register(eventType, p.Apply)
	}
	p.logger.Info("read processor operational")
	return nil
}
