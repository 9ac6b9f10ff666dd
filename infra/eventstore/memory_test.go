package eventstore_test

import (
	"context"
	"testing"
	"time"

	infraeventstore "github.com/amirasaad/ledger/infra/eventstore"
	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, aggregateID, eventType string, data any, at time.Time) *event.Event {
	t.Helper()
	e, err := event.NewAt(aggregateID, eventType, data, at)
	require.NoError(t, err)
	return e
}

func TestAppendAssignsSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := infraeventstore.NewMemory()

	at := time.Now().UTC()
	first := mustEvent(t, "acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 1}, at)
	second := mustEvent(t, "acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 2}, at)

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	assert.Less(t, first.Sequence, second.Sequence)
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := infraeventstore.NewMemory()

	e := mustEvent(t, "acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 1}, time.Now().UTC())
	require.NoError(t, store.Append(ctx, e))

	err := store.Append(ctx, e)
	assert.ErrorIs(t, err, infraeventstore.ErrDuplicateEvent)
}

func TestAppendAllIsAtomic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := infraeventstore.NewMemory()

	at := time.Now().UTC()
	e1 := mustEvent(t, "acc-1", event.TypeMoneyWithdrawn, event.MoneyWithdrawn{Amount: 5}, at)
	require.NoError(t, store.Append(ctx, e1))

	// e1 is already stored, so the batch must fail and e2 must not land.
	e2 := mustEvent(t, "acc-2", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 5}, at)
	err := store.AppendAll(ctx, e2, e1)
	require.ErrorIs(t, err, infraeventstore.ErrDuplicateEvent)

	events, err := store.ByAggregate(ctx, "acc-2", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestByAggregateOrderingAndFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := infraeventstore.NewMemory()

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	created := mustEvent(t, "acc-1", event.TypeAccountCreated,
		event.AccountCreated{AccountID: "acc-1", InitialBalance: 10}, t0)
	// same timestamp: sequence breaks the tie
	dep := mustEvent(t, "acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 1}, t0.Add(time.Minute))
	wd := mustEvent(t, "acc-1", event.TypeMoneyWithdrawn, event.MoneyWithdrawn{Amount: 1}, t0.Add(time.Minute))
	other := mustEvent(t, "acc-2", event.TypeAccountCreated,
		event.AccountCreated{AccountID: "acc-2"}, t0)

	// append out of chronological order on purpose
	require.NoError(t, store.Append(ctx, dep))
	require.NoError(t, store.Append(ctx, wd))
	require.NoError(t, store.Append(ctx, created))
	require.NoError(t, store.Append(ctx, other))

	t.Run("ascending with tie-break", func(t *testing.T) {
		events, err := store.ByAggregate(ctx, "acc-1", nil, nil)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, created.ID, events[0].ID)
		assert.Equal(t, dep.ID, events[1].ID)
		assert.Equal(t, wd.ID, events[2].ID)
	})

	t.Run("type filter", func(t *testing.T) {
		events, err := store.ByAggregate(ctx, "acc-1", []string{event.TypeMoneyDeposited}, nil)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, dep.ID, events[0].ID)
	})

	t.Run("upTo is inclusive", func(t *testing.T) {
		events, err := store.ByAggregate(ctx, "acc-1", nil, &t0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, created.ID, events[0].ID)
	})
}

func TestAccountExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := infraeventstore.NewMemory()

	// a money event alone does not make an account exist
	orphan := mustEvent(t, "acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 1}, time.Now().UTC())
	require.NoError(t, store.Append(ctx, orphan))

	exists, err := store.AccountExists(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, exists)

	created := mustEvent(t, "acc-1", event.TypeAccountCreated,
		event.AccountCreated{AccountID: "acc-1"}, time.Now().UTC())
	require.NoError(t, store.Append(ctx, created))

	exists, err = store.AccountExists(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestScanVisitsAscending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := infraeventstore.NewMemory()

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 3; i >= 1; i-- {
		e := mustEvent(t, "acc-1", event.TypeMoneyDeposited,
			event.MoneyDeposited{Amount: float64(i)}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Append(ctx, e))
	}

	var seen []time.Time
	require.NoError(t, store.Scan(ctx, func(e *event.Event) error {
		seen = append(seen, e.CreatedAt)
		return nil
	}))
	require.Len(t, seen, 3)
	assert.True(t, seen[0].Before(seen[1]))
	assert.True(t, seen[1].Before(seen[2]))
}
