package eventstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/ledger/pkg/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*store, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &store{db: db}, mock
}

func TestStore_Append(t *testing.T) {
	require := require.New(t)
	s, mock := newMockStore(t)

	e, err := event.New("acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 10})
	require.NoError(err)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "events" (.+) VALUES (.+) RETURNING "sequence"`).
		WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(42))
	mock.ExpectCommit()

	require.NoError(s.Append(context.Background(), e))
	assert.Equal(t, uint64(42), e.Sequence, "assigned sequence is written back")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "events" (.+) VALUES (.+) RETURNING "sequence"`).
		WillReturnError(errors.New("insert error"))
	mock.ExpectRollback()

	dup, err := event.New("acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 10})
	require.NoError(err)
	require.Error(s.Append(context.Background(), dup))
}

func TestStore_AppendAll(t *testing.T) {
	require := require.New(t)
	s, mock := newMockStore(t)

	withdrawal, err := event.New("acc-a", event.TypeMoneyWithdrawn, event.MoneyWithdrawn{Amount: 25})
	require.NoError(err)
	deposit, err := event.New("acc-b", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 25})
	require.NoError(err)

	// both legs inside one transaction
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "events" (.+) RETURNING "sequence"`).
		WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO "events" (.+) RETURNING "sequence"`).
		WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(8))
	mock.ExpectCommit()

	require.NoError(s.AppendAll(context.Background(), withdrawal, deposit))
	assert.Equal(t, uint64(7), withdrawal.Sequence)
	assert.Equal(t, uint64(8), deposit.Sequence)

	// second leg failing rolls back the first
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "events" (.+) RETURNING "sequence"`).
		WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(9))
	mock.ExpectQuery(`INSERT INTO "events" (.+) RETURNING "sequence"`).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	require.Error(s.AppendAll(context.Background(), withdrawal, deposit))
}

func TestStore_ByAggregate(t *testing.T) {
	require := require.New(t)
	s, mock := newMockStore(t)

	e, err := event.New("acc-1", event.TypeAccountCreated,
		event.AccountCreated{AccountID: "acc-1", InitialBalance: 100, Currency: "USD"})
	require.NoError(err)

	rows := sqlmock.NewRows([]string{
		"event_id", "aggregate_id", "aggregate_type", "event_type",
		"event_data", "event_version", "sequence", "created_at",
	}).AddRow(e.ID, e.AggregateID, e.AggregateType, e.EventType, []byte(e.Data), e.Version, 1, e.CreatedAt)

	upTo := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "events" WHERE aggregate_id = \$1 AND event_type IN \(\$2,\$3,\$4\) AND created_at <= \$5 ORDER BY created_at ASC, sequence ASC`).
		WithArgs("acc-1", event.TypeAccountCreated, event.TypeMoneyDeposited, event.TypeMoneyWithdrawn, upTo).
		WillReturnRows(rows)

	events, err := s.ByAggregate(context.Background(), "acc-1", event.AllTypes(), &upTo)
	require.NoError(err)
	require.Len(events, 1)
	assert.Equal(t, e.ID, events[0].ID)
	assert.Equal(t, uint64(1), events[0].Sequence)
}

func TestStore_AccountExists(t *testing.T) {
	require := require.New(t)
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "events" WHERE aggregate_id = \$1 AND event_type = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := s.AccountExists(context.Background(), "acc-1")
	require.NoError(err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err = s.AccountExists(context.Background(), "ghost")
	require.NoError(err)
	assert.False(t, exists)
}

func TestStore_All(t *testing.T) {
	require := require.New(t)
	s, mock := newMockStore(t)

	e, err := event.New("acc-1", event.TypeMoneyDeposited, event.MoneyDeposited{Amount: 5})
	require.NoError(err)

	rows := sqlmock.NewRows([]string{
		"event_id", "aggregate_id", "aggregate_type", "event_type",
		"event_data", "event_version", "sequence", "created_at",
	}).AddRow(e.ID, e.AggregateID, e.AggregateType, e.EventType, []byte(e.Data), e.Version, 3, e.CreatedAt)

	mock.ExpectQuery(`SELECT \* FROM "events" ORDER BY created_at DESC, sequence DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(rows)

	events, err := s.All(context.Background(), nil, 10)
	require.NoError(err)
	require.Len(events, 1)
	assert.Equal(t, e.ID, events[0].ID)
}
