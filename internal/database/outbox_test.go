package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEvent_Validate(t *testing.T) {
	valid := func() *OutboxEvent {
		return &OutboxEvent{
			AggregateType: "order",
			AggregateID:   "order-1",
			EventType:     "ORDER_PLACED",
			Payload:       json.RawMessage(`{}`),
		}
	}

	tests := []struct {
		name   string
		mutate func(e *OutboxEvent)
	}{
		{"missing aggregate type", func(e *OutboxEvent) { e.AggregateType = "" }},
		{"missing aggregate id", func(e *OutboxEvent) { e.AggregateID = "" }},
		{"missing event type", func(e *OutboxEvent) { e.EventType = "" }},
		{"missing payload", func(e *OutboxEvent) { e.Payload = nil }},
	}

	require.NoError(t, valid().validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event := valid()
			tc.mutate(event)
			assert.ErrorIs(t, event.validate(), ErrInvalidEvent)
		})
	}
}

func TestNextRetryTime(t *testing.T) {
	now := time.Now()
	assert.WithinDuration(t, now.Add(2*time.Second), nextRetryTime(1), time.Second)
	assert.WithinDuration(t, now.Add(16*time.Second), nextRetryTime(4), time.Second)
	assert.WithinDuration(t, now.Add(5*time.Minute), nextRetryTime(12), time.Second)
}

func TestOutboxRepository_InsertWithTx(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)

	t.Run("successful insert with transaction", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "order",
			AggregateID:   "order-1",
			EventType:     "ORDER_PLACED",
			Payload:       json.RawMessage(`{"order_id":"order-1"}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.Equal(t, OutboxStatusPending, event.Status)
		assert.Equal(t, DefaultOrderStream, event.TargetStream)
		assert.False(t, event.CreatedAt.IsZero())
	})

	t.Run("rollback on transaction failure", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "order",
			AggregateID:   "order-2",
			EventType:     "ORDER_PLACED",
			Payload:       json.RawMessage(`{"order_id":"order-2"}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			if err := repo.InsertWithTx(ctx, tx, event); err != nil {
				return err
			}
			return pgx.ErrTxClosed
		})
		assert.Error(t, err)

		var count int
		err = db.QueryRow(ctx, "SELECT COUNT(*) FROM outbox_event WHERE id = $1", event.ID).Scan(&count)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)

	insert := func(t *testing.T, event *OutboxEvent) {
		t.Helper()
		require.NoError(t, db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		}))
	}

	first := orderEvent("order-1")
	second := orderEvent("order-2")
	parked := orderEvent("order-3")
	parked.RetryCount = MaxRetryCount - 1
	insert(t, first)
	insert(t, second)
	insert(t, parked)

	pending, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i := 1; i < len(pending); i++ {
		assert.False(t, pending[i].CreatedAt.Before(pending[i-1].CreatedAt))
	}

	require.NoError(t, repo.MarkProcessed(ctx, first.ID))
	assert.ErrorIs(t, repo.MarkProcessed(ctx, uuid.New()), ErrEventNotFound)

	require.NoError(t, repo.MarkFailed(ctx, second.ID, assert.AnError))
	var status string
	var retryCount int
	var nextRetry time.Time
	require.NoError(t, db.QueryRow(ctx,
		"SELECT status, retry_count, next_retry_at FROM outbox_event WHERE id = $1", second.ID,
	).Scan(&status, &retryCount, &nextRetry))
	assert.Equal(t, OutboxStatusFailed, status)
	assert.Equal(t, 1, retryCount)
	assert.True(t, nextRetry.After(time.Now()))

	require.NoError(t, repo.MarkFailed(ctx, parked.ID, assert.AnError))
	dead, err := repo.CountByStatus(ctx, OutboxStatusDeadLetter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)

	pending, err = repo.GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed event waits for its retry time")
}

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// the tables. Tests are skipped when no test database is configured.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Test database not configured")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.Exec(ctx, "TRUNCATE cart_item, customer_order, outbox_event")
	require.NoError(t, err)

	return db
}
