package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-service/internal/domain"
)

func TestOutboxRepository_InsertFetchMark(t *testing.T) {
	require.NotNil(t, dbPool, "Test DB pool should be initialized")
	ctx := context.Background()
	clearCustomerData(ctx, t)

	event := domain.OrderEvent{
		EventID:    uuid.New(),
		OrderID:    uuid.New(),
		UserID:     uuid.New(),
		Status:     domain.OrderPaid,
		Total:      decimal.RequireFromString("1098.00"),
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, testOutboxRepo.Insert(ctx, domain.TopicOrderPaid, event.OrderID.String(), event))

	var records []domain.OutboxRecord
	err := testTxManager.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		records, err = testOutboxRepo.FetchPending(txCtx, 10)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := testOutboxRepo.MarkSent(txCtx, rec.ID); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, event.EventID, records[0].EventID)
	assert.Equal(t, domain.TopicOrderPaid, records[0].Topic)

	var decoded domain.OrderEvent
	require.NoError(t, json.Unmarshal(records[0].Payload, &decoded))
	assert.Equal(t, event.OrderID, decoded.OrderID)

	pending, err := testOutboxRepo.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	require.NotNil(t, dbPool, "Test DB pool should be initialized")
	ctx := context.Background()
	clearCustomerData(ctx, t)

	boom := errors.New("boom")
	err := testTxManager.WithinTx(ctx, func(txCtx context.Context) error {
		if err := testOutboxRepo.Insert(txCtx, domain.TopicOrderCreated, "k", map[string]string{"a": "b"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	pending, err := testOutboxRepo.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "insert must be rolled back")
}
