package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-service/internal/domain"
)

func TestOrderRepository_CreateAndRead(t *testing.T) {
	require.NotNil(t, dbPool, "Test DB pool should be initialized")
	ctx := context.Background()
	clearCustomerData(ctx, t)

	user := createTestUser(ctx, t)
	address := createTestAddress(ctx, t, user.ID, true)
	product := createTestProduct(ctx, t, true, 54900)

	order := createTestOrder(ctx, t, user.ID, address.ID, domain.OrderCreated, product.VariantID)
	require.Len(t, order.Items, 1)
	assert.NotZero(t, order.Items[0].ID)

	t.Run("GetByID с позициями", func(t *testing.T) {
		got, err := testOrderRepo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderCreated, got.Status)
		assert.True(t, order.Total.Equal(got.Total))
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Пепперони", got.Items[0].ProductName)
		assert.True(t, got.Items[0].UnitPrice.Equal(order.Items[0].UnitPrice))
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		require.NoError(t, testOrderRepo.UpdateStatus(ctx, order.ID, domain.OrderWaitingPayment))
		got, err := testOrderRepo.GetForUpdate(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderWaitingPayment, got.Status)
		assert.Nil(t, got.Items)

		assert.ErrorIs(t, testOrderRepo.UpdateStatus(ctx, uuid.New(), domain.OrderPaid), domain.ErrNotFound)
	})

	t.Run("List по пользователю и статусу", func(t *testing.T) {
		_ = createTestOrder(ctx, t, user.ID, address.ID, domain.OrderPaid, product.VariantID)
		other := createTestUser(ctx, t)
		otherAddress := createTestAddress(ctx, t, other.ID, true)
		_ = createTestOrder(ctx, t, other.ID, otherAddress.ID, domain.OrderPaid, product.VariantID)

		orders, total, err := testOrderRepo.List(ctx, domain.OrderFilter{UserID: &user.ID}, domain.Page{Number: 1, PerSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, orders, 2)

		paid := domain.OrderPaid
		orders, total, err = testOrderRepo.List(ctx, domain.OrderFilter{Status: &paid}, domain.Page{Number: 1, PerSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, orders, 1)

		active, err := testOrderRepo.ListByStatuses(ctx, domain.ActiveKitchenStatuses)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Len(t, active[0].Items, 1)
	})

	t.Run("Зависшие неоплаченные", func(t *testing.T) {
		stale, err := testOrderRepo.ListAwaitingPaymentBefore(ctx, time.Now().Add(time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, order.ID, stale[0].ID)

		stale, err = testOrderRepo.ListAwaitingPaymentBefore(ctx, time.Now().Add(-time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, stale)
	})

	t.Run("Свежий повторный платёж не считается зависшим", func(t *testing.T) {
		_, err := dbPool.Exec(ctx, "UPDATE orders SET created_at = NOW() - INTERVAL '2 hours' WHERE id = $1", order.ID)
		require.NoError(t, err)
		payment := createTestPayment(ctx, t, order, domain.PaymentPending, nil)

		stale, err := testOrderRepo.ListAwaitingPaymentBefore(ctx, time.Now().Add(-time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, stale)

		_, err = dbPool.Exec(ctx, "UPDATE payments SET created_at = NOW() - INTERVAL '90 minutes' WHERE id = $1", payment.ID)
		require.NoError(t, err)

		stale, err = testOrderRepo.ListAwaitingPaymentBefore(ctx, time.Now().Add(-time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, order.ID, stale[0].ID)
	})
}

func TestPaymentRepository_Lifecycle(t *testing.T) {
	require.NotNil(t, dbPool, "Test DB pool should be initialized")
	ctx := context.Background()
	clearCustomerData(ctx, t)

	user := createTestUser(ctx, t)
	address := createTestAddress(ctx, t, user.ID, true)
	product := createTestProduct(ctx, t, true, 54900)
	order := createTestOrder(ctx, t, user.ID, address.ID, domain.OrderCreated, product.VariantID)

	payment := createTestPayment(ctx, t, order, domain.PaymentPending, nil)

	t.Run("Второй активный платёж запрещён", func(t *testing.T) {
		dup := domain.Payment{
			ID: uuid.New(), OrderID: order.ID, Provider: domain.PaymentProviderYooKassa, IdempotenceKey: uuid.New(),
			Status: domain.PaymentPending, Amount: order.Total, Currency: domain.CurrencyRUB,
		}
		assert.ErrorIs(t, testPaymentRepo.Create(ctx, &dup), domain.ErrConflict)
	})

	t.Run("AttachGateway и поиск по внешнему id", func(t *testing.T) {
		require.NoError(t, testPaymentRepo.AttachGateway(ctx, payment.ID, "2d9c6a1f-000f-5000-9000-1b2c3d4e5f60", "https://yoomoney.ru/checkout/payments/v2/contract?orderId=1"))

		err := testTxManager.WithinTx(ctx, func(txCtx context.Context) error {
			got, err := testPaymentRepo.GetByExternalIDForUpdate(txCtx, "2d9c6a1f-000f-5000-9000-1b2c3d4e5f60")
			require.NoError(t, err)
			assert.Equal(t, payment.ID, got.ID)
			require.NotNil(t, got.ConfirmationURL)
			return nil
		})
		require.NoError(t, err)

		_, err = testPaymentRepo.GetByExternalIDForUpdate(ctx, "unknown")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		paidAt := time.Now().UTC().Truncate(time.Microsecond)
		payment.Status = domain.PaymentSucceeded
		payment.PaidAt = &paidAt
		require.NoError(t, testPaymentRepo.UpdateStatus(ctx, &payment))

		got, err := testPaymentRepo.GetLatestByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentSucceeded, got.Status)
		require.NotNil(t, got.PaidAt)
		assert.WithinDuration(t, paidAt, *got.PaidAt, time.Second)
		assert.True(t, order.Total.Equal(got.Amount))
	})

	t.Run("Завершённый платёж не отменяется", func(t *testing.T) {
		canceled := payment
		reason := "canceled_by_merchant"
		canceled.Status = domain.PaymentCanceled
		canceled.CancellationReason = &reason

		err := testPaymentRepo.UpdateStatus(ctx, &canceled)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.ErrorIs(t, err, domain.ErrPaymentTransition)

		got, err := testPaymentRepo.GetLatestByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentSucceeded, got.Status)
		assert.Nil(t, got.CancellationReason)
	})

	t.Run("После завершения можно создать новый", func(t *testing.T) {
		next := createTestPayment(ctx, t, order, domain.PaymentPending, nil)
		latest, err := testPaymentRepo.GetLatestByOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, next.ID, latest.ID)
	})
}
