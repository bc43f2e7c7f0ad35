package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/service"
	"pizzeria-service/mocks"
)

var paymentTestNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type paymentMocks struct {
	tx       *mocks.TxManager
	orders   *mocks.OrderRepository
	payments *mocks.PaymentRepository
	outbox   *mocks.OutboxRepository
	gateway  *mocks.PaymentGateway
	metrics  *mocks.MetricsCollector
}

func newPaymentService(t *testing.T, verify bool) (*service.PaymentService, paymentMocks) {
	t.Helper()
	m := paymentMocks{
		tx:       mocks.NewTxManager(t),
		orders:   mocks.NewOrderRepository(t),
		payments: mocks.NewPaymentRepository(t),
		outbox:   mocks.NewOutboxRepository(t),
		gateway:  mocks.NewPaymentGateway(t),
		metrics:  mocks.NewMetricsCollector(t),
	}
	svc := service.NewPaymentService(discardLogger(), m.tx, m.orders, m.payments, m.outbox, m.gateway, m.metrics,
		service.PaymentSettings{
			VerifyWithAPI:  verify,
			UnpaidOrderTTL: time.Hour,
			ReconcileBatch: 10,
			Clock:          func() time.Time { return paymentTestNow },
		})
	return svc, m
}

func notificationBody(event, id, status, amount string) []byte {
	return []byte(`{"type":"notification","event":"` + event + `","object":{"id":"` + id + `","status":"` + status +
		`","paid":false,"amount":{"value":"` + amount + `","currency":"RUB"},"cancellation_details":{"party":"yoo_money","reason":"expired_on_confirmation"}}}`)
}

func TestParseNotification(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "корректное уведомление", body: string(notificationBody("payment.succeeded", "22e12f66-000f-5000-8000-18db351245c7", "succeeded", "1020.50"))},
		{name: "не JSON", body: "not json", wantErr: true},
		{name: "другой тип", body: `{"type":"other","event":"payment.succeeded","object":{"id":"1","status":"succeeded","amount":{"value":"1.00","currency":"RUB"}}}`, wantErr: true},
		{name: "нет id", body: `{"type":"notification","event":"payment.succeeded","object":{"status":"succeeded","amount":{"value":"1.00","currency":"RUB"}}}`, wantErr: true},
		{name: "нет суммы", body: `{"type":"notification","event":"payment.succeeded","object":{"id":"1","status":"succeeded"}}`, wantErr: true},
		{name: "кривая сумма", body: `{"type":"notification","event":"payment.succeeded","object":{"id":"1","status":"succeeded","amount":{"value":"abc","currency":"RUB"}}}`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := service.ParseNotification([]byte(tc.body))
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrMalformedWebhook)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "payment.succeeded", n.Event)
			assert.Equal(t, domain.GatewaySucceeded, n.Status)
			assert.Equal(t, "1020.5", n.Amount.String())
			assert.Equal(t, "RUB", n.Currency)
			assert.Equal(t, "expired_on_confirmation", n.CancellationReason)
		})
	}
}

func TestPaymentService_HandleNotification(t *testing.T) {
	ctx := context.Background()
	externalID := "2d0a1b22-000f-5000-9000-1b68e7b15f3f"
	orderID := uuid.New()
	paymentID := uuid.New()
	amount := decimal.RequireFromString("1020.50")

	newPayment := func(status domain.PaymentStatus) *domain.Payment {
		return &domain.Payment{ID: paymentID, OrderID: orderID, ExternalID: &externalID, Status: status, Amount: amount, Currency: "RUB"}
	}
	newOrder := func(status domain.OrderStatus) *domain.Order {
		return &domain.Order{ID: orderID, Status: status, Total: amount}
	}
	captureKey := uuid.NewSHA1(paymentID, []byte("capture")).String()

	testCases := []struct {
		name          string
		verify        bool
		body          []byte
		setupMocks    func(m paymentMocks)
		expectedError error
	}{
		{
			name: "succeeded: платёж и заказ оплачены",
			body: notificationBody("payment.succeeded", externalID, "succeeded", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentWaitingCapture), nil).Once()
				m.payments.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
					return p.Status == domain.PaymentSucceeded && p.PaidAt != nil && p.PaidAt.Equal(paymentTestNow)
				})).Return(nil).Once()
				m.orders.On("GetForUpdate", mock.Anything, orderID).Return(newOrder(domain.OrderWaitingPayment), nil).Once()
				m.orders.On("UpdateStatus", mock.Anything, orderID, domain.OrderPaid).Return(nil).Once()
				m.outbox.On("Insert", mock.Anything, domain.TopicOrderPaid, orderID.String(), mock.MatchedBy(func(e domain.OrderEvent) bool {
					return e.Status == domain.OrderPaid && e.OrderID == orderID
				})).Return(nil).Once()
				m.metrics.On("IncPaymentsFinished", domain.PaymentSucceeded).Return().Once()
			},
		},
		{
			name: "waiting_for_capture: переход и списание с немедленным succeeded",
			body: notificationBody("payment.waiting_for_capture", externalID, "waiting_for_capture", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.waiting_for_capture").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentPending), nil).Once()
				m.payments.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
					return p.Status == domain.PaymentWaitingCapture
				})).Return(nil).Once()
				m.gateway.On("CapturePayment", mock.Anything, externalID, amount, "RUB", captureKey).
					Return(&domain.GatewayPayment{ID: externalID, Status: domain.GatewaySucceeded, Amount: amount, Currency: "RUB"}, nil).Once()
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentWaitingCapture), nil).Once()
				m.payments.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
					return p.Status == domain.PaymentSucceeded
				})).Return(nil).Once()
				m.orders.On("GetForUpdate", mock.Anything, orderID).Return(newOrder(domain.OrderWaitingPayment), nil).Once()
				m.orders.On("UpdateStatus", mock.Anything, orderID, domain.OrderPaid).Return(nil).Once()
				m.outbox.On("Insert", mock.Anything, domain.TopicOrderPaid, orderID.String(), mock.Anything).Return(nil).Once()
				m.metrics.On("IncPaymentsFinished", domain.PaymentSucceeded).Return().Once()
			},
		},
		{
			name: "waiting_for_capture: ошибка списания возвращается для повтора",
			body: notificationBody("payment.waiting_for_capture", externalID, "waiting_for_capture", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.waiting_for_capture").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentWaitingCapture), nil).Once()
				m.gateway.On("CapturePayment", mock.Anything, externalID, amount, "RUB", captureKey).
					Return(nil, errors.New("timeout")).Once()
				m.metrics.On("IncGatewayErrors", "capture").Return().Once()
			},
			expectedError: domain.ErrPaymentGateway,
		},
		{
			name: "canceled: заказ отменён с причиной",
			body: notificationBody("payment.canceled", externalID, "canceled", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.canceled").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentPending), nil).Once()
				m.payments.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
					return p.Status == domain.PaymentCanceled && p.CancellationReason != nil && *p.CancellationReason == "expired_on_confirmation"
				})).Return(nil).Once()
				m.orders.On("GetForUpdate", mock.Anything, orderID).Return(newOrder(domain.OrderWaitingPayment), nil).Once()
				m.orders.On("UpdateStatus", mock.Anything, orderID, domain.OrderCanceled).Return(nil).Once()
				m.outbox.On("Insert", mock.Anything, domain.TopicOrderCanceled, orderID.String(), mock.Anything).Return(nil).Once()
				m.metrics.On("IncPaymentsFinished", domain.PaymentCanceled).Return().Once()
			},
		},
		{
			name: "переход отклонён БД: платёж завершён параллельно",
			body: notificationBody("payment.canceled", externalID, "canceled", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.canceled").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentWaitingCapture), nil).Once()
				m.payments.On("UpdateStatus", mock.Anything, mock.Anything).
					Return(fmt.Errorf("repository: %w: %w", domain.ErrConflict, domain.ErrPaymentTransition)).Once()
			},
		},
		{
			name: "повторное уведомление для завершённого платежа",
			body: notificationBody("payment.succeeded", externalID, "succeeded", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentSucceeded), nil).Once()
			},
		},
		{
			name: "неизвестный платёж подтверждается",
			body: notificationBody("payment.succeeded", "unknown", "succeeded", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, "unknown").Return(nil, domain.ErrNotFound).Once()
			},
		},
		{
			name: "несовпадение суммы",
			body: notificationBody("payment.succeeded", externalID, "succeeded", "1.00"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentPending), nil).Once()
			},
			expectedError: domain.ErrPaymentMismatch,
		},
		{
			name: "pending ничего не меняет",
			body: notificationBody("payment.pending", externalID, "pending", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.pending").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentPending), nil).Once()
			},
		},
		{
			name:          "битое тело",
			body:          []byte(`{"type":"notification"}`),
			setupMocks:    func(m paymentMocks) {},
			expectedError: domain.ErrValidation,
		},
		{
			name: "события возвратов игнорируются",
			body: notificationBody("refund.succeeded", "refund-1", "succeeded", "10.00"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "refund.succeeded").Return().Once()
			},
		},
		{
			name:   "проверка через API: статус берётся из шлюза",
			verify: true,
			body:   notificationBody("payment.succeeded", externalID, "succeeded", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				m.gateway.On("GetPayment", mock.Anything, externalID).
					Return(&domain.GatewayPayment{ID: externalID, Status: domain.GatewayPending, Amount: amount, Currency: "RUB"}, nil).Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(newPayment(domain.PaymentPending), nil).Once()
			},
		},
		{
			name:   "проверка через API: шлюз недоступен",
			verify: true,
			body:   notificationBody("payment.succeeded", externalID, "succeeded", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				m.gateway.On("GetPayment", mock.Anything, externalID).Return(nil, domain.ErrPaymentGateway).Once()
				m.metrics.On("IncGatewayErrors", "get").Return().Once()
			},
			expectedError: domain.ErrPaymentGateway,
		},
		{
			name: "ошибка БД приводит к 500",
			body: notificationBody("payment.succeeded", externalID, "succeeded", "1020.50"),
			setupMocks: func(m paymentMocks) {
				m.metrics.On("IncWebhookNotifications", "payment.succeeded").Return().Once()
				runInTx(m.tx)
				m.payments.On("GetByExternalIDForUpdate", mock.Anything, externalID).Return(nil, errors.New("conn reset")).Once()
			},
			expectedError: domain.ErrDatabaseError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newPaymentService(t, tc.verify)
			tc.setupMocks(m)

			err := svc.HandleNotification(ctx, tc.body)
			if tc.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPaymentService_ReconcileStale(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("700.00")
	staleOrder := domain.Order{ID: uuid.New(), Status: domain.OrderWaitingPayment, Total: amount}
	paidOrder := domain.Order{ID: uuid.New(), Status: domain.OrderWaitingPayment, Total: amount}
	extStale, extPaid := "ext-stale", "ext-paid"

	svc, m := newPaymentService(t, false)
	m.orders.On("ListAwaitingPaymentBefore", mock.Anything, paymentTestNow.Add(-time.Hour), 10).
		Return([]domain.Order{staleOrder, paidOrder}, nil).Once()

	stalePayment := &domain.Payment{ID: uuid.New(), OrderID: staleOrder.ID, ExternalID: &extStale, Status: domain.PaymentPending, Amount: amount, Currency: "RUB"}
	paidPayment := &domain.Payment{ID: uuid.New(), OrderID: paidOrder.ID, ExternalID: &extPaid, Status: domain.PaymentPending, Amount: amount, Currency: "RUB"}
	m.payments.On("GetLatestByOrder", mock.Anything, staleOrder.ID).Return(stalePayment, nil).Once()
	m.payments.On("GetLatestByOrder", mock.Anything, paidOrder.ID).Return(paidPayment, nil).Once()

	m.gateway.On("GetPayment", mock.Anything, extStale).
		Return(&domain.GatewayPayment{ID: extStale, Status: domain.GatewayPending, Amount: amount, Currency: "RUB"}, nil).Once()
	m.gateway.On("GetPayment", mock.Anything, extPaid).
		Return(&domain.GatewayPayment{ID: extPaid, Status: domain.GatewaySucceeded, Amount: amount, Currency: "RUB"}, nil).Once()

	runInTx(m.tx)
	m.payments.On("GetByExternalIDForUpdate", mock.Anything, extStale).Return(stalePayment, nil).Once()
	m.payments.On("GetByExternalIDForUpdate", mock.Anything, extPaid).Return(paidPayment, nil).Once()
	m.payments.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.ID == stalePayment.ID && p.Status == domain.PaymentCanceled && *p.CancellationReason == "expired_on_confirmation"
	})).Return(nil).Once()
	m.payments.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.ID == paidPayment.ID && p.Status == domain.PaymentSucceeded
	})).Return(nil).Once()

	m.orders.On("GetForUpdate", mock.Anything, staleOrder.ID).Return(&domain.Order{ID: staleOrder.ID, Status: domain.OrderWaitingPayment}, nil).Once()
	m.orders.On("GetForUpdate", mock.Anything, paidOrder.ID).Return(&domain.Order{ID: paidOrder.ID, Status: domain.OrderWaitingPayment}, nil).Once()
	m.orders.On("UpdateStatus", mock.Anything, staleOrder.ID, domain.OrderCanceled).Return(nil).Once()
	m.orders.On("UpdateStatus", mock.Anything, paidOrder.ID, domain.OrderPaid).Return(nil).Once()
	m.outbox.On("Insert", mock.Anything, domain.TopicOrderCanceled, staleOrder.ID.String(), mock.Anything).Return(nil).Once()
	m.outbox.On("Insert", mock.Anything, domain.TopicOrderPaid, paidOrder.ID.String(), mock.Anything).Return(nil).Once()
	m.metrics.On("IncPaymentsFinished", domain.PaymentCanceled).Return().Once()
	m.metrics.On("IncPaymentsFinished", domain.PaymentSucceeded).Return().Once()

	processed, err := svc.ReconcileStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
}

func TestPaymentService_ReconcileStale_GatewayError(t *testing.T) {
	svc, m := newPaymentService(t, false)
	ext := "ext-1"
	order := domain.Order{ID: uuid.New(), Status: domain.OrderWaitingPayment}
	m.orders.On("ListAwaitingPaymentBefore", mock.Anything, mock.Anything, 10).Return([]domain.Order{order}, nil).Once()
	m.payments.On("GetLatestByOrder", mock.Anything, order.ID).
		Return(&domain.Payment{ID: uuid.New(), OrderID: order.ID, ExternalID: &ext, Status: domain.PaymentPending}, nil).Once()
	m.gateway.On("GetPayment", mock.Anything, ext).Return(nil, domain.ErrPaymentGateway).Once()
	m.metrics.On("IncGatewayErrors", "get").Return().Once()

	processed, err := svc.ReconcileStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestPaymentService_ReconcileStale_SkipsFreshRetry(t *testing.T) {
	svc, m := newPaymentService(t, false)
	ext := "ext-retry"
	order := domain.Order{ID: uuid.New(), Status: domain.OrderWaitingPayment, CreatedAt: paymentTestNow.Add(-2 * time.Hour)}
	m.orders.On("ListAwaitingPaymentBefore", mock.Anything, paymentTestNow.Add(-time.Hour), 10).Return([]domain.Order{order}, nil).Once()
	m.payments.On("GetLatestByOrder", mock.Anything, order.ID).
		Return(&domain.Payment{
			ID: uuid.New(), OrderID: order.ID, ExternalID: &ext, Status: domain.PaymentPending,
			CreatedAt: paymentTestNow.Add(-time.Minute),
		}, nil).Once()

	processed, err := svc.ReconcileStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	m.gateway.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	m.payments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}
