package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

// reasonExpired - причина локальной отмены платежа, не оплаченного за отведённое время.
const reasonExpired = "expired_on_confirmation"

var errUnknownPayment = errors.New("payment is not registered")

// PaymentSettings - настройки сверки платежей.
type PaymentSettings struct {
	// VerifyWithAPI - статус берётся из GET /v3/payments/{id}, а не из тела уведомления.
	VerifyWithAPI  bool
	UnpaidOrderTTL time.Duration
	ReconcileBatch int
	Clock          func() time.Time
}

// PaymentService применяет статусы шлюза к платежам и заказам.
type PaymentService struct {
	log         *slog.Logger
	txManager   domain.TxManager
	orderRepo   domain.OrderRepository
	paymentRepo domain.PaymentRepository
	outboxRepo  domain.OutboxRepository
	gateway     domain.PaymentGateway
	metrics     domain.MetricsCollector
	settings    PaymentSettings
}

func NewPaymentService(
	log *slog.Logger,
	txManager domain.TxManager,
	orderRepo domain.OrderRepository,
	paymentRepo domain.PaymentRepository,
	outboxRepo domain.OutboxRepository,
	gateway domain.PaymentGateway,
	metrics domain.MetricsCollector,
	settings PaymentSettings,
) *PaymentService {
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	if settings.ReconcileBatch <= 0 {
		settings.ReconcileBatch = 50
	}
	return &PaymentService{
		log:         log,
		txManager:   txManager,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		gateway:     gateway,
		metrics:     metrics,
		settings:    settings,
	}
}

// ParseNotification разбирает тело уведомления ЮKassa:
// {"type":"notification","event":"payment.succeeded","object":{"id":...,"status":...,"amount":{"value":"10.00","currency":"RUB"}}}.
func ParseNotification(body []byte) (*domain.PaymentNotification, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", domain.ErrMalformedWebhook)
	}

	root := gjson.ParseBytes(body)
	if root.Get("type").String() != "notification" {
		return nil, fmt.Errorf("%w: unexpected type %q", domain.ErrMalformedWebhook, root.Get("type").String())
	}

	n := &domain.PaymentNotification{
		Event:              root.Get("event").String(),
		PaymentID:          root.Get("object.id").String(),
		Status:             domain.GatewayPaymentStatus(root.Get("object.status").String()),
		Currency:           root.Get("object.amount.currency").String(),
		CancellationReason: root.Get("object.cancellation_details.reason").String(),
	}
	if n.Event == "" || n.PaymentID == "" || n.Status == "" {
		return nil, fmt.Errorf("%w: event, object.id and object.status are required", domain.ErrMalformedWebhook)
	}

	value := root.Get("object.amount.value")
	if !value.Exists() || n.Currency == "" {
		return nil, fmt.Errorf("%w: object.amount is required", domain.ErrMalformedWebhook)
	}
	amount, err := decimal.NewFromString(value.String())
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", domain.ErrMalformedWebhook, value.String())
	}
	n.Amount = amount

	return n, nil
}

func stateFromNotification(n *domain.PaymentNotification) domain.GatewayPayment {
	return domain.GatewayPayment{
		ID:                 n.PaymentID,
		Status:             n.Status,
		Amount:             n.Amount,
		Currency:           n.Currency,
		CancellationReason: n.CancellationReason,
	}
}

func (s *PaymentService) HandleNotification(ctx context.Context, body []byte) error {
	const op = "PaymentService.HandleNotification"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	n, err := ParseNotification(body)
	if err != nil {
		log.Warn("Malformed payment notification", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, err)
	}
	log = log.With(slog.String("event", n.Event), slog.String("external_id", n.PaymentID))
	s.metrics.IncWebhookNotifications(n.Event)

	if !strings.HasPrefix(n.Event, "payment.") {
		log.Info("Notification ignored: not a payment event")
		return nil
	}

	state := stateFromNotification(n)
	if s.settings.VerifyWithAPI {
		gp, err := s.gateway.GetPayment(ctx, n.PaymentID)
		if err != nil {
			s.metrics.IncGatewayErrors("get")
			log.Error("Failed to verify payment with gateway", slog.String("error", err.Error()))
			return fmt.Errorf("%s: %w", op, domain.ErrPaymentGateway)
		}
		if gp.Status != n.Status {
			log.Info("Gateway status differs from notification", slog.String("notified", string(n.Status)), slog.String("actual", string(gp.Status)))
		}
		state = *gp
	}

	if err := s.apply(ctx, log, state); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// apply переводит платёж и заказ в состояние шлюза. Повторное применение того же статуса ничего не меняет.
// Для waiting_for_capture после фиксации перехода платёж списывается, результат списания применяется сразу.
func (s *PaymentService) apply(ctx context.Context, log *slog.Logger, state domain.GatewayPayment) error {
	var (
		toCapture *domain.Payment
		finished  domain.PaymentStatus
	)

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		toCapture, finished = nil, ""

		payment, err := s.paymentRepo.GetByExternalIDForUpdate(ctx, state.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errUnknownPayment
			}
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		plog := log.With(slog.String("payment_id", payment.ID.String()), slog.String("order_id", payment.OrderID.String()),
			slog.String("payment_status", string(payment.Status)), slog.String("gateway_status", string(state.Status)))

		if payment.Status.IsTerminal() {
			plog.Info("Payment already finished, notification ignored")
			return nil
		}
		if !state.Amount.Equal(payment.Amount) || !strings.EqualFold(state.Currency, payment.Currency) {
			plog.Warn("Payment amount mismatch",
				slog.String("expected", payment.Amount.StringFixed(2)+" "+payment.Currency),
				slog.String("got", state.Amount.StringFixed(2)+" "+state.Currency))
			return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrPaymentMismatch)
		}

		switch state.Status {
		case domain.GatewayWaitingForCapture:
			if payment.Status.CanMoveTo(domain.PaymentWaitingCapture) {
				payment.Status = domain.PaymentWaitingCapture
				if err := s.paymentRepo.UpdateStatus(ctx, payment); err != nil {
					return paymentUpdateErr(err)
				}
				plog.Info("Payment authorized, waiting for capture")
			}
			toCapture = payment
			return nil
		case domain.GatewaySucceeded:
			finished = domain.PaymentSucceeded
			return s.finish(ctx, plog, payment, domain.PaymentSucceeded, "")
		case domain.GatewayCanceled:
			finished = domain.PaymentCanceled
			return s.finish(ctx, plog, payment, domain.PaymentCanceled, state.CancellationReason)
		default:
			plog.Debug("Payment is still pending")
			return nil
		}
	})
	if err != nil {
		if errors.Is(err, errUnknownPayment) {
			log.Warn("Notification for unknown payment acknowledged", slog.String("external_id", state.ID))
			return nil
		}
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		if errors.Is(err, domain.ErrPaymentTransition) {
			log.Warn("Payment status transition skipped", slog.String("error", err.Error()))
			return nil
		}
		log.Error("Failed to apply payment status", slog.String("error", err.Error()))
		return domain.ErrDatabaseError
	}

	if finished != "" {
		s.metrics.IncPaymentsFinished(finished)
	}
	if toCapture == nil {
		return nil
	}

	captureKey := uuid.NewSHA1(toCapture.ID, []byte("capture")).String()
	gp, err := s.gateway.CapturePayment(ctx, state.ID, toCapture.Amount, toCapture.Currency, captureKey)
	if err != nil {
		s.metrics.IncGatewayErrors("capture")
		log.Error("Failed to capture payment", slog.String("external_id", state.ID), slog.String("error", err.Error()))
		return domain.ErrPaymentGateway
	}
	if gp.Status == domain.GatewaySucceeded || gp.Status == domain.GatewayCanceled {
		return s.apply(ctx, log, *gp)
	}
	return nil
}

// movePayment меняет статус платежа в памяти, если переход разрешён.
func movePayment(payment *domain.Payment, next domain.PaymentStatus) error {
	if !payment.Status.CanMoveTo(next) {
		return fmt.Errorf("%w: %w: %s -> %s", domain.ErrConflict, domain.ErrPaymentTransition, payment.Status, next)
	}
	payment.Status = next
	return nil
}

func paymentUpdateErr(err error) error {
	if errors.Is(err, domain.ErrPaymentTransition) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
}

// finish фиксирует конечный статус платежа и переводит заказ, если он ещё ожидает оплаты.
func (s *PaymentService) finish(ctx context.Context, log *slog.Logger, payment *domain.Payment, status domain.PaymentStatus, reason string) error {
	now := s.settings.Clock().UTC()

	if err := movePayment(payment, status); err != nil {
		return err
	}
	if status == domain.PaymentSucceeded {
		payment.PaidAt = &now
	}
	if status == domain.PaymentCanceled && reason != "" {
		payment.CancellationReason = &reason
	}
	if err := s.paymentRepo.UpdateStatus(ctx, payment); err != nil {
		return paymentUpdateErr(err)
	}

	order, err := s.orderRepo.GetForUpdate(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
	}
	if !order.Status.AwaitsPayment() {
		log.Warn("Order no longer awaits payment", slog.String("order_status", string(order.Status)))
		return nil
	}

	nextStatus, topic := domain.OrderPaid, domain.TopicOrderPaid
	if status == domain.PaymentCanceled {
		nextStatus, topic = domain.OrderCanceled, domain.TopicOrderCanceled
	}
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, nextStatus); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
	}
	order.Status = nextStatus
	if err := s.outboxRepo.Insert(ctx, topic, order.ID.String(), newOrderEvent(order, now)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
	}

	log.Info("Payment finished", slog.String("order_status", string(nextStatus)))
	return nil
}

// ReconcileStale сверяет со шлюзом заказы, последний платёж которых создан раньше чем UnpaidOrderTTL назад.
// Платёж, который всё ещё pending, отменяется локально.
func (s *PaymentService) ReconcileStale(ctx context.Context) (int, error) {
	const op = "PaymentService.ReconcileStale"
	log := s.log.With(slog.String("op", op))

	before := s.settings.Clock().Add(-s.settings.UnpaidOrderTTL)
	orders, err := s.orderRepo.ListAwaitingPaymentBefore(ctx, before, s.settings.ReconcileBatch)
	if err != nil {
		log.Error("Failed to list stale orders", slog.String("error", err.Error()))
		return 0, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	processed := 0
	for i := range orders {
		order := &orders[i]
		olog := log.With(slog.String("order_id", order.ID.String()))

		payment, err := s.paymentRepo.GetLatestByOrder(ctx, order.ID)
		if err != nil {
			olog.Error("Failed to load payment of stale order", slog.String("error", err.Error()))
			continue
		}
		if payment.CreatedAt.After(before) {
			olog.Debug("Latest payment is younger than TTL, skipped", slog.String("payment_id", payment.ID.String()))
			continue
		}
		if payment.ExternalID == nil {
			olog.Warn("Stale order payment has no gateway id", slog.String("payment_id", payment.ID.String()))
			continue
		}

		state, err := s.gateway.GetPayment(ctx, *payment.ExternalID)
		if err != nil {
			s.metrics.IncGatewayErrors("get")
			olog.Error("Failed to fetch payment from gateway", slog.String("error", err.Error()))
			continue
		}
		if state.Status == domain.GatewayPending {
			state.Status = domain.GatewayCanceled
			state.CancellationReason = reasonExpired
		}

		if err := s.apply(ctx, olog, *state); err != nil {
			olog.Error("Failed to reconcile payment", slog.String("error", err.Error()))
			continue
		}
		processed++
	}

	if len(orders) > 0 {
		log.Info("Stale orders reconciled", slog.Int("found", len(orders)), slog.Int("processed", processed))
	}
	return processed, nil
}

var _ domain.PaymentService = (*PaymentService)(nil)
