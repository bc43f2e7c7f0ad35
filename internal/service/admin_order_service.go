package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

// reasonCanceledByMerchant - причина отмены платежа при отмене заказа администратором.
const reasonCanceledByMerchant = "canceled_by_merchant"

// AdminOrderService - операции админки и кухни над заказами.
type AdminOrderService struct {
	log         *slog.Logger
	txManager   domain.TxManager
	orderRepo   domain.OrderRepository
	paymentRepo domain.PaymentRepository
	userRepo    domain.UserRepository
	outboxRepo  domain.OutboxRepository
	gateway     domain.PaymentGateway
	metrics     domain.MetricsCollector
	now         func() time.Time
}

func NewAdminOrderService(
	log *slog.Logger,
	txManager domain.TxManager,
	orderRepo domain.OrderRepository,
	paymentRepo domain.PaymentRepository,
	userRepo domain.UserRepository,
	outboxRepo domain.OutboxRepository,
	gateway domain.PaymentGateway,
	metrics domain.MetricsCollector,
) *AdminOrderService {
	return &AdminOrderService{
		log:         log,
		txManager:   txManager,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		outboxRepo:  outboxRepo,
		gateway:     gateway,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (s *AdminOrderService) ListOrders(ctx context.Context, filter domain.OrderFilter, page domain.Page) ([]domain.Order, domain.PaginationMeta, error) {
	const op = "AdminOrderService.ListOrders"
	page = NormalizePage(page, DefaultOrdersPerPage)
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, domain.PaginationMeta{}, fmt.Errorf("%s: %w: unknown status %q", op, domain.ErrValidation, *filter.Status)
	}

	orders, total, err := s.orderRepo.List(ctx, filter, page)
	if err != nil {
		log.Error("Failed to list orders", slog.String("error", err.Error()))
		return nil, domain.PaginationMeta{}, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, domain.NewPaginationMeta(page, total), nil
}

func (s *AdminOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.OrderDetails, error) {
	const op = "AdminOrderService.GetOrder"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("order_id", orderID.String()))

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrOrderNotFound)
		}
		log.Error("Failed to get order", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	details := &domain.OrderDetails{Order: *order}

	payment, err := s.paymentRepo.GetLatestByOrder(ctx, orderID)
	switch {
	case err == nil:
		details.Payment = payment
	case !errors.Is(err, domain.ErrNotFound):
		log.Error("Failed to get payment", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	customer, err := s.userRepo.GetByID(ctx, order.UserID)
	switch {
	case err == nil:
		customer.PasswordHash = ""
		details.Customer = customer
	case !errors.Is(err, domain.ErrNotFound):
		log.Error("Failed to get customer", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	return details, nil
}

// UpdateStatus выполняет ручной переход статуса. При отмене заказа с захолдированным платежом
// холд снимается в шлюзе в той же транзакции, иначе изменения откатываются.
func (s *AdminOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	const op = "AdminOrderService.UpdateStatus"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("order_id", orderID.String()), slog.String("status", string(status)))

	if !status.IsValid() {
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, domain.ErrValidation, status)
	}

	var (
		order           *domain.Order
		paymentCanceled bool
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		paymentCanceled = false

		var err error
		order, err = s.orderRepo.GetForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %w", domain.ErrNotFound, domain.ErrOrderNotFound)
			}
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		if !order.Status.CanAdminMoveTo(status) {
			return fmt.Errorf("%w: %w: %s -> %s", domain.ErrConflict, domain.ErrOrderStatusTransition, order.Status, status)
		}

		if status == domain.OrderCanceled {
			paymentCanceled, err = s.cancelPayment(ctx, log, order.ID)
			if err != nil {
				return err
			}
		}

		if err := s.orderRepo.UpdateStatus(ctx, order.ID, status); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		order.Status = status
		order.UpdatedAt = s.now().UTC()
		return s.outboxRepo.Insert(ctx, domain.TopicOrderStatusChanged, order.ID.String(), newOrderEvent(order, s.now()))
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
			log.Warn("Status change rejected", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		case errors.Is(err, domain.ErrPaymentGateway):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Error("Failed to update order status", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	if paymentCanceled {
		s.metrics.IncPaymentsFinished(domain.PaymentCanceled)
	}
	log.Info("Order status changed by admin")
	return order, nil
}

// cancelPayment отменяет незавершённый платёж заказа. Холд WAITING_CAPTURE снимается в шлюзе.
func (s *AdminOrderService) cancelPayment(ctx context.Context, log *slog.Logger, orderID uuid.UUID) (bool, error) {
	payment, err := s.paymentRepo.GetLatestByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
	}
	if !payment.Status.CanMoveTo(domain.PaymentCanceled) {
		return false, nil
	}

	if payment.Status == domain.PaymentWaitingCapture && payment.ExternalID != nil {
		cancelKey := uuid.NewSHA1(payment.ID, []byte("cancel")).String()
		if _, err := s.gateway.CancelPayment(ctx, *payment.ExternalID, cancelKey); err != nil {
			s.metrics.IncGatewayErrors("cancel")
			log.Error("Failed to cancel payment hold", slog.String("payment_id", payment.ID.String()), slog.String("error", err.Error()))
			return false, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
		}
	}

	reason := reasonCanceledByMerchant
	if err := movePayment(payment, domain.PaymentCanceled); err != nil {
		return false, err
	}
	payment.CancellationReason = &reason
	if err := s.paymentRepo.UpdateStatus(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrPaymentTransition) {
			// платёж успели завершить параллельно
			return false, fmt.Errorf("%w: %w", domain.ErrConflict, domain.ErrPaymentTransition)
		}
		return false, fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
	}
	log.Info("Payment canceled with order", slog.String("payment_id", payment.ID.String()))
	return true, nil
}

func (s *AdminOrderService) ListActiveOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "AdminOrderService.ListActiveOrders"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	orders, err := s.orderRepo.ListByStatuses(ctx, domain.ActiveKitchenStatuses)
	if err != nil {
		log.Error("Failed to list active orders", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

var _ domain.AdminOrderService = (*AdminOrderService)(nil)
