package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

// gatewayUnavailableMessage показывается покупателю, если шлюз не принял платёж.
const gatewayUnavailableMessage = "payment gateway is temporarily unavailable, please retry payment later"

// OrderSettings - бизнес-настройки оформления заказа.
type OrderSettings struct {
	MinOrderAmount   decimal.Decimal
	MaxItemQuantity  int
	DeliveryLeadTime time.Duration
	ReturnURL        string
	// Clock подменяется в тестах. По умолчанию time.Now.
	Clock func() time.Time
}

// OrderService реализует оформление заказа и создание платежа в шлюзе.
type OrderService struct {
	log         *slog.Logger
	txManager   domain.TxManager
	cartRepo    domain.CartRepository
	addressRepo domain.AddressRepository
	orderRepo   domain.OrderRepository
	paymentRepo domain.PaymentRepository
	outboxRepo  domain.OutboxRepository
	gateway     domain.PaymentGateway
	metrics     domain.MetricsCollector
	settings    OrderSettings
}

func NewOrderService(
	log *slog.Logger,
	txManager domain.TxManager,
	cartRepo domain.CartRepository,
	addressRepo domain.AddressRepository,
	orderRepo domain.OrderRepository,
	paymentRepo domain.PaymentRepository,
	outboxRepo domain.OutboxRepository,
	gateway domain.PaymentGateway,
	metrics domain.MetricsCollector,
	settings OrderSettings,
) *OrderService {
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	return &OrderService{
		log:         log,
		txManager:   txManager,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		gateway:     gateway,
		metrics:     metrics,
		settings:    settings,
	}
}

// cartProblems возвращает причины, по которым корзину нельзя оформить.
func (s *OrderService) cartProblems(cart *domain.Cart) []error {
	if cart.IsEmpty() {
		return []error{domain.ErrCartEmpty}
	}

	var problems []error
	for _, item := range cart.Items {
		if !item.ProductActive {
			problems = append(problems, fmt.Errorf("%w: %s", domain.ErrUnavailableInCart, item.ProductName))
		}
		if item.Quantity < 1 || item.Quantity > s.settings.MaxItemQuantity {
			problems = append(problems, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, item.ProductName))
		}
	}
	if cart.Total.LessThan(s.settings.MinOrderAmount) {
		problems = append(problems, fmt.Errorf("%w: %s RUB", domain.ErrOrderBelowMinimum, s.settings.MinOrderAmount.StringFixed(2)))
	}
	return problems
}

func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.CheckoutSummary, error) {
	const op = "OrderService.Checkout"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("user_id", userID.String()))

	items, err := s.cartRepo.ListItems(ctx, domain.ForUser(userID))
	if err != nil {
		log.Error("Failed to load cart", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Error("Failed to load addresses", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	if addresses == nil {
		addresses = []domain.Address{}
	}

	cart := domain.NewCart(items)
	summary := &domain.CheckoutSummary{
		Cart:           cart,
		Addresses:      addresses,
		MinOrderAmount: s.settings.MinOrderAmount,
	}
	for _, problem := range s.cartProblems(cart) {
		summary.Problems = append(summary.Problems, problem.Error())
	}
	if len(addresses) == 0 {
		summary.Problems = append(summary.Problems, "no delivery address")
	}
	summary.CanPlaceOrder = len(summary.Problems) == 0

	return summary, nil
}

func (s *OrderService) checkDeliveryAt(op string, deliveryAt *time.Time) error {
	if deliveryAt == nil {
		return nil
	}
	earliest := s.settings.Clock().Add(s.settings.DeliveryLeadTime)
	if deliveryAt.Before(earliest) {
		return fmt.Errorf("%s: %w: %w: earliest is %s", op, domain.ErrValidation, domain.ErrInvalidDeliveryAt, earliest.UTC().Format(time.RFC3339))
	}
	return nil
}

func (s *OrderService) newPayment(order *domain.Order) *domain.Payment {
	return &domain.Payment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Provider:       domain.PaymentProviderYooKassa,
		IdempotenceKey: uuid.New(),
		Status:         domain.PaymentPending,
		Amount:         order.Total,
		Currency:       domain.CurrencyRUB,
	}
}

// PlaceOrder сохраняет заказ и платёж в одной транзакции, затем создаёт платёж в шлюзе.
// Отказ шлюза не является ошибкой: заказ остаётся CREATED и может быть оплачен повторно.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input domain.PlaceOrderInput) (*domain.OrderPlacement, error) {
	const op = "OrderService.PlaceOrder"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("user_id", userID.String()), slog.String("address_id", input.AddressID.String()))

	if err := s.checkDeliveryAt(op, input.DeliveryAt); err != nil {
		log.Warn("Delivery time rejected", slog.String("error", err.Error()))
		return nil, err
	}

	var (
		order   *domain.Order
		payment *domain.Payment
	)
	owner := domain.ForUser(userID)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		// повторная отправка ждёт здесь и затем видит уже очищенную корзину
		if err := s.cartRepo.Lock(ctx, owner); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		items, err := s.cartRepo.ListItems(ctx, owner)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		cart := domain.NewCart(items)
		if problems := s.cartProblems(cart); len(problems) > 0 {
			return fmt.Errorf("%w: %w", domain.ErrValidation, problems[0])
		}

		address, err := s.addressRepo.GetByID(ctx, input.AddressID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrAddressNotFound)
			}
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		if address.UserID != userID {
			return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrAddressNotFound)
		}

		order = &domain.Order{
			ID:          uuid.New(),
			UserID:      userID,
			AddressID:   address.ID,
			AddressLine: address.Line(),
			Status:      domain.OrderCreated,
			Total:       cart.Total,
			Comment:     input.Comment,
			DeliveryAt:  input.DeliveryAt,
			Items:       make([]domain.OrderItem, 0, len(cart.Items)),
		}
		for _, item := range cart.Items {
			order.Items = append(order.Items, domain.OrderItem{
				OrderID:     order.ID,
				VariantID:   item.VariantID,
				ProductName: item.ProductName,
				VariantName: item.VariantName,
				UnitPrice:   item.UnitPrice,
				Quantity:    item.Quantity,
				LineTotal:   item.LineTotal,
			})
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}

		payment = s.newPayment(order)
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		if err := s.cartRepo.Clear(ctx, owner); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		return s.outboxRepo.Insert(ctx, domain.TopicOrderCreated, order.ID.String(), newOrderEvent(order, s.settings.Clock()))
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			log.Warn("Order rejected", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Error("Failed to persist order", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	s.metrics.IncOrdersPlaced()
	log = log.With(slog.String("order_id", order.ID.String()), slog.String("payment_id", payment.ID.String()))
	log.Info("Order created", slog.String("total", order.Total.StringFixed(2)), slog.Int("items", len(order.Items)))

	return s.startPayment(ctx, log, order, payment)
}

// startPayment создаёт платёж в шлюзе с ключом идемпотентности записи платежа
// и переводит заказ в WAITING_PAYMENT.
func (s *OrderService) startPayment(ctx context.Context, log *slog.Logger, order *domain.Order, payment *domain.Payment) (*domain.OrderPlacement, error) {
	const op = "OrderService.startPayment"

	gp, err := s.gateway.CreatePayment(ctx, domain.CreateGatewayPayment{
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Description:    "Заказ " + order.ID.String()[:8],
		ReturnURL:      s.settings.ReturnURL,
		IdempotenceKey: payment.IdempotenceKey.String(),
		Metadata: map[string]string{
			"order_id":   order.ID.String(),
			"payment_id": payment.ID.String(),
		},
	})
	if err != nil {
		s.metrics.IncGatewayErrors("create")
		log.Error("Gateway rejected payment", slog.String("error", err.Error()))

		reason := "gateway_error"
		if mvErr := movePayment(payment, domain.PaymentCanceled); mvErr != nil {
			log.Error("Payment cannot be canceled after gateway error", slog.String("error", mvErr.Error()))
			return nil, fmt.Errorf("%s: %w", op, mvErr)
		}
		payment.CancellationReason = &reason
		if updErr := s.paymentRepo.UpdateStatus(ctx, payment); updErr != nil {
			log.Error("Failed to cancel payment after gateway error", slog.String("error", updErr.Error()))
			return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
		}
		s.metrics.IncPaymentsFinished(domain.PaymentCanceled)

		return &domain.OrderPlacement{Order: *order, Payment: *payment, PaymentError: gatewayUnavailableMessage}, nil
	}

	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.AttachGateway(ctx, payment.ID, gp.ID, gp.ConfirmationURL); err != nil {
			return err
		}
		locked, err := s.orderRepo.GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if locked.Status != domain.OrderCreated {
			order.Status = locked.Status
			return nil
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, domain.OrderWaitingPayment); err != nil {
			return err
		}
		order.Status = domain.OrderWaitingPayment
		return nil
	})
	if err != nil {
		log.Error("Failed to attach gateway payment", slog.String("external_id", gp.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	s.metrics.IncPaymentsCreated()
	payment.ExternalID = &gp.ID
	payment.ConfirmationURL = &gp.ConfirmationURL
	log.Info("Payment created in gateway", slog.String("external_id", gp.ID))

	return &domain.OrderPlacement{Order: *order, Payment: *payment, ConfirmationURL: gp.ConfirmationURL}, nil
}

// ownedOrder возвращает заказ с позициями. Чужой заказ неотличим от несуществующего.
func (s *OrderService) ownedOrder(ctx context.Context, op string, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrDatabaseError, err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrOrderNotFound)
	}
	return order, nil
}

func (s *OrderService) latestPayment(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetLatestByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return payment, err
}

// RetryPayment возвращает действующую ссылку на оплату или создаёт новый платёж для заказа CREATED.
func (s *OrderService) RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderPlacement, error) {
	const op = "OrderService.RetryPayment"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("user_id", userID.String()), slog.String("order_id", orderID.String()))

	order, err := s.ownedOrder(ctx, op, userID, orderID)
	if err != nil {
		log.Warn("Order is not available", slog.String("error", err.Error()))
		return nil, err
	}

	latest, err := s.latestPayment(ctx, order.ID)
	if err != nil {
		log.Error("Failed to load latest payment", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	if latest != nil && latest.Status == domain.PaymentPending && latest.ConfirmationURL != nil {
		log.Info("Returning active payment", slog.String("payment_id", latest.ID.String()))
		return &domain.OrderPlacement{Order: *order, Payment: *latest, ConfirmationURL: *latest.ConfirmationURL}, nil
	}
	if order.Status != domain.OrderCreated {
		log.Warn("Order cannot be paid", slog.String("status", string(order.Status)))
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, domain.ErrOrderNotPayable)
	}
	if latest != nil && latest.Status == domain.PaymentWaitingCapture {
		log.Warn("Payment is already authorized", slog.String("payment_id", latest.ID.String()))
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, domain.ErrOrderNotPayable)
	}

	payment := latest
	if payment == nil || payment.Status != domain.PaymentPending {
		// Ожидающий платёж без ссылки повторно отправляется с тем же ключом идемпотентности.
		payment = s.newPayment(order)
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, fmt.Errorf("%s: %w: payment is already in progress", op, domain.ErrConflict)
			}
			log.Error("Failed to create payment", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
		}
	}

	log = log.With(slog.String("payment_id", payment.ID.String()))
	return s.startPayment(ctx, log, order, payment)
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page domain.Page) ([]domain.Order, domain.PaginationMeta, error) {
	const op = "OrderService.ListOrders"
	page = NormalizePage(page, DefaultOrdersPerPage)
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("user_id", userID.String()))

	orders, total, err := s.orderRepo.List(ctx, domain.OrderFilter{UserID: &userID}, page)
	if err != nil {
		log.Error("Failed to list orders", slog.String("error", err.Error()))
		return nil, domain.PaginationMeta{}, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, domain.NewPaginationMeta(page, total), nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderDetails, error) {
	const op = "OrderService.GetOrder"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("user_id", userID.String()), slog.String("order_id", orderID.String()))

	order, err := s.ownedOrder(ctx, op, userID, orderID)
	if err != nil {
		log.Warn("Order is not available", slog.String("error", err.Error()))
		return nil, err
	}

	payment, err := s.latestPayment(ctx, order.ID)
	if err != nil {
		log.Error("Failed to load latest payment", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	return &domain.OrderDetails{Order: *order, Payment: payment}, nil
}

var _ domain.OrderService = (*OrderService)(nil)
