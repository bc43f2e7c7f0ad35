package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Order (Заказ) ---

// OrderStatus представляет статус заказа.
type OrderStatus string

// Константы для статусов заказа.
const (
	OrderCreated        OrderStatus = "CREATED"         // Заказ сохранён, платёж ещё не создан в шлюзе
	OrderWaitingPayment OrderStatus = "WAITING_PAYMENT" // Покупатель перенаправлен на оплату
	OrderPaid           OrderStatus = "PAID"
	OrderPreparing      OrderStatus = "PREPARING"
	OrderDelivering     OrderStatus = "DELIVERING"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCanceled       OrderStatus = "CANCELED"
)

// IsValid проверяет, является ли строка допустимым статусом заказа.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderCreated, OrderWaitingPayment, OrderPaid, OrderPreparing,
		OrderDelivering, OrderDelivered, OrderCanceled:
		return true
	default:
		return false
	}
}

// adminTransitions - переходы, которые может выполнить администратор вручную.
// Переходы в WAITING_PAYMENT и PAID выполняет только платёжный процесс.
var adminTransitions = map[OrderStatus][]OrderStatus{
	OrderCreated:        {OrderCanceled},
	OrderWaitingPayment: {OrderCanceled},
	OrderPaid:           {OrderPreparing, OrderCanceled},
	OrderPreparing:      {OrderDelivering, OrderCanceled},
	OrderDelivering:     {OrderDelivered},
}

// CanAdminMoveTo сообщает, допустим ли ручной переход из текущего статуса в next.
func (s OrderStatus) CanAdminMoveTo(next OrderStatus) bool {
	for _, allowed := range adminTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AwaitsPayment - заказ ещё может быть оплачен.
func (s OrderStatus) AwaitsPayment() bool {
	return s == OrderCreated || s == OrderWaitingPayment
}

// ActiveKitchenStatuses - статусы заказов, которые показываются на кухне.
var ActiveKitchenStatuses = []OrderStatus{OrderPaid, OrderPreparing, OrderDelivering}

// Order представляет заказ покупателя.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	AddressID   uuid.UUID       `json:"addressId"`
	AddressLine string          `json:"addressLine"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Comment     string          `json:"comment,omitempty"`
	DeliveryAt  *time.Time      `json:"deliveryAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderItem     `json:"items,omitempty"`
}

// OrderItem - снимок позиции корзины на момент оформления. После создания не меняется.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	VariantID   int64           `json:"variantId"`
	ProductName string          `json:"productName"`
	VariantName string          `json:"variantName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderFilter - фильтр списка заказов в админке.
type OrderFilter struct {
	UserID *uuid.UUID
	Status *OrderStatus
}

// OrderDetails - заказ вместе с последним платежом и контактами покупателя.
type OrderDetails struct {
	Order    Order    `json:"order"`
	Payment  *Payment `json:"payment,omitempty"`
	Customer *User    `json:"customer,omitempty"`
}

// PlaceOrderInput - данные формы оформления заказа.
type PlaceOrderInput struct {
	AddressID  uuid.UUID
	DeliveryAt *time.Time
	Comment    string
}

// OrderPlacement - результат оформления заказа или повторной попытки оплаты.
// ConfirmationURL пуст, если шлюз не принял платёж; причина в PaymentError.
type OrderPlacement struct {
	Order           Order   `json:"order"`
	Payment         Payment `json:"payment"`
	ConfirmationURL string  `json:"confirmationUrl,omitempty"`
	PaymentError    string  `json:"paymentError,omitempty"`
}

// --- Payment (Платёж) ---

// PaymentStatus представляет статус платежа.
type PaymentStatus string

// Константы для статусов платежа. Совпадают по смыслу со статусами ЮKassa.
const (
	PaymentPending        PaymentStatus = "PENDING"
	PaymentWaitingCapture PaymentStatus = "WAITING_CAPTURE"
	PaymentSucceeded      PaymentStatus = "SUCCEEDED"
	PaymentCanceled       PaymentStatus = "CANCELED"
)

// IsTerminal - из этого статуса переходов нет.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentCanceled
}

// CanMoveTo проверяет, что статус платежа движется только вперёд.
func (s PaymentStatus) CanMoveTo(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentWaitingCapture || next == PaymentSucceeded || next == PaymentCanceled
	case PaymentWaitingCapture:
		return next == PaymentSucceeded || next == PaymentCanceled
	default:
		return false
	}
}

// PaymentStatusesMovableTo возвращает статусы, из которых разрешён переход в next.
func PaymentStatusesMovableTo(next PaymentStatus) []PaymentStatus {
	from := make([]PaymentStatus, 0, 2)
	for _, s := range []PaymentStatus{PaymentPending, PaymentWaitingCapture, PaymentSucceeded, PaymentCanceled} {
		if s.CanMoveTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// PaymentProviderYooKassa - единственный подключенный платёжный шлюз.
const PaymentProviderYooKassa = "yookassa"

// Payment - запись о попытке оплаты заказа.
type Payment struct {
	ID                 uuid.UUID       `json:"id"`
	OrderID            uuid.UUID       `json:"orderId"`
	Provider           string          `json:"provider"`
	ExternalID         *string         `json:"externalId,omitempty"`
	IdempotenceKey     uuid.UUID       `json:"-"`
	Status             PaymentStatus   `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	ConfirmationURL    *string         `json:"confirmationUrl,omitempty"`
	CancellationReason *string         `json:"cancellationReason,omitempty"`
	PaidAt             *time.Time      `json:"paidAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// CurrencyRUB - валюта магазина.
const CurrencyRUB = "RUB"

// --- Платёжный шлюз ---

// GatewayPaymentStatus - статус платежа на стороне шлюза.
type GatewayPaymentStatus string

const (
	GatewayPending           GatewayPaymentStatus = "pending"
	GatewayWaitingForCapture GatewayPaymentStatus = "waiting_for_capture"
	GatewaySucceeded         GatewayPaymentStatus = "succeeded"
	GatewayCanceled          GatewayPaymentStatus = "canceled"
)

// CreateGatewayPayment - параметры создания платежа в шлюзе.
type CreateGatewayPayment struct {
	Amount         decimal.Decimal
	Currency       string
	Description    string
	ReturnURL      string
	IdempotenceKey string
	Metadata       map[string]string
}

// GatewayPayment - состояние платежа, которое вернул шлюз.
type GatewayPayment struct {
	ID                 string
	Status             GatewayPaymentStatus
	Amount             decimal.Decimal
	Currency           string
	ConfirmationURL    string
	CancellationReason string
	Metadata           map[string]string
}

// PaymentNotification - разобранное входящее уведомление шлюза.
type PaymentNotification struct {
	Event              string
	PaymentID          string
	Status             GatewayPaymentStatus
	Amount             decimal.Decimal
	Currency           string
	CancellationReason string
}

// --- Outbox ---

// Темы доменных событий.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderPaid          = "order.paid"
	TopicOrderCanceled      = "order.canceled"
	TopicOrderStatusChanged = "order.status_changed"
)

// OrderEvent - полезная нагрузка событий заказа.
type OrderEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OutboxRecord - строка таблицы outbox.
type OutboxRecord struct {
	ID        int64
	EventID   uuid.UUID
	Topic     string
	Key       string
	Payload   []byte
	CreatedAt time.Time
	SentAt    *time.Time
}
