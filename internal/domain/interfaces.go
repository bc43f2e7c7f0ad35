package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockery --all --output=../../mocks --outpkg=mocks --with-expecter=false --disable-version-string

// --- Интерфейсы Репозиториев ---

// UserRepository определяет методы для работы с пользователями.
type UserRepository interface {
	// Create сохраняет нового пользователя.
	// Возвращает ErrConflict, если пользователь с таким email уже существует.
	Create(ctx context.Context, user *User) error
	// GetByEmail возвращает ErrNotFound, если пользователь не найден.
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByID возвращает ErrNotFound, если пользователь не найден.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// CityRepository - справочник городов доставки.
type CityRepository interface {
	List(ctx context.Context) ([]City, error)
	GetByID(ctx context.Context, id int64) (*City, error)
}

// CatalogRepository определяет методы чтения каталога.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	// GetCategoryBySlug возвращает ErrNotFound для неизвестной категории.
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	// ListActiveProducts возвращает страницу активных товаров категории вместе с вариантами
	// и общее количество активных товаров категории.
	ListActiveProducts(ctx context.Context, categoryID int64, page Page) ([]Product, int, error)
	// GetActiveProductBySlug возвращает ErrNotFound для неизвестного или скрытого товара.
	GetActiveProductBySlug(ctx context.Context, slug string) (*Product, error)
	// GetActiveVariant возвращает ErrNotFound, если вариант не существует или товар скрыт.
	GetActiveVariant(ctx context.Context, variantID int64) (*ProductVariant, error)
}

// AddressRepository определяет методы для работы с адресами доставки.
type AddressRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Address, error)
	// GetByID возвращает ErrNotFound, если адрес не найден. Владельца проверяет сервис.
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)
	Create(ctx context.Context, address *Address) error
	Update(ctx context.Context, address *Address) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	// SetDefault снимает флаг со всех адресов пользователя и ставит его на указанный.
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
	// LatestByUser возвращает самый новый адрес пользователя или ErrNotFound.
	LatestByUser(ctx context.Context, userID uuid.UUID) (*Address, error)
}

// CartRepository определяет методы для работы с корзиной.
type CartRepository interface {
	// Lock сериализует изменения корзины владельца до конца текущей транзакции.
	Lock(ctx context.Context, owner CartOwner) error
	// ListItems возвращает строки корзины с актуальными ценами вариантов.
	ListItems(ctx context.Context, owner CartOwner) ([]CartItem, error)
	// GetQuantity возвращает 0, если варианта нет в корзине.
	GetQuantity(ctx context.Context, owner CartOwner, variantID int64) (int, error)
	// SetQuantity добавляет строку или заменяет количество.
	SetQuantity(ctx context.Context, owner CartOwner, variantID int64, quantity int) error
	Remove(ctx context.Context, owner CartOwner, variantID int64) error
	Clear(ctx context.Context, owner CartOwner) error
}

// OrderRepository определяет методы для работы с заказами.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями.
	Create(ctx context.Context, order *Order) error
	// GetByID возвращает заказ с позициями или ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetForUpdate блокирует строку заказа до конца транзакции. Позиции не загружаются.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	// List возвращает страницу заказов (без позиций), новые первыми, и общее количество.
	List(ctx context.Context, filter OrderFilter, page Page) ([]Order, int, error)
	// ListByStatuses возвращает заказы с позициями, старые первыми.
	ListByStatuses(ctx context.Context, statuses []OrderStatus) ([]Order, error)
	// ListAwaitingPaymentBefore возвращает заказы WAITING_PAYMENT, созданные раньше before,
	// у которых нет платежей новее before.
	ListAwaitingPaymentBefore(ctx context.Context, before time.Time, limit int) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
}

// PaymentRepository определяет методы для работы с платежами.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// GetByExternalIDForUpdate ищет платёж по идентификатору шлюза и блокирует строку.
	GetByExternalIDForUpdate(ctx context.Context, externalID string) (*Payment, error)
	// GetLatestByOrder возвращает последний созданный платёж заказа или ErrNotFound.
	GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (*Payment, error)
	// AttachGateway сохраняет идентификатор платежа в шлюзе и ссылку на оплату.
	AttachGateway(ctx context.Context, id uuid.UUID, externalID, confirmationURL string) error
	// UpdateStatus сохраняет статус, причину отмены и время оплаты. Если в БД платёж уже
	// в статусе, из которого переход запрещён, возвращает ErrConflict и ErrPaymentTransition.
	UpdateStatus(ctx context.Context, payment *Payment) error
}

// OutboxRepository - таблица исходящих доменных событий.
type OutboxRepository interface {
	Insert(ctx context.Context, topic, key string, payload any) error
	FetchPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
}

// TxManager выполняет функцию в транзакции БД. Репозитории, вызванные с переданным
// контекстом, работают внутри этой транзакции.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// --- Внешние системы ---

// PaymentGateway - клиент платёжного шлюза.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req CreateGatewayPayment) (*GatewayPayment, error)
	GetPayment(ctx context.Context, id string) (*GatewayPayment, error)
	CapturePayment(ctx context.Context, id string, amount decimal.Decimal, currency, idempotenceKey string) (*GatewayPayment, error)
	CancelPayment(ctx context.Context, id, idempotenceKey string) (*GatewayPayment, error)
}

// CatalogCache - кеш ответов каталога. Промах не является ошибкой.
type CatalogCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// EventPublisher публикует события из outbox в брокер.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// --- Интерфейсы Сервисов ---

// RegisterInput - данные регистрации.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthService определяет методы регистрации и входа.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	// Login возвращает JWT токен и пользователя.
	Login(ctx context.Context, email, password string) (string, *User, error)
	Me(ctx context.Context, userID uuid.UUID) (*User, error)
}

// CatalogService определяет методы витрины.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListProducts(ctx context.Context, categorySlug string, page Page) (*ProductList, error)
	GetProduct(ctx context.Context, slug string) (*Product, error)
	ListCities(ctx context.Context) ([]City, error)
}

// AddressService определяет методы управления адресами пользователя.
type AddressService interface {
	List(ctx context.Context, userID uuid.UUID) ([]Address, error)
	Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*Address, error)
	Update(ctx context.Context, userID, id uuid.UUID, input AddressInput) (*Address, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) (*Address, error)
}

// CartService определяет методы работы с корзиной.
type CartService interface {
	Get(ctx context.Context, owner CartOwner) (*Cart, error)
	AddItem(ctx context.Context, owner CartOwner, variantID int64, quantity int) (*Cart, error)
	// UpdateItem задаёт количество; 0 удаляет строку.
	UpdateItem(ctx context.Context, owner CartOwner, variantID int64, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, owner CartOwner, variantID int64) (*Cart, error)
	Clear(ctx context.Context, owner CartOwner) error
	// MergeGuestCart переносит гостевую корзину в корзину пользователя.
	MergeGuestCart(ctx context.Context, guestToken, userID uuid.UUID) error
}

// OrderService - оформление и просмотр заказов покупателем.
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*CheckoutSummary, error)
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderPlacement, error)
	RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*OrderPlacement, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page Page) ([]Order, PaginationMeta, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDetails, error)
}

// PaymentService - сверка статусов платежей со шлюзом.
type PaymentService interface {
	// HandleNotification обрабатывает тело уведомления шлюза.
	HandleNotification(ctx context.Context, body []byte) error
	// ReconcileStale сверяет зависшие неоплаченные заказы и возвращает число обработанных.
	ReconcileStale(ctx context.Context) (int, error)
}

// AdminOrderService - управление заказами в админке и на кухне.
type AdminOrderService interface {
	ListOrders(ctx context.Context, filter OrderFilter, page Page) ([]Order, PaginationMeta, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetails, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error)
	ListActiveOrders(ctx context.Context) ([]Order, error)
}

// --- Вспомогательные Интерфейсы ---

// PasswordHasher определяет контракт для хеширования и сравнения паролей.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare сравнивает хеш с паролем. Возвращает nil при совпадении.
	Compare(hashedPassword, password string) error
}

// MetricsCollector определяет контракт для сбора метрик Prometheus.
type MetricsCollector interface {
	IncRequestsTotal(method, path, statusCode string)
	ObserveRequestDuration(method, path string, duration float64)
	IncOrdersPlaced()
	IncPaymentsCreated()
	IncPaymentsFinished(status PaymentStatus)
	IncGatewayErrors(operation string)
	IncWebhookNotifications(event string)
}
