package http_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"pizzeria-service/internal/domain"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(1).(*domain.User)
	return args.String(0), user, args.Error(2)
}

func (m *MockAuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]domain.Category)
	return categories, args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, categorySlug string, page domain.Page) (*domain.ProductList, error) {
	args := m.Called(ctx, categorySlug, page)
	list, _ := args.Get(0).(*domain.ProductList)
	return list, args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	product, _ := args.Get(0).(*domain.Product)
	return product, args.Error(1)
}

func (m *MockCatalogService) ListCities(ctx context.Context) ([]domain.City, error) {
	args := m.Called(ctx)
	cities, _ := args.Get(0).([]domain.City)
	return cities, args.Error(1)
}

type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) List(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	args := m.Called(ctx, userID)
	addresses, _ := args.Get(0).([]domain.Address)
	return addresses, args.Error(1)
}

func (m *MockAddressService) Create(ctx context.Context, userID uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	args := m.Called(ctx, userID, input)
	address, _ := args.Get(0).(*domain.Address)
	return address, args.Error(1)
}

func (m *MockAddressService) Update(ctx context.Context, userID, id uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	args := m.Called(ctx, userID, id, input)
	address, _ := args.Get(0).(*domain.Address)
	return address, args.Error(1)
}

func (m *MockAddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockAddressService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	args := m.Called(ctx, userID, id)
	address, _ := args.Get(0).(*domain.Address)
	return address, args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) Get(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	args := m.Called(ctx, owner)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, owner domain.CartOwner, variantID int64, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, owner, variantID, quantity)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, owner domain.CartOwner, variantID int64, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, owner, variantID, quantity)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, owner domain.CartOwner, variantID int64) (*domain.Cart, error) {
	args := m.Called(ctx, owner, variantID)
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, owner domain.CartOwner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

func (m *MockCartService) MergeGuestCart(ctx context.Context, guestToken, userID uuid.UUID) error {
	args := m.Called(ctx, guestToken, userID)
	return args.Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.CheckoutSummary, error) {
	args := m.Called(ctx, userID)
	summary, _ := args.Get(0).(*domain.CheckoutSummary)
	return summary, args.Error(1)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input domain.PlaceOrderInput) (*domain.OrderPlacement, error) {
	args := m.Called(ctx, userID, input)
	placement, _ := args.Get(0).(*domain.OrderPlacement)
	return placement, args.Error(1)
}

func (m *MockOrderService) RetryPayment(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderPlacement, error) {
	args := m.Called(ctx, userID, orderID)
	placement, _ := args.Get(0).(*domain.OrderPlacement)
	return placement, args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID uuid.UUID, page domain.Page) ([]domain.Order, domain.PaginationMeta, error) {
	args := m.Called(ctx, userID, page)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Get(1).(domain.PaginationMeta), args.Error(2)
}

func (m *MockOrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderDetails, error) {
	args := m.Called(ctx, userID, orderID)
	details, _ := args.Get(0).(*domain.OrderDetails)
	return details, args.Error(1)
}

type MockAdminOrderService struct {
	mock.Mock
}

func (m *MockAdminOrderService) ListOrders(ctx context.Context, filter domain.OrderFilter, page domain.Page) ([]domain.Order, domain.PaginationMeta, error) {
	args := m.Called(ctx, filter, page)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Get(1).(domain.PaginationMeta), args.Error(2)
}

func (m *MockAdminOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.OrderDetails, error) {
	args := m.Called(ctx, orderID)
	details, _ := args.Get(0).(*domain.OrderDetails)
	return details, args.Error(1)
}

func (m *MockAdminOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, orderID, status)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockAdminOrderService) ListActiveOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}
