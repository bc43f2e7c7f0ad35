package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pizzeria-service/internal/domain"
)

func createTestUser(ctx context.Context, t *testing.T) domain.User {
	t.Helper()
	user := domain.User{
		ID:           uuid.New(),
		Name:         "Тестовый покупатель",
		Email:        fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		Phone:        "+79990001122",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
	}
	require.NoError(t, testUserRepo.Create(ctx, &user), "Failed to create test user")
	return user
}

func firstCityID(ctx context.Context, t *testing.T) int64 {
	t.Helper()
	cities, err := testCityRepo.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cities, "seed migration must provide cities")
	return cities[0].ID
}

func createTestAddress(ctx context.Context, t *testing.T, userID uuid.UUID, isDefault bool) domain.Address {
	t.Helper()
	address := domain.Address{
		ID:        uuid.New(),
		UserID:    userID,
		CityID:    firstCityID(ctx, t),
		Street:    "ул. Ленина",
		House:     "1",
		Apartment: "10",
		IsDefault: isDefault,
	}
	require.NoError(t, testAddressRepo.Create(ctx, &address), "Failed to create test address")
	return address
}

// testProduct создает категорию, товар и вариант с уникальными slug.
type testProduct struct {
	CategoryID int64
	ProductID  int64
	VariantID  int64
	Slug       string
}

func createTestProduct(ctx context.Context, t *testing.T, active bool, priceKopecks int64) testProduct {
	t.Helper()
	suffix := uuid.NewString()[:8]

	var p testProduct
	p.Slug = "test-product-" + suffix

	err := dbPool.QueryRow(ctx,
		"INSERT INTO categories (name, slug, sort_order) VALUES ($1, $2, 100) RETURNING id",
		"Тестовая категория "+suffix, "test-category-"+suffix).Scan(&p.CategoryID)
	require.NoError(t, err)

	err = dbPool.QueryRow(ctx,
		"INSERT INTO products (category_id, name, slug, is_active) VALUES ($1, $2, $3, $4) RETURNING id",
		p.CategoryID, "Тестовая пицца "+suffix, p.Slug, active).Scan(&p.ProductID)
	require.NoError(t, err)

	err = dbPool.QueryRow(ctx,
		"INSERT INTO product_variants (product_id, name, price_kopecks, weight_grams) VALUES ($1, '30 см', $2, 500) RETURNING id",
		p.ProductID, priceKopecks).Scan(&p.VariantID)
	require.NoError(t, err)

	return p
}

func createTestOrder(ctx context.Context, t *testing.T, userID, addressID uuid.UUID, status domain.OrderStatus, variantID int64) domain.Order {
	t.Helper()
	unitPrice := decimal.RequireFromString("549.00")
	order := domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		AddressID:   addressID,
		AddressLine: "Москва, ул. Ленина, д. 1",
		Status:      status,
		Total:       unitPrice.Mul(decimal.NewFromInt(2)),
		Items: []domain.OrderItem{{
			VariantID:   variantID,
			ProductName: "Пепперони",
			VariantName: "30 см",
			UnitPrice:   unitPrice,
			Quantity:    2,
			LineTotal:   unitPrice.Mul(decimal.NewFromInt(2)),
		}},
	}
	require.NoError(t, testOrderRepo.Create(ctx, &order), "Failed to create test order")
	return order
}

func createTestPayment(ctx context.Context, t *testing.T, order domain.Order, status domain.PaymentStatus, externalID *string) domain.Payment {
	t.Helper()
	payment := domain.Payment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		Provider:       domain.PaymentProviderYooKassa,
		ExternalID:     externalID,
		IdempotenceKey: uuid.New(),
		Status:         status,
		Amount:         order.Total,
		Currency:       domain.CurrencyRUB,
	}
	require.NoError(t, testPaymentRepo.Create(ctx, &payment), "Failed to create test payment")
	return payment
}
