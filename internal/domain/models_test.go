package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"pizzeria-service/internal/domain"
)

func TestNewCart_Totals(t *testing.T) {
	cart := domain.NewCart([]domain.CartItem{
		{VariantID: 1, UnitPrice: decimal.RequireFromString("549.00"), Quantity: 2},
		{VariantID: 2, UnitPrice: decimal.RequireFromString("129.50"), Quantity: 1},
	})

	assert.True(t, decimal.RequireFromString("1227.50").Equal(cart.Total))
	assert.Equal(t, 3, cart.ItemsCount)
	assert.True(t, decimal.RequireFromString("1098").Equal(cart.Items[0].LineTotal))
	assert.False(t, cart.IsEmpty())
	assert.True(t, domain.NewCart(nil).IsEmpty())
}

func TestNewPaginationMeta(t *testing.T) {
	testCases := []struct {
		name     string
		page     domain.Page
		total    int
		lastPage int
	}{
		{name: "Empty", page: domain.Page{Number: 1, PerSize: 12}, total: 0, lastPage: 1},
		{name: "Exact", page: domain.Page{Number: 2, PerSize: 10}, total: 20, lastPage: 2},
		{name: "Remainder", page: domain.Page{Number: 1, PerSize: 10}, total: 21, lastPage: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			meta := domain.NewPaginationMeta(tc.page, tc.total)
			assert.Equal(t, tc.lastPage, meta.LastPage)
			assert.Equal(t, tc.page.Number, meta.CurrentPage)
			assert.Equal(t, tc.page.PerSize, meta.PerPage)
			assert.Equal(t, tc.total, meta.Total)
		})
	}
}

func TestOrderStatus_CanAdminMoveTo(t *testing.T) {
	assert.True(t, domain.OrderPaid.CanAdminMoveTo(domain.OrderPreparing))
	assert.True(t, domain.OrderPreparing.CanAdminMoveTo(domain.OrderDelivering))
	assert.True(t, domain.OrderDelivering.CanAdminMoveTo(domain.OrderDelivered))
	assert.True(t, domain.OrderWaitingPayment.CanAdminMoveTo(domain.OrderCanceled))

	assert.False(t, domain.OrderCreated.CanAdminMoveTo(domain.OrderPaid))
	assert.False(t, domain.OrderDelivering.CanAdminMoveTo(domain.OrderCanceled))
	assert.False(t, domain.OrderDelivered.CanAdminMoveTo(domain.OrderCanceled))
	assert.False(t, domain.OrderCanceled.CanAdminMoveTo(domain.OrderPreparing))
}

func TestPaymentStatus_CanMoveTo(t *testing.T) {
	assert.True(t, domain.PaymentPending.CanMoveTo(domain.PaymentWaitingCapture))
	assert.True(t, domain.PaymentPending.CanMoveTo(domain.PaymentSucceeded))
	assert.True(t, domain.PaymentWaitingCapture.CanMoveTo(domain.PaymentSucceeded))
	assert.True(t, domain.PaymentWaitingCapture.CanMoveTo(domain.PaymentCanceled))

	assert.False(t, domain.PaymentWaitingCapture.CanMoveTo(domain.PaymentPending))
	assert.False(t, domain.PaymentSucceeded.CanMoveTo(domain.PaymentCanceled))
	assert.False(t, domain.PaymentCanceled.CanMoveTo(domain.PaymentSucceeded))
	assert.True(t, domain.PaymentCanceled.IsTerminal())

	assert.ElementsMatch(t, []domain.PaymentStatus{domain.PaymentPending, domain.PaymentWaitingCapture},
		domain.PaymentStatusesMovableTo(domain.PaymentCanceled))
	assert.Equal(t, []domain.PaymentStatus{domain.PaymentPending}, domain.PaymentStatusesMovableTo(domain.PaymentWaitingCapture))
	assert.Empty(t, domain.PaymentStatusesMovableTo(domain.PaymentPending))
}

func TestAddress_Line(t *testing.T) {
	a := domain.Address{CityName: "Москва", Street: "ул. Тверская", House: "7", Apartment: "12"}
	assert.Equal(t, "Москва, ул. Тверская, д. 7, кв. 12", a.Line())

	a.Apartment = ""
	assert.Equal(t, "Москва, ул. Тверская, д. 7", a.Line())
}
