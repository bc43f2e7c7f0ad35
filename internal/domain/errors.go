package domain

import "errors"

var (
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("entity not found")
	ErrConflict       = errors.New("resource conflict")
	ErrDatabaseError  = errors.New("database operation failed")
	ErrInvalidRequest = errors.New("invalid request")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access forbidden")

	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrVariantNotFound  = errors.New("product variant is not available")
	ErrCityNotFound     = errors.New("delivery city not found")
	ErrAddressNotFound  = errors.New("address not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")

	ErrCartEmpty             = errors.New("cart is empty")
	ErrCartOwnerMissing      = errors.New("cart owner is not identified")
	ErrInvalidQuantity       = errors.New("quantity is out of allowed range")
	ErrOrderBelowMinimum     = errors.New("order total is below the minimum order amount")
	ErrInvalidDeliveryAt     = errors.New("delivery time is too early")
	ErrUnavailableInCart     = errors.New("cart contains unavailable products")
	ErrOrderNotPayable       = errors.New("order cannot be paid in its current status")
	ErrOrderStatusTransition = errors.New("order status transition is not allowed")
	ErrPaymentTransition     = errors.New("payment status transition is not allowed")
	ErrPaymentGateway        = errors.New("payment gateway error")
	ErrPaymentMismatch       = errors.New("payment amount does not match")
	ErrMalformedWebhook      = errors.New("malformed payment notification")
	ErrWebhookIPForbidden    = errors.New("notification source address is not allowed")
)
