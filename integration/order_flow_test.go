package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
)

const cartTokenHeader = "X-Cart-Token"

func TestOrderFullFlow(t *testing.T) {
	clearTestDatabase(dbPool)
	require.NotNil(t, testServer, "Test server should be running")
	client := testServer.Client()

	// Гость кладёт пиццу в корзину и получает токен корзины
	variantID := findVariantID(t, client, "margherita", "30 см")

	addBody := api.PostCartItemsJSONBody{VariantId: variantID, Quantity: intPtr(2)}
	resp := doRequest(t, client, http.MethodPost, "/api/v1/cart/items", requestAuth{}, addBody, http.StatusOK)
	cartToken := resp.Header.Get(cartTokenHeader)
	require.NotEmpty(t, cartToken, "Guest should receive cart token")

	var guestCart domain.Cart
	decodeBody(t, resp, &guestCart)
	require.Len(t, guestCart.Items, 1)
	assert.True(t, decimal.RequireFromString("1198").Equal(guestCart.Total), "Guest cart total mismatch: %s", guestCart.Total)

	// Регистрация и вход с переносом гостевой корзины
	registerUser(t, client, "Иван", "ivan@pizzeria.test", "secret123")
	userToken := login(t, client, "ivan@pizzeria.test", "secret123", cartToken)

	var userCart domain.Cart
	resp = doRequest(t, client, http.MethodGet, "/api/v1/cart", requestAuth{token: userToken}, nil, http.StatusOK)
	decodeBody(t, resp, &userCart)
	assert.Equal(t, 2, userCart.ItemsCount, "Guest cart should be merged on login")

	// Адрес доставки
	cityID := firstCityID(t, client)
	addressBody := api.AddressJSONBody{CityId: cityID, Street: "Тверская", House: "7", Apartment: strPtr("12")}
	var address domain.Address
	resp = doRequest(t, client, http.MethodPost, "/api/v1/addresses", requestAuth{token: userToken}, addressBody, http.StatusCreated)
	decodeBody(t, resp, &address)
	assert.True(t, address.IsDefault, "First address should become default")

	// Оформление заказа
	var placement domain.OrderPlacement
	resp = doRequest(t, client, http.MethodPost, "/api/v1/orders", requestAuth{token: userToken},
		api.PostOrdersJSONBody{AddressId: address.ID, Comment: strPtr("Позвонить за 10 минут")}, http.StatusCreated)
	decodeBody(t, resp, &placement)
	require.Empty(t, placement.PaymentError)
	require.NotEmpty(t, placement.ConfirmationURL)
	require.NotNil(t, placement.Payment.ExternalID)
	assert.Equal(t, domain.OrderWaitingPayment, placement.Order.Status)
	assert.True(t, decimal.RequireFromString("1198").Equal(placement.Order.Total))
	orderID := placement.Order.ID
	gatewayID := *placement.Payment.ExternalID

	// Корзина очищена после оформления
	resp = doRequest(t, client, http.MethodGet, "/api/v1/cart", requestAuth{token: userToken}, nil, http.StatusOK)
	userCart = domain.Cart{}
	decodeBody(t, resp, &userCart)
	assert.Empty(t, userCart.Items, "Cart should be cleared after order placement")

	// Покупатель оплатил: шлюз держит деньги и присылает уведомление
	fakeGateway.SetStatus(gatewayID, "waiting_for_capture")
	sendWebhook(t, client, "payment.waiting_for_capture", gatewayID, "waiting_for_capture", "1198.00", http.StatusOK)

	var details domain.OrderDetails
	resp = doRequest(t, client, http.MethodGet, "/api/v1/orders/"+orderID.String(), requestAuth{token: userToken}, nil, http.StatusOK)
	decodeBody(t, resp, &details)
	assert.Equal(t, domain.OrderPaid, details.Order.Status, "Order should be paid after capture")
	require.NotNil(t, details.Payment)
	assert.Equal(t, domain.PaymentSucceeded, details.Payment.Status)
	assert.Len(t, details.Order.Items, 1)

	// Повторное уведомление ничего не меняет
	sendWebhook(t, client, "payment.succeeded", gatewayID, "succeeded", "1198.00", http.StatusOK)

	// Админ ведёт заказ по статусам
	registerUser(t, client, "Администратор", adminEmail, "admin12345")
	adminToken := login(t, client, adminEmail, "admin12345", "")

	doRequest(t, client, http.MethodGet, "/api/v1/admin/orders", requestAuth{token: userToken}, nil, http.StatusForbidden)

	var updated domain.Order
	resp = doRequest(t, client, http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status", requestAuth{token: adminToken},
		api.PatchAdminOrderStatusJSONBody{Status: "preparing"}, http.StatusOK)
	decodeBody(t, resp, &updated)
	assert.Equal(t, domain.OrderPreparing, updated.Status)

	doRequest(t, client, http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status", requestAuth{token: adminToken},
		api.PatchAdminOrderStatusJSONBody{Status: "DELIVERED"}, http.StatusConflict)

	var active struct {
		Data []domain.Order `json:"data"`
	}
	resp = doRequest(t, client, http.MethodGet, "/api/v1/admin/orders/active", requestAuth{token: adminToken}, nil, http.StatusOK)
	decodeBody(t, resp, &active)
	require.Len(t, active.Data, 1)
	assert.Equal(t, orderID, active.Data[0].ID)

	var outboxCount int
	err := dbPool.QueryRow(context.Background(), "SELECT count(*) FROM outbox WHERE key = $1", orderID.String()).Scan(&outboxCount)
	require.NoError(t, err)
	assert.Equal(t, 3, outboxCount, "Expected order.created, order.paid and order.status_changed events")
}

func TestOrderFlowWithGatewayError(t *testing.T) {
	clearTestDatabase(dbPool)
	client := testServer.Client()

	registerUser(t, client, "Мария", "maria@pizzeria.test", "secret123")
	userToken := login(t, client, "maria@pizzeria.test", "secret123", "")

	// Сумма меньше минимальной
	cheapVariant := findVariantID(t, client, "cranberry-mors", "0,5 л")
	doRequest(t, client, http.MethodPost, "/api/v1/cart/items", requestAuth{token: userToken},
		api.PostCartItemsJSONBody{VariantId: cheapVariant}, http.StatusOK)

	var address domain.Address
	resp := doRequest(t, client, http.MethodPost, "/api/v1/addresses", requestAuth{token: userToken},
		api.AddressJSONBody{CityId: firstCityID(t, client), Street: "Невский проспект", House: "28"}, http.StatusCreated)
	decodeBody(t, resp, &address)

	resp = doRequest(t, client, http.MethodPost, "/api/v1/orders", requestAuth{token: userToken},
		api.PostOrdersJSONBody{AddressId: address.ID}, http.StatusBadRequest)
	assertErrorMessage(t, resp)

	// Добираем до минимальной суммы, но шлюз отказывает
	pizzaVariant := findVariantID(t, client, "pepperoni", "35 см")
	doRequest(t, client, http.MethodPost, "/api/v1/cart/items", requestAuth{token: userToken},
		api.PostCartItemsJSONBody{VariantId: pizzaVariant}, http.StatusOK)

	fakeGateway.FailNextCreate()
	var placement domain.OrderPlacement
	resp = doRequest(t, client, http.MethodPost, "/api/v1/orders", requestAuth{token: userToken},
		api.PostOrdersJSONBody{AddressId: address.ID}, http.StatusCreated)
	decodeBody(t, resp, &placement)
	assert.NotEmpty(t, placement.PaymentError)
	assert.Empty(t, placement.ConfirmationURL)
	assert.Equal(t, domain.OrderCreated, placement.Order.Status)
	assert.Equal(t, domain.PaymentCanceled, placement.Payment.Status)

	// Повторная попытка оплаты создаёт новый платёж
	var retry domain.OrderPlacement
	resp = doRequest(t, client, http.MethodPost, "/api/v1/orders/"+placement.Order.ID.String()+"/pay", requestAuth{token: userToken}, nil, http.StatusOK)
	decodeBody(t, resp, &retry)
	assert.NotEmpty(t, retry.ConfirmationURL)
	assert.NotEqual(t, placement.Payment.ID, retry.Payment.ID)
	assert.Equal(t, domain.OrderWaitingPayment, retry.Order.Status)

	// Покупатель отказался от оплаты
	require.NotNil(t, retry.Payment.ExternalID)
	fakeGateway.SetStatus(*retry.Payment.ExternalID, "canceled")
	sendWebhook(t, client, "payment.canceled", *retry.Payment.ExternalID, "canceled", "948.00", http.StatusOK)

	var details domain.OrderDetails
	resp = doRequest(t, client, http.MethodGet, "/api/v1/orders/"+placement.Order.ID.String(), requestAuth{token: userToken}, nil, http.StatusOK)
	decodeBody(t, resp, &details)
	assert.Equal(t, domain.OrderCanceled, details.Order.Status)

	// Чужой заказ не виден
	registerUser(t, client, "Пётр", "petr@pizzeria.test", "secret123")
	otherToken := login(t, client, "petr@pizzeria.test", "secret123", "")
	doRequest(t, client, http.MethodGet, "/api/v1/orders/"+placement.Order.ID.String(), requestAuth{token: otherToken}, nil, http.StatusNotFound)
}

type requestAuth struct {
	token     string
	cartToken string
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func findVariantID(t *testing.T, client *http.Client, productSlug, variantName string) int64 {
	t.Helper()

	var product domain.Product
	resp := doRequest(t, client, http.MethodGet, "/api/v1/products/"+productSlug, requestAuth{}, nil, http.StatusOK)
	decodeBody(t, resp, &product)
	for _, v := range product.Variants {
		if v.Name == variantName {
			return v.ID
		}
	}
	t.Fatalf("variant %q of product %q not found", variantName, productSlug)
	return 0
}

func firstCityID(t *testing.T, client *http.Client) int64 {
	t.Helper()

	var cities struct {
		Data []domain.City `json:"data"`
	}
	resp := doRequest(t, client, http.MethodGet, "/api/v1/cities", requestAuth{}, nil, http.StatusOK)
	decodeBody(t, resp, &cities)
	require.NotEmpty(t, cities.Data, "Seed migration should create cities")
	return cities.Data[0].ID
}

func registerUser(t *testing.T, client *http.Client, name, email, password string) {
	t.Helper()

	body := api.PostRegisterJSONBody{Name: name, Email: openapi_types.Email(email), Password: password}
	doRequest(t, client, http.MethodPost, "/api/v1/auth/register", requestAuth{}, body, http.StatusCreated)
}

func login(t *testing.T, client *http.Client, email, password, cartToken string) string {
	t.Helper()

	var token api.Token
	resp := doRequest(t, client, http.MethodPost, "/api/v1/auth/login", requestAuth{cartToken: cartToken},
		api.PostLoginJSONBody{Email: openapi_types.Email(email), Password: password}, http.StatusOK)
	decodeBody(t, resp, &token)
	require.NotEmpty(t, token.Token, "Token should not be empty for %s", email)
	assert.Equal(t, "Bearer", token.TokenType)
	return token.Token
}

func sendWebhook(t *testing.T, client *http.Client, event, paymentID, status, value string, expectedStatus int) {
	t.Helper()

	body := fmt.Sprintf(`{"type":"notification","event":%q,"object":{"id":%q,"status":%q,"paid":true,"amount":{"value":%q,"currency":"RUB"}}}`,
		event, paymentID, status, value)
	doRawRequest(t, client, http.MethodPost, "/api/v1/payments/yookassa/webhook", requestAuth{}, []byte(body), expectedStatus)
}

func doRequest(t *testing.T, client *http.Client, method, path string, auth requestAuth, body interface{}, expectedStatus int) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoErrorf(t, err, "Failed to marshal request body for %s %s", method, path)
	}
	return doRawRequest(t, client, method, path, auth, payload, expectedStatus)
}

func doRawRequest(t *testing.T, client *http.Client, method, path string, auth requestAuth, payload []byte, expectedStatus int) *http.Response {
	t.Helper()

	var reqBodyReader io.Reader
	if payload != nil {
		reqBodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, testServer.URL+path, reqBodyReader)
	require.NoErrorf(t, err, "Failed to create request for %s %s", method, path)
	req.Header.Set("Content-Type", "application/json")
	if auth.token != "" {
		req.Header.Set("Authorization", "Bearer "+auth.token)
	}
	if auth.cartToken != "" {
		req.Header.Set(cartTokenHeader, auth.cartToken)
	}

	resp, err := client.Do(req)
	require.NoErrorf(t, err, "Failed to execute request for %s %s", method, path)
	bodyBytes := readBody(t, resp)
	require.Equalf(t, expectedStatus, resp.StatusCode, "Unexpected status code for %s %s. Response body: %s", method, path, string(bodyBytes))
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	body := readBody(t, resp)
	require.NoErrorf(t, json.Unmarshal(body, dst), "Failed to unmarshal response body: %s", string(body))
}

func assertErrorMessage(t *testing.T, resp *http.Response) {
	t.Helper()
	var errorResp api.Error
	decodeBody(t, resp, &errorResp)
	assert.NotEmpty(t, errorResp.Message, "Error response should contain 'message'")
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoErrorf(t, err, "Failed to read response body")
	return body
}
