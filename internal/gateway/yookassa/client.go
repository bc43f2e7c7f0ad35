package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pizzeria-service/internal/domain"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// APIError - ответ ЮKassa с type=error.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Parameter   string `json:"parameter,omitempty"`
}

func (e *APIError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("yookassa %d %s: %s (parameter %s)", e.StatusCode, e.Code, e.Description, e.Parameter)
	}
	return fmt.Sprintf("yookassa %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Unwrap позволяет проверять ошибки клиента через errors.Is(err, domain.ErrPaymentGateway).
func (e *APIError) Unwrap() error {
	return domain.ErrPaymentGateway
}

// Client - HTTP клиент API ЮKassa v3 (Basic auth shopId:secretKey).
type Client struct {
	shopID    string
	secretKey string
	baseURL   string
	client    *http.Client
	log       *slog.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

func NewClient(shopID, secretKey, baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		shopID:    shopID,
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		log:       log,
		wait:      waitBackoff,
	}
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type createRequest struct {
	Amount       amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation confirmation      `json:"confirmation"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type captureRequest struct {
	Amount amount `json:"amount"`
}

type paymentResponse struct {
	ID                  string            `json:"id"`
	Status              string            `json:"status"`
	Amount              amount            `json:"amount"`
	Confirmation        *confirmation     `json:"confirmation,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CancellationDetails *struct {
		Party  string `json:"party"`
		Reason string `json:"reason"`
	} `json:"cancellation_details,omitempty"`
}

func toAmount(value decimal.Decimal, currency string) amount {
	return amount{Value: value.StringFixed(2), Currency: currency}
}

// CreatePayment создает двухстадийный платёж (capture=false) с редиректом на страницу оплаты.
func (c *Client) CreatePayment(ctx context.Context, req domain.CreateGatewayPayment) (*domain.GatewayPayment, error) {
	body := createRequest{
		Amount:  toAmount(req.Amount, req.Currency),
		Capture: false,
		Confirmation: confirmation{
			Type:      "redirect",
			ReturnURL: req.ReturnURL,
		},
		Description: truncate(req.Description, 128),
		Metadata:    req.Metadata,
	}
	return c.do(ctx, "CreatePayment", http.MethodPost, "/v3/payments", req.IdempotenceKey, body)
}

func (c *Client) GetPayment(ctx context.Context, id string) (*domain.GatewayPayment, error) {
	return c.do(ctx, "GetPayment", http.MethodGet, "/v3/payments/"+url.PathEscape(id), "", nil)
}

func (c *Client) CapturePayment(ctx context.Context, id string, value decimal.Decimal, currency, idempotenceKey string) (*domain.GatewayPayment, error) {
	body := captureRequest{Amount: toAmount(value, currency)}
	return c.do(ctx, "CapturePayment", http.MethodPost, "/v3/payments/"+url.PathEscape(id)+"/capture", idempotenceKey, body)
}

func (c *Client) CancelPayment(ctx context.Context, id, idempotenceKey string) (*domain.GatewayPayment, error) {
	return c.do(ctx, "CancelPayment", http.MethodPost, "/v3/payments/"+url.PathEscape(id)+"/cancel", idempotenceKey, struct{}{})
}

// do выполняет запрос. Сетевые ошибки, 5xx и 202 повторяются с тем же Idempotence-Key.
func (c *Client) do(ctx context.Context, op, method, path, idempotenceKey string, body any) (*domain.GatewayPayment, error) {
	const opPrefix = "yookassa.Client."
	log := c.log.With(slog.String("op", opPrefix+op), slog.String("path", path))

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s%s: marshal request: %w", opPrefix, op, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, retryBackoff*time.Duration(attempt-1)); err != nil {
				return nil, fmt.Errorf("%s%s: %w: %w", opPrefix, op, err, lastErr)
			}
		}

		resp, retry, err := c.send(ctx, method, path, idempotenceKey, payload)
		if err == nil {
			log.Debug("Gateway request succeeded", slog.Int("attempt", attempt), slog.String("status", string(resp.Status)))
			return resp, nil
		}

		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		log.Warn("Gateway request failed, retrying", slog.Int("attempt", attempt), slog.String("error", err.Error()))
	}

	return nil, fmt.Errorf("%s%s: %w", opPrefix, op, lastErr)
}

// waitBackoff ждёт d или отмены ctx.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path, idempotenceKey string, payload []byte) (*domain.GatewayPayment, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("%w: build request: %v", domain.ErrPaymentGateway, err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotenceKey != "" {
		req.Header.Set("Idempotence-Key", idempotenceKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read response: %v", domain.ErrPaymentGateway, err)
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		// Запрос ещё обрабатывается, ЮKassa просит повторить его позже.
		return nil, true, fmt.Errorf("%w: request is being processed", domain.ErrPaymentGateway)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, parseAPIError(resp.StatusCode, data)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, false, parseAPIError(resp.StatusCode, data)
	}

	var pr paymentResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, false, fmt.Errorf("%w: decode response: %v", domain.ErrPaymentGateway, err)
	}
	return toGatewayPayment(pr)
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unexpected_response"
		apiErr.Description = http.StatusText(status)
	}
	return apiErr
}

func toGatewayPayment(pr paymentResponse) (*domain.GatewayPayment, bool, error) {
	value, err := decimal.NewFromString(pr.Amount.Value)
	if err != nil {
		return nil, false, fmt.Errorf("%w: bad amount %q", domain.ErrPaymentGateway, pr.Amount.Value)
	}

	gp := &domain.GatewayPayment{
		ID:       pr.ID,
		Status:   domain.GatewayPaymentStatus(pr.Status),
		Amount:   value,
		Currency: pr.Amount.Currency,
		Metadata: pr.Metadata,
	}
	if pr.Confirmation != nil {
		gp.ConfirmationURL = pr.Confirmation.ConfirmationURL
	}
	if pr.CancellationDetails != nil {
		gp.CancellationReason = pr.CancellationDetails.Reason
	}
	if gp.ID == "" {
		return nil, false, errors.Join(domain.ErrPaymentGateway, errors.New("empty payment id in response"))
	}
	return gp, false, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

var _ domain.PaymentGateway = (*Client)(nil)
