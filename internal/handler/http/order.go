package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

// OrderHandler - оформление и история заказов покупателя.
type OrderHandler struct {
	BaseHandler
	orderService domain.OrderService
}

func NewOrderHandler(log *slog.Logger, orderService domain.OrderService) *OrderHandler {
	return &OrderHandler{
		BaseHandler:  *NewBaseHandler(log),
		orderService: orderService,
	}
}

func (h *OrderHandler) GetCheckout(c *gin.Context) {
	const op = "OrderHandler.GetCheckout"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	summary, err := h.orderService.Checkout(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, summary)
}

// PostOrder оформляет заказ. Отказ шлюза не ошибка запроса: заказ создан, причина
// в paymentError, оплату можно повторить через /orders/:id/pay.
func (h *OrderHandler) PostOrder(c *gin.Context) {
	const op = "OrderHandler.PostOrder"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	var reqBody api.PostOrdersJSONBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}

	input := domain.PlaceOrderInput{
		AddressID: reqBody.AddressId,
		Comment:   derefString(reqBody.Comment),
	}
	if reqBody.DeliveryAt != nil {
		deliveryAt := reqBody.DeliveryAt.UTC().Truncate(time.Second)
		input.DeliveryAt = &deliveryAt
	}

	placement, err := h.orderService.PlaceOrder(c.Request.Context(), userID, input)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	log = log.With(slog.String("order_id", placement.Order.ID.String()))
	if placement.PaymentError != "" {
		log.Warn("Order placed without payment", slog.String("payment_error", placement.PaymentError))
	} else {
		log.Info("Order placed")
	}
	response.SendSuccess(c, http.StatusCreated, placement)
}

func (h *OrderHandler) PostRetryPayment(c *gin.Context) {
	const op = "OrderHandler.PostRetryPayment"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	orderID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	placement, err := h.orderService.RetryPayment(c.Request.Context(), userID, orderID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, placement)
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	const op = "OrderHandler.GetOrders"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	page, err := h.parsePage(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	orders, meta, err := h.orderService.ListOrders(c.Request.Context(), userID, page)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, ListResponse[domain.Order]{Data: orders, Meta: meta})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	const op = "OrderHandler.GetOrder"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	orderID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	details, err := h.orderService.GetOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, details)
}
