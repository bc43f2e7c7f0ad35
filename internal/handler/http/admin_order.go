package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

type AdminOrderHandler struct {
	BaseHandler
	adminService domain.AdminOrderService
}

func NewAdminOrderHandler(log *slog.Logger, adminService domain.AdminOrderService) *AdminOrderHandler {
	return &AdminOrderHandler{
		BaseHandler:  *NewBaseHandler(log),
		adminService: adminService,
	}
}

// GetOrders - GET /admin/orders?status=&page=&per_page=
func (h *AdminOrderHandler) GetOrders(c *gin.Context) {
	const op = "AdminOrderHandler.GetOrders"

	page, err := h.parsePage(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	var filter domain.OrderFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.OrderStatus(strings.ToUpper(raw))
		filter.Status = &status
	}

	orders, meta, err := h.adminService.ListOrders(c.Request.Context(), filter, page)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, ListResponse[domain.Order]{Data: orders, Meta: meta})
}

func (h *AdminOrderHandler) GetOrder(c *gin.Context) {
	const op = "AdminOrderHandler.GetOrder"

	orderID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	details, err := h.adminService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, details)
}

func (h *AdminOrderHandler) PatchOrderStatus(c *gin.Context) {
	const op = "AdminOrderHandler.PatchOrderStatus"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	orderID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	var reqBody api.PatchAdminOrderStatusJSONBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}
	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(reqBody.Status)))

	order, err := h.adminService.UpdateStatus(c.Request.Context(), orderID, status)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	adminID, _ := mw.GetUserID(c)
	log.Info("Order status changed by admin",
		slog.String("order_id", order.ID.String()),
		slog.String("status", string(order.Status)),
		slog.String("admin_id", adminID.String()),
	)
	response.SendSuccess(c, http.StatusOK, order)
}

func (h *AdminOrderHandler) GetActiveOrders(c *gin.Context) {
	const op = "AdminOrderHandler.GetActiveOrders"

	orders, err := h.adminService.ListActiveOrders(c.Request.Context())
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"data": orders})
}
