package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

// maxWebhookBody - уведомления ЮKassa занимают единицы килобайт.
const maxWebhookBody = 64 << 10

// WebhookHandler принимает уведомления платёжного шлюза. Проверка IP источника
// выполняется middleware RequireSourceIP.
type WebhookHandler struct {
	BaseHandler
	paymentService domain.PaymentService
}

func NewWebhookHandler(log *slog.Logger, paymentService domain.PaymentService) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    *NewBaseHandler(log),
		paymentService: paymentService,
	}
}

// PostYooKassa отвечает 200 только после того, как уведомление применено. На 5xx шлюз
// повторит доставку.
func (h *WebhookHandler) PostYooKassa(c *gin.Context) {
	const op = "WebhookHandler.PostYooKassa"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("Failed to read notification body", slog.String("error", err.Error()))
		response.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.paymentService.HandleNotification(c.Request.Context(), body); err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, api.Acknowledged{Status: "ok"})
}
