package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	openapitypes "github.com/oapi-codegen/runtime/types"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

type BaseHandler struct {
	log *slog.Logger
}

func NewBaseHandler(log *slog.Logger) *BaseHandler {
	return &BaseHandler{log: log}
}

func (h *BaseHandler) mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPaymentGateway):
		return http.StatusBadGateway, "Payment gateway is unavailable, try again later"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, withDetail("Resource not found", err, domain.ErrNotFound)
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, withDetail("Invalid request data", err, domain.ErrValidation)
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Access forbidden"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, withDetail("Unauthorized", err, domain.ErrUnauthorized)
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, withDetail("Resource conflict", err, domain.ErrConflict)
	case errors.Is(err, domain.ErrDatabaseError):
		h.log.Error("Database error occurred", slog.String("original_error", err.Error()))
		return http.StatusInternalServerError, "Internal server error (database operation failed)"
	default:
		h.log.Error("Unknown internal error occurred", slog.String("error_type", fmt.Sprintf("%T", err)), slog.String("error", err.Error()))
		return http.StatusInternalServerError, "Internal server error"
	}
}

// withDetail дописывает к заголовку текст, который следует за sentinel в цепочке ошибки.
// Префиксы op сервисов клиенту не отдаются.
func withDetail(title string, err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return title
	}
	detail := msg[idx+len(marker):]
	if detail == "" {
		return title
	}
	return title + ": " + detail
}

func (h *BaseHandler) handleError(c *gin.Context, op string, err error) {
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))
	statusCode, message := h.mapError(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error("Internal server error mapped", slog.Int("status", statusCode), slog.String("message", message), slog.String("original_error", err.Error()))
	} else {
		log.Warn("Client error mapped", slog.Int("status", statusCode), slog.String("message", message), slog.String("original_error", err.Error()))
	}
	response.SendError(c, statusCode, message)
}

// bindJSON разбирает тело запроса и отвечает 400 при ошибке.
func (h *BaseHandler) bindJSON(c *gin.Context, log *slog.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		log.Warn("Failed to bind request", slog.String("error", err.Error()))
		response.SendError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %s", err.Error()))
		return false
	}
	return true
}

func (h *BaseHandler) parseUUID(c *gin.Context, paramName string) (uuid.UUID, error) {
	idStr := c.Param(paramName)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid UUID format for path parameter '%s'", domain.ErrValidation, paramName)
	}
	return id, nil
}

func (h *BaseHandler) parseInt64Param(c *gin.Context, paramName string) (int64, error) {
	value, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: invalid id format for path parameter '%s'", domain.ErrValidation, paramName)
	}
	return value, nil
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, paramName string, defaultValue int) (int, error) {
	valueStr := c.Query(paramName)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid integer format for query parameter '%s'", domain.ErrValidation, paramName)
	}
	return value, nil
}

// parsePage читает page и per_page. Размер 0 означает размер по умолчанию, его подставляет сервис.
func (h *BaseHandler) parsePage(c *gin.Context) (domain.Page, error) {
	number, err := h.parseIntQuery(c, "page", 1)
	if err != nil {
		return domain.Page{}, err
	}
	perPage, err := h.parseIntQuery(c, "per_page", 0)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{Number: number, PerSize: perPage}, nil
}

// currentUserID достаёт id пользователя, выставленный AuthMiddleware.
func (h *BaseHandler) currentUserID(c *gin.Context) (uuid.UUID, error) {
	userID, ok := mw.GetUserID(c)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: user is not authenticated", domain.ErrUnauthorized)
	}
	return userID, nil
}

// ListResponse - страница списка с метаданными пагинации.
type ListResponse[T any] struct {
	Data []T                   `json:"data"`
	Meta domain.PaginationMeta `json:"meta"`
}

func toUserResponse(user domain.User) api.User {
	apiID := user.ID
	createdAt := user.CreatedAt.UTC()
	resp := api.User{
		Id:        &apiID,
		Name:      user.Name,
		Email:     openapitypes.Email(user.Email),
		Role:      api.UserRole(user.Role),
		CreatedAt: &createdAt,
	}
	if user.Phone != "" {
		phone := user.Phone
		resp.Phone = &phone
	}
	return resp
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
