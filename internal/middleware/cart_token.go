package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pizzeria-service/internal/handler/http/response"
)

// CartTokenHeader - заголовок с токеном гостевой корзины.
const CartTokenHeader = "X-Cart-Token"

const CartTokenKey contextKey = "cartToken"

// CartToken читает токен гостевой корзины из заголовка. Отсутствие заголовка не ошибка.
func CartToken(c *gin.Context) {
	raw := c.GetHeader(CartTokenHeader)
	if raw == "" {
		c.Next()
		return
	}

	token, err := uuid.Parse(raw)
	if err != nil || token == uuid.Nil {
		slog.Default().Warn("Malformed cart token",
			slog.String("op", "Middleware.CartToken"),
			slog.String("request_id", GetRequestIDFromContext(c)),
		)
		response.SendError(c, http.StatusBadRequest, "Invalid "+CartTokenHeader+" header (UUID expected)")
		c.Abort()
		return
	}

	c.Set(string(CartTokenKey), token)
	c.Next()
}

func GetCartToken(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(string(CartTokenKey))
	if !exists {
		return uuid.Nil, false
	}
	token, ok := value.(uuid.UUID)
	return token, ok
}
