package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/handler/http/response"
)

// IPAllowList - проверка адреса источника запроса.
type IPAllowList interface {
	Allowed(ip string) bool
}

// RequireSourceIP пропускает только запросы с адресов из списка. Адрес клиента берётся
// из c.ClientIP(), поэтому за балансировщиком нужно настроить доверенные прокси gin.
func RequireSourceIP(log *slog.Logger, allowList IPAllowList) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if allowList.Allowed(ip) {
			c.Next()
			return
		}

		log.Warn("Request from address outside allow-list rejected",
			slog.String("op", "Middleware.RequireSourceIP"),
			slog.String("request_id", GetRequestIDFromContext(c)),
			slog.String("remote_ip", ip),
		)
		response.SendError(c, http.StatusForbidden, "Access forbidden: source address is not allowed")
		c.Abort()
	}
}
