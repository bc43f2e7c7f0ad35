// Package response собирает JSON-ответы HTTP API в одном месте.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/handler/http/api"
)

// SendError отвечает телом api.Error и прерывает цепочку обработчиков.
func SendError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, api.Error{Message: message})
}

// SendSuccess отвечает data в JSON. Для 204 и пустых данных тело не пишется.
func SendSuccess(c *gin.Context, statusCode int, data any) {
	if data == nil || statusCode == http.StatusNoContent {
		c.Status(statusCode)
		return
	}
	c.JSON(statusCode, data)
}
