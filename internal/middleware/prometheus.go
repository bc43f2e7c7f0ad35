package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"pizzeria-service/internal/domain"
)

// unmatchedRoute подставляется вместо пути для запросов мимо роутов,
// чтобы произвольные URL не раздували кардинальность метрик.
const unmatchedRoute = "unmatched"

// PrometheusMiddleware считает запросы и их длительность по шаблону роута.
func PrometheusMiddleware(collector domain.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method

		collector.IncRequestsTotal(method, route, strconv.Itoa(c.Writer.Status()))
		collector.ObserveRequestDuration(method, route, time.Since(start).Seconds())
	}
}
