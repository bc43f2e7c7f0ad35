package middleware

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"pizzeria-service/internal/handler/http/response"
)

const redactedValue = "[REDACTED]"

// sensitiveHeaders не попадают в лог в открытом виде.
var sensitiveHeaders = []string{"Authorization", CartTokenHeader, "Cookie", "X-Api-Key"}

// Recovery перехватывает панику обработчика, пишет её в лог вместе с request id
// и стектрейсом и отвечает клиенту 500.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			requestLogger := log.With(
				slog.String("request_id", GetRequestIDFromContext(c)),
				slog.String("request", dumpRedacted(c.Request)),
			)

			if isBrokenConnection(rec) {
				// клиент уже ушёл, отвечать некому
				requestLogger.Error("Connection error recovered", slog.Any("error", rec))
				c.Abort()
				return
			}

			requestLogger.Error("Panic recovered",
				slog.Any("error", rec),
				slog.String("stack", string(debug.Stack())),
			)

			response.SendError(c, http.StatusInternalServerError, "Internal server error")
		}()
		c.Next()
	}
}

func isBrokenConnection(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr, &sysErr) {
		return false
	}
	msg := strings.ToLower(sysErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}

// dumpRedacted возвращает заголовок запроса без тела, заменяя учётные данные.
func dumpRedacted(r *http.Request) string {
	if r == nil {
		return ""
	}
	clone := *r
	clone.Header = r.Header.Clone()
	for _, name := range sensitiveHeaders {
		if clone.Header.Get(name) != "" {
			clone.Header.Set(name, redactedValue)
		}
	}
	dump, err := httputil.DumpRequest(&clone, false)
	if err != nil {
		return ""
	}
	return string(dump)
}
