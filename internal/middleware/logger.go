package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKeyRequestID string

const RequestIDKey contextKeyRequestID = "requestID"

// RequestIDHeader принимается от клиента и возвращается в ответе.
const RequestIDHeader = "X-Request-ID"

type LoggingMiddleware struct {
	log *slog.Logger
}

func NewLoggingMiddleware(log *slog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{log: log}
}

// LogRequest присваивает запросу request id и пишет начало и итог обработки.
// Уровень итоговой записи зависит от статуса ответа.
func (m *LoggingMiddleware) LogRequest(c *gin.Context) {
	start := time.Now()
	requestID := incomingRequestID(c.Request)

	c.Set(string(RequestIDKey), requestID)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey, requestID))
	c.Header(RequestIDHeader, requestID)

	requestLogger := m.log.With(
		slog.String("request_id", requestID),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("remote_ip", c.ClientIP()),
	)
	requestLogger.Debug("Request started")

	c.Next()

	status := c.Writer.Status()
	attrs := []any{
		slog.Int("status_code", status),
		slog.Duration("latency", time.Since(start)),
		slog.Int("response_size", c.Writer.Size()),
		slog.String("user_agent", c.Request.UserAgent()),
	}
	if route := c.FullPath(); route != "" {
		attrs = append(attrs, slog.String("route", route))
	}
	if q := c.Request.URL.RawQuery; q != "" {
		attrs = append(attrs, slog.String("query", q))
	}
	if userID, ok := c.Get(string(UserIDKey)); ok {
		attrs = append(attrs, slog.Any("user_id", userID))
	}
	if errs := c.Errors.ByType(gin.ErrorTypeAny).String(); errs != "" {
		attrs = append(attrs, slog.String("errors", errs))
	}

	switch {
	case status >= http.StatusInternalServerError:
		requestLogger.Error("Request completed with server error", attrs...)
	case status >= http.StatusBadRequest:
		requestLogger.Warn("Request completed with client error", attrs...)
	default:
		requestLogger.Info("Request completed successfully", attrs...)
	}
}

// incomingRequestID берёт id клиента, если это UUID, иначе выдаёт новый.
func incomingRequestID(r *http.Request) string {
	if raw := r.Header.Get(RequestIDHeader); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

// GetRequestIDFromContext достаёт request id из context.Context или *gin.Context.
func GetRequestIDFromContext(ctx context.Context) string {
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		return reqID
	}

	gCtx, ok := ctx.(*gin.Context)
	if !ok {
		return ""
	}
	if reqID := gCtx.GetString(string(RequestIDKey)); reqID != "" {
		return reqID
	}
	if gCtx.Request != nil {
		if reqID, ok := gCtx.Request.Context().Value(RequestIDKey).(string); ok {
			return reqID
		}
	}
	return ""
}
