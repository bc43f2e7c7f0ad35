package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/response"
	"pizzeria-service/pkg/jwt"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UserRoleKey contextKey = "userRole"
)

var (
	errHeaderMissing = errors.New("authorization header required")
	errHeaderFormat  = errors.New("invalid Authorization header format (Bearer token expected)")
)

type AuthMiddleware struct {
	log    *slog.Logger
	tokens *jwt.TokenManager
}

func NewAuthMiddleware(log *slog.Logger, tokens *jwt.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{log: log, tokens: tokens}
}

// Authorize требует валидный Bearer токен.
func (m *AuthMiddleware) Authorize(c *gin.Context) {
	const op = "Middleware.Authorize"
	reqID := GetRequestIDFromContext(c)
	log := m.log.With(slog.String("op", op), slog.String("request_id", reqID))

	claims, err := m.parseHeader(c.GetHeader("Authorization"))
	if err != nil {
		log.Warn("Authorization failed", slog.String("error", err.Error()))
		response.SendError(c, http.StatusUnauthorized, unauthorizedMessage(err))
		c.Abort()
		return
	}

	setClaims(c, claims)
	log.Debug("User authorized successfully", slog.String("user_id", claims.UserID.String()), slog.String("role", string(claims.Role)))

	c.Next()
}

// OptionalAuthorize пропускает гостей без заголовка. Присланный, но невалидный токен - 401.
func (m *AuthMiddleware) OptionalAuthorize(c *gin.Context) {
	const op = "Middleware.OptionalAuthorize"

	if c.GetHeader("Authorization") == "" {
		c.Next()
		return
	}

	claims, err := m.parseHeader(c.GetHeader("Authorization"))
	if err != nil {
		reqID := GetRequestIDFromContext(c)
		m.log.Warn("Authorization failed", slog.String("op", op), slog.String("request_id", reqID), slog.String("error", err.Error()))
		response.SendError(c, http.StatusUnauthorized, unauthorizedMessage(err))
		c.Abort()
		return
	}

	setClaims(c, claims)
	c.Next()
}

func (m *AuthMiddleware) parseHeader(authHeader string) (*jwt.Claims, error) {
	if authHeader == "" {
		return nil, errHeaderMissing
	}

	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "Bearer") || headerParts[1] == "" {
		return nil, errHeaderFormat
	}

	return m.tokens.Validate(headerParts[1])
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, errHeaderMissing):
		return "Authorization header required"
	case errors.Is(err, errHeaderFormat):
		return "Invalid Authorization header format (Bearer token expected)"
	default:
		return "Invalid or expired token"
	}
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(string(UserIDKey), claims.UserID)
	c.Set(string(UserRoleKey), claims.Role)
}

// GetUserID возвращает id пользователя, выставленный Authorize или OptionalAuthorize.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(string(UserIDKey))
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

func RequireRole(allowedRoles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "Middleware.RequireRole"
		reqID := GetRequestIDFromContext(c)
		log := slog.Default().With(slog.String("op", op), slog.String("request_id", reqID))

		roleValue, exists := c.Get(string(UserRoleKey))
		if !exists {
			log.Error("User role not found in context. Authorize middleware might be missing or failed.")
			response.SendError(c, http.StatusInternalServerError, "Internal server error (auth context missing)")
			c.Abort()
			return
		}

		userRole, ok := roleValue.(domain.UserRole)
		if !ok {
			log.Error("Invalid user role type in context", slog.Any("role_value", roleValue))
			response.SendError(c, http.StatusInternalServerError, "Internal server error (invalid auth context)")
			c.Abort()
			return
		}

		isAllowed := false
		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			userID, _ := c.Get(string(UserIDKey))
			log.Warn("User role not allowed for this endpoint",
				slog.String("required_roles", fmt.Sprintf("%v", allowedRoles)),
				slog.String("user_role", string(userRole)),
				slog.Any("user_id", userID),
			)
			response.SendError(c, http.StatusForbidden, "Access forbidden: required role not met")
			c.Abort()
			return
		}

		log.Debug("User role check passed", slog.String("user_role", string(userRole)))
		c.Next()
	}
}
