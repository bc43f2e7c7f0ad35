package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-service/internal/domain"
	mw "pizzeria-service/internal/middleware"
	"pizzeria-service/pkg/jwt"
)

func newAuthRouter(t *testing.T, tokens *jwt.TokenManager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	auth := mw.NewAuthMiddleware(logger, tokens)

	whoAmI := func(c *gin.Context) {
		userID, ok := mw.GetUserID(c)
		if !ok {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, userID.String())
	}

	router := gin.New()
	router.GET("/private", auth.Authorize, whoAmI)
	router.GET("/optional", auth.OptionalAuthorize, whoAmI)
	router.GET("/admin", auth.Authorize, mw.RequireRole(domain.RoleAdmin), whoAmI)
	return router
}

func doGet(router http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_Authorize(t *testing.T) {
	tokens := jwt.NewTokenManager("test-secret", time.Hour)
	router := newAuthRouter(t, tokens)

	userID := uuid.New()
	token, err := tokens.Generate(userID, domain.RoleCustomer)
	require.NoError(t, err)

	foreign, err := jwt.NewTokenManager("other-secret", time.Hour).Generate(userID, domain.RoleCustomer)
	require.NoError(t, err)

	testCases := []struct {
		name         string
		header       string
		expectedCode int
		expectedBody string
	}{
		{name: "валидный токен", header: "Bearer " + token, expectedCode: http.StatusOK, expectedBody: userID.String()},
		{name: "схема в нижнем регистре", header: "bearer " + token, expectedCode: http.StatusOK, expectedBody: userID.String()},
		{name: "нет заголовка", header: "", expectedCode: http.StatusUnauthorized, expectedBody: "Authorization header required"},
		{name: "не Bearer", header: "Basic abc", expectedCode: http.StatusUnauthorized, expectedBody: "Bearer token expected"},
		{name: "чужая подпись", header: "Bearer " + foreign, expectedCode: http.StatusUnauthorized, expectedBody: "Invalid or expired token"},
		{name: "мусор вместо токена", header: "Bearer not-a-jwt", expectedCode: http.StatusUnauthorized, expectedBody: "Invalid or expired token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doGet(router, "/private", tc.header)
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.expectedBody)
		})
	}
}

func TestAuthMiddleware_OptionalAuthorize(t *testing.T) {
	tokens := jwt.NewTokenManager("test-secret", time.Hour)
	router := newAuthRouter(t, tokens)

	userID := uuid.New()
	token, err := tokens.Generate(userID, domain.RoleCustomer)
	require.NoError(t, err)

	t.Run("гость без заголовка", func(t *testing.T) {
		rr := doGet(router, "/optional", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "guest", rr.Body.String())
	})

	t.Run("пользователь с токеном", func(t *testing.T) {
		rr := doGet(router, "/optional", "Bearer "+token)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, userID.String(), rr.Body.String())
	})

	t.Run("невалидный токен", func(t *testing.T) {
		rr := doGet(router, "/optional", "Bearer broken")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	tokens := jwt.NewTokenManager("test-secret", time.Hour)
	router := newAuthRouter(t, tokens)

	customerToken, err := tokens.Generate(uuid.New(), domain.RoleCustomer)
	require.NoError(t, err)
	adminID := uuid.New()
	adminToken, err := tokens.Generate(adminID, domain.RoleAdmin)
	require.NoError(t, err)

	t.Run("администратор", func(t *testing.T) {
		rr := doGet(router, "/admin", "Bearer "+adminToken)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, adminID.String(), rr.Body.String())
	})

	t.Run("покупатель", func(t *testing.T) {
		rr := doGet(router, "/admin", "Bearer "+customerToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.JSONEq(t, `{"message":"Access forbidden: required role not met"}`, rr.Body.String())
	})

	t.Run("без Authorize в цепочке", func(t *testing.T) {
		r := gin.New()
		r.GET("/broken", mw.RequireRole(domain.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
		rr := doGet(r, "/broken", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
