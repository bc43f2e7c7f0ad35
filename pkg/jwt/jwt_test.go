package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria-service/internal/domain"
)

func TestTokenManager_GenerateValidate(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	token, err := manager.Generate(userID, domain.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestTokenManager_Validate_Errors(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	token, err := manager.Generate(uuid.New(), domain.RoleCustomer)
	require.NoError(t, err)

	t.Run("Чужой секрет", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		_, err := other.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Истекший токен", func(t *testing.T) {
		expired := NewTokenManager("test-secret", time.Minute)
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := expired.Generate(uuid.New(), domain.RoleCustomer)
		require.NoError(t, err)

		_, err = manager.Validate(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Мусор вместо токена", func(t *testing.T) {
		_, err := manager.Validate("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Неизвестная роль", func(t *testing.T) {
		bad, err := manager.Generate(uuid.New(), domain.UserRole("courier"))
		require.NoError(t, err)

		_, err = manager.Validate(bad)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
