package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"pizzeria-service/internal/domain"
)

// ErrPasswordTooLong - bcrypt учитывает только первые 72 байта пароля.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to generate bcrypt hash: %w", err)
	}
	return string(bytes), nil
}

// Compare возвращает nil при совпадении и bcrypt.ErrMismatchedHashAndPassword иначе.
func (h *BcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

var _ domain.PasswordHasher = (*BcryptHasher)(nil)
