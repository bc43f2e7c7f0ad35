package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
	"pizzeria-service/pkg/hash"
	"pizzeria-service/pkg/jwt"
)

type AuthService struct {
	log         *slog.Logger
	tokens      *jwt.TokenManager
	userRepo    domain.UserRepository
	hasher      domain.PasswordHasher
	adminEmails map[string]struct{}
}

func NewAuthService(
	log *slog.Logger,
	tokens *jwt.TokenManager,
	userRepo domain.UserRepository,
	hasher domain.PasswordHasher,
	adminEmails []string,
) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = normalizeEmail(email); email != "" {
			admins[email] = struct{}{}
		}
	}

	return &AuthService{
		log:         log,
		tokens:      tokens,
		userRepo:    userRepo,
		hasher:      hasher,
		adminEmails: admins,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) roleFor(email string) domain.UserRole {
	if _, ok := s.adminEmails[email]; ok {
		return domain.RoleAdmin
	}
	return domain.RoleCustomer
}

func (s *AuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
	const op = "AuthService.Register"

	email := normalizeEmail(input.Email)
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("email", email))

	name := strings.TrimSpace(input.Name)
	if name == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("%s: %w: name, email and password are required", op, domain.ErrValidation)
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrValidation, err)
		}
		log.Error("Failed to hash password during registration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInternalServer)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hashedPassword,
		Role:         s.roleFor(email),
	}

	err = s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Warn("User registration failed due to email conflict")
			return nil, fmt.Errorf("%s: %w: email already exists", op, domain.ErrConflict)
		}
		log.Error("Failed to create user in repository", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("User registered successfully", slog.String("user_id", user.ID.String()), slog.String("role", string(user.Role)))
	user.PasswordHash = ""
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	const op = "AuthService.Login"

	email = normalizeEmail(email)
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("email", email))

	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%s: %w: email and password are required", op, domain.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Login attempt failed: user not found")
			return "", nil, fmt.Errorf("%s: %w: invalid email or password", op, domain.ErrUnauthorized)
		}
		log.Error("Failed to get user by email during login", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	err = s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Warn("Login attempt failed: invalid password", slog.String("user_id", user.ID.String()))
			return "", nil, fmt.Errorf("%s: %w: invalid email or password", op, domain.ErrUnauthorized)
		}

		log.Error("Failed to compare password hash during login", slog.String("user_id", user.ID.String()), slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, domain.ErrInternalServer)
	}

	// Администраторы задаются конфигом, поэтому адрес из списка повышает роль и у старых учётных записей.
	if s.roleFor(user.Email) == domain.RoleAdmin {
		user.Role = domain.RoleAdmin
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		log.Error("Failed to generate token during login", slog.String("user_id", user.ID.String()), slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("%s: %w", op, domain.ErrInternalServer)
	}

	log.Info("User logged in successfully", slog.String("user_id", user.ID.String()))
	user.PasswordHash = ""
	return token, user, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	const op = "AuthService.Me"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("user_id", userID.String()))

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Token refers to a user that no longer exists")
			return nil, fmt.Errorf("%s: %w: user not found", op, domain.ErrUnauthorized)
		}
		log.Error("Failed to get user by id", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	if s.roleFor(user.Email) == domain.RoleAdmin {
		user.Role = domain.RoleAdmin
	}
	user.PasswordHash = ""
	return user, nil
}

var _ domain.AuthService = (*AuthService)(nil)
