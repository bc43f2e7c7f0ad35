package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

var userColumns = []string{"id", "name", "email", "phone", "password_hash", "role", "created_at"}

// UserRepository реализует интерфейс domain.UserRepository для PostgreSQL.
type UserRepository struct {
	BaseRepository
}

// NewUserRepository создает новый экземпляр UserRepository.
func NewUserRepository(db *pgxpool.Pool, log *slog.Logger) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db, log),
	}
}

// Create сохраняет нового пользователя в базу данных. created_at заполняет база.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const op = "UserRepository.Create"

	query, args, err := r.sq.Insert("users").
		Columns("id", "name", "email", "phone", "password_hash", "role").
		Values(user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, user.Role).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&user.CreatedAt); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

// GetByEmail находит пользователя по его email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "UserRepository.GetByEmail", sq.Eq{"email": email})
}

// GetByID находит пользователя по его уникальному идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "UserRepository.GetByID", sq.Eq{"id": id})
}

func (r *UserRepository) getOne(ctx context.Context, op string, where sq.Eq) (*domain.User, error) {
	query, args, err := r.sq.Select(userColumns...).
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	row := r.conn(ctx).QueryRow(ctx, query, args...)

	var user domain.User
	err = row.Scan(&user.ID, &user.Name, &user.Email, &user.Phone, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return &user, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
