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

var addressColumns = []string{
	"a.id", "a.user_id", "a.city_id", "c.name", "a.street", "a.house", "a.apartment",
	"a.entrance", "a.floor", "a.intercom", "a.comment", "a.is_default", "a.created_at",
}

// AddressRepository реализует интерфейс domain.AddressRepository для PostgreSQL.
type AddressRepository struct {
	BaseRepository
}

func NewAddressRepository(db *pgxpool.Pool, log *slog.Logger) *AddressRepository {
	return &AddressRepository{BaseRepository: NewBaseRepository(db, log)}
}

func (r *AddressRepository) selectAddresses() sq.SelectBuilder {
	return r.sq.Select(addressColumns...).
		From("addresses a").
		Join("cities c ON c.id = a.city_id")
}

// ListByUser возвращает адреса пользователя: сначала адрес по умолчанию, затем новые.
func (r *AddressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	const op = "AddressRepository.ListByUser"

	query, args, err := r.selectAddresses().
		Where(sq.Eq{"a.user_id": userID}).
		OrderBy("a.is_default DESC", "a.created_at DESC").
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	defer rows.Close()

	addresses := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning address: %w", err))
		}
		addresses = append(addresses, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating addresses: %w", err))
	}
	return addresses, nil
}

func (r *AddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	const op = "AddressRepository.GetByID"

	query, args, err := r.selectAddresses().Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	a, err := scanAddress(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return a, nil
}

func (r *AddressRepository) LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.Address, error) {
	const op = "AddressRepository.LatestByUser"

	query, args, err := r.selectAddresses().
		Where(sq.Eq{"a.user_id": userID}).
		OrderBy("a.created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	a, err := scanAddress(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return a, nil
}

// Create сохраняет адрес; created_at возвращается из базы.
func (r *AddressRepository) Create(ctx context.Context, a *domain.Address) error {
	const op = "AddressRepository.Create"

	query, args, err := r.sq.Insert("addresses").
		Columns("id", "user_id", "city_id", "street", "house", "apartment", "entrance", "floor", "intercom", "comment", "is_default").
		Values(a.ID, a.UserID, a.CityID, a.Street, a.House, a.Apartment, a.Entrance, a.Floor, a.Intercom, a.Comment, a.IsDefault).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&a.CreatedAt); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

func (r *AddressRepository) Update(ctx context.Context, a *domain.Address) error {
	const op = "AddressRepository.Update"

	query, args, err := r.sq.Update("addresses").
		SetMap(map[string]interface{}{
			"city_id":   a.CityID,
			"street":    a.Street,
			"house":     a.House,
			"apartment": a.Apartment,
			"entrance":  a.Entrance,
			"floor":     a.Floor,
			"intercom":  a.Intercom,
			"comment":   a.Comment,
		}).
		Where(sq.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	cmdTag, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return r.wrapErr(op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository.%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "AddressRepository.Delete"

	query, args, err := r.sq.Delete("addresses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	cmdTag, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return r.wrapErr(op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository.%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func (r *AddressRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	const op = "AddressRepository.CountByUser"

	query, args, err := r.sq.Select("count(*)").From("addresses").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return 0, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	var count int
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, r.wrapErr(op, err)
	}
	return count, nil
}

// SetDefault снимает флаг с текущего адреса по умолчанию и ставит его на id.
// Уникальный индекс uq_addresses_user_default проверяется построчно, поэтому запросов два;
// вызывающий код должен выполнять метод в транзакции.
func (r *AddressRepository) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	const op = "AddressRepository.SetDefault"

	resetSql, resetArgs, err := r.sq.Update("addresses").
		Set("is_default", false).
		Where(sq.Eq{"user_id": userID, "is_default": true}).
		Where(sq.NotEq{"id": id}).
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build reset query: %w", err))
	}

	r.logQuery(ctx, op+"_reset", resetSql, resetArgs...)
	if _, err = r.conn(ctx).Exec(ctx, resetSql, resetArgs...); err != nil {
		return r.wrapErr(op, err)
	}

	query, args, err := r.sq.Update("addresses").
		Set("is_default", true).
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	cmdTag, err := r.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return r.wrapErr(op, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository.%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(&a.ID, &a.UserID, &a.CityID, &a.CityName, &a.Street, &a.House, &a.Apartment,
		&a.Entrance, &a.Floor, &a.Intercom, &a.Comment, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

var _ domain.AddressRepository = (*AddressRepository)(nil)
