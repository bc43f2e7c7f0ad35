package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

// CityRepository - справочник городов доставки.
type CityRepository struct {
	BaseRepository
}

func NewCityRepository(db *pgxpool.Pool, log *slog.Logger) *CityRepository {
	return &CityRepository{BaseRepository: NewBaseRepository(db, log)}
}

func (r *CityRepository) List(ctx context.Context) ([]domain.City, error) {
	const op = "CityRepository.List"

	query, args, err := r.sq.Select("id", "name").From("cities").OrderBy("name").ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	defer rows.Close()

	cities := make([]domain.City, 0)
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning city: %w", err))
		}
		cities = append(cities, c)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating cities: %w", err))
	}
	return cities, nil
}

func (r *CityRepository) GetByID(ctx context.Context, id int64) (*domain.City, error) {
	const op = "CityRepository.GetByID"

	query, args, err := r.sq.Select("id", "name").From("cities").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	var c domain.City
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name); err != nil {
		return nil, r.wrapErr(op, err)
	}
	return &c, nil
}

var _ domain.CityRepository = (*CityRepository)(nil)
