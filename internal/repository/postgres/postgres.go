package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

// querier - общие методы pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type BaseRepository struct {
	db  *pgxpool.Pool
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewBaseRepository(db *pgxpool.Pool, log *slog.Logger) BaseRepository {
	return BaseRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// conn возвращает транзакцию из контекста, если она открыта TxManager, иначе пул.
func (r *BaseRepository) conn(ctx context.Context) querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r *BaseRepository) logQuery(ctx context.Context, op, query string, args ...interface{}) {
	r.log.DebugContext(ctx, "Executing SQL query",
		slog.String("operation", op),
		slog.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		slog.String("query", query),
		slog.Any("args", args),
	)
}

func (r *BaseRepository) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	wrappedErr := fmt.Errorf("repository.%s: %w", op, err)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, wrappedErr)
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				constraintName := pgErr.ConstraintName
				return fmt.Errorf("%w (constraint: %s): %w", domain.ErrConflict, constraintName, wrappedErr)
			}

			if pgErr.Code == "23503" || pgErr.Code == "23514" {
				constraintName := pgErr.ConstraintName
				return fmt.Errorf("%w (constraint: %s): %w", domain.ErrValidation, constraintName, wrappedErr)
			}
		}
	}

	return fmt.Errorf("%w: %w", domain.ErrDatabaseError, wrappedErr)
}

func isErrNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Деньги хранятся в копейках (BIGINT).

func toKopecks(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromKopecks(kopecks int64) decimal.Decimal {
	return decimal.New(kopecks, -2)
}
