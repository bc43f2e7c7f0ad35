package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

type txKey struct{}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// TxManager реализует domain.TxManager поверх pgxpool.
type TxManager struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewTxManager(db *pgxpool.Pool, log *slog.Logger) *TxManager {
	return &TxManager{db: db, log: log}
}

// WithinTx выполняет fn в транзакции READ COMMITTED. Вложенный вызов переиспользует внешнюю транзакцию.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	const op = "TxManager.WithinTx"

	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: %w: begin: %v", op, domain.ErrDatabaseError, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				m.log.Error("Failed to rollback transaction", slog.String("op", op), slog.String("error", rbErr.Error()))
			}
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w: commit: %v", op, domain.ErrDatabaseError, err)
	}
	return nil
}

var _ domain.TxManager = (*TxManager)(nil)
