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

var paymentColumns = []string{
	"id", "order_id", "provider", "external_id", "idempotence_key", "status", "amount_kopecks", "currency",
	"confirmation_url", "cancellation_reason", "paid_at", "created_at", "updated_at",
}

// PaymentRepository реализует интерфейс domain.PaymentRepository для PostgreSQL.
type PaymentRepository struct {
	BaseRepository
}

// NewPaymentRepository создает новый экземпляр PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool, log *slog.Logger) *PaymentRepository {
	return &PaymentRepository{BaseRepository: NewBaseRepository(db, log)}
}

// Create сохраняет платёж. Второй незавершённый платёж по заказу отклоняется индексом
// uq_payments_order_active и возвращается как ErrConflict.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	const op = "PaymentRepository.Create"

	query, args, err := r.sq.Insert("payments").
		Columns("id", "order_id", "provider", "external_id", "idempotence_key", "status", "amount_kopecks", "currency",
			"confirmation_url", "cancellation_reason").
		Values(p.ID, p.OrderID, p.Provider, p.ExternalID, p.IdempotenceKey, p.Status, toKopecks(p.Amount), p.Currency,
			p.ConfirmationURL, p.CancellationReason).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	const op = "PaymentRepository.GetByID"

	query, args, err := r.sq.Select(paymentColumns...).From("payments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return p, nil
}

// GetByExternalIDForUpdate блокирует строку платежа на время обработки уведомления.
func (r *PaymentRepository) GetByExternalIDForUpdate(ctx context.Context, externalID string) (*domain.Payment, error) {
	const op = "PaymentRepository.GetByExternalIDForUpdate"

	query, args, err := r.sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"external_id": externalID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return p, nil
}

func (r *PaymentRepository) GetLatestByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	const op = "PaymentRepository.GetLatestByOrder"

	query, args, err := r.sq.Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return p, nil
}

func (r *PaymentRepository) AttachGateway(ctx context.Context, id uuid.UUID, externalID, confirmationURL string) error {
	const op = "PaymentRepository.AttachGateway"

	query, args, err := r.sq.Update("payments").
		Set("external_id", externalID).
		Set("confirmation_url", confirmationURL).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
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

func (r *PaymentRepository) UpdateStatus(ctx context.Context, p *domain.Payment) error {
	const op = "PaymentRepository.UpdateStatus"

	query, args, err := r.sq.Update("payments").
		Set("status", p.Status).
		Set("cancellation_reason", p.CancellationReason).
		Set("paid_at", p.PaidAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": p.ID, "status": domain.PaymentStatusesMovableTo(p.Status)}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&p.UpdatedAt); err != nil {
		if isErrNoRows(err) {
			return fmt.Errorf("repository.%s: %w: %w: -> %s", op, domain.ErrConflict, domain.ErrPaymentTransition, p.Status)
		}
		return r.wrapErr(op, err)
	}
	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		p      domain.Payment
		amount int64
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.ExternalID, &p.IdempotenceKey, &p.Status, &amount, &p.Currency,
		&p.ConfirmationURL, &p.CancellationReason, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Amount = fromKopecks(amount)
	return &p, nil
}

var _ domain.PaymentRepository = (*PaymentRepository)(nil)
