package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

// OutboxRepository пишет доменные события в ту же транзакцию, что и изменения заказа.
type OutboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(db *pgxpool.Pool, log *slog.Logger) *OutboxRepository {
	return &OutboxRepository{BaseRepository: NewBaseRepository(db, log)}
}

func (r *OutboxRepository) Insert(ctx context.Context, topic, key string, payload any) error {
	const op = "OutboxRepository.Insert"

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("repository.%s: marshal payload: %w", op, err)
	}

	eventID := uuid.New()
	if event, ok := payload.(domain.OrderEvent); ok && event.EventID != uuid.Nil {
		eventID = event.EventID
	}

	query, args, err := r.sq.Insert("outbox").
		Columns("event_id", "topic", "key", "payload").
		Values(eventID, topic, key, data).
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if _, err = r.conn(ctx).Exec(ctx, query, args...); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

// FetchPending выбирает неотправленные события с блокировкой SKIP LOCKED,
// поэтому несколько экземпляров сервиса не публикуют одно событие дважды.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	const op = "OutboxRepository.FetchPending"

	query, args, err := r.sq.Select("id", "event_id", "topic", "key", "payload", "created_at", "sent_at").
		From("outbox").
		Where(sq.Eq{"sent_at": nil}).
		OrderBy("id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
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

	records := make([]domain.OutboxRecord, 0)
	for rows.Next() {
		var rec domain.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning outbox record: %w", err))
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating outbox: %w", err))
	}
	return records, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	const op = "OutboxRepository.MarkSent"

	query, args, err := r.sq.Update("outbox").
		Set("sent_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if _, err = r.conn(ctx).Exec(ctx, query, args...); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
