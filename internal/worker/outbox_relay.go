package worker

import (
	"context"
	"fmt"
	"log/slog"

	"pizzeria-service/internal/domain"
)

// OutboxRelay переносит неотправленные события из outbox в брокер.
type OutboxRelay struct {
	log       *slog.Logger
	outbox    domain.OutboxRepository
	publisher domain.EventPublisher
	batchSize int
}

func NewOutboxRelay(log *slog.Logger, outbox domain.OutboxRepository, publisher domain.EventPublisher, batchSize int) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{log: log, outbox: outbox, publisher: publisher, batchSize: batchSize}
}

// Run публикует одну пачку. События идут по возрастанию id; на первой ошибке публикации
// пачка прерывается, чтобы события одного заказа не обогнали друг друга.
func (r *OutboxRelay) Run(ctx context.Context) (int, error) {
	const op = "OutboxRelay.Run"
	log := r.log.With(slog.String("op", op))

	records, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("%s: fetch pending: %w", op, err)
	}

	sent := 0
	for _, rec := range records {
		if err := r.publisher.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			return sent, fmt.Errorf("%s: publish event %s: %w", op, rec.EventID, err)
		}
		if err := r.outbox.MarkSent(ctx, rec.ID); err != nil {
			return sent, fmt.Errorf("%s: mark event %s sent: %w", op, rec.EventID, err)
		}
		sent++
		log.Debug("Event published", slog.String("event_id", rec.EventID.String()), slog.String("topic", rec.Topic), slog.String("key", rec.Key))
	}

	return sent, nil
}
