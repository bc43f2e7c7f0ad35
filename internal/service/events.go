package service

import (
	"time"

	"github.com/google/uuid"

	"pizzeria-service/internal/domain"
)

func newOrderEvent(order *domain.Order, now time.Time) domain.OrderEvent {
	return domain.OrderEvent{
		EventID:    uuid.New(),
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Total:      order.Total,
		OccurredAt: now.UTC(),
	}
}
