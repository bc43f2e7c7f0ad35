package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

var orderColumns = []string{
	"id", "user_id", "address_id", "address_line", "status", "total_kopecks", "comment", "delivery_at", "created_at", "updated_at",
}

// OrderRepository реализует интерфейс domain.OrderRepository для PostgreSQL.
type OrderRepository struct {
	BaseRepository
}

// NewOrderRepository создает новый экземпляр OrderRepository.
func NewOrderRepository(db *pgxpool.Pool, log *slog.Logger) *OrderRepository {
	return &OrderRepository{BaseRepository: NewBaseRepository(db, log)}
}

// Create сохраняет заказ и его позиции. Должен вызываться в транзакции вместе с очисткой корзины.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	const op = "OrderRepository.Create"

	query, args, err := r.sq.Insert("orders").
		Columns("id", "user_id", "address_id", "address_line", "status", "total_kopecks", "comment", "delivery_at").
		Values(order.ID, order.UserID, order.AddressID, order.AddressLine, order.Status,
			toKopecks(order.Total), order.Comment, order.DeliveryAt).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return r.wrapErr(op, err)
	}

	if len(order.Items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		itemSql, itemArgs, err := r.sq.Insert("order_items").
			Columns("order_id", "variant_id", "product_name", "variant_name", "unit_price_kopecks", "quantity", "line_total_kopecks").
			Values(order.ID, item.VariantID, item.ProductName, item.VariantName,
				toKopecks(item.UnitPrice), item.Quantity, toKopecks(item.LineTotal)).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return r.wrapErr(op, fmt.Errorf("failed to build item query: %w", err))
		}
		r.logQuery(ctx, op+"_item", itemSql, itemArgs...)
		batch.Queue(itemSql, itemArgs...)
	}

	results := r.conn(ctx).SendBatch(ctx, batch)
	defer results.Close()

	for i := range order.Items {
		if err := results.QueryRow().Scan(&order.Items[i].ID); err != nil {
			return r.wrapErr(op, fmt.Errorf("inserting order item: %w", err))
		}
		order.Items[i].OrderID = order.ID
	}
	return nil
}

// GetByID находит заказ вместе с позициями.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "OrderRepository.GetByID"

	order, err := r.getOne(ctx, op, id, false)
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{*order}
	if err = r.attachItems(ctx, op, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// GetForUpdate блокирует строку заказа (SELECT ... FOR UPDATE).
func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOne(ctx, "OrderRepository.GetForUpdate", id, true)
}

func (r *OrderRepository) getOne(ctx context.Context, op string, id uuid.UUID, forUpdate bool) (*domain.Order, error) {
	builder := r.sq.Select(orderColumns...).From("orders").Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	order, err := scanOrder(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	return order, nil
}

// List возвращает страницу заказов по фильтру и общее количество.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, page domain.Page) ([]domain.Order, int, error) {
	const op = "OrderRepository.List"

	where := sq.Eq{}
	if filter.UserID != nil {
		where["user_id"] = *filter.UserID
	}
	if filter.Status != nil {
		where["status"] = *filter.Status
	}

	countSql, countArgs, err := r.sq.Select("count(*)").From("orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, r.wrapErr(op, fmt.Errorf("failed to build count query: %w", err))
	}

	r.logQuery(ctx, op+"_count", countSql, countArgs...)
	var total int
	if err = r.conn(ctx).QueryRow(ctx, countSql, countArgs...).Scan(&total); err != nil {
		return nil, 0, r.wrapErr(op, fmt.Errorf("counting orders: %w", err))
	}
	if total == 0 {
		return []domain.Order{}, 0, nil
	}

	query, args, err := r.sq.Select(orderColumns...).
		From("orders").
		Where(where).
		OrderBy("created_at DESC", "id").
		Limit(uint64(page.PerSize)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	orders, err := r.queryOrders(ctx, op, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByStatuses используется лентой кухни: заказы с позициями, старые первыми.
func (r *OrderRepository) ListByStatuses(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	const op = "OrderRepository.ListByStatuses"

	if len(statuses) == 0 {
		return []domain.Order{}, nil
	}

	query, args, err := r.sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"status": statuses}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	orders, err := r.queryOrders(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	if err = r.attachItems(ctx, op, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) ListAwaitingPaymentBefore(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	const op = "OrderRepository.ListAwaitingPaymentBefore"

	query, args, err := r.sq.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"status": domain.OrderWaitingPayment}).
		Where(sq.Lt{"created_at": before}).
		Where("NOT EXISTS (SELECT 1 FROM payments p WHERE p.order_id = orders.id AND p.created_at >= ?)", before).
		OrderBy("created_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	return r.queryOrders(ctx, op, query, args...)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	const op = "OrderRepository.UpdateStatus"

	query, args, err := r.sq.Update("orders").
		Set("status", status).
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

func (r *OrderRepository) queryOrders(ctx context.Context, op, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning order: %w", err))
		}
		orders = append(orders, *order)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating orders: %w", err))
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, op string, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids = append(ids, o.ID)
		index[o.ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	query, args, err := r.sq.Select("id", "order_id", "variant_id", "product_name", "variant_name",
		"unit_price_kopecks", "quantity", "line_total_kopecks").
		From("order_items").
		Where(sq.Eq{"order_id": ids}).
		OrderBy("order_id", "id").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build items query: %w", err))
	}

	r.logQuery(ctx, op+"_items", query, args...)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("getting order items: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item             domain.OrderItem
			unitPrice, total int64
		)
		err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.ProductName, &item.VariantName,
			&unitPrice, &item.Quantity, &total)
		if err != nil {
			return r.wrapErr(op, fmt.Errorf("scanning order item: %w", err))
		}
		item.UnitPrice = fromKopecks(unitPrice)
		item.LineTotal = fromKopecks(total)
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err = rows.Err(); err != nil {
		return r.wrapErr(op, fmt.Errorf("iterating order items: %w", err))
	}
	return nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o     domain.Order
		total int64
	)
	err := row.Scan(&o.ID, &o.UserID, &o.AddressID, &o.AddressLine, &o.Status, &total, &o.Comment,
		&o.DeliveryAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Total = fromKopecks(total)
	return &o, nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
