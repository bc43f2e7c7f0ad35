package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

var errLockOutsideTx = errors.New("cart lock requires a transaction")

// CartRepository хранит корзины пользователей и гостей в таблице cart_items.
type CartRepository struct {
	BaseRepository
}

func NewCartRepository(db *pgxpool.Pool, log *slog.Logger) *CartRepository {
	return &CartRepository{BaseRepository: NewBaseRepository(db, log)}
}

// ownerFilter строит условие по владельцу корзины. prefix - алиас таблицы с точкой или пустая строка.
func ownerFilter(prefix string, owner domain.CartOwner) (sq.Eq, error) {
	switch {
	case owner.UserID != nil:
		return sq.Eq{prefix + "user_id": *owner.UserID}, nil
	case owner.GuestToken != nil:
		return sq.Eq{prefix + "guest_token": *owner.GuestToken}, nil
	default:
		return nil, domain.ErrCartOwnerMissing
	}
}

// Lock берёт транзакционную advisory-блокировку корзины владельца.
// Вторая транзакция с той же корзиной ждёт коммита первой и видит уже её изменения.
func (r *CartRepository) Lock(ctx context.Context, owner domain.CartOwner) error {
	const op = "CartRepository.Lock"

	var key string
	switch {
	case owner.UserID != nil:
		key = "cart:user:" + owner.UserID.String()
	case owner.GuestToken != nil:
		key = "cart:guest:" + owner.GuestToken.String()
	default:
		return fmt.Errorf("repository.%s: %w", op, domain.ErrCartOwnerMissing)
	}
	if _, ok := txFromContext(ctx); !ok {
		return fmt.Errorf("repository.%s: %w", op, errLockOutsideTx)
	}

	query, args, err := r.sq.Select().Column(sq.Expr("pg_advisory_xact_lock(hashtextextended(?, 0))", key)).ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if _, err = r.conn(ctx).Exec(ctx, query, args...); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

// ListItems возвращает строки корзины с текущими ценами. Строки скрытых товаров тоже возвращаются,
// чтобы покупатель видел, что нужно убрать.
func (r *CartRepository) ListItems(ctx context.Context, owner domain.CartOwner) ([]domain.CartItem, error) {
	const op = "CartRepository.ListItems"

	where, err := ownerFilter("ci.", owner)
	if err != nil {
		return nil, fmt.Errorf("repository.%s: %w", op, err)
	}

	query, args, err := r.sq.Select(
		"v.id", "p.id", "p.name", "p.slug", "p.image_url", "v.name", "v.price_kopecks", "ci.quantity", "p.is_active",
	).
		From("cart_items ci").
		Join("product_variants v ON v.id = ci.variant_id").
		Join("products p ON p.id = v.product_id").
		Where(where).
		OrderBy("ci.created_at", "ci.id").
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

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var (
			item  domain.CartItem
			price int64
		)
		err := rows.Scan(&item.VariantID, &item.ProductID, &item.ProductName, &item.ProductSlug, &item.ImageURL,
			&item.VariantName, &price, &item.Quantity, &item.ProductActive)
		if err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning cart item: %w", err))
		}
		item.UnitPrice = fromKopecks(price)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating cart items: %w", err))
	}
	return items, nil
}

func (r *CartRepository) GetQuantity(ctx context.Context, owner domain.CartOwner, variantID int64) (int, error) {
	const op = "CartRepository.GetQuantity"

	where, err := ownerFilter("", owner)
	if err != nil {
		return 0, fmt.Errorf("repository.%s: %w", op, err)
	}
	where["variant_id"] = variantID

	query, args, err := r.sq.Select("quantity").From("cart_items").Where(where).ToSql()
	if err != nil {
		return 0, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	var quantity int
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&quantity); err != nil {
		if isErrNoRows(err) {
			return 0, nil
		}
		return 0, r.wrapErr(op, err)
	}
	return quantity, nil
}

// SetQuantity вставляет строку или перезаписывает количество (upsert по частичному уникальному индексу).
func (r *CartRepository) SetQuantity(ctx context.Context, owner domain.CartOwner, variantID int64, quantity int) error {
	const op = "CartRepository.SetQuantity"

	var (
		ownerColumn string
		ownerValue  interface{}
	)
	switch {
	case owner.UserID != nil:
		ownerColumn, ownerValue = "user_id", *owner.UserID
	case owner.GuestToken != nil:
		ownerColumn, ownerValue = "guest_token", *owner.GuestToken
	default:
		return fmt.Errorf("repository.%s: %w", op, domain.ErrCartOwnerMissing)
	}

	query, args, err := r.sq.Insert("cart_items").
		Columns(ownerColumn, "variant_id", "quantity").
		Values(ownerValue, variantID, quantity).
		Suffix(fmt.Sprintf(
			"ON CONFLICT (%[1]s, variant_id) WHERE %[1]s IS NOT NULL DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()",
			ownerColumn,
		)).
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

func (r *CartRepository) Remove(ctx context.Context, owner domain.CartOwner, variantID int64) error {
	const op = "CartRepository.Remove"

	where, err := ownerFilter("", owner)
	if err != nil {
		return fmt.Errorf("repository.%s: %w", op, err)
	}
	where["variant_id"] = variantID

	query, args, err := r.sq.Delete("cart_items").Where(where).ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if _, err = r.conn(ctx).Exec(ctx, query, args...); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, owner domain.CartOwner) error {
	const op = "CartRepository.Clear"

	where, err := ownerFilter("", owner)
	if err != nil {
		return fmt.Errorf("repository.%s: %w", op, err)
	}

	query, args, err := r.sq.Delete("cart_items").Where(where).ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	if _, err = r.conn(ctx).Exec(ctx, query, args...); err != nil {
		return r.wrapErr(op, err)
	}
	return nil
}

var _ domain.CartRepository = (*CartRepository)(nil)
