package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"pizzeria-service/internal/domain"
)

var productColumns = []string{"p.id", "p.category_id", "p.name", "p.slug", "p.description", "p.image_url", "p.is_active"}

// CatalogRepository реализует чтение категорий, товаров и вариантов.
type CatalogRepository struct {
	BaseRepository
}

// NewCatalogRepository создает новый экземпляр CatalogRepository.
func NewCatalogRepository(db *pgxpool.Pool, log *slog.Logger) *CatalogRepository {
	return &CatalogRepository{BaseRepository: NewBaseRepository(db, log)}
}

// ListCategories возвращает все категории в порядке отображения.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "CatalogRepository.ListCategories"

	query, args, err := r.sq.Select("id", "name", "slug", "sort_order").
		From("categories").
		OrderBy("sort_order", "id").
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

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning category: %w", err))
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating categories: %w", err))
	}
	return categories, nil
}

func (r *CatalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	const op = "CatalogRepository.GetCategoryBySlug"

	query, args, err := r.sq.Select("id", "name", "slug", "sort_order").
		From("categories").
		Where(sq.Eq{"slug": slug}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	var c domain.Category
	if err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
		return nil, r.wrapErr(op, err)
	}
	return &c, nil
}

// ListActiveProducts возвращает страницу активных товаров категории и общее их количество.
// Сначала выбираются товары страницы, затем одним запросом их варианты.
func (r *CatalogRepository) ListActiveProducts(ctx context.Context, categoryID int64, page domain.Page) ([]domain.Product, int, error) {
	const op = "CatalogRepository.ListActiveProducts"
	log := r.log.With(slog.String("op", op))

	where := sq.Eq{"p.category_id": categoryID, "p.is_active": true}

	countSql, countArgs, err := r.sq.Select("count(*)").From("products p").Where(where).ToSql()
	if err != nil {
		return nil, 0, r.wrapErr(op, fmt.Errorf("failed to build count query: %w", err))
	}

	r.logQuery(ctx, op+"_count", countSql, countArgs...)
	var total int
	if err = r.conn(ctx).QueryRow(ctx, countSql, countArgs...).Scan(&total); err != nil {
		return nil, 0, r.wrapErr(op, fmt.Errorf("counting products: %w", err))
	}
	if total == 0 {
		log.Debug("No active products in category", slog.Int64("category_id", categoryID))
		return []domain.Product{}, 0, nil
	}

	query, args, err := r.sq.Select(productColumns...).
		From("products p").
		Where(where).
		OrderBy("p.id").
		Limit(uint64(page.PerSize)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, r.wrapErr(op, fmt.Errorf("failed to build page query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	products, err := r.scanProducts(ctx, op, query, args...)
	if err != nil {
		return nil, 0, err
	}

	if err = r.attachVariants(ctx, op, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetActiveProductBySlug находит активный товар вместе с вариантами.
func (r *CatalogRepository) GetActiveProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	const op = "CatalogRepository.GetActiveProductBySlug"

	query, args, err := r.sq.Select(productColumns...).
		From("products p").
		Where(sq.Eq{"p.slug": slug, "p.is_active": true}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	products, err := r.scanProducts(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("repository.%s: %w", op, domain.ErrNotFound)
	}

	if err = r.attachVariants(ctx, op, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetActiveVariant возвращает вариант, только если его товар активен.
func (r *CatalogRepository) GetActiveVariant(ctx context.Context, variantID int64) (*domain.ProductVariant, error) {
	const op = "CatalogRepository.GetActiveVariant"

	query, args, err := r.sq.Select("v.id", "v.product_id", "v.name", "v.price_kopecks", "v.weight_grams", "v.sort_order").
		From("product_variants v").
		Join("products p ON p.id = v.product_id").
		Where(sq.Eq{"v.id": variantID, "p.is_active": true}).
		ToSql()
	if err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("failed to build query: %w", err))
	}

	r.logQuery(ctx, op, query, args...)
	var (
		v     domain.ProductVariant
		price int64
	)
	err = r.conn(ctx).QueryRow(ctx, query, args...).Scan(&v.ID, &v.ProductID, &v.Name, &price, &v.WeightGrams, &v.SortOrder)
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	v.Price = fromKopecks(price)
	return &v, nil
}

func (r *CatalogRepository) scanProducts(ctx context.Context, op, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, r.wrapErr(op, err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.ImageURL, &p.IsActive); err != nil {
			return nil, r.wrapErr(op, fmt.Errorf("scanning product: %w", err))
		}
		p.Variants = []domain.ProductVariant{}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, r.wrapErr(op, fmt.Errorf("iterating products: %w", err))
	}
	return products, nil
}

func (r *CatalogRepository) attachVariants(ctx context.Context, op string, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids = append(ids, p.ID)
		index[p.ID] = i
	}

	query, args, err := r.sq.Select("id", "product_id", "name", "price_kopecks", "weight_grams", "sort_order").
		From("product_variants").
		Where(sq.Eq{"product_id": ids}).
		OrderBy("product_id", "sort_order", "id").
		ToSql()
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("failed to build variants query: %w", err))
	}

	r.logQuery(ctx, op+"_variants", query, args...)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return r.wrapErr(op, fmt.Errorf("getting variants: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v     domain.ProductVariant
			price int64
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &price, &v.WeightGrams, &v.SortOrder); err != nil {
			return r.wrapErr(op, fmt.Errorf("scanning variant: %w", err))
		}
		v.Price = fromKopecks(price)
		i := index[v.ProductID]
		products[i].Variants = append(products[i].Variants, v)
	}
	if err = rows.Err(); err != nil {
		return r.wrapErr(op, fmt.Errorf("iterating variants: %w", err))
	}
	return nil
}

var _ domain.CatalogRepository = (*CatalogRepository)(nil)
