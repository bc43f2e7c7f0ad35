package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

// Ключи кеша каталога.
const (
	cacheKeyCategories = "categories"
	cacheKeyCities     = "cities"
)

func productsCacheKey(slug string, page domain.Page) string {
	return fmt.Sprintf("products:%s:%d:%d", slug, page.Number, page.PerSize)
}

func productCacheKey(slug string) string {
	return "product:" + slug
}

// CatalogService реализует чтение витрины с кешированием по схеме cache-aside.
// Ошибки кеша не прерывают запрос: данные берутся из БД.
type CatalogService struct {
	log         *slog.Logger
	catalogRepo domain.CatalogRepository
	cityRepo    domain.CityRepository
	cache       domain.CatalogCache
	ttl         time.Duration
}

func NewCatalogService(
	log *slog.Logger,
	catalogRepo domain.CatalogRepository,
	cityRepo domain.CityRepository,
	cache domain.CatalogCache,
	ttl time.Duration,
) *CatalogService {
	return &CatalogService{
		log:         log,
		catalogRepo: catalogRepo,
		cityRepo:    cityRepo,
		cache:       cache,
		ttl:         ttl,
	}
}

func (s *CatalogService) fromCache(ctx context.Context, log *slog.Logger, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn("Catalog cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if hit {
		log.Debug("Catalog cache hit", slog.String("key", key))
	}
	return hit
}

func (s *CatalogService) toCache(ctx context.Context, log *slog.Logger, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		log.Warn("Catalog cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "CatalogService.ListCategories"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	var categories []domain.Category
	if s.fromCache(ctx, log, cacheKeyCategories, &categories) {
		return categories, nil
	}

	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		log.Error("Failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	s.toCache(ctx, log, cacheKeyCategories, categories)
	return categories, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, categorySlug string, page domain.Page) (*domain.ProductList, error) {
	const op = "CatalogService.ListProducts"
	page = NormalizePage(page, DefaultCatalogPerPage)
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("category", categorySlug), slog.Int("page", page.Number), slog.Int("per_page", page.PerSize))

	key := productsCacheKey(categorySlug, page)
	var cached domain.ProductList
	if s.fromCache(ctx, log, key, &cached) {
		return &cached, nil
	}

	category, err := s.catalogRepo.GetCategoryBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Category not found")
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrCategoryNotFound)
		}
		log.Error("Failed to get category", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	products, total, err := s.catalogRepo.ListActiveProducts(ctx, category.ID, page)
	if err != nil {
		log.Error("Failed to list products", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	if products == nil {
		products = []domain.Product{}
	}

	list := &domain.ProductList{
		Category: *category,
		Products: products,
		Meta:     domain.NewPaginationMeta(page, total),
	}

	s.toCache(ctx, log, key, list)
	return list, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	const op = "CatalogService.GetProduct"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("slug", slug))

	key := productCacheKey(slug)
	var cached domain.Product
	if s.fromCache(ctx, log, key, &cached) {
		return &cached, nil
	}

	product, err := s.catalogRepo.GetActiveProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Product not found or inactive")
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrProductNotFound)
		}
		log.Error("Failed to get product", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	s.toCache(ctx, log, key, product)
	return product, nil
}

func (s *CatalogService) ListCities(ctx context.Context) ([]domain.City, error) {
	const op = "CatalogService.ListCities"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID))

	var cities []domain.City
	if s.fromCache(ctx, log, cacheKeyCities, &cities) {
		return cities, nil
	}

	cities, err := s.cityRepo.List(ctx)
	if err != nil {
		log.Error("Failed to list cities", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	s.toCache(ctx, log, cacheKeyCities, cities)
	return cities, nil
}

var _ domain.CatalogService = (*CatalogService)(nil)
