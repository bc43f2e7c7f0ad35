package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

type CartService struct {
	log         *slog.Logger
	cartRepo    domain.CartRepository
	catalogRepo domain.CatalogRepository
	txManager   domain.TxManager
	maxQuantity int
}

func NewCartService(
	log *slog.Logger,
	cartRepo domain.CartRepository,
	catalogRepo domain.CatalogRepository,
	txManager domain.TxManager,
	maxQuantity int,
) *CartService {
	return &CartService{
		log:         log,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		txManager:   txManager,
		maxQuantity: maxQuantity,
	}
}

func (s *CartService) logger(ctx context.Context, op string, owner domain.CartOwner) *slog.Logger {
	reqID := middleware.GetRequestIDFromContext(ctx)
	return s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("owner", owner.String()))
}

// Get возвращает корзину. Гость без токена получает пустую корзину.
func (s *CartService) Get(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	const op = "CartService.Get"
	if owner.IsZero() {
		return domain.NewCart(nil), nil
	}

	items, err := s.cartRepo.ListItems(ctx, owner)
	if err != nil {
		s.logger(ctx, op, owner).Error("Failed to list cart items", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	return domain.NewCart(items), nil
}

func (s *CartService) checkQuantity(op string, quantity int) error {
	if quantity < 1 || quantity > s.maxQuantity {
		return fmt.Errorf("%s: %w: %w: must be between 1 and %d", op, domain.ErrValidation, domain.ErrInvalidQuantity, s.maxQuantity)
	}
	return nil
}

// checkVariant проверяет, что вариант существует и товар активен.
func (s *CartService) checkVariant(ctx context.Context, op string, variantID int64) error {
	_, err := s.catalogRepo.GetActiveVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, domain.ErrVariantNotFound)
		}
		return fmt.Errorf("%s: %w: %v", op, domain.ErrDatabaseError, err)
	}
	return nil
}

func (s *CartService) AddItem(ctx context.Context, owner domain.CartOwner, variantID int64, quantity int) (*domain.Cart, error) {
	const op = "CartService.AddItem"
	log := s.logger(ctx, op, owner).With(slog.Int64("variant_id", variantID), slog.Int("quantity", quantity))

	if owner.IsZero() {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, domain.ErrCartOwnerMissing)
	}
	if err := s.checkQuantity(op, quantity); err != nil {
		return nil, err
	}
	if err := s.checkVariant(ctx, op, variantID); err != nil {
		log.Warn("Variant cannot be added to cart", slog.String("error", err.Error()))
		return nil, err
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.cartRepo.Lock(ctx, owner); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		current, err := s.cartRepo.GetQuantity(ctx, owner, variantID)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		if err := s.checkQuantity(op, current+quantity); err != nil {
			return err
		}
		if err := s.cartRepo.SetQuantity(ctx, owner, variantID, current+quantity); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDatabaseError, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			log.Warn("Cart line quantity limit exceeded")
			return nil, err
		}
		log.Error("Failed to add item to cart", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("Item added to cart")
	return s.Get(ctx, owner)
}

// UpdateItem задаёт количество строки. Количество 0 удаляет строку.
func (s *CartService) UpdateItem(ctx context.Context, owner domain.CartOwner, variantID int64, quantity int) (*domain.Cart, error) {
	const op = "CartService.UpdateItem"
	log := s.logger(ctx, op, owner).With(slog.Int64("variant_id", variantID), slog.Int("quantity", quantity))

	if owner.IsZero() {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, domain.ErrCartOwnerMissing)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, owner, variantID)
	}
	if err := s.checkQuantity(op, quantity); err != nil {
		return nil, err
	}
	if err := s.checkVariant(ctx, op, variantID); err != nil {
		log.Warn("Variant cannot be updated in cart", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.cartRepo.SetQuantity(ctx, owner, variantID, quantity); err != nil {
		log.Error("Failed to set cart quantity", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("Cart line updated")
	return s.Get(ctx, owner)
}

func (s *CartService) RemoveItem(ctx context.Context, owner domain.CartOwner, variantID int64) (*domain.Cart, error) {
	const op = "CartService.RemoveItem"
	log := s.logger(ctx, op, owner).With(slog.Int64("variant_id", variantID))

	if owner.IsZero() {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, domain.ErrCartOwnerMissing)
	}
	if err := s.cartRepo.Remove(ctx, owner, variantID); err != nil {
		log.Error("Failed to remove cart line", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("Cart line removed")
	return s.Get(ctx, owner)
}

func (s *CartService) Clear(ctx context.Context, owner domain.CartOwner) error {
	const op = "CartService.Clear"
	if owner.IsZero() {
		return nil
	}

	if err := s.cartRepo.Clear(ctx, owner); err != nil {
		s.logger(ctx, op, owner).Error("Failed to clear cart", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	return nil
}

// MergeGuestCart переносит строки гостевой корзины пользователю. Количества складываются
// и ограничиваются максимумом, строки со скрытыми товарами отбрасываются.
func (s *CartService) MergeGuestCart(ctx context.Context, guestToken, userID uuid.UUID) error {
	const op = "CartService.MergeGuestCart"
	guest := domain.ForGuest(guestToken)
	user := domain.ForUser(userID)
	log := s.logger(ctx, op, guest).With(slog.String("user_id", userID.String()))

	merged := 0
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		// порядок гость, затем пользователь везде одинаковый
		if err := s.cartRepo.Lock(ctx, guest); err != nil {
			return err
		}
		if err := s.cartRepo.Lock(ctx, user); err != nil {
			return err
		}
		items, err := s.cartRepo.ListItems(ctx, guest)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}

		for _, item := range items {
			if !item.ProductActive {
				continue
			}
			current, err := s.cartRepo.GetQuantity(ctx, user, item.VariantID)
			if err != nil {
				return err
			}
			quantity := min(current+item.Quantity, s.maxQuantity)
			if err := s.cartRepo.SetQuantity(ctx, user, item.VariantID, quantity); err != nil {
				return err
			}
			merged++
		}
		return s.cartRepo.Clear(ctx, guest)
	})
	if err != nil {
		log.Error("Failed to merge guest cart", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	if merged > 0 {
		log.Info("Guest cart merged", slog.Int("lines", merged))
	}
	return nil
}

var _ domain.CartService = (*CartService)(nil)
