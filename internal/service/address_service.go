package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/middleware"
)

// AddressService управляет адресами доставки пользователя.
// Первый адрес становится основным; у пользователя всегда ровно один основной адрес, пока адреса есть.
type AddressService struct {
	log         *slog.Logger
	addressRepo domain.AddressRepository
	cityRepo    domain.CityRepository
	txManager   domain.TxManager
}

func NewAddressService(
	log *slog.Logger,
	addressRepo domain.AddressRepository,
	cityRepo domain.CityRepository,
	txManager domain.TxManager,
) *AddressService {
	return &AddressService{
		log:         log,
		addressRepo: addressRepo,
		cityRepo:    cityRepo,
		txManager:   txManager,
	}
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]domain.Address, error) {
	const op = "AddressService.List"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("user_id", userID.String()))

	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		log.Error("Failed to list addresses", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}
	if addresses == nil {
		addresses = []domain.Address{}
	}
	return addresses, nil
}

// applyInput проверяет поля и город и переносит их в адрес.
func (s *AddressService) applyInput(ctx context.Context, op string, address *domain.Address, input domain.AddressInput) error {
	street := strings.TrimSpace(input.Street)
	house := strings.TrimSpace(input.House)
	if street == "" || house == "" {
		return fmt.Errorf("%s: %w: street and house are required", op, domain.ErrValidation)
	}

	city, err := s.cityRepo.GetByID(ctx, input.CityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s: %w: %w", op, domain.ErrValidation, domain.ErrCityNotFound)
		}
		return fmt.Errorf("%s: %w: %v", op, domain.ErrDatabaseError, err)
	}

	address.CityID = city.ID
	address.CityName = city.Name
	address.Street = street
	address.House = house
	address.Apartment = strings.TrimSpace(input.Apartment)
	address.Entrance = strings.TrimSpace(input.Entrance)
	address.Floor = strings.TrimSpace(input.Floor)
	address.Intercom = strings.TrimSpace(input.Intercom)
	address.Comment = strings.TrimSpace(input.Comment)
	return nil
}

// ownedAddress возвращает адрес пользователя. Чужой адрес неотличим от несуществующего.
func (s *AddressService) ownedAddress(ctx context.Context, op string, userID, id uuid.UUID) (*domain.Address, error) {
	address, err := s.addressRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrAddressNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, domain.ErrDatabaseError, err)
	}
	if address.UserID != userID {
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrAddressNotFound)
	}
	return address, nil
}

func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	const op = "AddressService.Create"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("user_id", userID.String()))

	address := &domain.Address{ID: uuid.New(), UserID: userID}
	if err := s.applyInput(ctx, op, address, input); err != nil {
		log.Warn("Invalid address input", slog.String("error", err.Error()))
		return nil, err
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		count, err := s.addressRepo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		address.IsDefault = count == 0
		return s.addressRepo.Create(ctx, address)
	})
	if err != nil {
		log.Error("Failed to create address", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("Address created", slog.String("address_id", address.ID.String()), slog.Bool("is_default", address.IsDefault))
	return address, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, input domain.AddressInput) (*domain.Address, error) {
	const op = "AddressService.Update"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("user_id", userID.String()), slog.String("address_id", id.String()))

	address, err := s.ownedAddress(ctx, op, userID, id)
	if err != nil {
		log.Warn("Address is not available for update", slog.String("error", err.Error()))
		return nil, err
	}
	if err := s.applyInput(ctx, op, address, input); err != nil {
		log.Warn("Invalid address input", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.addressRepo.Update(ctx, address); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrAddressNotFound)
		}
		log.Error("Failed to update address", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("Address updated")
	return address, nil
}

// Delete удаляет адрес. Если удалён основной адрес, основным становится самый новый из оставшихся.
func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const op = "AddressService.Delete"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("user_id", userID.String()), slog.String("address_id", id.String()))

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		address, err := s.ownedAddress(ctx, op, userID, id)
		if err != nil {
			return err
		}
		if err := s.addressRepo.Delete(ctx, id); err != nil {
			return err
		}
		if !address.IsDefault {
			return nil
		}

		latest, err := s.addressRepo.LatestByUser(ctx, userID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		log.Debug("Promoting address to default", slog.String("promoted_id", latest.ID.String()))
		return s.addressRepo.SetDefault(ctx, userID, latest.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Address to delete not found")
			return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrAddressNotFound)
		}
		log.Error("Failed to delete address", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	log.Info("Address deleted")
	return nil
}

func (s *AddressService) SetDefault(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	const op = "AddressService.SetDefault"
	reqID := middleware.GetRequestIDFromContext(ctx)
	log := s.log.With(slog.String("op", op), slog.String("request_id", reqID),
		slog.String("user_id", userID.String()), slog.String("address_id", id.String()))

	var address *domain.Address
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		address, err = s.ownedAddress(ctx, op, userID, id)
		if err != nil {
			return err
		}
		return s.addressRepo.SetDefault(ctx, userID, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("Address to mark as default not found")
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, domain.ErrAddressNotFound)
		}
		log.Error("Failed to set default address", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, domain.ErrDatabaseError)
	}

	address.IsDefault = true
	log.Info("Default address changed")
	return address, nil
}

var _ domain.AddressService = (*AddressService)(nil)
