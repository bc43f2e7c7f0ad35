package http_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pizzeria-service/internal/domain"
	httpHandler "pizzeria-service/internal/handler/http"
)

func TestAddressHandler(t *testing.T) {
	mockService := new(MockAddressService)
	handler := httpHandler.NewAddressHandler(testLogger(), mockService)

	userID := uuid.New()
	addressID := uuid.New()

	router := newTestRouter()
	group := router.Group("/addresses", asUser(userID, domain.RoleCustomer))
	group.GET("", handler.GetAddresses)
	group.POST("", handler.PostAddress)
	group.PUT("/:id", handler.PutAddress)
	group.DELETE("/:id", handler.DeleteAddress)
	group.POST("/:id/default", handler.PostDefaultAddress)

	input := domain.AddressInput{CityID: 1, Street: "Тверская", House: "7", Apartment: "12"}
	body := map[string]any{"cityId": 1, "street": "Тверская", "house": "7", "apartment": " 12 "}

	t.Run("создание адреса", func(t *testing.T) {
		mockService.On("Create", mock.Anything, userID, input).
			Return(&domain.Address{ID: addressID, UserID: userID, CityID: 1, Street: "Тверская", House: "7", Apartment: "12", IsDefault: true}, nil).Once()

		w := performJSON(router, http.MethodPost, "/addresses", body, nil)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"isDefault":true`)
	})

	t.Run("нет обязательных полей", func(t *testing.T) {
		w := performJSON(router, http.MethodPost, "/addresses", map[string]any{"cityId": 1}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("список адресов", func(t *testing.T) {
		mockService.On("List", mock.Anything, userID).Return([]domain.Address{{ID: addressID}}, nil).Once()

		w := performJSON(router, http.MethodGet, "/addresses", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), addressID.String())
	})

	t.Run("изменение чужого адреса", func(t *testing.T) {
		mockService.On("Update", mock.Anything, userID, addressID, input).
			Return(nil, fmt.Errorf("AddressService.Update: %w: %w", domain.ErrNotFound, domain.ErrAddressNotFound)).Once()

		w := performJSON(router, http.MethodPut, "/addresses/"+addressID.String(), body, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("удаление", func(t *testing.T) {
		mockService.On("Delete", mock.Anything, userID, addressID).Return(nil).Once()

		w := performJSON(router, http.MethodDelete, "/addresses/"+addressID.String(), nil, nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("адрес по умолчанию", func(t *testing.T) {
		mockService.On("SetDefault", mock.Anything, userID, addressID).
			Return(&domain.Address{ID: addressID, IsDefault: true}, nil).Once()

		w := performJSON(router, http.MethodPost, "/addresses/"+addressID.String()+"/default", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("некорректный id", func(t *testing.T) {
		w := performJSON(router, http.MethodDelete, "/addresses/42", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	mockService.AssertExpectations(t)
}
