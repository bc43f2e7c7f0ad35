package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

type AddressHandler struct {
	BaseHandler
	addressService domain.AddressService
}

func NewAddressHandler(log *slog.Logger, addressService domain.AddressService) *AddressHandler {
	return &AddressHandler{
		BaseHandler:    *NewBaseHandler(log),
		addressService: addressService,
	}
}

func toAddressInput(body api.AddressJSONBody) domain.AddressInput {
	return domain.AddressInput{
		CityID:    body.CityId,
		Street:    body.Street,
		House:     body.House,
		Apartment: derefString(body.Apartment),
		Entrance:  derefString(body.Entrance),
		Floor:     derefString(body.Floor),
		Intercom:  derefString(body.Intercom),
		Comment:   derefString(body.Comment),
	}
}

func (h *AddressHandler) GetAddresses(c *gin.Context) {
	const op = "AddressHandler.GetAddresses"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	addresses, err := h.addressService.List(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"data": addresses})
}

func (h *AddressHandler) PostAddress(c *gin.Context) {
	const op = "AddressHandler.PostAddress"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	var reqBody api.AddressJSONBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}

	address, err := h.addressService.Create(c.Request.Context(), userID, toAddressInput(reqBody))
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	log.Info("Address created", slog.String("address_id", address.ID.String()))
	response.SendSuccess(c, http.StatusCreated, address)
}

func (h *AddressHandler) PutAddress(c *gin.Context) {
	const op = "AddressHandler.PutAddress"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	addressID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	var reqBody api.AddressJSONBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}

	address, err := h.addressService.Update(c.Request.Context(), userID, addressID, toAddressInput(reqBody))
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, address)
}

func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	const op = "AddressHandler.DeleteAddress"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	addressID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	if err := h.addressService.Delete(c.Request.Context(), userID, addressID); err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusNoContent, nil)
}

func (h *AddressHandler) PostDefaultAddress(c *gin.Context) {
	const op = "AddressHandler.PostDefaultAddress"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	addressID, err := h.parseUUID(c, "id")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	address, err := h.addressService.SetDefault(c.Request.Context(), userID, addressID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, address)
}
