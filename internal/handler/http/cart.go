package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

// CartHandler работает и для пользователей, и для гостей. Маршруты должны идти
// после OptionalAuthorize и CartToken.
type CartHandler struct {
	BaseHandler
	cartService domain.CartService
}

func NewCartHandler(log *slog.Logger, cartService domain.CartService) *CartHandler {
	return &CartHandler{
		BaseHandler: *NewBaseHandler(log),
		cartService: cartService,
	}
}

// cartOwner: пользователь важнее гостевого токена.
func cartOwner(c *gin.Context) domain.CartOwner {
	if userID, ok := mw.GetUserID(c); ok {
		return domain.ForUser(userID)
	}
	if token, ok := mw.GetCartToken(c); ok {
		return domain.ForGuest(token)
	}
	return domain.CartOwner{}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	const op = "CartHandler.GetCart"

	cart, err := h.cartService.Get(c.Request.Context(), cartOwner(c))
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, cart)
}

// PostCartItem добавляет вариант. Гость без токена после успешного добавления получает новый токен
// в заголовке X-Cart-Token.
func (h *CartHandler) PostCartItem(c *gin.Context) {
	const op = "CartHandler.PostCartItem"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	var reqBody api.PostCartItemsJSONBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}
	quantity := 1
	if reqBody.Quantity != nil {
		quantity = *reqBody.Quantity
	}

	owner := cartOwner(c)
	issued := owner.IsZero()
	if issued {
		owner = domain.ForGuest(uuid.New())
	}

	cart, err := h.cartService.AddItem(c.Request.Context(), owner, reqBody.VariantId, quantity)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	// токен отдаётся только вместе с созданной корзиной
	if issued {
		c.Header(mw.CartTokenHeader, owner.GuestToken.String())
		log.Info("Guest cart token issued")
	}

	log.Debug("Cart item added", slog.String("owner", owner.String()), slog.Int64("variant_id", reqBody.VariantId))
	response.SendSuccess(c, http.StatusOK, cart)
}

func (h *CartHandler) PatchCartItem(c *gin.Context) {
	const op = "CartHandler.PatchCartItem"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	variantID, err := h.parseInt64Param(c, "variantId")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	var reqBody api.PatchCartItemJSONBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}

	cart, err := h.cartService.UpdateItem(c.Request.Context(), cartOwner(c), variantID, *reqBody.Quantity)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, cart)
}

func (h *CartHandler) DeleteCartItem(c *gin.Context) {
	const op = "CartHandler.DeleteCartItem"

	variantID, err := h.parseInt64Param(c, "variantId")
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	cart, err := h.cartService.RemoveItem(c.Request.Context(), cartOwner(c), variantID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, cart)
}

func (h *CartHandler) DeleteCart(c *gin.Context) {
	const op = "CartHandler.DeleteCart"

	if err := h.cartService.Clear(c.Request.Context(), cartOwner(c)); err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusNoContent, nil)
}
