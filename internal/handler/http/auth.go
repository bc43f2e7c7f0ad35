package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/api"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
	"pizzeria-service/pkg/validator"
)

type AuthHandler struct {
	BaseHandler
	authService domain.AuthService
	cartService domain.CartService
	validator   *validator.CustomValidator
	tokenTTL    time.Duration
}

func NewAuthHandler(log *slog.Logger, authService domain.AuthService, cartService domain.CartService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		BaseHandler: *NewBaseHandler(log),
		authService: authService,
		cartService: cartService,
		validator:   validator.NewCustomValidator(),
		tokenTTL:    tokenTTL,
	}
}

func (h *AuthHandler) PostRegister(c *gin.Context) {
	const op = "AuthHandler.PostRegister"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	var reqBody api.PostRegisterJSONRequestBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}

	type registerValidation struct {
		Name     string `validate:"required,max=100"`
		Email    string `validate:"required,email"`
		Phone    string `validate:"phone"`
		Password string `validate:"required,password"`
	}

	input := domain.RegisterInput{
		Name:     reqBody.Name,
		Email:    string(reqBody.Email),
		Phone:    derefString(reqBody.Phone),
		Password: reqBody.Password,
	}

	if err := h.validator.Validate(&registerValidation{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Password: input.Password,
	}); err != nil {
		log.Warn("Failed to validate request", slog.String("error", err.Error()))
		response.SendError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	log.Info("User registered successfully", slog.String("user_id", user.ID.String()))
	response.SendSuccess(c, http.StatusCreated, toUserResponse(*user))
}

// PostLogin выдаёт токен. Если клиент прислал X-Cart-Token, гостевая корзина переносится
// в корзину пользователя; ошибка переноса вход не ломает.
func (h *AuthHandler) PostLogin(c *gin.Context) {
	const op = "AuthHandler.PostLogin"
	reqID := mw.GetRequestIDFromContext(c)
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID))

	var reqBody api.PostLoginJSONRequestBody
	if !h.bindJSON(c, log, &reqBody) {
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), string(reqBody.Email), reqBody.Password)
	if err != nil {
		h.handleError(c, op, err)
		return
	}
	log = log.With(slog.String("user_id", user.ID.String()))

	if guestToken, ok := mw.GetCartToken(c); ok {
		if err := h.cartService.MergeGuestCart(c.Request.Context(), guestToken, user.ID); err != nil {
			log.Error("Failed to merge guest cart", slog.String("error", err.Error()))
		} else {
			log.Info("Guest cart merged")
		}
	}

	log.Info("User logged in successfully")
	response.SendSuccess(c, http.StatusOK, api.Token{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.tokenTTL.Seconds()),
		User:      toUserResponse(*user),
	})
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	const op = "AuthHandler.GetMe"

	userID, err := h.currentUserID(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, toUserResponse(*user))
}
