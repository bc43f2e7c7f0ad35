package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria-service/internal/domain"
	"pizzeria-service/internal/handler/http/response"
	mw "pizzeria-service/internal/middleware"
)

// CatalogHandler - публичные эндпоинты витрины.
type CatalogHandler struct {
	BaseHandler
	catalogService domain.CatalogService
}

func NewCatalogHandler(log *slog.Logger, catalogService domain.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler:    *NewBaseHandler(log),
		catalogService: catalogService,
	}
}

func (h *CatalogHandler) GetCategories(c *gin.Context) {
	const op = "CatalogHandler.GetCategories"

	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"data": categories})
}

// GetCategoryProducts - GET /categories/:slug/products?page=&per_page=
func (h *CatalogHandler) GetCategoryProducts(c *gin.Context) {
	const op = "CatalogHandler.GetCategoryProducts"
	reqID := mw.GetRequestIDFromContext(c)
	slug := c.Param("slug")
	log := h.log.With(slog.String("op", op), slog.String("request_id", reqID), slog.String("category", slug))

	page, err := h.parsePage(c)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	list, err := h.catalogService.ListProducts(c.Request.Context(), slug, page)
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	log.Debug("Products listed", slog.Int("count", len(list.Products)), slog.Int("total", list.Meta.Total))
	response.SendSuccess(c, http.StatusOK, list)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	const op = "CatalogHandler.GetProduct"

	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, product)
}

func (h *CatalogHandler) GetCities(c *gin.Context) {
	const op = "CatalogHandler.GetCities"

	cities, err := h.catalogService.ListCities(c.Request.Context())
	if err != nil {
		h.handleError(c, op, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"data": cities})
}
