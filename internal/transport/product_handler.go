package transport

import (
	"errors"
	"net/http"
	"strconv"

	"products-backend/internal/domain"
	"products-backend/internal/middleware"
	"products-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	schema         domain.ProductSchema
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler. Request bodies are
// checked against schema before they reach the service.
func NewProductHandler(productService service.ProductService, schema domain.ProductSchema, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		schema:         schema,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)
		r.Get("/{id}", h.FindOne)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Remove)
	})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidProductID
	}
	return id, nil
}

// decodeBody reads and checks a product payload. It writes the error response
// itself and reports false when the request should stop.
func (h *ProductHandler) decodeBody(w http.ResponseWriter, r *http.Request, partial bool) (domain.Attributes, bool) {
	attrs, err := middleware.DecodeAttributes(w, r)
	if err != nil {
		h.logger.Debug("Product body decode failed", zap.Error(err))

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	attrs, validationErrors := middleware.ValidateAttributes(h.schema, attrs, partial)
	if len(validationErrors) > 0 {
		h.logger.Debug("Product validation failed", zap.Int("errors", len(validationErrors)))
		middleware.RespondWithValidationErrors(w, validationErrors)
		return nil, false
	}

	return attrs, true
}

// FindAll handles GET /products
func (h *ProductHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.FindAll(r.Context())
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to list products")
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// FindOne handles GET /products/{id}
func (h *ProductHandler) FindOne(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	product, err := h.productService.FindOne(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	attrs, ok := h.decodeBody(w, r, false)
	if !ok {
		return
	}

	product, err := h.productService.Create(r.Context(), attrs)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles PUT /products/{id}. Only the fields in the body change.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}

	patch, ok := h.decodeBody(w, r, true)
	if !ok {
		return
	}

	product, err := h.productService.Update(r.Context(), id, patch)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Remove handles DELETE /products/{id}
func (h *ProductHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	if err := h.productService.Remove(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	h.logger.Info("Product removed", zap.Int64("product_id", id))
	w.WriteHeader(http.StatusOK)
}
