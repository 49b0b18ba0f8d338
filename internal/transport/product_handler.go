package transport

import (
	"errors"
	"net/http"
	"time"

	"tienda-api/internal/domain"
	"tienda-api/internal/middleware"
	"tienda-api/internal/repository"
	"tienda-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the create/update payload. Price travels as a
// string so fixed-point values survive JSON untouched.
type ProductRequest struct {
	Name  string `json:"name" validate:"required,max=150"`
	Price string `json:"price" validate:"required"`
	Stock int    `json:"stock" validate:"gte=0"`
}

// ProductResponse represents a catalog product
type ProductResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListProductsResponse represents a paginated product listing
type ListProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, price, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Create(r.Context(), req.Name, price, req.Stock)
	if err != nil {
		h.respondProductError(w, err)
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update handles product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	req, price, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Update(r.Context(), id, req.Name, price, req.Stock)
	if err != nil {
		h.respondProductError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete handles product deletion
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		h.respondProductError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get retrieves a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		h.respondProductError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// List retrieves products, optionally filtered by a name search
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	search := r.URL.Query().Get("search")

	products, total, err := h.productService.List(r.Context(), search, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	response := ListProductsResponse{
		Products: make([]ProductResponse, 0, len(products)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, product := range products {
		response.Products = append(response.Products, toProductResponse(product))
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (*ProductRequest, decimal.Decimal, bool) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product payload validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return nil, decimal.Zero, false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, decimal.Zero, false
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		middleware.RespondWithError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return nil, decimal.Zero, false
	}

	return &req, price, true
}

func (h *ProductHandler) respondProductError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrProductNameTaken):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Product operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "product operation failed")
	}
}

func toProductResponse(product *domain.Product) ProductResponse {
	return ProductResponse{
		ID:        product.ID.String(),
		Name:      product.Name,
		Price:     product.Price.StringFixed(2),
		Stock:     product.Stock,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}
