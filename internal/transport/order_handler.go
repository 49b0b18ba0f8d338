package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tienda-api/internal/domain"
	"tienda-api/internal/middleware"
	"tienda-api/internal/repository"
	"tienda-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderLineRequest is one requested product+quantity line. Quantity is not
// validated here: non-positive values are handled by the order service
// according to the configured policy.
type OrderLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest represents the order creation payload
type CreateOrderRequest struct {
	Details []OrderLineRequest `json:"details" validate:"required,min=1,dive"`
}

// UpdateOrderRequest represents the full-replace update payload. DateTime is
// optional; when omitted the stored value is kept.
type UpdateOrderRequest struct {
	DateTime *time.Time         `json:"date_time"`
	Details  []OrderLineRequest `json:"details" validate:"required,min=1,dive"`
}

// OrderDetailResponse represents one order line in responses
type OrderDetailResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

// OrderResponse represents an order with derived totals. TotalUSD is omitted
// when the rate source is unreachable; the local-currency total is always
// present.
type OrderResponse struct {
	ID       string                `json:"id"`
	DateTime time.Time             `json:"date_time"`
	Details  []OrderDetailResponse `json:"details"`
	Total    string                `json:"total"`
	TotalUSD *string               `json:"total_usd,omitempty"`
}

// ListOrdersResponse represents a paginated order listing
type ListOrdersResponse struct {
	Orders   []OrderResponse `json:"orders"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles order creation
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	lines, ok := h.decodeLines(w, r, &req, func() []OrderLineRequest { return req.Details })
	if !ok {
		return
	}

	order, err := h.orderService.Create(r.Context(), lines)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.Int("details", len(order.Details)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, h.toOrderResponse(r, order))
}

// Update handles full-replace order updates
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateOrderRequest
	lines, ok := h.decodeLines(w, r, &req, func() []OrderLineRequest { return req.Details })
	if !ok {
		return
	}

	order, err := h.orderService.Update(r.Context(), id, lines, req.DateTime)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	h.logger.Info("Order updated", zap.String("order_id", order.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, h.toOrderResponse(r, order))
}

// Delete handles order deletion
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orderService.Delete(r.Context(), id); err != nil {
		h.respondOrderError(w, err)
		return
	}

	h.logger.Info("Order deleted", zap.String("order_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// Get retrieves a single order with derived totals
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.toOrderResponse(r, order))
}

// List retrieves orders, newest first
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	orders, total, err := h.orderService.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	response := ListOrdersResponse{
		Orders:   make([]OrderResponse, 0, len(orders)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, order := range orders {
		response.Orders = append(response.Orders, h.toOrderResponse(r, order))
	}

	middleware.RespondWithJSON(w, http.StatusOK, response)
}

// decodeLines decodes and validates the payload, then converts the line
// requests into service line items.
func (h *OrderHandler) decodeLines(w http.ResponseWriter, r *http.Request, req interface{}, details func() []OrderLineRequest) ([]service.LineItem, bool) {
	if err := middleware.DecodeAndValidate(r, req); err != nil {
		h.logger.Debug("Order payload validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return nil, false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	lines := make([]service.LineItem, 0, len(details()))
	for _, d := range details() {
		productID, err := uuid.Parse(d.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return nil, false
		}
		lines = append(lines, service.LineItem{ProductID: productID, Quantity: d.Quantity})
	}

	return lines, true
}

func (h *OrderHandler) respondOrderError(w http.ResponseWriter, err error) {
	var outOfStock *service.OutOfStockError

	switch {
	case errors.Is(err, service.ErrEmptyOrder):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrDuplicateProduct):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &outOfStock):
		middleware.RespondWithError(w, http.StatusConflict, outOfStock.Error())
	case errors.Is(err, repository.ErrOrderNotFound), errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Order operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "order operation failed")
	}
}

// toOrderResponse builds the response shape, computing the local total and
// attempting the USD conversion. A rate failure only drops total_usd.
func (h *OrderHandler) toOrderResponse(r *http.Request, order *domain.Order) OrderResponse {
	response := OrderResponse{
		ID:       order.ID.String(),
		DateTime: order.DateTime,
		Details:  make([]OrderDetailResponse, 0, len(order.Details)),
		Total:    order.Total().StringFixed(2),
	}

	for _, detail := range order.Details {
		response.Details = append(response.Details, OrderDetailResponse{
			ID:          detail.ID.String(),
			ProductID:   detail.ProductID.String(),
			ProductName: detail.ProductName,
			Quantity:    detail.Quantity,
			Price:       detail.Price.StringFixed(2),
			Subtotal:    detail.Subtotal().StringFixed(2),
		})
	}

	usd, err := h.orderService.TotalUSD(r.Context(), order)
	if err != nil {
		h.logger.Warn("USD conversion unavailable",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	} else {
		formatted := usd.StringFixed(2)
		response.TotalUSD = &formatted
	}

	return response
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	return page, pageSize
}
