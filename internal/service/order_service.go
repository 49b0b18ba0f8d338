package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tienda-api/internal/domain"
	"tienda-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder       = errors.New("order must have at least one detail")
	ErrInvalidQuantity  = errors.New("quantity must be a positive integer")
	ErrDuplicateProduct = errors.New("order lists the same product more than once")
	ErrZeroRate         = errors.New("exchange rate is zero")
)

// OutOfStockError reports which product could not cover the requested
// quantity. The failing operation rolls back entirely.
type OutOfStockError struct {
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock", e.ProductName)
}

// InvalidQuantityPolicy controls what happens to lines with a non-positive
// quantity: drop them silently or fail the whole request.
type InvalidQuantityPolicy string

const (
	PolicySkip   InvalidQuantityPolicy = "skip"
	PolicyReject InvalidQuantityPolicy = "reject"
)

// LineItem is one requested product+quantity entry for an order mutation.
type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// RateSource provides the current exchange rate for USD conversions.
// *exchange.Cache satisfies it.
type RateSource interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// OrderService defines the interface for order business logic. Create,
// Update and Delete each run as one atomic transaction: stock reservations,
// releases and detail rows either all commit or none do.
type OrderService interface {
	Create(ctx context.Context, lines []LineItem) (*domain.Order, error)
	Update(ctx context.Context, id uuid.UUID, lines []LineItem, dateTime *time.Time) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	TotalUSD(ctx context.Context, order *domain.Order) (decimal.Decimal, error)
}

type orderService struct {
	orders repository.OrderRepository
	rates  RateSource
	policy InvalidQuantityPolicy
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository, rates RateSource, policy InvalidQuantityPolicy) OrderService {
	if policy != PolicySkip {
		policy = PolicyReject
	}
	return &orderService{
		orders: orders,
		rates:  rates,
		policy: policy,
	}
}

// Create reserves stock for every line and persists the order with its
// details. Any failure rolls back all reservations made so far.
func (s *orderService) Create(ctx context.Context, lines []LineItem) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:        uuid.New(),
		DateTime:  now,
		CreatedAt: now,
	}

	err := s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		details, err := s.reserve(ctx, tx, order.ID, lines)
		if err != nil {
			return err
		}
		if len(details) == 0 {
			return ErrEmptyOrder
		}

		order.Details = details
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Update replaces the order's details: the order row is locked (an unknown
// id fails before any stock moves), existing reservations are released, then
// the new lines are reserved with the same rules as Create. A failure in the
// reserve phase also rolls back the releases, leaving stock and details
// exactly as before the call.
func (s *orderService) Update(ctx context.Context, id uuid.UUID, lines []LineItem, dateTime *time.Time) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	var updated *domain.Order

	err := s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return err
		}

		if err := s.release(ctx, tx, id); err != nil {
			return err
		}

		details, err := s.reserve(ctx, tx, id, lines)
		if err != nil {
			return err
		}
		if len(details) == 0 {
			return ErrEmptyOrder
		}

		if dateTime != nil {
			if err := tx.SetOrderDate(ctx, id, dateTime.UTC()); err != nil {
				return err
			}
		}

		updated = &domain.Order{ID: id, Details: details}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.orders.FindByID(ctx, updated.ID)
}

// Delete restores the stock of every detail and removes the order, all in
// one transaction.
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orders.InTx(ctx, func(tx repository.OrderTx) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		if err := s.release(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, id)
	})
}

// Get retrieves an order with its details
func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// List retrieves orders, newest first
func (s *orderService) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orders.List(ctx, page, pageSize)
}

// TotalUSD converts the order total to USD using the current exchange rate.
// The local-currency total stays available to callers even when this fails.
func (s *orderService) TotalUSD(ctx context.Context, order *domain.Order) (decimal.Decimal, error) {
	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.IsZero() {
		return decimal.Zero, ErrZeroRate
	}

	return order.Total().Div(rate), nil
}

// reserve applies the per-line reservation algorithm: lock the product row,
// check stock, decrement it and insert a detail with the current price
// captured as a snapshot.
func (s *orderService) reserve(ctx context.Context, tx repository.OrderTx, orderID uuid.UUID, lines []LineItem) ([]*domain.OrderDetail, error) {
	// Validate in input order before taking any locks.
	valid := make([]LineItem, 0, len(lines))
	seen := map[uuid.UUID]bool{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			if s.policy == PolicySkip {
				continue
			}
			return nil, ErrInvalidQuantity
		}
		// One detail row per product per order; duplicates would violate
		// the unique constraint anyway.
		if seen[line.ProductID] {
			return nil, ErrDuplicateProduct
		}
		seen[line.ProductID] = true
		valid = append(valid, line)
	}

	// Lock rows in a fixed order so concurrent multi-line mutations cannot
	// deadlock on each other.
	sortByProductID(valid)

	details := []*domain.OrderDetail{}

	for _, line := range valid {
		product, err := tx.LockProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}

		if product.Stock < line.Quantity {
			return nil, &OutOfStockError{ProductName: product.Name}
		}

		if err := tx.SetProductStock(ctx, product.ID, product.Stock-line.Quantity); err != nil {
			return nil, err
		}

		detail := &domain.OrderDetail{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Price:       product.Price,
		}
		if err := tx.InsertDetail(ctx, detail); err != nil {
			return nil, err
		}

		details = append(details, detail)
	}

	return details, nil
}

// release restores the stock of every existing detail and deletes them.
// Product rows are locked in the same fixed order as reserve.
func (s *orderService) release(ctx context.Context, tx repository.OrderTx, orderID uuid.UUID) error {
	details, err := tx.ListDetails(ctx, orderID)
	if err != nil {
		return err
	}

	sort.Slice(details, func(i, j int) bool {
		return bytes.Compare(details[i].ProductID[:], details[j].ProductID[:]) < 0
	})

	for _, detail := range details {
		product, err := tx.LockProduct(ctx, detail.ProductID)
		if err != nil {
			return err
		}
		if err := tx.SetProductStock(ctx, product.ID, product.Stock+detail.Quantity); err != nil {
			return err
		}
	}

	return tx.DeleteDetails(ctx, orderID)
}

func sortByProductID(lines []LineItem) {
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].ProductID[:], lines[j].ProductID[:]) < 0
	})
}
