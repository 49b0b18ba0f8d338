package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tienda-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access. All stock
// mutations go through InTx so that reservation and release are atomic.
type OrderRepository interface {
	// InTx runs fn inside a single database transaction. A non-nil error
	// from fn rolls back everything done through the OrderTx.
	InTx(ctx context.Context, fn func(tx OrderTx) error) error

	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
}

// OrderTx exposes the statements the order service needs inside one
// transaction. LockProduct takes a row lock, so concurrent reservations
// against the same product serialize on the stock check.
type OrderTx interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	SetOrderDate(ctx context.Context, id uuid.UUID, dateTime time.Time) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	LockProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	SetProductStock(ctx context.Context, id uuid.UUID, stock int) error

	InsertDetail(ctx context.Context, detail *domain.OrderDetail) error
	ListDetails(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderDetail, error)
	DeleteDetails(ctx context.Context, orderID uuid.UUID) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// InTx begins a transaction, runs fn against it and commits, rolling back
// when fn or the commit fails.
func (r *orderRepository) InTx(ctx context.Context, fn func(tx OrderTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&orderTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its details
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, date_time, created_at
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.DateTime,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	details, err := queryDetails(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	order.Details = details

	return order, nil
}

// List retrieves orders, newest first, with pagination. Details are loaded
// for every returned order.
func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize

	query := `
		SELECT id, date_time, created_at
		FROM orders
		ORDER BY date_time DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order := &domain.Order{}
		if err := rows.Scan(&order.ID, &order.DateTime, &order.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		details, err := queryDetails(ctx, r.db, order.ID)
		if err != nil {
			return nil, 0, err
		}
		order.Details = details
	}

	return orders, total, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryDetails(ctx context.Context, q querier, orderID uuid.UUID) ([]*domain.OrderDetail, error) {
	query := `
		SELECT d.id, d.order_id, d.product_id, p.name, d.quantity, d.price
		FROM order_details d
		JOIN products p ON p.id = d.product_id
		WHERE d.order_id = $1
		ORDER BY d.id
	`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order details: %w", err)
	}
	defer rows.Close()

	details := []*domain.OrderDetail{}
	for rows.Next() {
		detail := &domain.OrderDetail{}
		err := rows.Scan(
			&detail.ID,
			&detail.OrderID,
			&detail.ProductID,
			&detail.ProductName,
			&detail.Quantity,
			&detail.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order detail: %w", err)
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order details: %w", err)
	}

	return details, nil
}

type orderTx struct {
	tx *sql.Tx
}

func (t *orderTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, date_time, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := t.tx.ExecContext(ctx, query, order.ID, order.DateTime, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// LockOrder reads the order row under FOR UPDATE, so a mutation can verify
// the order exists before touching stock and hold the row for its duration.
func (t *orderTx) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, date_time, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	order := &domain.Order{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.DateTime,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	return order, nil
}

func (t *orderTx) SetOrderDate(ctx context.Context, id uuid.UUID, dateTime time.Time) error {
	query := `UPDATE orders SET date_time = $2 WHERE id = $1`

	result, err := t.tx.ExecContext(ctx, query, id, dateTime)
	if err != nil {
		return fmt.Errorf("failed to update order date: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (t *orderTx) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM orders WHERE id = $1`

	result, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// LockProduct reads a product under FOR UPDATE. The row stays locked until
// the surrounding transaction commits or rolls back, which makes the
// check-then-decrement on stock safe under concurrent reservations.
func (t *orderTx) LockProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, price, stock, created_at, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`

	product := &domain.Product{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	return product, nil
}

func (t *orderTx) SetProductStock(ctx context.Context, id uuid.UUID, stock int) error {
	query := `UPDATE products SET stock = $2, updated_at = $3 WHERE id = $1`

	result, err := t.tx.ExecContext(ctx, query, id, stock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (t *orderTx) InsertDetail(ctx context.Context, detail *domain.OrderDetail) error {
	query := `
		INSERT INTO order_details (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := t.tx.ExecContext(
		ctx,
		query,
		detail.ID,
		detail.OrderID,
		detail.ProductID,
		detail.Quantity,
		detail.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order detail: %w", err)
	}

	return nil
}

func (t *orderTx) ListDetails(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderDetail, error) {
	return queryDetails(ctx, t.tx, orderID)
}

func (t *orderTx) DeleteDetails(ctx context.Context, orderID uuid.UUID) error {
	query := `DELETE FROM order_details WHERE order_id = $1`

	if _, err := t.tx.ExecContext(ctx, query, orderID); err != nil {
		return fmt.Errorf("failed to delete order details: %w", err)
	}

	return nil
}
