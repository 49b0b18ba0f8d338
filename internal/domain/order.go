package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a customer purchase composed of one or more details. An order is
// never persisted without at least one detail.
type Order struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	DateTime  time.Time      `json:"date_time" db:"date_time"`
	Details   []*OrderDetail `json:"details"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// OrderDetail is one product line within an order. Price is the unit price
// captured when the line was reserved, so later catalog price changes do not
// alter historical totals.
type OrderDetail struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Price       decimal.Decimal `json:"price" db:"price"`
}

// Subtotal returns the captured unit price multiplied by the quantity.
func (d *OrderDetail) Subtotal() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Total returns the order total in the local currency. The sum over zero
// details is zero.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, detail := range o.Details {
		total = total.Add(detail.Subtotal())
	}
	return total
}
