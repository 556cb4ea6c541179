package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. Pending orders can still be delivered or cancelled;
// delivered and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is one line of an order. Items are stored as a jsonb column, not
// a child table; orders are immutable once created.
type OrderItem struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type Order struct {
	ID          uuid.UUID   `json:"id"`
	ShopID      uuid.UUID   `json:"shop_id"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

type OrderFilter struct {
	ShopID    *uuid.UUID
	CreatedBy *uuid.UUID
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PerPage   int
}
