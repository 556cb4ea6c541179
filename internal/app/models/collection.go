package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods accepted for bill collections.
const (
	PaymentCash   = "cash"
	PaymentCheque = "cheque"
	PaymentOnline = "online"
)

// Collection is a payment collected against an order. The outstanding balance
// of an order is its total minus the sum of its collections.
type Collection struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ShopID      uuid.UUID `json:"shop_id"`
	Amount      float64   `json:"amount"`
	Method      string    `json:"method"`
	CollectedBy uuid.UUID `json:"collected_by"`
	CollectedAt time.Time `json:"collected_at"`
}

type CollectionFilter struct {
	OrderID     *uuid.UUID
	ShopID      *uuid.UUID
	CollectedBy *uuid.UUID
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PerPage     int
}

// OrderBalance pairs an order with what is still owed on it.
type OrderBalance struct {
	OrderID     uuid.UUID `json:"order_id"`
	TotalAmount float64   `json:"total_amount"`
	Collected   float64   `json:"collected"`
	Outstanding float64   `json:"outstanding"`
}
