package models

import "github.com/google/uuid"

// RepDashboard summarises a single rep's day: their own orders and
// collections plus what is still outstanding across their shops.
type RepDashboard struct {
	OrdersToday      int     `json:"orders_today"`
	SalesToday       float64 `json:"sales_today"`
	CollectionsToday float64 `json:"collections_today"`
	OutstandingTotal float64 `json:"outstanding_total"`
	ShopCount        int     `json:"shop_count"`
}

// AdminDashboard aggregates across all reps.
type AdminDashboard struct {
	ActiveReps       int     `json:"active_reps"`
	OrdersToday      int     `json:"orders_today"`
	SalesToday       float64 `json:"sales_today"`
	CollectionsToday float64 `json:"collections_today"`
	PendingOrders    int     `json:"pending_orders"`
	OutstandingTotal float64 `json:"outstanding_total"`
}

// RepSummary is one row of the superadmin per-rep breakdown.
type RepSummary struct {
	RepID       uuid.UUID `json:"rep_id"`
	RepName     string    `json:"rep_name"`
	OrderCount  int       `json:"order_count"`
	SalesTotal  float64   `json:"sales_total"`
	Collected   float64   `json:"collected"`
	Outstanding float64   `json:"outstanding"`
}

// SuperadminDashboard is the global view: admin totals plus user counts and
// the per-rep table.
type SuperadminDashboard struct {
	AdminDashboard
	TotalUsers  int          `json:"total_users"`
	TotalShops  int          `json:"total_shops"`
	RepSummary  []RepSummary `json:"rep_summary"`
	TotalOrders int          `json:"total_orders"`
}
