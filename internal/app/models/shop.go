package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a customer outlet a rep sells to.
type Shop struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	OwnerName string     `json:"owner_name"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	Area      string     `json:"area,omitempty"`
	CreatedBy uuid.UUID  `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ShopFilter struct {
	Area    string
	Search  string
	Page    int
	PerPage int
}
