package customers

import "time"

// Customer is one buyer. Row id 1 is the seeded Walk-In customer used when a
// sale names no counterparty.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerForm is the create/update payload.
type CustomerForm struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ListFilters narrows customer listings.
type ListFilters struct {
	Search  string
	Page    int
	PerPage int
}
