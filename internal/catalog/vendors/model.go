package vendors

import "time"

// Vendor is one supplier. Row id 1 is the seeded default vendor used when a
// purchase names no counterparty.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VendorForm is the create/update payload.
type VendorForm struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ListFilters narrows vendor listings.
type ListFilters struct {
	Search  string
	Page    int
	PerPage int
}
