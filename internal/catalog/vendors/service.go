package vendors

import (
	"context"
	"strings"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Service owns vendor catalog rules.
type Service struct {
	repo      Repository
	defaultID int64
}

// NewService builds the vendors Service. defaultID is the seeded default
// vendor row, which must not be deleted.
func NewService(repo Repository, defaultID int64) *Service {
	return &Service{repo: repo, defaultID: defaultID}
}

// List returns vendors matching the filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Vendor, shared.Pagination, error) {
	if filters.PerPage <= 0 {
		filters.PerPage = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	vendors, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return vendors, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get loads one vendor.
func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new vendor.
func (s *Service) Create(ctx context.Context, form VendorForm) (Vendor, error) {
	if strings.TrimSpace(form.Name) == "" {
		return Vendor{}, shared.NewValidationError("name", "required")
	}
	return s.repo.Create(ctx, fromForm(form))
}

// Update rewrites a vendor.
func (s *Service) Update(ctx context.Context, id int64, form VendorForm) (Vendor, error) {
	if strings.TrimSpace(form.Name) == "" {
		return Vendor{}, shared.NewValidationError("name", "required")
	}
	vendor := fromForm(form)
	vendor.ID = id
	if err := s.repo.Update(ctx, vendor); err != nil {
		return Vendor{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a vendor. The seeded default row is protected.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == s.defaultID {
		return shared.NewValidationError("id", "default vendor cannot be deleted")
	}
	return s.repo.Delete(ctx, id)
}

func fromForm(form VendorForm) Vendor {
	return Vendor{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Address: form.Address,
	}
}
