package customers

import (
	"context"
	"strings"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Service owns customer catalog rules.
type Service struct {
	repo     Repository
	walkInID int64
}

// NewService builds the customers Service. walkInID is the seeded default
// customer row, which must not be deleted.
func NewService(repo Repository, walkInID int64) *Service {
	return &Service{repo: repo, walkInID: walkInID}
}

// List returns customers matching the filters plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Customer, shared.Pagination, error) {
	if filters.PerPage <= 0 {
		filters.PerPage = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	customers, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return customers, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get loads one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new customer.
func (s *Service) Create(ctx context.Context, form CustomerForm) (Customer, error) {
	if strings.TrimSpace(form.Name) == "" {
		return Customer{}, shared.NewValidationError("name", "required")
	}
	return s.repo.Create(ctx, fromForm(form))
}

// Update rewrites a customer.
func (s *Service) Update(ctx context.Context, id int64, form CustomerForm) (Customer, error) {
	if strings.TrimSpace(form.Name) == "" {
		return Customer{}, shared.NewValidationError("name", "required")
	}
	customer := fromForm(form)
	customer.ID = id
	if err := s.repo.Update(ctx, customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a customer. The Walk-In sentinel row is protected.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == s.walkInID {
		return shared.NewValidationError("id", "default customer cannot be deleted")
	}
	return s.repo.Delete(ctx, id)
}

func fromForm(form CustomerForm) Customer {
	return Customer{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Address: form.Address,
	}
}
