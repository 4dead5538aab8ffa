package expenses

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Service posts every expense as a balanced journal entry: operating expenses
// are debited, cash is credited. Deleting an expense removes the posting.
type Service struct {
	repo           Repository
	poster         *ledger.Poster
	now            func() time.Time
	reportsChanged func(context.Context)
}

// NewService builds the expenses Service.
func NewService(repo Repository, poster *ledger.Poster) *Service {
	return &Service{repo: repo, poster: poster, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithReportsChanged registers a hook run after every committed write so
// cached reports can be invalidated.
func (s *Service) WithReportsChanged(fn func(context.Context)) {
	s.reportsChanged = fn
}

func (s *Service) notifyReportsChanged(ctx context.Context) {
	if s.reportsChanged != nil {
		s.reportsChanged(ctx)
	}
}

// Get loads one expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

// List returns expenses matching the filter plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, shared.Pagination, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return expenses, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Create records the expense and posts it.
func (s *Service) Create(ctx context.Context, input ExpenseInput) (Expense, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Expense{}, err
	}
	var created Expense
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		expense := expenseFromInput(input)
		id, err := tx.InsertExpense(ctx, expense)
		if err != nil {
			return err
		}
		expense.ID = id
		if _, err := s.poster.Post(ctx, tx, s.event(expense)); err != nil {
			return err
		}
		created = expense
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	s.notifyReportsChanged(ctx)
	return created, nil
}

// Update rewrites the expense and re-derives its posting.
func (s *Service) Update(ctx context.Context, id int64, input ExpenseInput) (Expense, error) {
	input, err := s.normalize(input)
	if err != nil {
		return Expense{}, err
	}
	var updated Expense
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetExpenseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		expense := expenseFromInput(input)
		expense.ID = current.ID
		expense.CreatedAt = current.CreatedAt
		if err := tx.UpdateExpense(ctx, expense); err != nil {
			return err
		}
		if _, err := s.poster.Repost(ctx, tx, s.event(expense)); err != nil {
			return err
		}
		updated = expense
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	s.notifyReportsChanged(ctx)
	return updated, nil
}

// Delete removes the expense and its posting.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetExpenseForUpdate(ctx, id); err != nil {
			return err
		}
		if err := s.poster.Remove(ctx, tx, ledger.ReferenceExpense, id); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, id)
	})
	if err != nil {
		return err
	}
	s.notifyReportsChanged(ctx)
	return nil
}

func (s *Service) normalize(input ExpenseInput) (ExpenseInput, error) {
	if input.Category == "" {
		return input, shared.NewValidationError("category", "required")
	}
	if !input.Amount.IsPositive() {
		return input, shared.NewValidationError("amount", "must be greater than zero")
	}
	if input.ExpenseDate.IsZero() {
		input.ExpenseDate = s.now()
	}
	return input, nil
}

func (s *Service) event(expense Expense) ledger.Event {
	return ledger.Event{
		Type:        ledger.ReferenceExpense,
		ReferenceID: expense.ID,
		Date:        expense.ExpenseDate,
		Description: fmt.Sprintf("Expense %s", expense.Category),
		Total:       expense.Amount,
	}
}

func expenseFromInput(input ExpenseInput) Expense {
	return Expense{
		Category:    input.Category,
		Description: input.Description,
		Amount:      input.Amount,
		ExpenseDate: input.ExpenseDate,
	}
}
