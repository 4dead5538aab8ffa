package expenses

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/db"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Repository encapsulates DB operations for expenses.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Expense, error)
	List(ctx context.Context, filter ListFilter) ([]Expense, int, error)
}

// TxRepository exposes the operations available within an expense transaction.
// The ledger operations are embedded so posting shares the unit of work.
type TxRepository interface {
	ledger.TxRepository

	GetExpenseForUpdate(ctx context.Context, id int64) (Expense, error)
	InsertExpense(ctx context.Context, expense Expense) (int64, error)
	UpdateExpense(ctx context.Context, expense Expense) error
	DeleteExpense(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{Tx: ledger.NewTx(tx), tx: tx})
	})
}

const expenseColumns = `id, category, description, amount, expense_date, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id=$1`, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND (category ILIKE $` + strconv.Itoa(len(args)) + ` OR description ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND expense_date >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND expense_date <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses` + where + ` ORDER BY expense_date DESC, id DESC`
	if filter.PerPage > 0 {
		args = append(args, filter.PerPage)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (filter.Page - 1) * filter.PerPage
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, total, rows.Err()
}

type txRepository struct {
	*ledger.Tx
	tx pgx.Tx
}

func (r *txRepository) GetExpenseForUpdate(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.tx.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) InsertExpense(ctx context.Context, expense Expense) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO expenses (category, description, amount, expense_date)
VALUES ($1,$2,$3,$4) RETURNING id`,
		expense.Category, expense.Description, expense.Amount, expense.ExpenseDate).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateExpense(ctx context.Context, expense Expense) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE expenses SET category=$2, description=$3, amount=$4, expense_date=$5, updated_at=NOW()
WHERE id=$1`, expense.ID, expense.Category, expense.Description, expense.Amount, expense.ExpenseDate)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteExpense(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM expenses WHERE id=$1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var expense Expense
	err := row.Scan(&expense.ID, &expense.Category, &expense.Description, &expense.Amount,
		&expense.ExpenseDate, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, shared.ErrNotFound
		}
		return Expense{}, err
	}
	return expense, nil
}
