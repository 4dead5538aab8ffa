package reports

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Repository reads committed ledger and transaction data. No mutation.
type Repository interface {
	AccountBalances(ctx context.Context, rng DateRange) ([]AccountBalance, error)
	CustomerName(ctx context.Context, id int64) (string, error)
	VendorName(ctx context.Context, id int64) (string, error)
	CustomerTransactions(ctx context.Context, customerID int64, rng DateRange) ([]StatementLine, error)
	VendorTransactions(ctx context.Context, vendorID int64, rng DateRange) ([]StatementLine, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) AccountBalances(ctx context.Context, rng DateRange) ([]AccountBalance, error) {
	join := `LEFT JOIN general_ledger gl ON gl.account_id = a.id`
	args := []any{}
	if rng.From != nil {
		args = append(args, *rng.From)
		join += ` AND gl.transaction_date >= $` + strconv.Itoa(len(args))
	}
	if rng.To != nil {
		args = append(args, *rng.To)
		join += ` AND gl.transaction_date <= $` + strconv.Itoa(len(args))
	}
	query := `SELECT a.id, a.code, a.name, a.type, a.sub_type,
COALESCE(SUM(gl.debit_amount), 0), COALESCE(SUM(gl.credit_amount), 0)
FROM chart_of_accounts a ` + join + `
GROUP BY a.id, a.code, a.name, a.type, a.sub_type
ORDER BY a.code ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var acc AccountBalance
		if err := rows.Scan(&acc.AccountID, &acc.Code, &acc.Name, &acc.Type, &acc.SubType, &acc.Debit, &acc.Credit); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *repository) CustomerName(ctx context.Context, id int64) (string, error) {
	return r.name(ctx, `SELECT name FROM customers WHERE id=$1`, id)
}

func (r *repository) VendorName(ctx context.Context, id int64) (string, error) {
	return r.name(ctx, `SELECT name FROM vendors WHERE id=$1`, id)
}

func (r *repository) name(ctx context.Context, sql string, id int64) (string, error) {
	var name string
	if err := r.db.QueryRow(ctx, sql, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return name, nil
}

func (r *repository) CustomerTransactions(ctx context.Context, customerID int64, rng DateRange) ([]StatementLine, error) {
	query := `SELECT id, invoice_number, sale_date, total_amount, amount_paid FROM sales WHERE customer_id=$1`
	args := []any{customerID}
	query, args = appendRange(query, args, `sale_date`, rng)
	query += ` ORDER BY sale_date DESC, id DESC`
	return queryStatementLines(ctx, r.db, query, args)
}

func (r *repository) VendorTransactions(ctx context.Context, vendorID int64, rng DateRange) ([]StatementLine, error) {
	// Purchases carry no payment column; the whole total is outstanding.
	query := `SELECT id, invoice_number, purchase_date, total_amount, 0 FROM purchases WHERE vendor_id=$1`
	args := []any{vendorID}
	query, args = appendRange(query, args, `purchase_date`, rng)
	query += ` ORDER BY purchase_date DESC, id DESC`
	return queryStatementLines(ctx, r.db, query, args)
}

func appendRange(query string, args []any, column string, rng DateRange) (string, []any) {
	if rng.From != nil {
		args = append(args, *rng.From)
		query += ` AND ` + column + ` >= $` + strconv.Itoa(len(args))
	}
	if rng.To != nil {
		args = append(args, *rng.To)
		query += ` AND ` + column + ` <= $` + strconv.Itoa(len(args))
	}
	return query, args
}

func queryStatementLines(ctx context.Context, db *pgxpool.Pool, query string, args []any) ([]StatementLine, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatementLine
	for rows.Next() {
		var line StatementLine
		if err := rows.Scan(&line.ID, &line.Number, &line.Date, &line.Total, &line.Paid); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}
