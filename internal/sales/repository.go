package sales

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/db"
	"github.com/meridian-retail/meridian/internal/shared"
)

// Repository encapsulates DB operations for sales.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, int, error)
}

// TxRepository exposes the operations available within a sale transaction.
// Ledger and inventory operations are embedded so posting and stock writes
// share the sale's unit of work.
type TxRepository interface {
	ledger.TxRepository
	inventory.TxRepository

	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	GetSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	UpdateSale(ctx context.Context, sale Sale) error
	DeleteSale(ctx context.Context, id int64) error
	InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error
	DeleteSaleItems(ctx context.Context, saleID int64) error
	CustomerExists(ctx context.Context, id int64) (bool, error)
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
		return fn(ctx, &txRepository{ledgerTx: ledger.NewTx(tx), productTx: inventory.NewTx(tx), tx: tx})
	})
}

const saleColumns = `id, invoice_number, customer_id, subtotal, discount, tax_amount, total_amount, amount_paid, sale_date, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (Sale, error) {
	sale, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id))
	if err != nil {
		return Sale{}, err
	}
	items, err := querySaleItems(ctx, r.db, id)
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND invoice_number ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where += ` AND customer_id = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND sale_date >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND sale_date <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + saleColumns + ` FROM sales` + where + ` ORDER BY sale_date DESC, id DESC`
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
	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	return sales, total, rows.Err()
}

// Alias names keep the two embedded transaction types from colliding.
type (
	ledgerTx  = ledger.Tx
	productTx = inventory.Tx
)

type txRepository struct {
	*ledgerTx
	*productTx
	tx pgx.Tx
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) GetSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return querySaleItems(ctx, r.tx, saleID)
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (invoice_number, customer_id, subtotal, discount, tax_amount, total_amount, amount_paid, sale_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		sale.InvoiceNumber, sale.CustomerID, sale.Subtotal, sale.Discount, sale.TaxAmount, sale.TotalAmount, sale.AmountPaid, sale.SaleDate).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "invoice_number", sale.InvoiceNumber)
	}
	return id, nil
}

func (r *txRepository) UpdateSale(ctx context.Context, sale Sale) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sales SET invoice_number=$2, customer_id=$3, subtotal=$4, discount=$5, tax_amount=$6, total_amount=$7, amount_paid=$8, sale_date=$9, updated_at=NOW()
WHERE id=$1`, sale.ID, sale.InvoiceNumber, sale.CustomerID, sale.Subtotal, sale.Discount, sale.TaxAmount, sale.TotalAmount, sale.AmountPaid, sale.SaleDate)
	if err != nil {
		return mapUniqueViolation(err, "invoice_number", sale.InvoiceNumber)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteSale(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id=$1`, id)
	return err
}

func (r *txRepository) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sales_items (sale_id, product_id, quantity, unit_price, cost_price, line_total)
VALUES ($1,$2,$3,$4,$5,$6)`, saleID, item.ProductID, item.Quantity, item.UnitPrice, item.CostPrice, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteSaleItems(ctx context.Context, saleID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sales_items WHERE sale_id=$1`, saleID)
	return err
}

func (r *txRepository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (Sale, error) {
	var sale Sale
	err := row.Scan(&sale.ID, &sale.InvoiceNumber, &sale.CustomerID, &sale.Subtotal, &sale.Discount, &sale.TaxAmount,
		&sale.TotalAmount, &sale.AmountPaid, &sale.SaleDate, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	return sale, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func querySaleItems(ctx context.Context, q querier, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx, `SELECT id, sale_id, product_id, quantity, unit_price, cost_price, line_total
FROM sales_items WHERE sale_id=$1 ORDER BY id ASC`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SaleItem
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.CostPrice, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func mapUniqueViolation(err error, field, value string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ConflictError{Field: field, Value: value}
	}
	return err
}
