package procurement

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

// Repository encapsulates DB operations for purchases.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, filter ListFilter) ([]Purchase, int, error)
}

// TxRepository exposes purchase, ledger and inventory operations within one
// unit of work.
type TxRepository interface {
	ledger.TxRepository
	inventory.TxRepository

	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	GetPurchaseItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error)
	InsertPurchase(ctx context.Context, purchase Purchase) (int64, error)
	UpdatePurchase(ctx context.Context, purchase Purchase) error
	DeletePurchase(ctx context.Context, id int64) error
	InsertPurchaseItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error
	DeletePurchaseItems(ctx context.Context, purchaseID int64) error
	VendorExists(ctx context.Context, id int64) (bool, error)
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

const purchaseColumns = `id, invoice_number, vendor_id, subtotal, tax_amount, total_amount, purchase_date, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (Purchase, error) {
	purchase, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if err != nil {
		return Purchase{}, err
	}
	items, err := queryPurchaseItems(ctx, r.db, id)
	if err != nil {
		return Purchase{}, err
	}
	purchase.Items = items
	return purchase, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND invoice_number ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		where += ` AND vendor_id = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND purchase_date >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND purchase_date <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchases`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + purchaseColumns + ` FROM purchases` + where + ` ORDER BY purchase_date DESC, id DESC`
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
	var purchases []Purchase
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, purchase)
	}
	return purchases, total, rows.Err()
}

type (
	ledgerTx  = ledger.Tx
	productTx = inventory.Tx
)

type txRepository struct {
	*ledgerTx
	*productTx
	tx pgx.Tx
}

func (r *txRepository) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	return scanPurchase(r.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) GetPurchaseItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	return queryPurchaseItems(ctx, r.tx, purchaseID)
}

func (r *txRepository) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (invoice_number, vendor_id, subtotal, tax_amount, total_amount, purchase_date)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		purchase.InvoiceNumber, purchase.VendorID, purchase.Subtotal, purchase.TaxAmount, purchase.TotalAmount, purchase.PurchaseDate).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "invoice_number", purchase.InvoiceNumber)
	}
	return id, nil
}

func (r *txRepository) UpdatePurchase(ctx context.Context, purchase Purchase) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE purchases SET invoice_number=$2, vendor_id=$3, subtotal=$4, tax_amount=$5, total_amount=$6, purchase_date=$7, updated_at=NOW()
WHERE id=$1`, purchase.ID, purchase.InvoiceNumber, purchase.VendorID, purchase.Subtotal, purchase.TaxAmount, purchase.TotalAmount, purchase.PurchaseDate)
	if err != nil {
		return mapUniqueViolation(err, "invoice_number", purchase.InvoiceNumber)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeletePurchase(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchases WHERE id=$1`, id)
	return err
}

func (r *txRepository) InsertPurchaseItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5)`, purchaseID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeletePurchaseItems(ctx context.Context, purchaseID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_items WHERE purchase_id=$1`, purchaseID)
	return err
}

func (r *txRepository) VendorExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPurchase(row rowScanner) (Purchase, error) {
	var purchase Purchase
	err := row.Scan(&purchase.ID, &purchase.InvoiceNumber, &purchase.VendorID, &purchase.Subtotal, &purchase.TaxAmount,
		&purchase.TotalAmount, &purchase.PurchaseDate, &purchase.CreatedAt, &purchase.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, shared.ErrNotFound
		}
		return Purchase{}, err
	}
	return purchase, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryPurchaseItems(ctx context.Context, q querier, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := q.Query(ctx, `SELECT id, purchase_id, product_id, quantity, unit_price, line_total
FROM purchase_items WHERE purchase_id=$1 ORDER BY id ASC`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PurchaseItem
	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
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
