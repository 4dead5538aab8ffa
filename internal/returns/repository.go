package returns

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

// Repository encapsulates DB operations for sale and purchase returns.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSaleReturn(ctx context.Context, id int64) (SaleReturn, error)
	GetPurchaseReturn(ctx context.Context, id int64) (PurchaseReturn, error)
	ListSaleReturns(ctx context.Context, filter ListFilter) ([]SaleReturn, int, error)
	ListPurchaseReturns(ctx context.Context, filter ListFilter) ([]PurchaseReturn, int, error)
}

// TxRepository exposes the operations available within a return transaction.
// Ledger and inventory operations are embedded so posting and stock writes
// share the return's unit of work. The original transaction's quantities are
// read here too, so the return bound is checked against committed state
// inside the same isolation level.
type TxRepository interface {
	ledger.TxRepository
	inventory.TxRepository

	GetSaleReturnForUpdate(ctx context.Context, id int64) (SaleReturn, error)
	GetSaleReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error)
	InsertSaleReturn(ctx context.Context, ret SaleReturn) (int64, error)
	UpdateSaleReturn(ctx context.Context, ret SaleReturn) error
	DeleteSaleReturn(ctx context.Context, id int64) error
	InsertSaleReturnItems(ctx context.Context, returnID int64, items []ReturnItem) error
	DeleteSaleReturnItems(ctx context.Context, returnID int64) error

	GetPurchaseReturnForUpdate(ctx context.Context, id int64) (PurchaseReturn, error)
	GetPurchaseReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error)
	InsertPurchaseReturn(ctx context.Context, ret PurchaseReturn) (int64, error)
	UpdatePurchaseReturn(ctx context.Context, ret PurchaseReturn) error
	DeletePurchaseReturn(ctx context.Context, id int64) error
	InsertPurchaseReturnItems(ctx context.Context, returnID int64, items []ReturnItem) error
	DeletePurchaseReturnItems(ctx context.Context, returnID int64) error

	SaleExists(ctx context.Context, id int64) (bool, error)
	PurchaseExists(ctx context.Context, id int64) (bool, error)
	CustomerExists(ctx context.Context, id int64) (bool, error)
	VendorExists(ctx context.Context, id int64) (bool, error)
	OriginalSaleQuantities(ctx context.Context, saleID int64) (map[int64]int64, error)
	OriginalPurchaseQuantities(ctx context.Context, purchaseID int64) (map[int64]int64, error)
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

const saleReturnColumns = `id, return_number, original_sale_id, customer_id, subtotal, tax_amount, total_amount, refund_amount, reason, status, return_date, created_at, updated_at`

const purchaseReturnColumns = `id, return_number, original_purchase_id, vendor_id, subtotal, tax_amount, total_amount, refund_received, reason, status, return_date, created_at, updated_at`

func (r *repository) GetSaleReturn(ctx context.Context, id int64) (SaleReturn, error) {
	ret, err := scanSaleReturn(r.db.QueryRow(ctx, `SELECT `+saleReturnColumns+` FROM sale_returns WHERE id=$1`, id))
	if err != nil {
		return SaleReturn{}, err
	}
	items, err := queryReturnItems(ctx, r.db, `sale_return_items`, `sale_return_id`, id)
	if err != nil {
		return SaleReturn{}, err
	}
	ret.Items = items
	return ret, nil
}

func (r *repository) GetPurchaseReturn(ctx context.Context, id int64) (PurchaseReturn, error) {
	ret, err := scanPurchaseReturn(r.db.QueryRow(ctx, `SELECT `+purchaseReturnColumns+` FROM purchase_returns WHERE id=$1`, id))
	if err != nil {
		return PurchaseReturn{}, err
	}
	items, err := queryReturnItems(ctx, r.db, `purchase_return_items`, `purchase_return_id`, id)
	if err != nil {
		return PurchaseReturn{}, err
	}
	ret.Items = items
	return ret, nil
}

func (r *repository) ListSaleReturns(ctx context.Context, filter ListFilter) ([]SaleReturn, int, error) {
	where, args := listClause(filter)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sale_returns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query, args := listQuery(`SELECT `+saleReturnColumns+` FROM sale_returns`+where, args, filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []SaleReturn
	for rows.Next() {
		ret, err := scanSaleReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ret)
	}
	return out, total, rows.Err()
}

func (r *repository) ListPurchaseReturns(ctx context.Context, filter ListFilter) ([]PurchaseReturn, int, error) {
	where, args := listClause(filter)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_returns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query, args := listQuery(`SELECT `+purchaseReturnColumns+` FROM purchase_returns`+where, args, filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []PurchaseReturn
	for rows.Next() {
		ret, err := scanPurchaseReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ret)
	}
	return out, total, rows.Err()
}

func listClause(filter ListFilter) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND return_number ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += ` AND return_date >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += ` AND return_date <= $` + strconv.Itoa(len(args))
	}
	return where, args
}

func listQuery(base string, args []any, filter ListFilter) (string, []any) {
	query := base + ` ORDER BY return_date DESC, id DESC`
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
	return query, args
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

func (r *txRepository) GetSaleReturnForUpdate(ctx context.Context, id int64) (SaleReturn, error) {
	return scanSaleReturn(r.tx.QueryRow(ctx, `SELECT `+saleReturnColumns+` FROM sale_returns WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) GetSaleReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error) {
	return queryReturnItems(ctx, r.tx, `sale_return_items`, `sale_return_id`, returnID)
}

func (r *txRepository) InsertSaleReturn(ctx context.Context, ret SaleReturn) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_returns (return_number, original_sale_id, customer_id, subtotal, tax_amount, total_amount, refund_amount, reason, status, return_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		ret.ReturnNumber, ret.OriginalSaleID, ret.CustomerID, ret.Subtotal, ret.TaxAmount, ret.TotalAmount, ret.RefundAmount, ret.Reason, ret.Status, ret.ReturnDate).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "return_number", ret.ReturnNumber)
	}
	return id, nil
}

func (r *txRepository) UpdateSaleReturn(ctx context.Context, ret SaleReturn) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sale_returns SET return_number=$2, original_sale_id=$3, customer_id=$4, subtotal=$5, tax_amount=$6, total_amount=$7, refund_amount=$8, reason=$9, status=$10, return_date=$11, updated_at=NOW()
WHERE id=$1`, ret.ID, ret.ReturnNumber, ret.OriginalSaleID, ret.CustomerID, ret.Subtotal, ret.TaxAmount, ret.TotalAmount, ret.RefundAmount, ret.Reason, ret.Status, ret.ReturnDate)
	if err != nil {
		return mapUniqueViolation(err, "return_number", ret.ReturnNumber)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteSaleReturn(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sale_returns WHERE id=$1`, id)
	return err
}

func (r *txRepository) InsertSaleReturnItems(ctx context.Context, returnID int64, items []ReturnItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO sale_return_items (sale_return_id, product_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5)`, returnID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteSaleReturnItems(ctx context.Context, returnID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sale_return_items WHERE sale_return_id=$1`, returnID)
	return err
}

func (r *txRepository) GetPurchaseReturnForUpdate(ctx context.Context, id int64) (PurchaseReturn, error) {
	return scanPurchaseReturn(r.tx.QueryRow(ctx, `SELECT `+purchaseReturnColumns+` FROM purchase_returns WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) GetPurchaseReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error) {
	return queryReturnItems(ctx, r.tx, `purchase_return_items`, `purchase_return_id`, returnID)
}

func (r *txRepository) InsertPurchaseReturn(ctx context.Context, ret PurchaseReturn) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_returns (return_number, original_purchase_id, vendor_id, subtotal, tax_amount, total_amount, refund_received, reason, status, return_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		ret.ReturnNumber, ret.OriginalPurchaseID, ret.VendorID, ret.Subtotal, ret.TaxAmount, ret.TotalAmount, ret.RefundReceived, ret.Reason, ret.Status, ret.ReturnDate).Scan(&id)
	if err != nil {
		return 0, mapUniqueViolation(err, "return_number", ret.ReturnNumber)
	}
	return id, nil
}

func (r *txRepository) UpdatePurchaseReturn(ctx context.Context, ret PurchaseReturn) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE purchase_returns SET return_number=$2, original_purchase_id=$3, vendor_id=$4, subtotal=$5, tax_amount=$6, total_amount=$7, refund_received=$8, reason=$9, status=$10, return_date=$11, updated_at=NOW()
WHERE id=$1`, ret.ID, ret.ReturnNumber, ret.OriginalPurchaseID, ret.VendorID, ret.Subtotal, ret.TaxAmount, ret.TotalAmount, ret.RefundReceived, ret.Reason, ret.Status, ret.ReturnDate)
	if err != nil {
		return mapUniqueViolation(err, "return_number", ret.ReturnNumber)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeletePurchaseReturn(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_returns WHERE id=$1`, id)
	return err
}

func (r *txRepository) InsertPurchaseReturnItems(ctx context.Context, returnID int64, items []ReturnItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO purchase_return_items (purchase_return_id, product_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5)`, returnID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeletePurchaseReturnItems(ctx context.Context, returnID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchase_return_items WHERE purchase_return_id=$1`, returnID)
	return err
}

func (r *txRepository) SaleExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) PurchaseExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchases WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) VendorExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepository) OriginalSaleQuantities(ctx context.Context, saleID int64) (map[int64]int64, error) {
	return queryQuantities(ctx, r.tx, `SELECT product_id, SUM(quantity) FROM sales_items WHERE sale_id=$1 GROUP BY product_id`, saleID)
}

func (r *txRepository) OriginalPurchaseQuantities(ctx context.Context, purchaseID int64) (map[int64]int64, error) {
	return queryQuantities(ctx, r.tx, `SELECT product_id, SUM(quantity) FROM purchase_items WHERE purchase_id=$1 GROUP BY product_id`, purchaseID)
}

func queryQuantities(ctx context.Context, tx pgx.Tx, sql string, id int64) (map[int64]int64, error) {
	rows, err := tx.Query(ctx, sql, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]int64)
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSaleReturn(row rowScanner) (SaleReturn, error) {
	var ret SaleReturn
	err := row.Scan(&ret.ID, &ret.ReturnNumber, &ret.OriginalSaleID, &ret.CustomerID, &ret.Subtotal, &ret.TaxAmount,
		&ret.TotalAmount, &ret.RefundAmount, &ret.Reason, &ret.Status, &ret.ReturnDate, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleReturn{}, shared.ErrNotFound
		}
		return SaleReturn{}, err
	}
	return ret, nil
}

func scanPurchaseReturn(row rowScanner) (PurchaseReturn, error) {
	var ret PurchaseReturn
	err := row.Scan(&ret.ID, &ret.ReturnNumber, &ret.OriginalPurchaseID, &ret.VendorID, &ret.Subtotal, &ret.TaxAmount,
		&ret.TotalAmount, &ret.RefundReceived, &ret.Reason, &ret.Status, &ret.ReturnDate, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseReturn{}, shared.ErrNotFound
		}
		return PurchaseReturn{}, err
	}
	return ret, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryReturnItems(ctx context.Context, q querier, table, fk string, returnID int64) ([]ReturnItem, error) {
	rows, err := q.Query(ctx, `SELECT id, `+fk+`, product_id, quantity, unit_price, line_total FROM `+table+` WHERE `+fk+`=$1 ORDER BY id ASC`, returnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReturnItem
	for rows.Next() {
		var item ReturnItem
		if err := rows.Scan(&item.ID, &item.ReturnID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
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
