package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/shared"
)

// Repository encapsulates DB operations for products.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id int64) error
	Referenced(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, name, description, cost_price, sale_price, stock, min_stock_level, brand_id, category_id, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR sku ILIKE $` + strconv.Itoa(len(args)) + `)`
	}
	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where += ` AND category_id = $` + strconv.Itoa(len(args))
	}
	if filters.BrandID != nil {
		args = append(args, *filters.BrandID)
		where += ` AND brand_id = $` + strconv.Itoa(len(args))
	}
	if filters.LowStock {
		where += ` AND stock <= min_stock_level`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name ASC, id ASC`
	if filters.PerPage > 0 {
		args = append(args, filters.PerPage)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (filters.Page - 1) * filters.PerPage
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
	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO products (sku, name, description, cost_price, sale_price, stock, min_stock_level, brand_id, category_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		product.SKU, product.Name, product.Description, product.CostPrice, product.SalePrice,
		product.Stock, product.MinStockLevel, product.BrandID, product.CategoryID).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return Product{}, mapUniqueViolation(err, product.SKU)
	}
	return product, nil
}

// Update rewrites the catalog attributes. Stock is deliberately excluded;
// only the inventory engine mutates it.
func (r *repository) Update(ctx context.Context, product Product) error {
	cmd, err := r.db.Exec(ctx, `UPDATE products SET sku=$2, name=$3, description=$4, cost_price=$5, sale_price=$6, min_stock_level=$7, brand_id=$8, category_id=$9, updated_at=NOW()
WHERE id=$1`, product.ID, product.SKU, product.Name, product.Description, product.CostPrice, product.SalePrice,
		product.MinStockLevel, product.BrandID, product.CategoryID)
	if err != nil {
		return mapUniqueViolation(err, product.SKU)
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.NewValidationError("id", "product is referenced by transactions")
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Referenced(ctx context.Context, id int64) (bool, error) {
	var referenced bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales_items WHERE product_id=$1)
OR EXISTS (SELECT 1 FROM purchase_items WHERE product_id=$1)
OR EXISTS (SELECT 1 FROM sale_return_items WHERE product_id=$1)
OR EXISTS (SELECT 1 FROM purchase_return_items WHERE product_id=$1)`, id).Scan(&referenced)
	return referenced, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var product Product
	err := row.Scan(&product.ID, &product.SKU, &product.Name, &product.Description, &product.CostPrice,
		&product.SalePrice, &product.Stock, &product.MinStockLevel, &product.BrandID, &product.CategoryID,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return product, nil
}

func mapUniqueViolation(err error, sku string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ConflictError{Field: "sku", Value: sku}
	}
	return err
}
