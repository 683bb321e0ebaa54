package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/retailops/orderdesk/internal/catalog/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
	pgshared "github.com/retailops/orderdesk/pkg/postgres"
)

const productColumns = `id, name, description, price, stock, category_id, created_at`

type Repository struct {
	log *slog.Logger
	db  pgshared.Querier
}

func NewRepository(log *slog.Logger, db pgshared.Querier) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	err := r.db.QueryRow(ctx, `INSERT INTO products (name, description, price, stock, category_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		p.Name, p.Description, p.Price, p.Stock, p.CategoryID,
	).Scan(&p.ID, &p.CreatedAt)
	if isForeignKeyViolation(err) {
		return apperror.NotFoundf("category %d not found", derefID(p.CategoryID))
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	return r.scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id), id)
}

// GetForUpdate locks the product row until the surrounding transaction ends.
// Concurrent stock checks on the same product serialize here, which is what
// keeps two overlapping orders from both passing the same stock check.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (domain.Product, error) {
	return r.scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id), id)
}

func (r *Repository) scanProduct(row pgx.Row, id int64) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, apperror.NotFoundf("product %d not found", id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p domain.Product) error {
	ct, err := r.db.Exec(ctx, `UPDATE products SET name=$2, description=$3, price=$4, category_id=$5 WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price, p.CategoryID)
	if isForeignKeyViolation(err) {
		return apperror.NotFoundf("category %d not found", derefID(p.CategoryID))
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperror.NotFoundf("product %d not found", p.ID)
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return apperror.BusinessRulef("product %d is referenced by existing order lines", id)
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperror.NotFoundf("product %d not found", id)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f domain.ListFilter) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	args := []any{}
	if f.CategoryID != nil {
		query += ` WHERE category_id=$1`
		args = append(args, *f.CategoryID)
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AdjustStock applies a signed delta in place. The stock business rule lives
// in the fulfillment engine; by the time this runs the check has passed and
// the row is locked. The CHECK constraint remains as a backstop.
func (r *Repository) AdjustStock(ctx context.Context, id int64, delta int) error {
	ct, err := r.db.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, id, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperror.NotFoundf("product %d not found", id)
	}
	return nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if isUniqueViolation(err) {
		return apperror.BusinessRulef("category %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, apperror.NotFoundf("category %d not found", id)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) CountProductsInCategory(ctx context.Context, id int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id=$1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products in category: %w", err)
	}
	return n, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if isForeignKeyViolation(err) {
		return apperror.BusinessRulef("category %d still has products", id)
	}
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperror.NotFoundf("category %d not found", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
