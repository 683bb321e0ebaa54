package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/retailops/orderdesk/internal/order/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
	pgshared "github.com/retailops/orderdesk/pkg/postgres"
)

type Repository struct {
	log *slog.Logger
	db  pgshared.Querier
}

func NewRepository(log *slog.Logger, db pgshared.Querier) *Repository {
	return &Repository{log: log, db: db}
}

// Save persists the aggregate and backfills the generated order and line ids.
// Callers run it inside a unit of work; on its own it is not atomic.
func (r *Repository) Save(ctx context.Context, o *domain.Order) error {
	err := r.db.QueryRow(ctx, `INSERT INTO orders (account_id, total, created_at)
		VALUES ($1,$2,$3) RETURNING id`,
		o.AccountID, o.Total, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		line.OrderID = o.ID
		err := r.db.QueryRow(ctx, `INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4) RETURNING id`,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Order, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, `SELECT id, account_id, total, created_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.AccountID, &o.Total, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperror.NotFoundf("order %d not found", id)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	o.Lines, err = r.linesFor(ctx, []int64{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// Delete removes the order row; order_lines go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperror.NotFoundf("order %d not found", id)
	}
	return nil
}

// AccountStats never returns SQL NULL to the caller: COALESCE turns the
// empty-history case into zeros.
func (r *Repository) AccountStats(ctx context.Context, accountID int64) (domain.AccountSummary, error) {
	s := domain.AccountSummary{AccountID: accountID}
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(AVG(total), 0)
		FROM orders WHERE account_id=$1`, accountID).
		Scan(&s.Count, &s.Sum, &s.Average)
	if err != nil {
		return domain.AccountSummary{}, fmt.Errorf("account stats: %w", err)
	}
	return s, nil
}

func (r *Repository) RangeStats(ctx context.Context, from, to time.Time) (domain.RangeSummary, error) {
	s := domain.RangeSummary{From: from, To: to}
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE created_at >= $1 AND created_at <= $2`, from, to).
		Scan(&s.Count, &s.Sum)
	if err != nil {
		return domain.RangeSummary{}, fmt.Errorf("range stats: %w", err)
	}
	return s, nil
}

func (r *Repository) TopByTotal(ctx context.Context, n int) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT id, account_id, total, created_at
		FROM orders ORDER BY total DESC, id LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []int64
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Total, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[int64][]domain.OrderLine, len(orders))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	for i := range orders {
		orders[i].Lines = byOrder[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) linesFor(ctx context.Context, orderIDs []int64) ([]domain.OrderLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, order_id, product_id, quantity, unit_price
		FROM order_lines WHERE order_id = ANY($1) ORDER BY id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
