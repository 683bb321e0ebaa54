package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	accountpg "github.com/retailops/orderdesk/internal/account/infrastructure/postgres"
	catalogpg "github.com/retailops/orderdesk/internal/catalog/infrastructure/postgres"
	"github.com/retailops/orderdesk/internal/order/application"
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UnitOfWork runs the fulfillment engine's closures inside one pgx
// transaction. The stores handed to the closure are bound to that
// transaction, so everything the engine does — stock decrements, order rows,
// outbox events — commits or rolls back together.
type UnitOfWork struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewUnitOfWork(log *slog.Logger, pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{log: log, pool: pool}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s application.Stores) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	s := application.Stores{
		Accounts: accountpg.NewRepository(u.log, tx),
		Catalog:  catalogpg.NewRepository(u.log, tx),
		Orders:   NewRepository(u.log, tx),
		Outbox:   NewOutboxStore(u.log, tx),
	}
	if err := fn(ctx, s); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
