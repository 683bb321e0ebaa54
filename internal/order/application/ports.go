package application

import (
	"context"
	"time"

	accdomain "github.com/retailops/orderdesk/internal/account/domain"
	catdomain "github.com/retailops/orderdesk/internal/catalog/domain"
	"github.com/retailops/orderdesk/internal/order/domain"
)

// Stores are the collaborators the engine touches inside one unit of work.
// Every method sees the same transaction; a returned error aborts and rolls
// back the whole operation.
type Stores struct {
	Accounts AccountStore
	Catalog  CatalogStore
	Orders   OrderStore
	Outbox   OutboxAppender
}

// UnitOfWork runs fn atomically: commit when fn returns nil, roll back
// everything — including stock already adjusted — otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type AccountStore interface {
	GetByID(ctx context.Context, id int64) (accdomain.User, error)
}

// CatalogStore is the stock-mutation contract. GetForUpdate locks the product
// row for the rest of the unit of work, which serializes concurrent stock
// checks on the same product. The store enforces no stock rule itself; the
// engine validates before adjusting.
type CatalogStore interface {
	GetForUpdate(ctx context.Context, id int64) (catdomain.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) error
}

type OrderStore interface {
	Save(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (domain.Order, error)
	Delete(ctx context.Context, id int64) error
	AccountStats(ctx context.Context, accountID int64) (domain.AccountSummary, error)
	RangeStats(ctx context.Context, from, to time.Time) (domain.RangeSummary, error)
	TopByTotal(ctx context.Context, n int) ([]domain.Order, error)
}

type OutboxAppender interface {
	Append(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte, traceparent string) error
}
