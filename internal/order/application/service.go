package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	catdomain "github.com/retailops/orderdesk/internal/catalog/domain"
	"github.com/retailops/orderdesk/internal/order/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
	"github.com/retailops/orderdesk/pkg/tracing"
)

// LineRequest is one requested (product, quantity) pair, processed in the
// order submitted.
type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Engine is the order fulfillment core. Creation and cancellation each run
// as one unit of work; reporting reads committed data directly.
type Engine struct {
	log    *slog.Logger
	uow    UnitOfWork
	orders OrderStore
}

func NewEngine(log *slog.Logger, uow UnitOfWork, orders OrderStore) *Engine {
	return &Engine{log: log, uow: uow, orders: orders}
}

// CreateOrder validates the request against live stock, decrements stock per
// line, snapshots per-line pricing and persists the order — all inside one
// transaction. Any failure leaves no trace: no stock change, no order row,
// no outbox event.
func (e *Engine) CreateOrder(ctx context.Context, accountID int64, lines []LineRequest) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, apperror.Validationf("order must contain at least one line")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return domain.Order{}, apperror.Validationf("quantity for product %d must be positive, got %d", l.ProductID, l.Quantity)
		}
	}

	var created domain.Order
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		acct, err := s.Accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if !acct.Enabled {
			return apperror.BusinessRulef("account %d is disabled and cannot place orders", accountID)
		}

		// Each product is read once, under a row lock. Repeated lines for
		// the same product reuse the snapshot, so one order can never carry
		// two prices for the same product.
		seen := make(map[int64]catdomain.Product, len(lines))
		orderLines := make([]domain.OrderLine, 0, len(lines))
		for _, req := range lines {
			p, ok := seen[req.ProductID]
			if !ok {
				p, err = s.Catalog.GetForUpdate(ctx, req.ProductID)
				if err != nil {
					return err
				}
			}
			if req.Quantity > p.Stock {
				return &apperror.InsufficientStockError{
					Product:   p.Name,
					Requested: req.Quantity,
					Available: p.Stock,
				}
			}
			if err := s.Catalog.AdjustStock(ctx, p.ID, -req.Quantity); err != nil {
				return err
			}
			p.Stock -= req.Quantity
			seen[p.ID] = p

			orderLines = append(orderLines, domain.OrderLine{
				ProductID: p.ID,
				Quantity:  req.Quantity,
				UnitPrice: p.Price,
			})
		}

		o := domain.NewOrder(accountID, orderLines)
		if err := s.Orders.Save(ctx, &o); err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		if err := e.appendEvent(ctx, s, o.ID, "OrderCreated", newOrderCreated(o)); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	e.log.Info("order created", "order_id", created.ID, "account_id", accountID, "total", created.Total.String(), "lines", len(created.Lines))
	return created, nil
}

// CancelOrder is the exact inverse of CreateOrder: restore stock for every
// line, then remove the order and its lines for good. A line whose product no
// longer resolves is a data-integrity defect, reported as a business-rule
// violation rather than not-found.
func (e *Engine) CancelOrder(ctx context.Context, orderID int64) error {
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		o, err := s.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		for _, line := range o.Lines {
			if _, err := s.Catalog.GetForUpdate(ctx, line.ProductID); err != nil {
				if apperror.KindOf(err) == apperror.KindNotFound {
					return apperror.BusinessRulef("order %d line %d references missing product %d", o.ID, line.ID, line.ProductID)
				}
				return err
			}
			if err := s.Catalog.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if err := s.Orders.Delete(ctx, o.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}

		return e.appendEvent(ctx, s, o.ID, "OrderCancelled", domain.OrderCancelled{OrderID: o.ID, AccountID: o.AccountID})
	})
	if err != nil {
		return err
	}

	e.log.Info("order cancelled", "order_id", orderID)
	return nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	return e.orders.GetByID(ctx, orderID)
}

// AccountSummary reports count, sum and average of an account's orders.
// An account with no orders yields zeros, not an error.
func (e *Engine) AccountSummary(ctx context.Context, accountID int64) (domain.AccountSummary, error) {
	return e.orders.AccountStats(ctx, accountID)
}

// RangeSummary reports count and sum of orders created within [from, to].
func (e *Engine) RangeSummary(ctx context.Context, from, to time.Time) (domain.RangeSummary, error) {
	if to.Before(from) {
		return domain.RangeSummary{}, apperror.Validationf("range end %s precedes start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return e.orders.RangeStats(ctx, from, to)
}

// TopOrders returns the n largest orders by total amount.
func (e *Engine) TopOrders(ctx context.Context, n int) ([]domain.Order, error) {
	if n <= 0 {
		return nil, apperror.Validationf("top-n size must be positive, got %d", n)
	}
	return e.orders.TopByTotal(ctx, n)
}

func (e *Engine) appendEvent(ctx context.Context, s Stores, orderID int64, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return s.Outbox.Append(ctx, "order", strconv.FormatInt(orderID, 10), eventType, payload, tracing.Traceparent(ctx))
}

func newOrderCreated(o domain.Order) domain.OrderCreated {
	ev := domain.OrderCreated{
		OrderID:   o.ID,
		AccountID: o.AccountID,
		Total:     o.Total,
		Lines:     make([]domain.LineCreated, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		ev.Lines = append(ev.Lines, domain.LineCreated{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return ev
}
