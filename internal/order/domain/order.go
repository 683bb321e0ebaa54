package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the fulfillment aggregate. It owns its lines exclusively: lines
// are created with the order and deleted with it, never on their own.
// Total always equals the sum of line subtotals computed at creation time
// and never changes afterwards, whatever happens to product prices.
type Order struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"account_id"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	Lines     []OrderLine     `json:"lines"`
}

// OrderLine records what was bought and at what price. UnitPrice is a
// snapshot of the product price at creation; it is never re-read from the
// catalog afterwards.
type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrder assembles the aggregate and computes its total from the lines.
func NewOrder(accountID int64, lines []OrderLine) Order {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return Order{
		AccountID: accountID,
		Total:     total,
		CreatedAt: time.Now().UTC(),
		Lines:     lines,
	}
}

// AccountSummary aggregates an account's order history. Zero values, not
// nulls, when the account has no orders.
type AccountSummary struct {
	AccountID int64           `json:"account_id"`
	Count     int64           `json:"count"`
	Sum       decimal.Decimal `json:"sum"`
	Average   decimal.Decimal `json:"average"`
}

// RangeSummary aggregates orders created within [From, To].
type RangeSummary struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Count int64           `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}
