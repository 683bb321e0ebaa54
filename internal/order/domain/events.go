package domain

import "github.com/shopspring/decimal"

// Events published through the transactional outbox. They are written in the
// same unit of work as the order mutation, so consumers never see an event
// for a rolled-back order.

type OrderCreated struct {
	OrderID   int64           `json:"order_id"`
	AccountID int64           `json:"account_id"`
	Total     decimal.Decimal `json:"total"`
	Lines     []LineCreated   `json:"lines"`
}

type LineCreated struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderCancelled struct {
	OrderID   int64 `json:"order_id"`
	AccountID int64 `json:"account_id"`
}
