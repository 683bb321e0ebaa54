package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry. Stock is the count of units available
// for fulfillment; it never goes negative through any committed operation.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ListFilter narrows a product listing. A nil CategoryID means all categories.
type ListFilter struct {
	CategoryID *int64
	Limit      int
	Offset     int
}
