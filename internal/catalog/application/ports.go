package application

import (
	"context"

	"github.com/retailops/orderdesk/internal/catalog/domain"
)

type Repository interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	List(ctx context.Context, f domain.ListFilter) ([]domain.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) error

	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id int64) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CountProductsInCategory(ctx context.Context, id int64) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error
}
