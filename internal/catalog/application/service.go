package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/retailops/orderdesk/internal/catalog/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service covers the catalog's CRUD surface. Stock changes driven by order
// fulfillment go through the engine's unit of work, not through here; this
// service only handles direct restocks and catalog maintenance.
type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.CreateProduct(ctx, &p); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return s.repo.GetByID(ctx, p.ID)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f domain.ListFilter) ([]domain.Product, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		return nil, apperror.Validationf("offset must not be negative, got %d", f.Offset)
	}
	return s.repo.List(ctx, f)
}

// Restock adds units to a product's stock. Quantity is strictly positive;
// sales never come through here.
func (s *Service) Restock(ctx context.Context, id int64, quantity int) (domain.Product, error) {
	if quantity <= 0 {
		return domain.Product{}, apperror.Validationf("restock quantity must be positive, got %d", quantity)
	}
	if err := s.repo.AdjustStock(ctx, id, quantity); err != nil {
		return domain.Product{}, err
	}
	s.log.Info("product restocked", "product_id", id, "quantity", quantity)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, apperror.Validationf("category name must not be empty")
	}
	c := domain.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, &c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

// DeleteCategory refuses to remove a category that products still reference.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	n, err := s.repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.BusinessRulef("category %d still has %d products", id, n)
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *Service) ProductsInCategory(ctx context.Context, id int64) ([]domain.Product, error) {
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, domain.ListFilter{CategoryID: &id, Limit: maxListLimit})
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.Validationf("product name must not be empty")
	}
	if p.Price.IsNegative() {
		return apperror.Validationf("product price must not be negative")
	}
	if p.Stock < 0 {
		return apperror.Validationf("product stock must not be negative")
	}
	return nil
}
