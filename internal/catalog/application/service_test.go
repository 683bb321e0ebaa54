package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/orderdesk/internal/catalog/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
)

type fakeRepo struct {
	products   map[int64]domain.Product
	categories map[int64]domain.Category
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:   map[int64]domain.Product{},
		categories: map[int64]domain.Category{},
		nextID:     1,
	}
}

func (f *fakeRepo) CreateProduct(_ context.Context, p *domain.Product) error {
	p.ID = f.nextID
	f.nextID++
	f.products[p.ID] = *p
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, apperror.NotFoundf("product %d not found", id)
	}
	return p, nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, p domain.Product) error {
	existing, ok := f.products[p.ID]
	if !ok {
		return apperror.NotFoundf("product %d not found", p.ID)
	}
	p.Stock = existing.Stock
	p.CreatedAt = existing.CreatedAt
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return apperror.NotFoundf("product %d not found", id)
	}
	delete(f.products, id)
	return nil
}

func (f *fakeRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if filter.CategoryID == nil || (p.CategoryID != nil && *p.CategoryID == *filter.CategoryID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) AdjustStock(_ context.Context, id int64, delta int) error {
	p, ok := f.products[id]
	if !ok {
		return apperror.NotFoundf("product %d not found", id)
	}
	p.Stock += delta
	f.products[id] = p
	return nil
}

func (f *fakeRepo) CreateCategory(_ context.Context, c *domain.Category) error {
	c.ID = f.nextID
	f.nextID++
	f.categories[c.ID] = *c
	return nil
}

func (f *fakeRepo) GetCategory(_ context.Context, id int64) (domain.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return domain.Category{}, apperror.NotFoundf("category %d not found", id)
	}
	return c, nil
}

func (f *fakeRepo) ListCategories(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) CountProductsInCategory(_ context.Context, id int64) (int64, error) {
	var n int64
	for _, p := range f.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := f.categories[id]; !ok {
		return apperror.NotFoundf("category %d not found", id)
	}
	delete(f.categories, id)
	return nil
}

func newService(repo *fakeRepo) *Service {
	return NewService(slog.Default(), repo)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newService(newFakeRepo())

	tests := []struct {
		name    string
		product domain.Product
	}{
		{"empty name", domain.Product{Name: "  ", Price: decimal.NewFromInt(10), Stock: 1}},
		{"negative price", domain.Product{Name: "mug", Price: decimal.NewFromInt(-1), Stock: 1}},
		{"negative stock", domain.Product{Name: "mug", Price: decimal.NewFromInt(10), Stock: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.product)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		})
	}
}

func TestRestock(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	p, err := svc.CreateProduct(context.Background(), domain.Product{Name: "mug", Price: decimal.NewFromInt(10), Stock: 3})
	require.NoError(t, err)

	got, err := svc.Restock(context.Background(), p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	_, err = svc.Restock(context.Background(), p.ID, 0)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Restock(context.Background(), 999, 5)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDeleteCategoryBlockedWhileReferenced(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	c, err := svc.CreateCategory(context.Background(), "kitchen")
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), domain.Product{Name: "mug", Price: decimal.NewFromInt(10), Stock: 1, CategoryID: &c.ID})
	require.NoError(t, err)

	err = svc.DeleteCategory(context.Background(), c.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindBusinessRule, apperror.KindOf(err))

	// Once the product moves out, deletion goes through.
	p := repo.products[2]
	p.CategoryID = nil
	repo.products[2] = p
	require.NoError(t, svc.DeleteCategory(context.Background(), c.ID))
}

func TestCreateCategoryEmptyName(t *testing.T) {
	svc := newService(newFakeRepo())
	_, err := svc.CreateCategory(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestListProductsClampsLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	_, err := svc.ListProducts(context.Background(), domain.ListFilter{Offset: -1})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.ListProducts(context.Background(), domain.ListFilter{Limit: 100000})
	require.NoError(t, err)
}
