package application

import (
	"context"

	"github.com/retailops/orderdesk/internal/account/domain"
)

type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
}
