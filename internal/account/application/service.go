package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/retailops/orderdesk/internal/account/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
)

type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     string
}

// Register creates an enabled account with a bcrypt credential hash.
// Credential verification belongs to the authentication subsystem, not here.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" {
		return domain.User{}, apperror.Validationf("username must not be empty")
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, apperror.Validationf("email %q is not valid", req.Email)
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		Username: username,
		Email:    email,
		Enabled:  true,
		Role:     role,
	}
	if err := u.SetPassword(req.Password); err != nil {
		return domain.User{}, err
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return domain.User{}, err
	}
	s.log.Info("account registered", "account_id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		return nil, apperror.Validationf("offset must not be negative, got %d", offset)
	}
	return s.repo.List(ctx, limit, offset)
}

// SetEnabled flips the flag that order creation checks. Disabling never
// touches existing orders.
func (s *Service) SetEnabled(ctx context.Context, id int64, enabled bool) (domain.User, error) {
	if err := s.repo.SetEnabled(ctx, id, enabled); err != nil {
		return domain.User{}, err
	}
	s.log.Info("account enabled flag changed", "account_id", id, "enabled", enabled)
	return s.repo.GetByID(ctx, id)
}
