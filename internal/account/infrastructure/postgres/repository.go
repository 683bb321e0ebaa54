package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/retailops/orderdesk/internal/account/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
	pgshared "github.com/retailops/orderdesk/pkg/postgres"
)

type Repository struct {
	log *slog.Logger
	db  pgshared.Querier
}

func NewRepository(log *slog.Logger, db pgshared.Querier) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, enabled, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash, u.Enabled, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return apperror.BusinessRulef("username %q or email %q already in use", u.Username, u.Email)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, username, email, password_hash, enabled, role, created_at
		FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Enabled, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, apperror.NotFoundf("account %d not found", id)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, email, password_hash, enabled, role, created_at
		FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Enabled, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	ct, err := r.db.Exec(ctx, `UPDATE users SET enabled=$2 WHERE id=$1`, id, enabled)
	if err != nil {
		return fmt.Errorf("update user enabled: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperror.NotFoundf("account %d not found", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
