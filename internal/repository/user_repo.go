package repository

import (
	"context"

	"todo_webapp/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO users (email, username, password_hash, roles)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		nullableString(u.Email),
		u.Username,
		u.PasswordHash,
		roles,
	).Scan(&u.ID, &u.CreatedAt)
	return wrapErr("create user", err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(email, ''), username, password_hash, roles, created_at
		 FROM users
		 WHERE id = $1`,
		id,
	)

	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Roles, &u.CreatedAt); err != nil {
		return nil, wrapErr("get user", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(email, ''), username, password_hash, roles, created_at
		 FROM users
		 WHERE lower(email) = lower($1)`,
		email,
	)

	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Roles, &u.CreatedAt); err != nil {
		return nil, wrapErr("get user by email", err)
	}
	return &u, nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, wrapErr("count users", err)
	}
	return n, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
