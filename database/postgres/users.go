package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitedock/sitedock"
)

const userColumns = "id, username, password_hash, created_at"

// UserRepo implements sitedock.UserRepo on a pgx connection pool.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user sitedock.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", sitedock.ErrAlreadyExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (sitedock.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user sitedock.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sitedock.User{}, sitedock.ErrNotFound
		}
		return sitedock.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (sitedock.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	var user sitedock.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sitedock.User{}, sitedock.ErrNotFound
		}
		return sitedock.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, user sitedock.User) error {
	query := `UPDATE users SET username = $1, password_hash = $2, created_at = $3 WHERE id = $4`

	result, err := r.pool.Exec(ctx, query, user.Username, user.PasswordHash, user.CreatedAt, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", sitedock.ErrAlreadyExists)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update user: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete user: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) ListAll(ctx context.Context) ([]sitedock.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]sitedock.User, 0)
	for rows.Next() {
		var user sitedock.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("list users: scan: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: rows: %w", err)
	}
	return users, nil
}
