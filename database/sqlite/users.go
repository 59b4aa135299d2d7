package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitedock/sitedock"
)

const userColumns = "id, username, password_hash, created_at"

// UserRepo implements sitedock.UserRepo on a SQLite database.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user sitedock.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("create user: %w", sitedock.ErrAlreadyExists)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (sitedock.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sitedock.User{}, sitedock.ErrNotFound
		}
		return sitedock.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (sitedock.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sitedock.User{}, sitedock.ErrNotFound
		}
		return sitedock.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, user sitedock.User) error {
	query := `UPDATE users SET username = ?, password_hash = ?, created_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.CreatedAt.UTC().Format(timeLayout),
		user.ID.String(),
	)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("update user: %w", sitedock.ErrAlreadyExists)
		}
		return fmt.Errorf("update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update user: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete user: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) ListAll(ctx context.Context) ([]sitedock.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make([]sitedock.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: rows: %w", err)
	}
	return users, nil
}

func scanUser(row rowScanner) (sitedock.User, error) {
	var user sitedock.User
	var idStr, createdAt string

	if err := row.Scan(&idStr, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		return sitedock.User{}, err
	}

	var err error
	user.ID, err = uuid.Parse(idStr)
	if err != nil {
		return sitedock.User{}, fmt.Errorf("parse id: %w", err)
	}
	user.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return sitedock.User{}, fmt.Errorf("parse created_at: %w", err)
	}

	return user, nil
}
