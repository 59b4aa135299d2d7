package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitedock/sitedock"
)

const siteColumns = "id, owner_id, name, domain, description, created_at"

// SiteRepo implements sitedock.SiteRepo on a pgx connection pool.
type SiteRepo struct {
	pool *pgxpool.Pool
}

func NewSiteRepo(pool *pgxpool.Pool) *SiteRepo {
	return &SiteRepo{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *SiteRepo) Create(ctx context.Context, site sitedock.Site) error {
	query := `INSERT INTO sites (` + siteColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		site.ID, site.OwnerID, site.Name, site.Domain, site.Description, site.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create site: %w", sitedock.ErrAlreadyExists)
		}
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (r *SiteRepo) Get(ctx context.Context, id uuid.UUID) (sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1`

	var site sitedock.Site
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&site.ID, &site.OwnerID, &site.Name, &site.Domain, &site.Description, &site.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sitedock.Site{}, sitedock.ErrNotFound
		}
		return sitedock.Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

func (r *SiteRepo) GetLatestByName(ctx context.Context, name string) (sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
		WHERE name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var site sitedock.Site
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&site.ID, &site.OwnerID, &site.Name, &site.Domain, &site.Description, &site.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sitedock.Site{}, sitedock.ErrNotFound
		}
		return sitedock.Site{}, fmt.Errorf("get latest by name: %w", err)
	}
	return site, nil
}

func (r *SiteRepo) GetAllByName(ctx context.Context, name string) ([]sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
		WHERE name = $1
		ORDER BY created_at DESC, id DESC`
	return r.querySites(ctx, "get all by name", query, name)
}

func (r *SiteRepo) Update(ctx context.Context, site sitedock.Site) error {
	query := `UPDATE sites
		SET owner_id = $1, name = $2, domain = $3, description = $4, created_at = $5
		WHERE id = $6`

	result, err := r.pool.Exec(ctx, query,
		site.OwnerID, site.Name, site.Domain, site.Description, site.CreatedAt, site.ID,
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update site: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *SiteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete site: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *SiteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`
	return r.querySites(ctx, "list by owner", query, ownerID)
}

func (r *SiteRepo) ListAll(ctx context.Context) ([]sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites ORDER BY created_at DESC, id DESC`
	return r.querySites(ctx, "list all", query)
}

func (r *SiteRepo) querySites(ctx context.Context, opName, query string, args ...any) ([]sitedock.Site, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opName, err)
	}
	defer rows.Close()

	sites := make([]sitedock.Site, 0)
	for rows.Next() {
		var site sitedock.Site
		if err := rows.Scan(
			&site.ID, &site.OwnerID, &site.Name, &site.Domain, &site.Description, &site.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", opName, err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", opName, err)
	}
	return sites, nil
}
