package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "modernc.org/sqlite"

	"github.com/sitedock/sitedock"
)

const siteColumns = "id, owner_id, name, domain, description, created_at"

// timeLayout is RFC3339 with fixed-width nanoseconds. Trailing zeros are kept
// so that lexicographic ordering of the stored text matches time ordering,
// which the created_at indexes rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SiteRepo implements sitedock.SiteRepo on a SQLite database.
type SiteRepo struct {
	db *sql.DB
}

func NewSiteRepo(db *sql.DB) *SiteRepo {
	return &SiteRepo{db: db}
}

func isConstraintErr(err error) bool {
	var se *sqlite3.Error
	if errors.As(err, &se) {
		// SQLITE_CONSTRAINT is 19; extended codes keep it in the low byte.
		return se.Code()&0xff == 19
	}
	return false
}

func (r *SiteRepo) Create(ctx context.Context, site sitedock.Site) error {
	query := `INSERT INTO sites (` + siteColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		site.ID.String(),
		site.OwnerID.String(),
		site.Name,
		site.Domain,
		site.Description,
		site.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("create site: %w", sitedock.ErrAlreadyExists)
		}
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (r *SiteRepo) Get(ctx context.Context, id uuid.UUID) (sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = ?`
	site, err := scanSite(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sitedock.Site{}, sitedock.ErrNotFound
		}
		return sitedock.Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

func (r *SiteRepo) GetLatestByName(ctx context.Context, name string) (sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
		WHERE name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	site, err := scanSite(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sitedock.Site{}, sitedock.ErrNotFound
		}
		return sitedock.Site{}, fmt.Errorf("get latest by name: %w", err)
	}
	return site, nil
}

func (r *SiteRepo) GetAllByName(ctx context.Context, name string) ([]sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
		WHERE name = ?
		ORDER BY created_at DESC, id DESC`
	return r.querySites(ctx, "get all by name", query, name)
}

func (r *SiteRepo) Update(ctx context.Context, site sitedock.Site) error {
	query := `UPDATE sites
		SET owner_id = ?, name = ?, domain = ?, description = ?, created_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		site.OwnerID.String(),
		site.Name,
		site.Domain,
		site.Description,
		site.CreatedAt.UTC().Format(timeLayout),
		site.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update site: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update site: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *SiteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete site: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("delete site: %w", sitedock.ErrNotFound)
	}
	return nil
}

func (r *SiteRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC`
	return r.querySites(ctx, "list by owner", query, ownerID.String())
}

func (r *SiteRepo) ListAll(ctx context.Context) ([]sitedock.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites ORDER BY created_at DESC, id DESC`
	return r.querySites(ctx, "list all", query)
}

func (r *SiteRepo) querySites(ctx context.Context, opName, query string, args ...any) ([]sitedock.Site, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opName, err)
	}
	defer func() { _ = rows.Close() }()

	sites := make([]sitedock.Site, 0)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opName, err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", opName, err)
	}
	return sites, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (sitedock.Site, error) {
	var site sitedock.Site
	var idStr, ownerStr, createdAt string
	var domain sql.NullString

	if err := row.Scan(&idStr, &ownerStr, &site.Name, &domain, &site.Description, &createdAt); err != nil {
		return sitedock.Site{}, err
	}

	var err error
	site.ID, err = uuid.Parse(idStr)
	if err != nil {
		return sitedock.Site{}, fmt.Errorf("parse id: %w", err)
	}
	site.OwnerID, err = uuid.Parse(ownerStr)
	if err != nil {
		return sitedock.Site{}, fmt.Errorf("parse owner id: %w", err)
	}
	site.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return sitedock.Site{}, fmt.Errorf("parse created_at: %w", err)
	}
	if domain.Valid {
		site.Domain = &domain.String
	}

	return site, nil
}
