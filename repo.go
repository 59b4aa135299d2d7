package sitedock

import (
	"context"

	"github.com/google/uuid"
)

// SiteRepo defines durable storage for Site records. Implementations must
// guarantee atomic single-record writes and keep the owner index consistent
// with the primary records, so that ListByOwner never requires a full scan.
//
// All methods accept a context for cancellation and timeout control.
type SiteRepo interface {
	// Create inserts a new record and its owner-index entry. Ids are
	// caller-generated; inserting an existing id returns ErrAlreadyExists.
	Create(ctx context.Context, site Site) error

	// Get retrieves a site by id. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id uuid.UUID) (Site, error)

	// GetLatestByName resolves a name to its most recent version: the record
	// with the maximum CreatedAt among all records sharing the name, ties
	// broken by id descending. Returns ErrNotFound when no record matches.
	GetLatestByName(ctx context.Context, name string) (Site, error)

	// GetAllByName returns every version recorded under name, newest first.
	GetAllByName(ctx context.Context, name string) ([]Site, error)

	// Update replaces the full record. If OwnerID or CreatedAt changed, the
	// owner-index entry is re-keyed so prefix scans stay correct. Returns
	// ErrNotFound if the id is unknown.
	Update(ctx context.Context, site Site) error

	// Delete removes the record and its owner-index entry. Returns
	// ErrNotFound if the id is unknown. On-disk directory cleanup is the
	// caller's responsibility (see SiteService.Delete).
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByOwner returns all sites owned by ownerID, newest first, served
	// from the owner index.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Site, error)

	// ListAll returns every site record.
	ListAll(ctx context.Context) ([]Site, error)
}

// UserRepo defines durable storage for User accounts.
type UserRepo interface {
	// Create inserts a new user. Usernames are unique; a duplicate username
	// or id returns ErrAlreadyExists.
	Create(ctx context.Context, user User) error

	// Get retrieves a user by id. Returns ErrNotFound if unknown.
	Get(ctx context.Context, id uuid.UUID) (User, error)

	// GetByUsername retrieves a user by username. Returns ErrNotFound if unknown.
	GetByUsername(ctx context.Context, username string) (User, error)

	// Update replaces the full record. Returns ErrNotFound if unknown.
	Update(ctx context.Context, user User) error

	// Delete removes the user. Returns ErrNotFound if unknown.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListAll returns every user.
	ListAll(ctx context.Context) ([]User, error)
}

// Extractor performs archive extraction with path-safety checks. Implemented
// by the archive package.
type Extractor interface {
	// Extract unpacks the archive at archivePath into destDir. The format is
	// selected from the archive filename suffix. Entries whose paths contain
	// parent-directory or absolute components abort extraction with
	// ErrUnsafePath.
	Extract(ctx context.Context, archivePath, destDir string) error

	// ExtractWithRewrite unpacks the archive into destDir twice: original/
	// holds byte-identical content, replaced/ holds content with rw applied
	// to every valid-UTF-8 entry. Binary entries are copied unchanged. A nil
	// rw makes both trees identical.
	ExtractWithRewrite(ctx context.Context, archivePath, destDir string, rw *Rewrite) error
}
