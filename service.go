package sitedock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SiteService coordinates the deployment pipeline: it turns a validated
// (site id, site name, archive) triple into two on-disk trees plus a Site
// record, and owns the lifecycle operations on existing sites.
//
// Each deployed version is served under two base paths. The identifier tree
// sites/{id}/ holds the archive content untouched. The name tree
// sites/{name}/ holds the same content with self-referential links rewritten
// from the id path to the name path, and always reflects the latest version
// uploaded under that name.
type SiteService struct {
	sites     SiteRepo
	users     UserRepo
	extractor Extractor
	sitesPath string
}

// ServiceConfig holds configuration for SiteService. SitesPath is the base
// directory under which identifier and name trees are created.
type ServiceConfig struct {
	SitesPath string
}

func NewSiteService(sites SiteRepo, users UserRepo, extractor Extractor, cfg ServiceConfig) (*SiteService, error) {
	if cfg.SitesPath == "" {
		return nil, errors.New("new site service: sites path cannot be empty")
	}
	if err := os.MkdirAll(cfg.SitesPath, 0o750); err != nil {
		return nil, fmt.Errorf("new site service: create sites path: %w", err)
	}
	return &SiteService{
		sites:     sites,
		users:     users,
		extractor: extractor,
		sitesPath: cfg.SitesPath,
	}, nil
}

// SiteDir returns the on-disk directory for a site id or name.
func (s *SiteService) SiteDir(idOrName string) string {
	return filepath.Join(s.sitesPath, idOrName)
}

// Deploy publishes the archive at req.ArchivePath as a new version of
// req.SiteName owned by req.OwnerID.
//
// Names are first-claim-wins across owners: if the latest record under the
// name belongs to a different owner, Deploy fails with ErrNameConflict and
// touches nothing. A same-owner re-upload always succeeds and creates a new
// version; two concurrent same-owner uploads may both succeed, with
// GetLatestByName settling on the newer record.
//
// The record is persisted only after both trees are fully materialized, so a
// failed deploy never leaves a record pointing at partial content. The
// uploaded archive and the per-deploy temp directory are removed on every
// exit path; removal failures are logged, never escalated.
func (s *SiteService) Deploy(ctx context.Context, req DeployRequest) (Site, error) {
	// Temp dir is keyed by site id so concurrent deploys never collide.
	tmpDir := filepath.Join(s.sitesPath, ".deploy-"+req.SiteID.String())

	// Registered before any validation so the uploaded archive is removed on
	// every exit path, including early rejections.
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			slog.Warn("failed to remove deploy temp dir", "dir", tmpDir, "err", err)
		}
		if err := os.Remove(req.ArchivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove uploaded archive", "path", req.ArchivePath, "err", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return Site{}, fmt.Errorf("deploy site: %w", err)
	}

	if req.SiteID == uuid.Nil {
		return Site{}, fmt.Errorf("deploy site: %w: site id cannot be empty", ErrInvalidInput)
	}

	if !IsValidSiteName(req.SiteName) {
		return Site{}, fmt.Errorf("deploy site %q: %w", req.SiteName, ErrInvalidName)
	}

	latest, err := s.sites.GetLatestByName(ctx, req.SiteName)
	if err == nil && latest.OwnerID != req.OwnerID {
		return Site{}, fmt.Errorf("deploy site %q: %w", req.SiteName, ErrNameConflict)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Site{}, fmt.Errorf("deploy site %q: resolve name: %w", req.SiteName, err)
	}

	idDir := s.SiteDir(req.SiteID.String())
	if err := os.RemoveAll(idDir); err != nil {
		return Site{}, fmt.Errorf("deploy site %q: clear id dir: %w", req.SiteName, err)
	}
	if err := os.MkdirAll(idDir, 0o755); err != nil {
		return Site{}, fmt.Errorf("deploy site %q: create id dir: %w", req.SiteName, err)
	}

	// Rewrite targets the exact identifier path prefix so only
	// self-referential links are altered.
	rw := &Rewrite{
		From: "/sites/" + req.SiteID.String() + "/",
		To:   "/sites/" + req.SiteName + "/",
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.extractor.Extract(gctx, req.ArchivePath, idDir)
	})
	g.Go(func() error {
		return s.extractor.ExtractWithRewrite(gctx, req.ArchivePath, tmpDir, rw)
	})
	if err := g.Wait(); err != nil {
		s.removeTree(idDir)
		return Site{}, fmt.Errorf("deploy site %q: extract: %w", req.SiteName, err)
	}

	nameDir := s.SiteDir(req.SiteName)
	if err := os.RemoveAll(nameDir); err != nil {
		s.removeTree(idDir)
		return Site{}, fmt.Errorf("deploy site %q: clear name dir: %w", req.SiteName, err)
	}
	if err := os.Rename(filepath.Join(tmpDir, "replaced"), nameDir); err != nil {
		s.removeTree(idDir)
		return Site{}, fmt.Errorf("deploy site %q: publish name dir: %w", req.SiteName, err)
	}

	site := NewSite(req.SiteID, req.OwnerID, req.SiteName, "Uploaded site")
	if err := s.sites.Create(ctx, site); err != nil {
		s.removeTree(idDir)
		return Site{}, fmt.Errorf("deploy site %q: persist record: %w", req.SiteName, err)
	}

	return site, nil
}

func (s *SiteService) removeTree(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove site tree", "dir", dir, "err", err)
	}
}

// Prune removes on-disk trees with no backing record: identifier trees whose
// record was deleted, name trees no record claims, and leftover deploy temp
// directories from interrupted uploads. Returns the number of trees removed.
func (s *SiteService) Prune(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("prune sites: %w", err)
	}

	sites, err := s.sites.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune sites: %w", err)
	}

	live := make(map[string]struct{}, 2*len(sites))
	for _, site := range sites {
		live[site.ID.String()] = struct{}{}
		live[site.Name] = struct{}{}
	}

	entries, err := os.ReadDir(s.sitesPath)
	if err != nil {
		return 0, fmt.Errorf("prune sites: read base dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		dir := s.SiteDir(entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove orphaned tree", "dir", dir, "err", err)
			continue
		}
		slog.Debug("removed orphaned tree", "dir", dir)
		removed++
	}

	return removed, nil
}

// DiskUsage returns the total size in bytes of the files in the identifier
// tree for id. A tree that has not been materialized yet counts as zero.
func (s *SiteService) DiskUsage(id uuid.UUID) (int64, error) {
	root := s.SiteDir(id.String())

	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root && errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("disk usage: %w", err)
	}
	return total, nil
}

// Get returns the site record for id.
func (s *SiteService) Get(ctx context.Context, id uuid.UUID) (Site, error) {
	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

// Latest resolves a name to its most recent version.
func (s *SiteService) Latest(ctx context.Context, name string) (Site, error) {
	site, err := s.sites.GetLatestByName(ctx, name)
	if err != nil {
		return Site{}, fmt.Errorf("latest site %q: %w", name, err)
	}
	return site, nil
}

// Versions returns every version recorded under name, newest first.
func (s *SiteService) Versions(ctx context.Context, name string) ([]Site, error) {
	sites, err := s.sites.GetAllByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("site versions %q: %w", name, err)
	}
	return sites, nil
}

// List returns every site record.
func (s *SiteService) List(ctx context.Context) ([]Site, error) {
	sites, err := s.sites.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

// ListByOwner returns all sites owned by ownerID, newest first.
func (s *SiteService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Site, error) {
	sites, err := s.sites.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sites by owner: %w", err)
	}
	return sites, nil
}

// UpdateSite carries the mutable fields of a site. Nil fields are left
// unchanged.
type UpdateSite struct {
	Name        *string
	Description *string
	Domain      *string
}

// Update renames a site and/or changes its description or custom domain,
// after verifying ownership. Renaming onto a name whose latest version
// belongs to a different owner fails with ErrNameConflict. OwnerID and
// CreatedAt are never changed. The name tree on disk is left as is: it
// belongs to whichever version is latest for its name and is refreshed on the
// next upload.
func (s *SiteService) Update(ctx context.Context, id, ownerID uuid.UUID, upd UpdateSite) (Site, error) {
	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return Site{}, fmt.Errorf("update site: %w", err)
	}
	if site.OwnerID != ownerID {
		return Site{}, fmt.Errorf("update site: %w", ErrUnauthorized)
	}

	if upd.Name != nil && *upd.Name != site.Name {
		if !IsValidSiteName(*upd.Name) {
			return Site{}, fmt.Errorf("update site: %q: %w", *upd.Name, ErrInvalidName)
		}
		latest, err := s.sites.GetLatestByName(ctx, *upd.Name)
		if err == nil && latest.OwnerID != ownerID {
			return Site{}, fmt.Errorf("update site: %q: %w", *upd.Name, ErrNameConflict)
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Site{}, fmt.Errorf("update site: resolve name: %w", err)
		}
		site.Name = *upd.Name
	}
	if upd.Description != nil {
		site.Description = *upd.Description
	}
	if upd.Domain != nil {
		site.Domain = upd.Domain
	}

	if err := s.sites.Update(ctx, site); err != nil {
		return Site{}, fmt.Errorf("update site: %w", err)
	}
	return site, nil
}

// Delete removes the site record, its owner-index entry and its identifier
// tree, after verifying ownership. The name tree is left untouched: it may
// belong to a different, still-latest version of the same name.
func (s *SiteService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	if site.OwnerID != ownerID {
		return fmt.Errorf("delete site: %w", ErrUnauthorized)
	}

	if err := s.sites.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete site: %w", err)
	}

	if err := os.RemoveAll(s.SiteDir(id.String())); err != nil {
		return fmt.Errorf("delete site: remove id tree: %w", err)
	}

	return nil
}
