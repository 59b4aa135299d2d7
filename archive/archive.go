// Package archive extracts uploaded site archives (tar.gz or zip) with
// path-safety checks, and implements the replace pass that rewrites
// self-referential links for name-based serving. All writes go through an
// os.Root sandbox rooted at the destination directory, in addition to the
// explicit per-entry path validation.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/sitedock/sitedock"
)

// Codec implements sitedock.Extractor.
type Codec struct{}

func New() *Codec {
	return &Codec{}
}

type format int

const (
	formatTarGz format = iota
	formatZip
)

// detectFormat selects the archive format purely from the filename suffix.
func detectFormat(name string) (format, error) {
	base := strings.ToLower(filepath.Base(name))
	switch {
	case strings.HasSuffix(base, ".tar.gz"), strings.HasSuffix(base, ".tgz"):
		return formatTarGz, nil
	case strings.HasSuffix(base, ".zip"):
		return formatZip, nil
	default:
		return 0, fmt.Errorf("%q: %w", name, sitedock.ErrUnsupportedFormat)
	}
}

// safeRelPath validates an archive entry name and returns the relative output
// path. It rejects entries with a parent-directory component, an absolute
// root, or an OS volume prefix, so no entry can write outside the extraction
// directory. Empty names and "." resolve to an empty path, which callers skip.
func safeRelPath(name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")

	if filepath.VolumeName(slashed) != "" || strings.HasPrefix(slashed, "/") {
		return "", fmt.Errorf("entry %q: %w", name, sitedock.ErrUnsafePath)
	}

	var parts []string
	for _, seg := range strings.Split(slashed, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("entry %q: %w", name, sitedock.ErrUnsafePath)
		default:
			parts = append(parts, seg)
		}
	}

	return filepath.Join(parts...), nil
}

// entryFunc receives one archive entry. r is nil for directory entries and
// must be fully consumed before the next entry for streaming formats.
type entryFunc func(relPath string, isDir bool, r io.Reader) error

// walk iterates the archive entries, applying the path-safety gate to each
// name before handing it to fn. The first unsafe entry aborts the walk;
// partial writes from earlier entries are acceptable (this is a security
// gate, not a transaction).
func walk(ctx context.Context, archivePath string, fn entryFunc) error {
	f, err := detectFormat(archivePath)
	if err != nil {
		return err
	}

	switch f {
	case formatTarGz:
		return walkTarGz(ctx, archivePath, fn)
	case formatZip:
		return walkZip(ctx, archivePath, fn)
	default:
		return fmt.Errorf("%q: %w", archivePath, sitedock.ErrUnsupportedFormat)
	}
}

func walkTarGz(ctx context.Context, archivePath string, fn entryFunc) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("read gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		rel, err := safeRelPath(hdr.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fn(rel, true, nil); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := fn(rel, false, tr); err != nil {
				return err
			}
		default:
			// Symlinks and special files are not extracted.
		}
	}
}

func walkZip(ctx context.Context, archivePath string, fn entryFunc) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("read zip: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := safeRelPath(zf.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}

		if strings.HasSuffix(zf.Name, "/") {
			if err := fn(rel, true, nil); err != nil {
				return err
			}
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %q: %w", zf.Name, err)
		}
		fnErr := fn(rel, false, rc)
		if closeErr := rc.Close(); fnErr == nil && closeErr != nil {
			fnErr = fmt.Errorf("close zip entry %q: %w", zf.Name, closeErr)
		}
		if fnErr != nil {
			return fnErr
		}
	}

	return nil
}

// Extract unpacks the archive at archivePath into destDir, creating it if
// needed. File entries are written byte-for-byte with parent directories
// created on demand.
func (c *Codec) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	root, err := openDestRoot(destDir)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	defer func() { _ = root.Close() }()

	err = walk(ctx, archivePath, func(rel string, isDir bool, r io.Reader) error {
		if isDir {
			return root.MkdirAll(rel, 0o755)
		}
		return writeEntry(root, rel, r)
	})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	return nil
}

func openDestRoot(destDir string) (*os.Root, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dest dir: %w", err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("open dest root: %w", err)
	}
	return root, nil
}

func writeEntry(root *os.Root, rel string, r io.Reader) error {
	if dir := filepath.Dir(rel); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create entry dir %q: %w", dir, err)
		}
	}

	f, err := root.Create(rel)
	if err != nil {
		return fmt.Errorf("create entry %q: %w", rel, err)
	}

	_, copyErr := io.Copy(f, r)
	if closeErr := f.Close(); copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return fmt.Errorf("write entry %q: %w", rel, copyErr)
	}

	return nil
}
