// Package upload consumes streaming multipart site uploads. The archive
// field is streamed straight to a temp file so a large upload never has to
// fit in memory; text fields are validated the moment they arrive.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sitedock/sitedock"
)

// Field names expected in the multipart stream, in any order.
const (
	FieldUUID     = "uuid"
	FieldSiteName = "siteName"
	FieldSite     = "site"
)

// maxTextField bounds the short text fields; archives go to disk instead.
const maxTextField = 4 << 10

// Result describes a fully received upload. ArchivePath is a temp file whose
// name keeps the uploaded filename's suffix so the archive codec can select
// the format. The caller owns the temp file and must remove it when done
// (SiteService.Deploy does this on every exit path).
type Result struct {
	SiteID      uuid.UUID
	SiteName    string
	Filename    string
	ArchivePath string
	Size        int64
}

// ReadForm consumes the multipart stream and returns the accumulated upload.
// Fields may arrive in any order. The siteName field is validated against the
// slug pattern as soon as it is seen; any missing field after the stream is
// exhausted fails with ErrMissingField, and a temp file created for the
// archive is removed on every failure path.
func ReadForm(ctx context.Context, mr *multipart.Reader, tmpDir string) (Result, error) {
	var res Result
	var haveID, haveName, haveFile bool

	cleanup := func() {
		if haveFile {
			if err := os.Remove(res.ArchivePath); err != nil {
				slog.Warn("failed to remove upload temp file", "path", res.ArchivePath, "err", err)
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			cleanup()
			return Result{}, fmt.Errorf("read upload: %w", err)
		}

		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cleanup()
			return Result{}, fmt.Errorf("read upload: %w", err)
		}

		switch part.FormName() {
		case FieldUUID:
			text, err := readTextField(part)
			if err != nil {
				cleanup()
				return Result{}, fmt.Errorf("read upload: uuid field: %w", err)
			}
			id, err := uuid.Parse(text)
			if err != nil {
				cleanup()
				return Result{}, fmt.Errorf("read upload: parse uuid: %w: %v", sitedock.ErrInvalidInput, err)
			}
			res.SiteID = id
			haveID = true

		case FieldSiteName:
			text, err := readTextField(part)
			if err != nil {
				cleanup()
				return Result{}, fmt.Errorf("read upload: siteName field: %w", err)
			}
			if !sitedock.IsValidSiteName(text) {
				cleanup()
				return Result{}, fmt.Errorf("read upload: %q: %w", text, sitedock.ErrInvalidName)
			}
			res.SiteName = text
			haveName = true

		case FieldSite:
			if haveFile {
				_ = part.Close()
				cleanup()
				return Result{}, fmt.Errorf("read upload: duplicate site field: %w", sitedock.ErrInvalidInput)
			}
			filename := filepath.Base(part.FileName())
			if filename == "" || filename == "." || filename == string(filepath.Separator) {
				_ = part.Close()
				return Result{}, fmt.Errorf("read upload: archive must have a filename: %w", sitedock.ErrInvalidInput)
			}
			path, size, err := saveArchivePart(part, tmpDir, filename)
			if err != nil {
				return Result{}, fmt.Errorf("read upload: %w", err)
			}
			res.Filename = filename
			res.ArchivePath = path
			res.Size = size
			haveFile = true

		default:
			// Unknown fields are drained and ignored.
			_, _ = io.Copy(io.Discard, part)
		}
		_ = part.Close()
	}

	if !haveID {
		cleanup()
		return Result{}, fmt.Errorf("read upload: %q: %w", FieldUUID, sitedock.ErrMissingField)
	}
	if !haveName {
		cleanup()
		return Result{}, fmt.Errorf("read upload: %q: %w", FieldSiteName, sitedock.ErrMissingField)
	}
	if !haveFile {
		return Result{}, fmt.Errorf("read upload: %q: %w", FieldSite, sitedock.ErrMissingField)
	}

	return res, nil
}

func readTextField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxTextField+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxTextField {
		return "", fmt.Errorf("text field too long: %w", sitedock.ErrInvalidInput)
	}
	return strings.TrimSpace(string(data)), nil
}

// saveArchivePart streams the file part to a uniquely named temp file whose
// name ends with the uploaded filename, preserving the archive suffix.
func saveArchivePart(part *multipart.Part, tmpDir, filename string) (string, int64, error) {
	// CreateTemp substitutes the last '*' in the pattern, so strip any from
	// the client-supplied name.
	filename = strings.ReplaceAll(filename, "*", "_")
	f, err := os.CreateTemp(tmpDir, "upload-*-"+filename)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	size, copyErr := io.Copy(f, part)
	closeErr := f.Close()

	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		if err := os.Remove(f.Name()); err != nil {
			slog.Warn("failed to remove upload temp file", "path", f.Name(), "err", err)
		}
		return "", 0, fmt.Errorf("save archive: %w", copyErr)
	}

	return f.Name(), size, nil
}
