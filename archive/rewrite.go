package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"unicode/utf8"

	"github.com/sitedock/sitedock"
)

// ExtractWithRewrite unpacks the archive into two parallel trees under
// destDir. original/ receives every entry byte-identical. replaced/ receives
// the same entries, except that entries whose bytes decode as valid UTF-8
// have rw applied as a literal substring substitution. Binary entries are
// never altered. A nil rw produces two identical trees.
//
// The same path-safety gate as Extract applies to every entry.
func (c *Codec) ExtractWithRewrite(ctx context.Context, archivePath, destDir string, rw *sitedock.Rewrite) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extract with rewrite: %w", err)
	}

	root, err := openDestRoot(destDir)
	if err != nil {
		return fmt.Errorf("extract with rewrite: %w", err)
	}
	defer func() { _ = root.Close() }()

	for _, sub := range []string{"original", "replaced"} {
		if err := root.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("extract with rewrite: create %s tree: %w", sub, err)
		}
	}

	err = walk(ctx, archivePath, func(rel string, isDir bool, r io.Reader) error {
		origPath := filepath.Join("original", rel)
		replPath := filepath.Join("replaced", rel)

		if isDir {
			if err := root.MkdirAll(origPath, 0o755); err != nil {
				return err
			}
			return root.MkdirAll(replPath, 0o755)
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read entry %q: %w", rel, err)
		}

		if err := writeEntry(root, origPath, bytes.NewReader(data)); err != nil {
			return err
		}
		return writeEntry(root, replPath, bytes.NewReader(applyRewrite(data, rw)))
	})
	if err != nil {
		return fmt.Errorf("extract with rewrite: %w", err)
	}

	return nil
}

// applyRewrite substitutes rw.From with rw.To when data is valid UTF-8 text;
// anything else passes through unchanged.
func applyRewrite(data []byte, rw *sitedock.Rewrite) []byte {
	if rw == nil || !utf8.Valid(data) {
		return data
	}
	return bytes.ReplaceAll(data, []byte(rw.From), []byte(rw.To))
}

var _ sitedock.Extractor = (*Codec)(nil)
