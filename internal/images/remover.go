package images

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideRoot = errors.New("image path escapes the image directory")

// DirRemover deletes image files stored under Root. Paths are relative to
// Root, as they appear in product and purchase rows.
type DirRemover struct {
	Root string
}

func (d DirRemover) Remove(p string) error {
	target, err := d.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image %q: %w", p, err)
	}
	return nil
}

func (d DirRemover) resolve(p string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")))
	if cleaned == "." || filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, p)
	}
	return filepath.Join(d.Root, cleaned), nil
}
