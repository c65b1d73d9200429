// Package images handles the comma-joined relative image paths stored on
// products and purchases, and the numeric ids embedded in their file names.
package images

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

var ErrNoImageID = errors.New("image file name carries no numeric id")

// Split returns the non-empty, trimmed paths of a comma-joined list.
func Split(joined string) []string {
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Join(paths []string) string {
	return strings.Join(paths, ",")
}

// ParseID extracts the last run of digits in the file name (extension
// excluded), e.g. "products/img_1712345678901.jpg" -> 1712345678901.
func ParseID(p string) (int64, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] >= '0' && base[i] <= '9' {
			end = i
			break
		}
	}
	if end < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoImageID, p)
	}
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	id, err := strconv.ParseInt(base[start:end+1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse image id %q: %w", p, err)
	}
	return id, nil
}
