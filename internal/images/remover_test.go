package images

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirRemoverDeletesUnderRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "products"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(root, "products", "img_42.jpg")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	remover := DirRemover{Root: root}
	if err := remover.Remove("products/img_42.jpg"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(file); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected file to be gone, got %v", err)
	}
	if err := remover.Remove("products/img_42.jpg"); err != nil {
		t.Fatalf("removing a missing file should succeed, got %v", err)
	}
}

func TestDirRemoverRejectsEscapes(t *testing.T) {
	remover := DirRemover{Root: t.TempDir()}
	for _, p := range []string{"../secret.jpg", "/etc/passwd", "a/../../b.jpg", ""} {
		if err := remover.Remove(p); !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("%q: expected ErrOutsideRoot, got %v", p, err)
		}
	}
}
