package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Ditre Italia", "Alta Sofa", "sofa")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.jpg", "a.PNG", "c.webp", "readme.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestResolveDirCaseInsensitive(t *testing.T) {
	root := setupTree(t)

	dir, ok := ResolveDir(root, "DITRE   ITALIA", "alta sofa", "SOFA")
	if !ok {
		t.Fatal("ResolveDir missed")
	}
	want := filepath.Join(root, "Ditre Italia", "Alta Sofa", "sofa")
	if dir != want {
		t.Errorf("dir = %q, want %q", dir, want)
	}
}

func TestResolveDirMissingSegment(t *testing.T) {
	root := setupTree(t)

	if _, ok := ResolveDir(root, "Ditre Italia", "No Such Product", "sofa"); ok {
		t.Error("ResolveDir matched a missing segment")
	}
	if _, ok := ResolveDir(filepath.Join(root, "nonexistent"), "x"); ok {
		t.Error("ResolveDir matched under an unreadable root")
	}
}

func TestListImages(t *testing.T) {
	root := setupTree(t)

	files := ListImages(root, "ditre italia", "ALTA SOFA", "Sofa")
	if len(files) != 3 {
		t.Fatalf("got %d files, want 3: %v", len(files), files)
	}
	// Name order; readme.md filtered out, extension case ignored.
	base := filepath.Join(root, "Ditre Italia", "Alta Sofa", "sofa")
	want := []string{
		filepath.Join(base, "a.PNG"),
		filepath.Join(base, "b.jpg"),
		filepath.Join(base, "c.webp"),
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestListImagesAbsent(t *testing.T) {
	root := setupTree(t)
	if files := ListImages(root, "Ditre Italia", "Alta Sofa", "armchair"); files != nil {
		t.Errorf("got %v, want nil", files)
	}
}
