package scan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestFilesSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.py":               "x",
		"node_modules/pkg/lib.js":  "x",
		"vendor/dep/dep.go":        "x",
		".git/HEAD":                "x",
		"__pycache__/app.cpython":  "x",
		"src/routes.js":            "x",
	})

	files, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	for _, f := range files {
		if f.IsDir {
			t.Fatalf("Files returned a directory: %+v", f)
		}
	}
}

func TestFilesSortedOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"z.py": "x", "a.py": "x", "m/inner.py": "x",
	})
	files, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	if !sort.StringsAreSorted(paths) {
		t.Fatalf("not sorted: %v", paths)
	}
}

func TestWalkMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.py":          "x",
		"one/deep.py":     "x",
		"one/two/deeper.py": "x",
	})
	files, err := Files(root, Options{MaxDepth: 1})
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "top.py" {
		t.Fatalf("expected only top-level file, got %+v", files)
	}
}

func TestWalkExtLowercased(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"App.PY": "x"})
	files, err := Files(root, Options{})
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 || files[0].Ext != ".py" {
		t.Fatalf("expected lowercased .py ext, got %+v", files)
	}
}
