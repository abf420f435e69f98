package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	m "covmap.dev/pkg/covmap/internal/model"
)

func TestLocalSourceFSAdapter_Get(t *testing.T) {
	ctx := context.Background()

	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeTestFile(t, filepath.Join(root, "main_test.go"), "package main\n")
	writeTestFile(t, filepath.Join(root, "notes.txt"), "text\n")
	writeTestFile(t, filepath.Join(root, "README.md"), "```go\npackage main\n```\n")
	writeTestFile(t, filepath.Join(root, "CHANGELOG.md"), "no code here\n")

	nestedDir := filepath.Join(root, "nested")
	mustMkdir(t, nestedDir)
	child := filepath.Join(nestedDir, "child.go")
	writeTestFile(t, child, "package nested\n")

	vendorDir := filepath.Join(root, "vendor")
	mustMkdir(t, vendorDir)
	writeTestFile(t, filepath.Join(vendorDir, "dep.go"), "package dep\n")

	hiddenDir := filepath.Join(root, ".cache")
	mustMkdir(t, hiddenDir)
	writeTestFile(t, filepath.Join(hiddenDir, "gen.go"), "package gen\n")

	t.Run("non recursive skips nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		sources, err := adapter.Get(ctx, []m.Path{m.Path(root)})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		paths := sourcePaths(sources)
		if containsPath(paths, child) {
			t.Fatalf("Get() unexpectedly returned %s for a non recursive pattern", child)
		}

		if !containsPath(paths, filepath.Join(root, "main.go")) {
			t.Fatalf("Get() did not return top-level file")
		}
	})

	t.Run("recursive pattern visits nested files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		sources, err := adapter.Get(ctx, []m.Path{m.Path(root + "/...")})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		paths := sourcePaths(sources)
		want := []string{filepath.Join(root, "README.md"), filepath.Join(root, "main.go"), child}

		if len(paths) != len(want) {
			t.Fatalf("Get() = %v, want %v", paths, want)
		}

		for _, w := range want {
			if !containsPath(paths, w) {
				t.Fatalf("Get() = %v, missing %s", paths, w)
			}
		}
	})

	t.Run("markdown with go blocks is a snippet source", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		sources, err := adapter.Get(ctx, []m.Path{m.Path(filepath.Join(root, "README.md"))})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		if len(sources) != 1 || !sources[0].Snippet {
			t.Fatalf("Get() = %+v, want one snippet source", sources)
		}
	})

	t.Run("exclude patterns drop matching files", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		sources, err := adapter.Get(ctx, []m.Path{m.Path(root + "/...")}, `nested/`, `\.md$`)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		paths := sourcePaths(sources)
		if len(paths) != 1 || paths[0] != filepath.Join(root, "main.go") {
			t.Fatalf("Get() = %v, want only main.go", paths)
		}
	})

	t.Run("duplicate patterns are merged", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		sources, err := adapter.Get(ctx, []m.Path{m.Path(root), m.Path(filepath.Join(root, "main.go"))})
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}

		if len(sources) != 2 {
			t.Fatalf("Get() returned %d sources, want 2", len(sources))
		}
	})

	t.Run("invalid exclude pattern", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		if _, err := adapter.Get(ctx, []m.Path{m.Path(root)}, "("); err == nil {
			t.Fatalf("Get() expected error for invalid regex")
		}
	})

	t.Run("missing paths are reported together", func(t *testing.T) {
		adapter := NewLocalSourceFSAdapter()

		sources, err := adapter.Get(ctx, []m.Path{
			m.Path(filepath.Join(root, "missing1")),
			m.Path(root),
			m.Path(filepath.Join(root, "missing2")),
		})
		if err == nil {
			t.Fatalf("Get() expected error for missing paths")
		}

		if len(sources) != 2 {
			t.Fatalf("Get() returned %d sources, want the 2 found in the valid path", len(sources))
		}
	})
}

func TestLocalSourceFSAdapter_ReadFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	content := "package main\n" + "func main() {}\n"
	writeTestFile(t, path, content)

	got, err := adapter.ReadFile(context.Background(), m.Path(path))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(got) != content {
		t.Fatalf("ReadFile() = %q, want %q", string(got), content)
	}
}

func TestLocalSourceFSAdapter_HashFile(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	content := []byte("package main\nfunc main() {}\n")
	writeTestBytes(t, path, content)

	expected := fmt.Sprintf("%x", sha256.Sum256(content))

	hash, err := adapter.HashFile(context.Background(), m.Path(path))
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	if hash != expected {
		t.Fatalf("HashFile() = %s, want %s", hash, expected)
	}
}

func TestLocalSourceFSAdapter_ContextCancellation(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.ReadFile(ctx, "main.go"); err == nil {
		t.Fatalf("ReadFile() expected error due to context cancellation")
	}

	if _, err := adapter.Get(ctx, []m.Path{"."}); err == nil {
		t.Fatalf("Get() expected error due to context cancellation")
	}
}

func sourcePaths(sources []m.Source) []string {
	paths := make([]string, 0, len(sources))
	for _, source := range sources {
		paths = append(paths, string(source.Origin.FullPath))
	}

	return paths
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	writeTestBytes(t, path, []byte(contents))
}

func writeTestBytes(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create dir %s: %v", path, err)
	}
}

func containsPath(paths []string, target string) bool {
	for _, p := range paths {
		if p == target {
			return true
		}
	}

	return false
}
