// Package adapter contains the infrastructure adapters of the covmap CLI.
package adapter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	m "covmap.dev/pkg/covmap/internal/model"
)

const recursiveSuffix = "/..."

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"vendor":       true,
	"testdata":     true,
	"node_modules": true,
}

// SourceFSAdapter abstracts filesystem-specific operations that the domain
// layer relies on when scanning user projects.
type SourceFSAdapter interface {
	// Get expands Go-style path patterns (./..., ./pkg/..., a file or a
	// directory) into sources. Files whose path matches one of the exclude
	// regexes are dropped. Failing patterns do not stop the others; their
	// errors are combined.
	Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Source, error)

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// HashFile returns the SHA-256 fingerprint of the file at path.
	HashFile(ctx context.Context, path m.Path) (string, error)
}

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Get implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) Get(ctx context.Context, paths []m.Path, exclude ...string) ([]m.Source, error) {
	excludes, err := compileExcludes(exclude)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		paths = []m.Path{"." + recursiveSuffix}
	}

	var (
		sources []m.Source
		errs    error
	)

	for _, pattern := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := a.expand(ctx, pattern, excludes)
		if err != nil {
			slog.Error("Failed to expand path pattern", "pattern", pattern, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("path %s: %w", pattern, err))

			continue
		}

		sources = append(sources, found...)
	}

	sources = lo.UniqBy(sources, func(s m.Source) m.Path { return s.Origin.FullPath })
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Origin.FullPath < sources[j].Origin.FullPath
	})

	return sources, errs
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	excludes := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		excludes = append(excludes, re)
	}

	return excludes, nil
}

func (a *LocalSourceFSAdapter) expand(ctx context.Context, pattern m.Path, excludes []*regexp.Regexp) ([]m.Source, error) {
	root := filepath.ToSlash(string(pattern))
	recursive := strings.HasSuffix(root, recursiveSuffix) || root == "..."

	if recursive {
		root = strings.TrimSuffix(strings.TrimSuffix(root, "..."), "/")
		if root == "" {
			root = "."
		}
	}

	root = filepath.FromSlash(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		source, ok, err := a.sourceFor(ctx, root, excludes)
		if err != nil || !ok {
			return nil, err
		}

		return []m.Source{source}, nil
	}

	var sources []m.Source

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && (!recursive || skipDir(d.Name())) {
				return filepath.SkipDir
			}

			return nil
		}

		source, ok, err := a.sourceFor(ctx, path, excludes)
		if err != nil {
			return err
		}

		if ok {
			sources = append(sources, source)
		}

		return nil
	})

	return sources, err
}

func skipDir(name string) bool {
	return skippedDirs[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// sourceFor builds the source for a planned file. It reports false for files
// that are not planned: tests, non-Go files, excluded paths and Markdown
// without Go code blocks.
func (a *LocalSourceFSAdapter) sourceFor(ctx context.Context, path string, excludes []*regexp.Regexp) (m.Source, bool, error) {
	slashed := filepath.ToSlash(path)

	for _, re := range excludes {
		if re.MatchString(slashed) {
			slog.Debug("Excluding file", "path", path, "pattern", re.String())
			return m.Source{}, false, nil
		}
	}

	snippet := false

	switch {
	case strings.HasSuffix(path, "_test.go"):
		return m.Source{}, false, nil
	case strings.HasSuffix(path, ".go"):
	case strings.HasSuffix(path, ".md"):
		content, err := a.ReadFile(ctx, m.Path(path))
		if err != nil {
			return m.Source{}, false, err
		}

		if !bytes.Contains(content, []byte(goFenceMarker)) {
			return m.Source{}, false, nil
		}

		snippet = true
	default:
		return m.Source{}, false, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return m.Source{}, false, err
	}

	hash, err := a.HashFile(ctx, m.Path(abs))
	if err != nil {
		return m.Source{}, false, err
	}

	return m.Source{
		Origin: &m.File{
			FullPath:  m.Path(abs),
			ShortPath: m.Path(filepath.Clean(path)),
			Hash:      hash,
		},
		Snippet: snippet,
	}, true, nil
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return os.ReadFile(string(path))
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(ctx context.Context, path m.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
