package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultSkipDirs names directories whose entire subtree is never
// walked.
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	".git":         true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"vendor":       true,
	"venv":         true,
}

// DiscoveredFile is one source file found under a root, with its
// root-relative path retained for skip-pattern matching and its
// absolute path retained for reading.
type DiscoveredFile struct {
	AbsPath string
	RelPath string
}

// Discover walks root, skipping defaultSkipDirs and any directory or
// file matching an extra doublestar glob in skipGlobs, and returns
// every regular file found. Symlinked directories are not followed.
func Discover(ctx context.Context, root string, skipGlobs []string) ([]DiscoveredFile, error) {
	var out []DiscoveredFile

	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && (defaultSkipDirs[info.Name()] || matchesAny(skipGlobs, rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(skipGlobs, rel) {
			return nil
		}

		out = append(out, DiscoveredFile{AbsPath: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func matchesAny(globs []string, relPath string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
