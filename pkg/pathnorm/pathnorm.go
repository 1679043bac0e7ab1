// Package pathnorm normalizes file paths for report output. Discovery
// reads files by absolute path, while entities carry root-relative
// paths; result trees are relocatable and use root-relative paths too.
package pathnorm

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to one relative to rootDir.
// Falls back to the original path if conversion fails, the path already
// lies outside rootDir, or the path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go"
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// ToSlash normalizes a relative path to forward slashes so report
// output is stable across platforms.
func ToSlash(p string) string {
	return filepath.ToSlash(p)
}

// Normalize applies ToRelative then ToSlash — the standard treatment
// for any path destined for a report tree.
func Normalize(absPath, rootDir string) string {
	return ToSlash(ToRelative(absPath, rootDir))
}

// Strip removes a leading "./" and any absolute-path prefix from an
// already relative-ish path, without requiring a root directory. Report
// normalization has no root of its own by the time it runs — the tree
// it produces is relocatable — so paths are cleaned in place rather
// than re-anchored against a directory.
func Strip(p string) string {
	p = ToSlash(p)
	if filepath.IsAbs(p) {
		p = strings.TrimPrefix(p, "/")
	}
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}
