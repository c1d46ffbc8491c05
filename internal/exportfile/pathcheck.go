package exportfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/vodnote/internal/errors"
)

// Ext is the required extension for export files.
const Ext = ".md"

// Resolve turns name into a path directly inside dir and validates it.
// name may be a bare file name or a path that already points into dir.
// For reads the file must exist.
//
// Only files directly in dir are accepted, so no intermediate directory can
// be swapped for a symlink between the check and the open.
func Resolve(dir, name string, mustExist bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.NewInvalidRequest("file name is required")
	}
	if containsTraversal(name) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	path := name
	if !filepath.IsAbs(path) && filepath.Base(path) == path {
		path = filepath.Join(dir, path)
	}
	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != Ext {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must have %s extension", Ext))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid exports dir: %v", err))
	}
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}

	parent := filepath.Dir(absPath)
	if resolved, err := filepath.EvalSymlinks(parent); err == nil && resolved == absDir {
		parent = resolved
		absPath = filepath.Join(resolved, filepath.Base(absPath))
	}
	if parent != absDir {
		return "", errors.NewInvalidRequest(fmt.Sprintf("file must be directly in %s", absDir))
	}

	info, err := os.Lstat(absPath)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return "", errors.NewInvalidRequest("path must not be a symlink")
	case err != nil && os.IsNotExist(err) && mustExist:
		return "", errors.NewNotFound(name)
	}

	return absPath, nil
}

// DefaultName builds "<video>-<timestamp>.md" for an export taken at ts.
func DefaultName(videoID, ts string) string {
	name := SanitizeForFilename(videoID)
	if videoID == "" {
		name = "notes"
	}
	return name + "-" + ts + Ext
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SanitizeForFilename makes s safe to use as a single file name component.
func SanitizeForFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if s == "" {
		s = "unnamed"
	}
	return s
}
