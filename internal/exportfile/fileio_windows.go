//go:build windows

package exportfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/vodnote/internal/errors"
)

// writeAtomic writes a temp file next to path and renames it over path.
// Windows rename is not durable the way the unix path is.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	_ = os.Remove(path)
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}

// openNoFollow opens path for reading. Windows has no O_NOFOLLOW; Resolve
// has already rejected symlinks.
func openNoFollow(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
