//go:build !windows

package exportfile

import (
	stderrors "errors"
	"fmt"
	"os"
	"syscall"

	"github.com/google/renameio/v2"

	"github.com/hpungsan/vodnote/internal/errors"
)

// writeAtomic replaces path with data: temp file, fsync, rename.
func writeAtomic(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0600))
	if err != nil {
		return fmt.Errorf("create pending export file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}

// openNoFollow opens path for reading with O_NOFOLLOW so a symlink planted
// after Resolve is refused.
func openNoFollow(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
