package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckWritableDir reports whether the current process can create files in
// dir. A directory that does not exist yet is checked through its nearest
// existing ancestor, since backends create it on first write.
func CheckWritableDir(dir string) error {
	for current := dir; ; {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", current)
			}
			if err := unix.Access(current, unix.W_OK|unix.X_OK); err != nil {
				return fmt.Errorf("%s is not writable: %w", current, err)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", current, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return fmt.Errorf("no existing ancestor for %s", dir)
		}
		current = parent
	}
}
