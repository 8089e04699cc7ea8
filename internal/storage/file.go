package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"tunecrawl/internal/catalog"
	"tunecrawl/internal/fileutil"
	"tunecrawl/internal/logging"
)

// File stores the catalog as a pretty-printed JSON document.
type File struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFile returns a backend writing to path. The file and its parent
// directory are created on the first Save.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &File{path: path, logger: logger}
}

// Path returns the catalog file location.
func (f *File) Path() string { return f.path }

// Load reads the catalog file. A missing file reports found=false. An
// unreadable document is copied aside with a .corrupt suffix and also
// reports found=false so the process starts from an empty catalog.
func (f *File) Load(context.Context) (catalog.Catalog, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return catalog.Catalog{}, false, nil
	}
	if err != nil {
		return catalog.Catalog{}, false, fmt.Errorf("read %s: %w", f.path, err)
	}

	var cat catalog.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		backup := f.path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
		copyErr := fileutil.CopyFile(f.path, backup)
		logging.WarnWithContext(f.logger, "catalog file unreadable; starting empty", "catalog_file_corrupt",
			logging.String("path", f.path),
			logging.String("backup", backup),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the backup copy and restore it manually if needed"),
			logging.String(logging.FieldImpact, "previous catalog contents are not loaded"),
		)
		if copyErr != nil {
			return catalog.Catalog{}, false, fmt.Errorf("back up unreadable catalog: %w", copyErr)
		}
		return catalog.Catalog{}, false, nil
	}
	return cat, true, nil
}

// Save replaces the catalog file atomically.
func (f *File) Save(_ context.Context, cat catalog.Catalog) error {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := fileutil.WriteFileAtomic(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Ping verifies the catalog directory is writable.
func (f *File) Ping(context.Context) error {
	return CheckWritableDir(filepath.Dir(f.path))
}

func (f *File) Close() error { return nil }

func (f *File) Describe() string { return "file:" + f.path }
