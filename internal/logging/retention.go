package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names a set of files subject to age-based pruning.
type RetentionTarget struct {
	// Kind labels the files in log output, e.g. "log" or "catalog_backup".
	Kind    string
	Dir     string
	Pattern string
	// Exclude lists paths that are never removed, such as the active log file.
	Exclude []string
}

// CleanupOldLogs removes files older than retentionDays from each target and
// returns how many were removed. A retentionDays value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, target := range targets {
		removed += pruneTarget(logger, target, cutoff)
	}
	if removed > 0 && logger != nil {
		logger.Info("retention pruning finished",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "retention_pruned"),
		)
	}
	return removed
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) int {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return 0
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	kind := target.Kind
	if kind == "" {
		kind = "log"
	}
	skip := absSet(target.Exclude)

	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, ok := skip[path]; ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "retention remove failed; file remains", "retention_failed",
				String("path", path),
				String("kind", kind),
				Error(err),
				String(FieldErrorHint, "check file permissions and ownership of "+dir),
				String(FieldImpact, "old file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("file pruned",
				String("path", path),
				String("kind", kind),
				String(FieldEventType, "file_pruned"),
			)
		}
	}
	return removed
}

func absSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = struct{}{}
		}
	}
	return set
}
