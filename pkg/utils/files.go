package utils

import (
	"fmt"
	"os"
	"time"
)

// MakeDir creates a directory with all parent directories.
func MakeDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ScopedTempDir creates a temporary working directory under parent and
// returns it together with a cleanup func. The cleanup is safe to call on
// every exit path; removal failures are ignored.
func ScopedTempDir(parent, pattern string) (string, func(), error) {
	if parent != "" {
		if err := MakeDir(parent); err != nil {
			return "", nil, fmt.Errorf("creating temp parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// FormatTimestamp renders an offset as MM:SS, or HH:MM:SS past the hour.
func FormatTimestamp(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
