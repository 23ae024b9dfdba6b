package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WithTempFile writes data to a fresh file in dir, calls fn with its path and
// removes the file afterwards whatever fn returns. The file keeps ext so
// loaders that sniff the format by extension still work.
func WithTempFile(dir, ext string, data []byte, fn func(path string) error) (err error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	ext = strings.ToLower(filepath.Ext("x" + ext))
	file, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := file.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = fmt.Errorf("failed to remove temp file: %w", rmErr)
		}
	}()

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return fn(path)
}
