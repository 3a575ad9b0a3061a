// Package fsutil writes rendered nftables configuration documents to disk.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// configPerm lets the nft loader and operators read staged documents while
// keeping writes to the owner.
const configPerm = 0644

// WriteConfig writes a rendered configuration document to path through a
// temp file and rename, so a loader never observes a partial document. The
// temp file lives next to the target to keep the rename on one filesystem.
func WriteConfig(path, document string) error {
	dir, name := filepath.Split(path)
	if name == "" {
		return fmt.Errorf("fsutil: write config %s: path is a directory", path)
	}
	if dir == "" {
		dir = "."
	}
	tmpPath := filepath.Join(dir, ".tmp-"+name)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, configPerm)
	if err != nil {
		return fmt.Errorf("fsutil: write config %s: %w", path, err)
	}
	defer os.Remove(tmpPath) // clean up on error

	if _, err := f.WriteString(document); err != nil {
		f.Close()
		return fmt.Errorf("fsutil: write config %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsutil: write config %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("fsutil: write config %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("fsutil: write config %s: %w", path, err)
	}
	return nil
}
