package banner

import (
	"fmt"
	"os"
	"path/filepath"

	"ChannelBanner/internal/ports"
)

// FileWriter stores the rendered banner on local disk.
type FileWriter struct{}

var _ ports.ArtifactWriter = FileWriter{}

// WriteArtifact replaces path atomically through a temp file in the same directory.
func (FileWriter) WriteArtifact(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
