package fileio

import (
	"os"
	"path"

	"github.com/pkg/errors"
)

// Writer writes submission artifacts into a run's working directory.
type Writer struct {
	// rootDir is the root directory for the writer, useful for testing
	rootDir string
}

// NewWriter creates a new writer
func NewWriter() *Writer {
	return &Writer{}
}

// SetRootdir sets the root directory for the writer, useful for testing
func (w *Writer) SetRootdir(path string) {
	w.rootDir = path
}

// PathFor returns the full path for the provided file
func (w *Writer) PathFor(filePath string) string {
	return path.Join(w.rootDir, filePath)
}

// WriteFile writes the file at the provided path
func (w *Writer) WriteFile(filePath string, data []byte) error {
	return errors.Wrap(os.WriteFile(w.PathFor(filePath), data, 0644), "failed to write run file")
}

// WriteExecutable writes the file at the provided path with the executable bit set
func (w *Writer) WriteExecutable(filePath string, data []byte) error {
	return errors.Wrap(os.WriteFile(w.PathFor(filePath), data, 0755), "failed to write run script")
}
