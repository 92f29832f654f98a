package fileio

import (
	"os"
	"path"

	"github.com/pkg/errors"
)

// Reader reads files out of a run's working directory.
type Reader struct {
	// rootDir is the root directory for the reader, useful for testing
	rootDir string
}

// NewReader creates a new reader
func NewReader() *Reader {
	return &Reader{}
}

// SetRootdir sets the root directory for the reader, useful for testing
func (r *Reader) SetRootdir(path string) {
	r.rootDir = path
}

// PathFor returns the full path for the provided file
func (r *Reader) PathFor(filePath string) string {
	return path.Join(r.rootDir, filePath)
}

// ReadFile reads the file at the provided path
func (r *Reader) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(r.PathFor(filePath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read run file")
	}
	return data, nil
}

// CheckPathExists checks whether the path exists
func (r *Reader) CheckPathExists(filePath string) error {
	_, err := os.Stat(r.PathFor(filePath))
	return err
}
