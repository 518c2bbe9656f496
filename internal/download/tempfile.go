package download

import (
	"errors"
	"io/fs"
	"os"
	"sync"
)

// TempFile is the single owner of a fetched file and its scratch directory.
// Release removes both and is safe to call more than once. Detach moves
// ownership to a new handle, leaving the old one inert.
type TempFile struct {
	mu       sync.Mutex
	path     string
	dir      string
	released bool
}

// NewTempFile takes ownership of path. dir, when set, is removed with it.
func NewTempFile(path, dir string) *TempFile {
	return &TempFile{path: path, dir: dir}
}

// Path returns the file path, or "" for a nil handle
func (f *TempFile) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Detach transfers ownership to the returned handle
func (f *TempFile) Detach() *TempFile {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.released = true
	return &TempFile{path: f.path, dir: f.dir}
}

// Release removes the file and its directory. A file that is already gone is not an error.
func (f *TempFile) Release() error {
	if f == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.released {
		return nil
	}
	f.released = true

	var errs []error
	if f.path != "" {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if f.dir != "" {
		if err := os.RemoveAll(f.dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
