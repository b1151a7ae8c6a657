package storage

import (
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps audio files under a directory on disk, the default for
// single-node deployments and tests.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory-backed store.
func NewLocalStore(dir string) Store {
	return &LocalStore{dir: dir}
}

func (l *LocalStore) path(key string) string {
	// Keys come from the handler (uuid + extension); Base guards against
	// traversal anyway.
	return filepath.Join(l.dir, filepath.Base(key))
}

func (l *LocalStore) Read(key string) (io.ReadCloser, int64, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (l *LocalStore) Write(key string, r io.Reader) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(l.path(key))
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func (l *LocalStore) Delete(key string) error {
	return os.Remove(l.path(key))
}

func (l *LocalStore) Exists(key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
