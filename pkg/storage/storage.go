// Package stores archives raw dream audio after validation. Archival is
// best-effort: a failed write is logged but never fails the pipeline.
package storage

import "io"

// Store is the object-storage abstraction.
type Store interface {
	Read(key string) (io.ReadCloser, int64, error)
	Write(key string, r io.Reader) error
	Delete(key string) error
	Exists(key string) (bool, error)
}
