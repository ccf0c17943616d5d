package storage

import "context"

// Storage is the byte-level persistence interface the session store is
// built on. Paths are relative to the store's base directory.
type Storage interface {
	Save(ctx context.Context, path string, data []byte) error
	Load(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, pattern string) ([]string, error)
}
