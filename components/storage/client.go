package storage

import "context"

// Client is the document store the storage processor works against.
type Client interface {
	List(ctx context.Context, collection string, filter string, batchSize int) (Cursor, error)
	Get(ctx context.Context, collection string, key string) (map[string]any, error)
	Exists(ctx context.Context, collection string, key string) (bool, error)
	Set(ctx context.Context, collection string, key string, value map[string]any) (*Write, error)
	Merge(ctx context.Context, collection string, key string, value map[string]any) (*Write, error)
	Add(ctx context.Context, collection string, key string, value map[string]any) (*Write, error)
	Delete(ctx context.Context, collection string, key string) (bool, error)
	Close(ctx context.Context) error
}

// Write describes the outcome of a write. Changed is false when the stored document already had
// the requested content and nothing was sent.
type Write struct {
	Document  map[string]any
	Changed   bool
	Changelog []map[string]any
}

type Cursor interface {
	HasNext() bool
	Read(ctx context.Context) (map[string]any, error)
	Count() (int64, bool)
	Close(ctx context.Context) error
}
