// Package blob abstracts the bucket-scoped object storage the pipeline reads
// from and writes to, so components can run against Cloud Storage in
// production and a local directory in the CLI and tests.
package blob

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotExist is returned when the requested object is missing.
	ErrNotExist = errors.New("blob: object does not exist")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key     string
	Size    int64
	Updated time.Time
}

// Store is a single bucket.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, opts ...WriteOption) error
	// List returns the objects whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	// URI renders key as an addressable location, e.g. gs://bucket/key.
	URI(key string) string
}

// Opener hands out stores by bucket name.
type Opener interface {
	Bucket(name string) Store
}

// WriteOptions collects the settings applied by WriteOption values.
type WriteOptions struct {
	ContentType string
	// IfAbsent skips the write, without error, when the object already exists.
	IfAbsent bool
}

// WriteOption configures a Write call.
type WriteOption func(*WriteOptions)

// WithContentType sets the stored content type.
func WithContentType(ct string) WriteOption {
	return func(o *WriteOptions) { o.ContentType = ct }
}

// IfAbsent makes the write idempotent: an existing object is left in place.
func IfAbsent() WriteOption {
	return func(o *WriteOptions) { o.IfAbsent = true }
}

// ApplyWriteOptions folds opts into a WriteOptions value.
func ApplyWriteOptions(opts []WriteOption) WriteOptions {
	var o WriteOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
