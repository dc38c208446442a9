package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvList reads a comma separated environment variable, dropping blanks.
// A set but empty variable yields an empty list, not the fallback.
func GetEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	out := []string{}
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not a failure in an idempotent workflow.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// GCSStorage opens bucket-scoped blob stores on a shared storage client.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage wraps an existing storage client.
func NewGCSStorage(client *storage.Client) *GCSStorage {
	return &GCSStorage{client: client}
}

// Bucket implements blob.Opener.
func (g *GCSStorage) Bucket(name string) blob.Store {
	return &GCSStore{bucket: g.client.Bucket(name), name: name}
}

// GCSStore is a blob.Store over a single Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
}

func (s *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", s.URI(key), blob.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", s.URI(key), err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.URI(key), err)
	}
	return b, nil
}

func (s *GCSStore) Write(ctx context.Context, key string, data []byte, opts ...blob.WriteOption) error {
	o := blob.ApplyWriteOptions(opts)
	if o.IfAbsent {
		return SaveToGCSAtomically(ctx, s.bucket, key, data, o.ContentType)
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = o.ContentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", s.URI(key), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", s.URI(key), err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]blob.ObjectInfo, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var out []blob.ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", s.name, prefix, err)
		}
		out = append(out, blob.ObjectInfo{Key: attrs.Name, Size: attrs.Size, Updated: attrs.Updated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *GCSStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	src := s.bucket.Object(srcKey)
	if _, err := s.bucket.Object(dstKey).CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%s: %w", s.URI(srcKey), blob.ErrNotExist)
		}
		return fmt.Errorf("failed to copy %s to %s: %w", s.URI(srcKey), s.URI(dstKey), err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("%s: %w", s.URI(key), blob.ErrNotExist)
		}
		return fmt.Errorf("failed to delete %s: %w", s.URI(key), err)
	}
	return nil
}

func (s *GCSStore) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.name, key)
}
