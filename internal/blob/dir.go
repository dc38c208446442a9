package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Root is an Opener backed by a local directory; each bucket is a
// subdirectory of Dir.
type Root struct {
	Dir string
}

// Bucket returns the directory store for name.
func (r Root) Bucket(name string) Store {
	return &DirStore{dir: filepath.Join(r.Dir, name), bucket: name}
}

// DirStore keeps objects as files below a directory. Object keys use '/'
// separators regardless of platform.
type DirStore struct {
	dir    string
	bucket string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir, bucket: filepath.Base(dir)}
}

func (s *DirStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *DirStore) Read(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.URI(key), ErrNotExist)
	}
	return b, err
}

func (s *DirStore) Write(_ context.Context, key string, data []byte, opts ...WriteOption) error {
	o := ApplyWriteOptions(opts)
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	if o.IfAbsent {
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *DirStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, ObjectInfo{Key: key, Size: info.Size(), Updated: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *DirStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	b, err := s.Read(ctx, srcKey)
	if err != nil {
		return err
	}
	return s.Write(ctx, dstKey, b)
}

func (s *DirStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", s.URI(key), ErrNotExist)
	}
	return err
}

func (s *DirStore) URI(key string) string {
	return "file://" + filepath.ToSlash(s.path(key))
}
