// Package blob stores export artifacts and raw submission archives on local
// disk, keyed by slash-separated object keys.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const metaSuffix = ".meta.json"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type FileStore struct {
	root string
}

// ObjectInfo is the sidecar record kept next to every object.
type ObjectInfo struct {
	Key         string            `json:"key"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Put writes body atomically: temp file, fsync, rename. The sidecar is
// written after the object so a listed object always has its content.
func (s *FileStore) Put(ctx context.Context, key string, body []byte, opts usecase.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	if err := writeAtomic(full, body); err != nil {
		return err
	}

	info := ObjectInfo{
		Key:         key,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
		Size:        int64(len(body)),
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode object info: %w", err)
	}
	return writeAtomic(full+metaSuffix, meta)
}

func writeAtomic(full string, data []byte) error {
	tmp := full + "." + uuid.NewString() + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsync object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename object: %w", err)
	}
	return nil
}

// Open returns the object's content; the caller closes it.
func (s *FileStore) Open(key string) (io.ReadCloser, *ObjectInfo, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, nil, err
	}
	info, err := s.Stat(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, info, nil
}

func (s *FileStore) Stat(key string) (*ObjectInfo, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full + metaSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object info %s: %w", key, err)
	}
	var info ObjectInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode object info %s: %w", key, err)
	}
	return &info, nil
}

// Delete removes the object and its sidecar. A missing object is not an error.
func (s *FileStore) Delete(key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	for _, p := range []string{full + metaSuffix, full} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// List returns every object whose key starts with prefix, sorted by key.
func (s *FileStore) List(prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(p, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.Stat(key)
		if err != nil {
			return err
		}
		out = append(out, *info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// resolve maps a key to a path under root, refusing anything that escapes it.
func (s *FileStore) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "..") || strings.HasSuffix(clean, metaSuffix) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
