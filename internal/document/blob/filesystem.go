package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"virasat/pkg/sentinel"
)

const metaSuffix = ".meta.json"

// FilesystemStore keeps objects under a root directory, one subdirectory per
// owner. Metadata rides in a sidecar JSON file next to each object.
type FilesystemStore struct {
	root string
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(root string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (s *FilesystemStore) Put(_ context.Context, path string, data []byte, meta Metadata) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create owner prefix: %w", err)
	}
	if _, err := os.Stat(full); err == nil {
		return sentinel.ErrConflict
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal object metadata: %w", err)
	}
	if err := os.WriteFile(full, data, 0o640); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err := os.WriteFile(full+metaSuffix, metaBytes, 0o640); err != nil {
		// Keep object and sidecar consistent: roll back the data file.
		_ = os.Remove(full)
		return fmt.Errorf("write object metadata: %w", err)
	}
	return nil
}

func (s *FilesystemStore) Get(_ context.Context, path string) ([]byte, Metadata, error) {
	if err := ValidatePath(path); err != nil {
		return nil, Metadata{}, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Metadata{}, sentinel.ErrNotFound
		}
		return nil, Metadata{}, fmt.Errorf("read object: %w", err)
	}
	meta, err := s.readMeta(full)
	if err != nil {
		return nil, Metadata{}, err
	}
	return data, meta, nil
}

func (s *FilesystemStore) List(_ context.Context, prefix string) ([]Object, error) {
	if err := ValidatePath(strings.TrimSuffix(prefix, "/")); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// No uploads yet: an empty prefix is a valid, empty list.
			return nil, nil
		}
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var out []Object
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), metaSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat object: %w", err)
		}
		full := filepath.Join(dir, entry.Name())
		meta, err := s.readMeta(full)
		if err != nil {
			return nil, err
		}
		out = append(out, Object{
			Path:     strings.TrimSuffix(prefix, "/") + "/" + entry.Name(),
			Size:     info.Size(),
			Metadata: meta,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.CreatedAt.Equal(out[j].Metadata.CreatedAt) {
			return out[i].Metadata.CreatedAt.After(out[j].Metadata.CreatedAt)
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func (s *FilesystemStore) Delete(_ context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	_ = os.Remove(full + metaSuffix)
	return nil
}

func (s *FilesystemStore) readMeta(full string) (Metadata, error) {
	raw, err := os.ReadFile(full + metaSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Object predates sidecar metadata; callers fall back to
			// filename inference.
			return Metadata{OriginalName: filepath.Base(full)}, nil
		}
		return Metadata{}, fmt.Errorf("read object metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal object metadata: %w", err)
	}
	return meta, nil
}
