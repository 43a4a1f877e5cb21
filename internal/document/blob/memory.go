package blob

import (
	"context"
	"sort"
	"strings"
	"sync"

	"virasat/pkg/sentinel"
)

type memoryObject struct {
	data []byte
	meta Metadata
}

// MemoryStore is an in-memory blob store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemory() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, path string, data []byte, meta Metadata) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[path]; exists {
		return sentinel.ErrConflict
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[path] = memoryObject{data: buf, meta: meta}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path string) ([]byte, Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, Metadata{}, sentinel.ErrNotFound
	}
	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, obj.meta, nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Object
	for path, obj := range s.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, Object{
				Path:     path,
				Size:     int64(len(obj.data)),
				Metadata: obj.meta,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.CreatedAt.Equal(out[j].Metadata.CreatedAt) {
			return out[i].Metadata.CreatedAt.After(out[j].Metadata.CreatedAt)
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.objects, path)
	return nil
}
