package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/recipeapp/apiserver/internal/storage"
)

// MemoryObjects is an in-memory storage.ObjectStorage.
type MemoryObjects struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
}

func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (o *MemoryObjects) EnsureBucket(ctx context.Context) error { return nil }

func (o *MemoryObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[key] = data
	o.contentTypes[key] = contentType
	return nil
}

func (o *MemoryObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (o *MemoryObjects) Delete(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(o.objects, key)
	delete(o.contentTypes, key)
	return nil
}

func (o *MemoryObjects) Bucket() string { return "memory" }

// Keys returns the stored keys in sorted order.
func (o *MemoryObjects) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects))
	for key := range o.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ContentType returns the content type recorded for key.
func (o *MemoryObjects) ContentType(key string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.contentTypes[key]
}
