package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go-bakery/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It backs tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, models.StoreUnavailable("get", collection, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s/%s", models.ErrNotFound, collection, id)
	}
	return Record{ID: id, Data: copyDoc(doc)}, nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.StoreUnavailable("query", q.Collection, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for id, doc := range s.collections[q.Collection] {
		if matchesAll(doc, q.Filters) {
			out = append(out, Record{ID: id, Data: copyDoc(doc)})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := models.Lookup(out[i].Data, q.OrderBy)
			b, _ := models.Lookup(out[j].Data, q.OrderBy)
			c, ok := compare(a, b)
			if !ok {
				return false
			}
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return models.StoreUnavailable("set", collection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(collection, id, data)
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return models.StoreUnavailable("create", collection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; ok {
		return fmt.Errorf("%w: %s/%s", models.ErrAlreadyExists, collection, id)
	}
	s.put(collection, id, data)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return models.StoreUnavailable("update", collection, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", models.ErrNotFound, collection, id)
	}
	for path, v := range fields {
		setPath(doc, path, copyValue(v))
	}
	return nil
}

// BatchWrite validates every operation before applying any, under one lock.
func (s *MemoryStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	if err := ctx.Err(); err != nil {
		return models.StoreUnavailable("batch", "", err)
	}
	if err := validateOps(ops); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		switch op.Type {
		case WriteSet:
			s.put(op.Collection, op.ID, op.Data)
		case WriteDelete:
			delete(s.collections[op.Collection], op.ID)
		}
	}
	return nil
}

func (s *MemoryStore) put(collection, id string, data map[string]any) {
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[collection] = coll
	}
	coll[id] = copyDoc(data)
}

func matchesAll(doc map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func setPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	}
	return v
}
