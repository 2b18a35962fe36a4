// Package memory provides an in-process docstore.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"vapi/internal/docstore"
)

type collection struct {
	docs  map[string]docstore.Document
	order []string
}

func newCollection() *collection {
	return &collection{docs: make(map[string]docstore.Document)}
}

// Store keeps collections in memory. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) EnsureCollection(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return false, nil
	}
	s.collections[name] = newCollection()
	return true, nil
}

func (s *Store) DropCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, name)
	return nil
}

func (s *Store) RenameCollection(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[from]
	if !ok {
		return fmt.Errorf("%s: %w", from, docstore.ErrNamespaceNotFound)
	}
	if _, exists := s.collections[to]; exists {
		return fmt.Errorf("%s: %w", to, docstore.ErrNamespaceExists)
	}
	s.collections[to] = c
	delete(s.collections, from)
	return nil
}

func (s *Store) MergeCollection(ctx context.Context, from, to string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.collections[from]
	if !ok {
		return 0, fmt.Errorf("%s: %w", from, docstore.ErrNamespaceNotFound)
	}
	dst, ok := s.collections[to]
	if !ok {
		dst = newCollection()
		s.collections[to] = dst
	}

	for _, id := range src.order {
		if _, exists := dst.docs[id]; exists {
			continue
		}
		dst.docs[id] = src.docs[id]
		dst.order = append(dst.order, id)
	}
	delete(s.collections, from)
	return len(src.order), nil
}

func (s *Store) Find(ctx context.Context, name string, filter map[string]any) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []docstore.Document{}
	c, ok := s.collections[name]
	if !ok {
		return out, nil
	}
	for _, id := range c.order {
		doc := c.docs[id]
		if matches(doc, filter) {
			out = append(out, cloneDocument(doc))
		}
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, name, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, nil
	}
	return cloneDocument(doc), nil
}

func (s *Store) Insert(ctx context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = newCollection()
		s.collections[name] = c
	}

	id := uuid.NewString()
	stored := cloneDocument(docstore.WithoutID(doc))
	stored[docstore.IDField] = id
	c.docs[id] = stored
	c.order = append(c.order, id)
	return cloneDocument(stored), nil
}

func (s *Store) Replace(ctx context.Context, name, id string, doc docstore.Document) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil, nil
	}
	stored := cloneDocument(docstore.WithoutID(doc))
	stored[docstore.IDField] = id
	c.docs[id] = stored
	return cloneDocument(stored), nil
}

func (s *Store) Delete(ctx context.Context, name, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return false, nil
	}
	if _, ok := c.docs[id]; !ok {
		return false, nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *Store) Close(context.Context) error {
	return nil
}
