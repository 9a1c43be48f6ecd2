// Package memstore is a docpager.Store that keeps documents in memory and
// evaluates filters and orderings itself. It is the reference for what the
// query-language stores must return.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/Alp4ka/docpager"
)

var _ docpager.Store = (*Store)(nil)

type Store struct {
	mu      sync.RWMutex
	idField string
	docs    []docpager.Document
}

// New returns a store whose documents are identified by idField.
func New(idField string, docs ...docpager.Document) *Store {
	s := &Store{idField: idField}
	s.Insert(docs...)

	return s
}

// Insert appends documents. Documents are stored as given and must not be
// modified afterwards.
func (s *Store) Insert(docs ...docpager.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = append(s.docs, docs...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}

func (s *Store) Find(ctx context.Context, q docpager.Query) ([]docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return q.Apply(s.docs), nil
}

func (s *Store) Lookup(ctx context.Context, id any, fields []string) (docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := lo.Find(s.docs, func(doc docpager.Document) bool {
		return docpager.Compare(docpager.Value(doc, s.idField), id) == 0
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s = %v", docpager.ErrNotFound, s.idField, id)
	}

	return docpager.Include(fields...).Apply(doc), nil
}
