package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/memelang/internal/ir"
)

// MemoryNameStore is an in-memory symbol table for resolver tests.
//
// It records how many times each lookup method was called so tests can assert
// batching. Err, when set, is returned by every method.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemoryNameStore struct {
	mu    sync.Mutex
	ids   map[string]int64
	syms  map[int64]string
	calls map[string]int

	Err error
}

// NewMemoryNameStore creates a store holding the given bindings.
func NewMemoryNameStore(names ...ir.Name) *MemoryNameStore {
	s := &MemoryNameStore{
		ids:   make(map[string]int64),
		syms:  make(map[int64]string),
		calls: make(map[string]int),
	}
	for _, n := range names {
		s.ids[n.Symbol] = n.ID
		s.syms[n.ID] = n.Symbol
	}
	return s
}

// LookupBySymbol returns the bindings for known symbols, in request order.
func (s *MemoryNameStore) LookupBySymbol(_ context.Context, symbols []string) ([]ir.Name, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["LookupBySymbol"]++
	if s.Err != nil {
		return nil, s.Err
	}
	var out []ir.Name
	for _, sym := range symbols {
		if id, ok := s.ids[sym]; ok {
			out = append(out, ir.Name{ID: id, Symbol: sym})
		}
	}
	return out, nil
}

// LookupByID returns the bindings for known ids, in request order.
func (s *MemoryNameStore) LookupByID(_ context.Context, ids []int64) ([]ir.Name, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["LookupByID"]++
	if s.Err != nil {
		return nil, s.Err
	}
	var out []ir.Name
	for _, id := range ids {
		if sym, ok := s.syms[id]; ok {
			out = append(out, ir.Name{ID: id, Symbol: sym})
		}
	}
	return out, nil
}

// WriteNames stores bindings. Existing bindings are kept: a binding whose
// symbol or id is already taken is skipped.
func (s *MemoryNameStore) WriteNames(_ context.Context, names []ir.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["WriteNames"]++
	if s.Err != nil {
		return s.Err
	}
	for _, n := range names {
		_, symTaken := s.ids[n.Symbol]
		_, idTaken := s.syms[n.ID]
		if symTaken || idTaken {
			continue
		}
		s.ids[n.Symbol] = n.ID
		s.syms[n.ID] = n.Symbol
	}
	return nil
}

// MaxID returns the largest stored id.
func (s *MemoryNameStore) MaxID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["MaxID"]++
	if s.Err != nil {
		return 0, s.Err
	}
	var maxID int64
	for id := range s.syms {
		maxID = max(maxID, id)
	}
	return maxID, nil
}

// Calls returns how many times method was invoked.
func (s *MemoryNameStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Names returns every stored binding ordered by id.
func (s *MemoryNameStore) Names() []ir.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.Name, 0, len(s.syms))
	for id, sym := range s.syms {
		out = append(out, ir.Name{ID: id, Symbol: sym})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
