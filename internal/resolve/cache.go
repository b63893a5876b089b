// Package resolve maps memelang symbols to integer identifiers and back.
//
// A Cache is an explicit, append-only, bidirectional map seeded with the
// reserved identifiers and backed by a NameStore. Misses are looked up in one
// batched call per operation. Once a binding is cached it never changes:
// concurrent writers race, and the first one wins.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/memelang/internal/ir"
)

// NameStore is the durable symbol table behind a Cache.
type NameStore interface {
	// LookupBySymbol returns the bindings for the symbols that exist.
	LookupBySymbol(ctx context.Context, symbols []string) ([]ir.Name, error)

	// LookupByID returns the bindings for the ids that exist.
	LookupByID(ctx context.Context, ids []int64) ([]ir.Name, error)

	// WriteNames persists new bindings. Writing an existing binding again
	// is a no-op.
	WriteNames(ctx context.Context, names []ir.Name) error

	// MaxID returns the largest bound id, or 0.
	MaxID(ctx context.Context) (int64, error)
}

// Observer receives lookup statistics.
type Observer interface {
	ObserveLookup(hits, misses int)
}

// Cache is safe for concurrent use.
type Cache struct {
	store    NameStore
	observer Observer

	mu   sync.RWMutex
	ids  map[string]int64
	syms map[int64]string

	// alloc serializes id allocation in Intern.
	alloc sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver reports hit and miss counts for every lookup batch.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// NewCache creates a cache over store. A nil store resolves only the
// reserved identifiers and whatever is later defined.
func NewCache(store NameStore, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ids:   make(map[string]int64),
		syms:  make(map[int64]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.add(ir.Reserved)
	return c
}

// Lookup returns the cached id of a symbol.
func (c *Cache) Lookup(symbol string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[symbol]
	return id, ok
}

// Symbol returns the cached symbol of an id.
func (c *Cache) Symbol(id int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sym, ok := c.syms[id]
	return sym, ok
}

// Len returns the number of cached bindings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// add records bindings. Existing bindings are never replaced, and a name
// whose symbol or id is already bound is skipped whole so the two maps stay
// inverse to each other.
func (c *Cache) add(names []ir.Name) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range names {
		_, symBound := c.ids[n.Symbol]
		_, idBound := c.syms[n.ID]
		if symBound || idBound {
			continue
		}
		c.ids[n.Symbol] = n.ID
		c.syms[n.ID] = n.Symbol
	}
}

// splitSign strips the inverse marker from a symbol.
func splitSign(sym string) (string, int64) {
	if len(sym) > 1 && sym[0] == '-' {
		return sym[1:], -1
	}
	return sym, 1
}

// identifier reports whether tok holds an operand the cache translates.
func identifier(tok ir.Token) bool {
	return tok.Op.Kind() == ir.KindIdentifier && tok.Op != ir.OpIs
}

// ToIDs returns a copy of tokens with every known symbol replaced by its id.
// Unknown symbols stay as ir.Str; use Unresolved to turn them into an error.
func (c *Cache) ToIDs(ctx context.Context, tokens []ir.Token) ([]ir.Token, error) {
	var missing []string
	seen := make(map[string]bool)
	hits := 0
	for _, tok := range tokens {
		s, ok := tok.Val.(ir.Str)
		if !ok || !identifier(tok) {
			continue
		}
		sym, _ := splitSign(string(s))
		if seen[sym] {
			continue
		}
		seen[sym] = true
		if _, ok := c.Lookup(sym); ok {
			hits++
		} else {
			missing = append(missing, sym)
		}
	}

	if len(missing) > 0 && c.store != nil {
		names, err := c.store.LookupBySymbol(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("lookup symbols: %w", err)
		}
		c.add(names)
	}
	if c.observer != nil && len(seen) > 0 {
		c.observer.ObserveLookup(hits, len(missing))
	}

	out := make([]ir.Token, len(tokens))
	for i, tok := range tokens {
		out[i] = tok
		s, ok := tok.Val.(ir.Str)
		if !ok || !identifier(tok) {
			continue
		}
		sym, sign := splitSign(string(s))
		if id, ok := c.Lookup(sym); ok {
			out[i].Val = ir.Int(sign * id)
		}
	}
	return out, nil
}

// Unresolved returns an UNKNOWN_SYMBOL error naming every symbol left in
// tokens, or nil.
func Unresolved(tokens []ir.Token) error {
	var (
		symbols []string
		first   = -1
		seen    = make(map[string]bool)
	)
	for i, tok := range tokens {
		s, ok := tok.Val.(ir.Str)
		if !ok || !identifier(tok) {
			continue
		}
		if first < 0 {
			first = i
		}
		if !seen[string(s)] {
			seen[string(s)] = true
			symbols = append(symbols, string(s))
		}
	}
	if len(symbols) == 0 {
		return nil
	}
	return &ir.Error{
		Code:    ir.ErrCodeUnknownSymbol,
		Message: "unknown symbols: " + strings.Join(symbols, ", "),
		Pos:     -1,
		Index:   first,
		Symbols: symbols,
	}
}

// Resolve is ToIDs followed by Unresolved.
func (c *Cache) Resolve(ctx context.Context, tokens []ir.Token) ([]ir.Token, error) {
	out, err := c.ToIDs(ctx, tokens)
	if err != nil {
		return nil, err
	}
	if err := Unresolved(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToSymbols returns a copy of tokens with every known id replaced by its
// symbol. Negative ids render as "-symbol". Unknown ids stay numeric.
func (c *Cache) ToSymbols(ctx context.Context, tokens []ir.Token) ([]ir.Token, error) {
	var missing []int64
	seen := make(map[int64]bool)
	hits := 0
	for _, tok := range tokens {
		v, ok := tok.Val.(ir.Int)
		if !ok || !identifier(tok) {
			continue
		}
		id := abs(int64(v))
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := c.Symbol(id); ok {
			hits++
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 && c.store != nil {
		names, err := c.store.LookupByID(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("lookup ids: %w", err)
		}
		c.add(names)
	}
	if c.observer != nil && len(seen) > 0 {
		c.observer.ObserveLookup(hits, len(missing))
	}

	out := make([]ir.Token, len(tokens))
	for i, tok := range tokens {
		out[i] = tok
		v, ok := tok.Val.(ir.Int)
		if !ok || !identifier(tok) {
			continue
		}
		sym, ok := c.Symbol(abs(int64(v)))
		if !ok {
			continue
		}
		if v < 0 {
			sym = "-" + sym
		}
		out[i].Val = ir.Str(sym)
	}
	return out, nil
}

// Define binds symbols to explicit ids and writes them through to the store.
// Rebinding a symbol to a different id is a DUPLICATE_SYMBOL error.
func (c *Cache) Define(ctx context.Context, names ...ir.Name) error {
	c.alloc.Lock()
	defer c.alloc.Unlock()
	return c.define(ctx, names)
}

func (c *Cache) define(ctx context.Context, names []ir.Name) error {
	var (
		unknownSyms []string
		unknownIDs  []int64
	)
	for _, n := range names {
		if _, ok := c.Lookup(n.Symbol); !ok {
			unknownSyms = append(unknownSyms, n.Symbol)
		}
		if _, ok := c.Symbol(n.ID); !ok {
			unknownIDs = append(unknownIDs, n.ID)
		}
	}
	if c.store != nil {
		if len(unknownSyms) > 0 {
			found, err := c.store.LookupBySymbol(ctx, unknownSyms)
			if err != nil {
				return fmt.Errorf("lookup symbols: %w", err)
			}
			c.add(found)
		}
		if len(unknownIDs) > 0 {
			found, err := c.store.LookupByID(ctx, unknownIDs)
			if err != nil {
				return fmt.Errorf("lookup ids: %w", err)
			}
			c.add(found)
		}
	}

	var fresh []ir.Name
	for _, n := range names {
		if n.ID <= 0 || n.Symbol == "" {
			return ir.NewError(ir.ErrCodeDuplicateSymbol, "invalid binding %q=%d", n.Symbol, n.ID)
		}
		if id, ok := c.Lookup(n.Symbol); ok {
			if id != n.ID {
				return &ir.Error{
					Code:    ir.ErrCodeDuplicateSymbol,
					Message: fmt.Sprintf("symbol %q is bound to %d, not %d", n.Symbol, id, n.ID),
					Pos:     -1,
					Index:   -1,
					Symbols: []string{n.Symbol},
				}
			}
			continue
		}
		if sym, ok := c.Symbol(n.ID); ok && sym != n.Symbol {
			return &ir.Error{
				Code:    ir.ErrCodeDuplicateSymbol,
				Message: fmt.Sprintf("id %d is bound to %q, not %q", n.ID, sym, n.Symbol),
				Pos:     -1,
				Index:   -1,
				Symbols: []string{n.Symbol},
			}
		}
		fresh = append(fresh, n)
	}
	if len(fresh) == 0 {
		return nil
	}

	if c.store != nil {
		if err := c.store.WriteNames(ctx, fresh); err != nil {
			return fmt.Errorf("write names: %w", err)
		}
	}
	c.add(fresh)
	return nil
}

// Intern resolves tokens like ToIDs, then assigns new ids to the symbols that
// are still unknown, writes them through and returns the resolved tokens with
// the bindings it created. New ids are allocated above both the store's
// largest id and ir.FirstUserID, in order of first appearance.
func (c *Cache) Intern(ctx context.Context, tokens []ir.Token) ([]ir.Token, []ir.Name, error) {
	c.alloc.Lock()
	defer c.alloc.Unlock()

	out, err := c.ToIDs(ctx, tokens)
	if err != nil {
		return nil, nil, err
	}

	var pending []string
	seen := make(map[string]bool)
	for _, tok := range out {
		s, ok := tok.Val.(ir.Str)
		if !ok || !identifier(tok) {
			continue
		}
		sym, _ := splitSign(string(s))
		if !seen[sym] {
			seen[sym] = true
			pending = append(pending, sym)
		}
	}
	if len(pending) == 0 {
		return out, nil, nil
	}

	next, err := c.nextID(ctx)
	if err != nil {
		return nil, nil, err
	}
	created := make([]ir.Name, len(pending))
	for i, sym := range pending {
		created[i] = ir.Name{ID: next + int64(i), Symbol: sym}
	}
	if err := c.define(ctx, created); err != nil {
		return nil, nil, err
	}

	out, err = c.ToIDs(ctx, out)
	if err != nil {
		return nil, nil, err
	}
	return out, created, nil
}

// Variable allocates a fresh id and binds it to the symbol VAR<id>. Join
// statements use it as the shared node between their two facts.
func (c *Cache) Variable(ctx context.Context) (ir.Name, error) {
	c.alloc.Lock()
	defer c.alloc.Unlock()

	next, err := c.nextID(ctx)
	if err != nil {
		return ir.Name{}, err
	}
	name := ir.Name{ID: next, Symbol: fmt.Sprintf("VAR%d", next)}
	if err := c.define(ctx, []ir.Name{name}); err != nil {
		return ir.Name{}, err
	}
	return name, nil
}

func (c *Cache) nextID(ctx context.Context) (int64, error) {
	maxID := int64(ir.FirstUserID)
	if c.store != nil {
		stored, err := c.store.MaxID(ctx)
		if err != nil {
			return 0, fmt.Errorf("max id: %w", err)
		}
		maxID = max(maxID, stored)
	}
	c.mu.RLock()
	for id := range c.syms {
		maxID = max(maxID, id)
	}
	c.mu.RUnlock()
	return maxID + 1, nil
}

// Names returns every cached binding ordered by id.
func (c *Cache) Names() []ir.Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ir.Name, 0, len(c.syms))
	for id, sym := range c.syms {
		out = append(out, ir.Name{ID: id, Symbol: sym})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
