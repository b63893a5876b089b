package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/memelang/internal/compiler"
	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/syntax"
)

// Compile translates query text into parameterized SQL.
//
// The text is lexed, normalized and resolved against the store; a symbol
// with no id is an UNKNOWN_SYMBOL error naming every such symbol.
func (e *Engine) Compile(ctx context.Context, text string) (string, []any, error) {
	return e.compile(ctx, e.run("compile"), text)
}

func (e *Engine) compile(ctx context.Context, log *slog.Logger, text string) (sql string, params []any, err error) {
	defer func() { e.metrics.compiled(err) }()

	prog, err := e.resolve(ctx, text)
	if err != nil {
		log.Debug("resolve failed", "error", err)
		return "", nil, err
	}
	plan, err := compiler.Compile(prog)
	if err != nil {
		log.Debug("plan failed", "error", err)
		return "", nil, err
	}
	sql, params, err = e.sql.Compile(plan)
	if err != nil {
		return "", nil, err
	}
	log.Debug("compiled", "statements", len(prog.Statements()), "ctes", len(plan.CTEs), "params", len(params))
	return sql, params, nil
}

// resolve parses text and replaces every symbol with its id.
func (e *Engine) resolve(ctx context.Context, text string) (ir.Program, error) {
	prog, err := syntax.Parse(text)
	if err != nil {
		return nil, err
	}
	tokens, err := e.cache.Resolve(ctx, prog.Tokens())
	if err != nil {
		return nil, err
	}
	return ir.Split(tokens)
}

// Query runs query text and returns the matching facts as canonical tokens
// with integer ids. No match returns an empty slice.
func (e *Engine) Query(ctx context.Context, text string) ([]ir.Token, error) {
	log := e.run("query")
	prog, err := e.query(ctx, log, text)
	if err != nil {
		return nil, err
	}
	return prog.Tokens(), nil
}

func (e *Engine) query(ctx context.Context, log *slog.Logger, text string) (ir.Program, error) {
	sql, params, err := e.compile(ctx, log, text)
	if err != nil {
		return nil, err
	}
	raw, err := e.store.QueryText(ctx, sql, params)
	if err != nil {
		log.Error("query failed", "error", err)
		return nil, err
	}
	if raw == "" {
		log.Debug("query returned", "rows", 0)
		return nil, nil
	}
	prog, err := syntax.Parse(raw)
	if err != nil {
		log.Error("result does not parse", "error", err)
		return nil, err
	}
	rows := len(prog.Statements())
	e.metrics.returned(rows)
	log.Debug("query returned", "rows", rows)
	return prog, nil
}

// QueryText runs query text and returns the matches as memelang source,
// statements joined by ';'. With symbols set, ids are rendered as the symbols
// bound to them.
func (e *Engine) QueryText(ctx context.Context, text string, symbols bool) (string, error) {
	tokens, err := e.Query(ctx, text)
	if err != nil || len(tokens) == 0 {
		return "", err
	}
	if symbols {
		if tokens, err = e.cache.ToSymbols(ctx, tokens); err != nil {
			return "", err
		}
	}
	return syntax.Encode(tokens), nil
}

// Count runs query text and returns the number of matching statements.
func (e *Engine) Count(ctx context.Context, text string) (int, error) {
	prog, err := e.query(ctx, e.run("count"), text)
	if err != nil {
		return 0, err
	}
	return len(prog.Statements()), nil
}
