package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/memelang/internal/config"
	"github.com/roach88/memelang/internal/engine"
	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/store"
	"github.com/roach88/memelang/internal/syntax"
)

// session is the configured store and engine one command works against.
type session struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// loadConfig reads --config, or meme.cue in the working directory when it
// exists, then applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := opts.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if opts.DB != "" {
		cfg.Database = opts.DB
	}
	return cfg, nil
}

// newLogger writes text logs to w at the configured level, or debug with
// --verbose.
func newLogger(opts *RootOptions, cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.LogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openSession loads the config and opens its database.
func openSession(opts *RootOptions, cmd *cobra.Command, engineOpts ...engine.Option) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Database,
		store.WithTables(cfg.StoreTables()),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", cfg.Database)

	engineOpts = append([]engine.Option{engine.WithLogger(logger)}, engineOpts...)
	return &session{
		cfg:    cfg,
		store:  st,
		engine: engine.New(st, engineOpts...),
		logger: logger,
	}, nil
}

// Close closes the database, logging any error.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// render encodes tokens per the output config. ids keeps integer ids even
// when the config asks for symbols.
func (s *session) render(ctx context.Context, tokens []ir.Token, ids bool) (string, error) {
	if s.cfg.Output.Symbols && !ids {
		var err error
		if tokens, err = s.engine.Cache().ToSymbols(ctx, tokens); err != nil {
			return "", err
		}
	}
	return encode(s.cfg, tokens), nil
}

func encode(cfg *config.Config, tokens []ir.Token) string {
	var opts []syntax.EncodeOption
	if cfg.Output.Newline {
		opts = append(opts, syntax.WithNewlines())
	}
	return syntax.Encode(tokens, opts...)
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
