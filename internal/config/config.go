// Package config loads memelang settings from CUE.
//
// A configuration file is plain CUE data unified with the embedded #Config
// schema, which supplies defaults and constraints:
//
//	database: "facts.db"
//	tables: meme: "facts"
//	log: level: "debug"
//
// Fields the schema does not declare are errors.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/memelang/internal/store"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "meme.cue"

//go:embed schema.cue
var schemaCUE string

// Config is a decoded, fully concrete configuration.
type Config struct {
	Database string `json:"database"`
	Tables   Tables `json:"tables"`
	Output   Output `json:"output"`
	Log      Log    `json:"log"`
}

// Tables names the meme and name tables.
type Tables struct {
	Meme string `json:"meme"`
	Name string `json:"name"`
}

// Output controls how results are rendered.
type Output struct {
	Newline bool `json:"newline"`
	Symbols bool `json:"symbols"`
}

// Log controls the CLI log handler.
type Log struct {
	Level string `json:"level"`
}

// StoreTables returns the table names as store.Tables.
func (c *Config) StoreTables() store.Tables {
	return store.Tables{Meme: c.Tables.Meme, Name: c.Tables.Name}
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse validates CUE source against the schema and decodes it. filename is
// used in error positions.
func Parse(filename string, src []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := def.Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}

	if err := cfg.StoreTables().Validate(); err != nil {
		return nil, &ConfigError{
			Field:   "tables",
			Message: err.Error(),
			Pos:     v.LookupPath(cue.ParsePath("tables")).Pos(),
		}
	}
	return &cfg, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
