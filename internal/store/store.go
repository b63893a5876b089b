package store

import (
	"bytes"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"regexp"
	"text/template"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/memelang/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

var schemaTemplate = template.Must(template.New("schema").Parse(schemaSQL))

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added symbol lookup index on the name table
// 2 - Key rows unique per id and per symbol
const currentSchemaVersion = 2

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tables names the two tables a store reads and writes.
type Tables struct {
	Meme string
	Name string
}

// DefaultTables returns the standard table names.
func DefaultTables() Tables {
	return Tables{Meme: "meme", Name: "name"}
}

// Validate checks that both names are plain SQL identifiers.
func (t Tables) Validate() error {
	for _, name := range []string{t.Meme, t.Name} {
		if !tableNamePattern.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	if t.Meme == t.Name {
		return fmt.Errorf("meme and name tables must differ, both are %q", t.Meme)
	}
	return nil
}

// Store provides durable storage for memelang facts and names.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db     *sql.DB
	tables Tables
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTables overrides the table names.
func WithTables(t Tables) Option {
	return func(s *Store) { s.tables = t }
}

// WithLogger sets the logger for schema and write events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{tables: DefaultTables(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.tables.Validate(); err != nil {
		return nil, err
	}

	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s.db = db
	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
// Should be called when the store is no longer needed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Tables returns the table names in use.
func (s *Store) Tables() Tables {
	return s.tables
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema() error {
	var buf bytes.Buffer
	if err := schemaTemplate.Execute(&buf, s.tables); err != nil {
		return fmt.Errorf("render schema: %w", err)
	}
	if _, err := s.db.Exec(buf.String()); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	s.logger.Debug("schema applied", "meme_table", s.tables.Meme, "name_table", s.tables.Name)

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func (s *Store) runMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := s.migrateToV1(); err != nil {
			return err
		}
		s.logger.Debug("migrated schema", "version", 1)
	}

	if version < 2 {
		if err := s.migrateToV2(); err != nil {
			return err
		}
		s.logger.Debug("migrated schema", "version", 2)
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the (bid, str) index that symbol lookups scan.
func (s *Store) migrateToV1() error {
	_, err := s.db.Exec(fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%[1]s_str ON %[1]s(bid, str)", s.tables.Name))
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 makes every key row unique by id and by symbol, so one id can
// never be bound to two symbols even across processes.
func (s *Store) migrateToV2() error {
	for _, col := range []string{"aid", "str"} {
		_, err := s.db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]s_key_%[2]s ON %[1]s(%[2]s) WHERE bid = %[3]d",
			s.tables.Name, col, ir.KeyID))
		if err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
