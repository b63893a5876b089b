package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/memelang/internal/engine"
	"github.com/roach88/memelang/internal/ir"
)

// FileResult reports one imported file.
type FileResult struct {
	Path       string `json:"path"`
	Statements int    `json:"statements"`
}

// PutResult is the output of the put command.
type PutResult struct {
	Files      []FileResult `json:"files"`
	Statements int          `json:"statements"`
}

func (r PutResult) String() string {
	return fmt.Sprintf("Imported %d statements from %d files", r.Statements, len(r.Files))
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "put <file|glob|->...",
		Aliases: []string{"import"},
		Short:   "Store memelang facts from files",
		Long: `Store the facts, names and symbol declarations of .meme files.

Arguments are files or doublestar patterns; "-" reads standard input. Each
file is stored in one transaction and unknown symbols are given new ids.
The first failing file stops the import.

Examples:
  meme put data/washington.meme
  meme import 'data/**/*.meme'
  echo 'a[r]b=5' | meme put -`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runPut(opts *RootOptions, patterns []string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	files, err := expandFiles(patterns)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to expand files", err))
	}

	s, err := openSession(opts, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	ctx := commandContext(cmd)
	if err := s.engine.Install(ctx); err != nil {
		return out.Fail(err)
	}

	result := PutResult{Files: make([]FileResult, 0, len(files))}
	for _, path := range files {
		src, err := readSource(path, cmd.InOrStdin())
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read file", err))
		}
		n, err := importSource(ctx, s.engine, path, src)
		if err != nil {
			return out.Fail(err)
		}
		out.VerboseLog("%s: %d statements", path, n)
		result.Files = append(result.Files, FileResult{Path: path, Statements: n})
		result.Statements += n
	}

	return out.Success(result)
}

// readSource reads a file, or stdin for "-".
func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// importSource puts src and returns the number of statements stored.
func importSource(ctx context.Context, eng *engine.Engine, path, src string) (int, error) {
	tokens, err := eng.Put(ctx, src)
	if err != nil {
		return 0, locate(path, src, err)
	}
	prog, err := ir.Split(tokens)
	if err != nil {
		return 0, err
	}
	return len(prog.Statements()), nil
}

// InstallResult is the output of the install command.
type InstallResult struct {
	Database string `json:"database"`
	Names    int    `json:"reserved_names"`
	Facts    int64  `json:"facts"`
	Labels   int64  `json:"labels"`
}

func (r InstallResult) String() string {
	return fmt.Sprintf("Installed %d reserved names in %s (%d facts, %d labels)",
		r.Names, r.Database, r.Facts, r.Labels)
}

// NewInstallCommand creates the install command.
func NewInstallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Create the database and reserved names",
		Long: `Create the configured database, its tables and the reserved name rows.

Installing is idempotent; running it on an existing database only reports
its row counts.

Example:
  meme install --db ./meme.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(rootOpts, cmd)
		},
	}

	return cmd
}

func runInstall(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	s, err := openSession(opts, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	ctx := commandContext(cmd)
	if err := s.engine.Install(ctx); err != nil {
		return out.Fail(err)
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return out.Fail(err)
	}

	return out.Success(InstallResult{
		Database: s.cfg.Database,
		Names:    len(ir.Reserved),
		Facts:    stats.Facts,
		Labels:   stats.Labels,
	})
}
