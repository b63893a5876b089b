package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/syntax"
)

// FileCheck reports one checked file.
type FileCheck struct {
	Path       string    `json:"path"`
	Statements int       `json:"statements"`
	Error      *CLIError `json:"error,omitempty"`
}

// CheckResult is the output of the check command.
type CheckResult struct {
	Files  []FileCheck `json:"files"`
	Failed int         `json:"failed"`
}

func (r CheckResult) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Error != nil {
			fmt.Fprintf(&b, "✗ %s\n", f.Error.Message)
			continue
		}
		fmt.Fprintf(&b, "✓ %s (%d statements)\n", f.Path, f.Statements)
	}
	fmt.Fprintf(&b, "%d files, %d failed", len(r.Files), r.Failed)
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file|glob>...",
		Short: "Check .meme files for syntax errors",
		Long: `Lex and normalize .meme files without touching a database.

Every file is checked; errors are reported as path:line:col.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid
  2 - Command error (no matching files, unreadable file)

Example:
  meme check 'data/**/*.meme'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, patterns []string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	files, err := expandFiles(patterns)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to expand files", err))
	}

	result := CheckResult{Files: make([]FileCheck, 0, len(files))}
	for _, path := range files {
		src, err := readSource(path, cmd.InOrStdin())
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read file", err))
		}
		result.Files = append(result.Files, checkSource(path, src))
		if result.Files[len(result.Files)-1].Error != nil {
			result.Failed++
		}
	}

	if err := out.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d file(s) invalid", result.Failed),
			Reported: true,
		}
	}
	return nil
}

func checkSource(path, src string) FileCheck {
	check := FileCheck{Path: path}
	prog, err := syntax.Parse(src)
	if err != nil {
		check.Error = &CLIError{
			Code:    string(ir.CodeOf(err)),
			Message: locate(path, src, err).Error(),
		}
		return check
	}
	check.Statements = len(prog.Statements())
	return check
}
