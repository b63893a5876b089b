package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/querysql"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	IDs bool // print integer ids instead of symbols
}

// QueryResult is the output of the query command.
type QueryResult struct {
	Query  string `json:"query"`
	Result string `json:"result"`
	Count  int    `json:"count"`
}

func (r QueryResult) String() string { return r.Result }

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "query <memelang>...",
		Aliases: []string{"q"},
		Short:   "Run a memelang query",
		Long: `Run a memelang query and print the matching facts.

Arguments are joined with spaces, so each one is a statement of the same
clause. Results are memelang source, one statement per match.

Examples:
  meme query 'george_washington[spouse]'
  meme q '[birth]year>1730' '[spouse]=f'
  meme query --ids 'E1[R]E2=5'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.IDs, "ids", false, "print integer ids instead of symbols")

	return cmd
}

func runQuery(opts *QueryOptions, text string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	ctx := commandContext(cmd)
	tokens, err := s.engine.Query(ctx, text)
	if err != nil {
		return out.Fail(err)
	}
	prog, err := ir.Split(tokens)
	if err != nil {
		return out.Fail(err)
	}
	result, err := s.render(ctx, tokens, opts.IDs)
	if err != nil {
		return out.Fail(err)
	}

	return out.Success(QueryResult{
		Query:  text,
		Result: result,
		Count:  len(prog.Statements()),
	})
}

// CountResult is the output of the count command.
type CountResult struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func (r CountResult) String() string { return strconv.Itoa(r.Count) }

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <memelang>...",
		Short: "Count the facts a query matches",
		Long: `Run a memelang query and print how many statements it returns.

Example:
  meme count '[birth]year>1730'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runCount(opts *RootOptions, text string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	s, err := openSession(opts, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	n, err := s.engine.Count(commandContext(cmd), text)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(CountResult{Query: text, Count: n})
}

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Inline bool // substitute parameters into the SQL text
}

// SQLResult is the output of the sql command.
type SQLResult struct {
	Query  string `json:"query"`
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

func (r SQLResult) String() string {
	if len(r.Params) == 0 {
		return r.SQL
	}
	params := make([]string, len(r.Params))
	for i, p := range r.Params {
		params[i] = fmt.Sprint(p)
	}
	return r.SQL + "\n-- params: " + strings.Join(params, ", ")
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <memelang>...",
		Short: "Print the SQL a query compiles to",
		Long: `Compile a memelang query and print the SQL without running it.

Symbols are resolved against the database, so unknown symbols are still
reported. With --inline the parameters are written into the SQL text.

Examples:
  meme sql 'E1[R]E2=5'
  meme sql --inline '[birth]year>1730 [spouse]=f'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, strings.Join(args, " "), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Inline, "inline", false, "substitute parameters into the SQL")

	return cmd
}

func runSQL(opts *SQLOptions, text string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	sql, params, err := s.engine.Compile(commandContext(cmd), text)
	if err != nil {
		return out.Fail(err)
	}

	result := SQLResult{Query: text, SQL: sql, Params: params}
	if opts.Inline {
		result.SQL = querysql.Inline(sql, params)
		result.Params = nil
	}
	return out.Success(result)
}
