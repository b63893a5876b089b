package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/memelang/internal/codec"
	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/syntax"
)

// PackResult is the output of the pack command.
type PackResult struct {
	Query    string `json:"query"`
	Packed   string `json:"packed"`
	Bits     int    `json:"bits"`
	Encoding string `json:"encoding"`
}

func (r PackResult) String() string { return r.Packed }

// NewPackCommand creates the pack command.
func NewPackCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack <memelang>...",
		Short: "Pack memelang into one integer",
		Long: `Resolve memelang text and pack its canonical tokens into one integer,
printed in decimal. Every symbol must already be stored.

Example:
  meme pack 'E1[R]E2=5'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(rootOpts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runPack(opts *RootOptions, text string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	s, err := openSession(opts, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	packed, err := s.engine.Pack(commandContext(cmd), text)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(PackResult{
		Query:    text,
		Packed:   packed.String(),
		Bits:     packed.BitLen(),
		Encoding: ir.EncodingVersion,
	})
}

// UnpackOptions holds flags for the unpack command.
type UnpackOptions struct {
	*RootOptions
	IDs bool
}

// UnpackResult is the output of the unpack command.
type UnpackResult struct {
	Packed string `json:"packed"`
	Result string `json:"result"`
}

func (r UnpackResult) String() string { return r.Result }

// NewUnpackCommand creates the unpack command.
func NewUnpackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UnpackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "unpack <integer>",
		Short: "Decode an integer written by pack",
		Long: `Decode a packed integer, in decimal or 0x hex, back to memelang source.

Examples:
  meme unpack 1067993517960455041198415478781948867179932375894086352212700454671814601551911045906580776962880
  meme unpack --ids 0x8000000000000000...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpack(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.IDs, "ids", false, "print integer ids instead of symbols")

	return cmd
}

func runUnpack(opts *UnpackOptions, arg string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	v, err := codec.Parse(arg)
	if err != nil {
		return out.Fail(err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer s.Close()

	tokens, err := codec.Unpack(v)
	if err != nil {
		return out.Fail(err)
	}
	result, err := s.render(commandContext(cmd), tokens, opts.IDs)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(UnpackResult{Packed: v.String(), Result: result})
}

// TokenView is one canonical token.
type TokenView struct {
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
}

// TokensResult is the output of the tokens command.
type TokensResult struct {
	Query     string      `json:"query"`
	Canonical string      `json:"canonical"`
	Tokens    []TokenView `json:"tokens"`
}

func (r TokensResult) String() string {
	var b strings.Builder
	b.WriteString(r.Canonical)
	for i, tok := range r.Tokens {
		fmt.Fprintf(&b, "\n%3d  %-10s %s", i, tok.Op, tok.Value)
	}
	return b.String()
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <memelang>...",
		Short: "Show the canonical tokens of memelang text",
		Long: `Lex and normalize memelang text and print its canonical form followed by
one line per token. Nothing is resolved, so no database is needed.

Example:
  meme tokens 'a[b'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(rootOpts, strings.Join(args, " "), cmd)
		},
	}

	return cmd
}

func runTokens(opts *RootOptions, text string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)
	prog, err := syntax.Parse(text)
	if err != nil {
		return out.Fail(err)
	}

	tokens := prog.Tokens()
	result := TokensResult{
		Query:     text,
		Canonical: syntax.Encode(tokens),
		Tokens:    make([]TokenView, len(tokens)),
	}
	for i, tok := range tokens {
		result.Tokens[i] = tokenView(tok)
	}
	return out.Success(result)
}

func tokenView(tok ir.Token) TokenView {
	view := TokenView{Op: tok.Op.String()}
	if tok.Val == nil {
		return view
	}
	view.Value = tok.Val.String()
	if id, ok := tok.Val.(ir.Int); ok && tok.Op == ir.OpIs {
		if word, ok := ir.Keyword(int64(id)); ok {
			view.Value = word
		}
	}
	return view
}
