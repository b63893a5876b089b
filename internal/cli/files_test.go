package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/memelang/internal/ir"
)

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.meme", "a.meme", "sub/c.meme", "sub/deep/d.meme", "x.txt"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	join := func(name string) string { return filepath.Join(dir, filepath.FromSlash(name)) }

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"single file", []string{join("a.meme")}, []string{join("a.meme")}},
		{"sorted glob", []string{join("*.meme")}, []string{join("a.meme"), join("b.meme")}},
		{"recursive", []string{join("**/*.meme")}, []string{
			join("a.meme"), join("b.meme"), join("sub/c.meme"), join("sub/deep/d.meme"),
		}},
		{"duplicates dropped", []string{join("a.meme"), join("*.meme")}, []string{join("a.meme"), join("b.meme")}},
		{"stdin", []string{"-"}, []string{"-"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandFiles(tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := expandFiles([]string{join("*.nothing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files match")
}

func TestLocate(t *testing.T) {
	src := "a[r]b=5\nc[d]e!\n"

	err := locate("f.meme", src, ir.NewLexError(ir.ErrCodeIncompleteOperator, 13, "!", "operator needs a continuation"))
	assert.Equal(t, `f.meme:2:6: INCOMPLETE_OPERATOR: operator needs a continuation "!" (at 13)`, err.Error())
	assert.True(t, ir.HasCode(err, ir.ErrCodeIncompleteOperator))

	err = locate("f.meme", src, ir.NewStructuralError(3, "bad"))
	assert.Equal(t, "f.meme: STRUCTURAL: bad (token 3)", err.Error())
}

func TestPosition(t *testing.T) {
	tests := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{4, 1, 5},
		{8, 2, 1},
		{13, 2, 6},
	}

	for _, tt := range tests {
		line, col := position("a[r]b=5\nc[d]e!\n", tt.offset)
		assert.Equal(t, tt.line, line, "offset %d", tt.offset)
		assert.Equal(t, tt.col, col, "offset %d", tt.offset)
	}
}
