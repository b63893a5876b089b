package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/memelang/internal/ir"
)

// expandFiles resolves file arguments. Patterns are matched with doublestar,
// so data/**/*.meme walks subdirectories; "-" is passed through for stdin.
// A pattern that matches nothing is an error.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if pattern == "-" {
			files = append(files, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// locate prefixes err with path and, for errors carrying a byte offset, the
// line and column in src.
func locate(path, src string, err error) error {
	var irErr *ir.Error
	if !errors.As(err, &irErr) || irErr.Pos < 0 || irErr.Pos > len(src) {
		return fmt.Errorf("%s: %w", path, err)
	}
	line, col := position(src, irErr.Pos)
	return fmt.Errorf("%s:%d:%d: %w", path, line, col, err)
}

// position converts a byte offset to a 1-based line and column.
func position(src string, offset int) (line, col int) {
	before := src[:offset]
	line = strings.Count(before, "\n") + 1
	col = offset - strings.LastIndexByte(before, '\n')
	return line, col
}
