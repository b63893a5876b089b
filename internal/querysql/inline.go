package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Inline substitutes params into the ? placeholders of sql for display.
// The result is for logs and the CLI only; execute the parameterized form.
// Placeholders inside quoted SQL literals are left alone.
func Inline(sql string, params []any) string {
	var b strings.Builder
	quoted := false
	next := 0
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			quoted = !quoted
		case ch == '?' && !quoted && next < len(params):
			b.WriteString(literal(params[next]))
			next++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(val)
	}
}
