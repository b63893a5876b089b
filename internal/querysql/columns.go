package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/memelang/internal/ir"
	"github.com/roach88/memelang/internal/queryir"
)

// columns maps logical hop fields onto the aliases of one select.
type columns struct {
	sel queryir.Select
}

func (c columns) alias(hop int) string {
	if c.sel.Table == queryir.TableName {
		return "n0"
	}
	return fmt.Sprintf("m%d", hop)
}

func (c columns) inverted(hop int) bool {
	return hop >= 0 && hop < len(c.sel.Hops) && c.sel.Hops[hop].Inverted
}

// ref returns the expression that reads a field. An inverted hop reads its
// source from bid, its target from aid and its relation negated.
func (c columns) ref(r queryir.Ref) string {
	a := c.alias(r.Hop)
	inv := c.inverted(r.Hop)
	switch r.Field {
	case queryir.FieldA:
		if inv {
			return a + ".bid"
		}
		return a + ".aid"
	case queryir.FieldB:
		if inv {
			return a + ".aid"
		}
		return a + ".bid"
	case queryir.FieldR:
		if c.sel.Table == queryir.TableName {
			return fmt.Sprint(ir.NamID)
		}
		if inv {
			return "(-" + a + ".rid)"
		}
		return a + ".rid"
	case queryir.FieldQnt:
		return a + ".qnt"
	default:
		return a + ".str"
	}
}

// filterRef is ref for comparisons with stored ids: relation ids are stored
// unsigned whatever the hop's direction.
func (c columns) filterRef(r queryir.Ref) string {
	if r.Field == queryir.FieldR {
		return c.alias(r.Hop) + ".rid"
	}
	return c.ref(r)
}

// row renders the selected fact as memelang source, for example
// 1000000[1000001[1000003]1000002=5 or 1000000[90]99="George".
func (c columns) row() string {
	if c.sel.Table == queryir.TableName {
		return fmt.Sprintf(`%s || '[%d]' || %s || '="' || replace(replace(n0.str, '\', '\\'), '"', '\"') || '"'`,
			c.ref(queryir.Anchor), ir.NamID, c.ref(queryir.Ref{Hop: 0, Field: queryir.FieldB}))
	}

	last := c.sel.Last()
	parts := []string{c.ref(queryir.Anchor)}
	for i := range c.sel.Hops {
		parts = append(parts, "'['", c.ref(queryir.Ref{Hop: i, Field: queryir.FieldR}))
	}
	parts = append(parts, "']'", c.ref(queryir.Ref{Hop: last, Field: queryir.FieldB}), c.value(last))
	return strings.Join(parts, " || ")
}

// value renders the qualifier of a stored fact: =t or =f for flags, =<qnt>
// otherwise.
func (c columns) value(hop int) string {
	a := c.alias(hop)
	return fmt.Sprintf("CASE %[1]s.cpr WHEN %[2]d THEN CASE WHEN %[1]s.qnt <> 0 THEN '=t' ELSE '=f' END ELSE '=' || %[1]s.qnt END",
		a, uint8(ir.OpIs))
}
