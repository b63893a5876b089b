// Package compiler groups the statements of a resolved memelang program and
// builds the queryir.Plan that evaluates it.
//
// Within one clause, statements are partitioned in source order:
//
//	qry[...]      meta: qry[all] selects every fact of the matching anchors
//	a[r]b=f       NOT group: anchors excluded from the first positive CTE
//	a[r]b=g       get: projected, restricted to the last positive CTE
//	a[r]b=5|n     OR group n: branches UNIONed in one CTE
//	a[r]b=5       AND group: statements with the same condition share a CTE
//
// Positive groups become CTEs z1, z2, ... numbered across the whole program.
// Every CTE after the first in a clause narrows its branches to the anchors of
// the previous one, so the last CTE holds the anchors that satisfy the whole
// clause.
package compiler
