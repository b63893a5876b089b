// Package ir provides the token-level intermediate representation for memelang.
//
// This package contains the operator table, token and operand types, the
// statement/clause/program views over a token stream, the reserved identifier
// table and the shared error type. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - Operator codes fit in 7 bits and are never renumbered (packed format, cpr column)
//   - Operand is a sealed interface; nil means absent
//   - A canonical statement is Entity Relation [Relation2] Target Qualifier [Or]
//   - Every failure surfaces as *ir.Error with a Code
package ir
