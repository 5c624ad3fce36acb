package query

import (
	"fmt"
	"strings"
)

// Lower compiles an Expr into a parameterized SQL WHERE-clause fragment
// (without the leading "WHERE") and its bound argument list, suitable for
// database/sql's `?` placeholders against the modernc.org/sqlite driver.
func Lower(e Expr) (string, []any) {
	switch n := e.(type) {
	case True:
		return "1", nil
	case Compare:
		return lowerCompare(n)
	case And:
		return lowerJoin(n.Exprs, "AND")
	case Or:
		return lowerJoin(n.Exprs, "OR")
	case Not:
		sql, args := Lower(n.Expr)
		return "NOT (" + sql + ")", args
	default:
		return "1", nil
	}
}

func lowerJoin(exprs []Expr, joiner string) (string, []any) {
	if len(exprs) == 0 {
		return "1", nil
	}
	parts := make([]string, 0, len(exprs))
	var args []any
	for _, e := range exprs {
		sql, a := Lower(e)
		parts = append(parts, "("+sql+")")
		args = append(args, a...)
	}
	return strings.Join(parts, " "+joiner+" "), args
}

func lowerCompare(c Compare) (string, []any) {
	info, err := LookupField(c.Field)
	if err != nil {
		// Parse already validates fields; a Compare built by hand with a bad
		// field name degrades to always-false rather than panicking.
		return "0", nil
	}
	col := info.Column

	if c.IsString {
		switch c.Op {
		case OpContains:
			return col + " LIKE ? ESCAPE '\\'", []any{"%" + escapeLike(c.StrValue) + "%"}
		case OpPrefix:
			return col + " LIKE ? ESCAPE '\\'", []any{escapeLike(c.StrValue) + "%"}
		case OpSuffix:
			return col + " LIKE ? ESCAPE '\\'", []any{"%" + escapeLike(c.StrValue)}
		case OpNe:
			return col + " != ?", []any{c.StrValue}
		default:
			return col + " = ?", []any{c.StrValue}
		}
	}

	switch c.Op {
	case OpEq:
		return col + " = ?", []any{c.IntValue}
	case OpNe:
		return col + " != ?", []any{c.IntValue}
	case OpGt:
		return col + " > ?", []any{c.IntValue}
	case OpLe:
		return col + " <= ?", []any{c.IntValue}
	case OpLt:
		return col + " < ?", []any{c.IntValue}
	case OpGe:
		return col + " >= ?", []any{c.IntValue}
	default:
		return col + " = ?", []any{c.IntValue}
	}
}

// escapeLike prefixes SQLite LIKE metacharacters ('%', '_' and the '\'
// escape character itself) with a backslash, which lowerCompare declares
// via ESCAPE '\', so a '%' or '_' in a client value doesn't act as a
// wildcard when substituted into a LIKE pattern. The underlying value is still bound
// as a parameter; this only protects the LIKE operator's own mini-language.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// Canonical renders an Expr back to the §4.C textual grammar — used by the
// round-trip test in §8 and by admin tooling that wants to display a
// predicate built programmatically.
func Canonical(e Expr) string {
	switch n := e.(type) {
	case True:
		return ""
	case Compare:
		return canonicalCompare(n)
	case And:
		return joinCanonical(n.Exprs, " ")
	case Or:
		return joinCanonical(n.Exprs, ",")
	case Not:
		return "!(" + Canonical(n.Expr) + ")"
	default:
		return ""
	}
}

func joinCanonical(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = "(" + Canonical(e) + ")"
	}
	return strings.Join(parts, sep)
}

func canonicalCompare(c Compare) string {
	op, neg := canonicalOp(c.Op)
	bang := ""
	if neg {
		bang = "!"
	}
	if c.IsString {
		val := c.StrValue
		switch c.Op {
		case OpContains:
			val = "*" + val + "*"
		case OpPrefix:
			val = val + "*"
		case OpSuffix:
			val = "*" + val
		}
		return fmt.Sprintf("'%s%s%s%s'", c.Field, bang, op, val)
	}
	return fmt.Sprintf("'%s%s%s%d'", c.Field, bang, op, c.IntValue)
}

func canonicalOp(op Op) (string, bool) {
	switch op {
	case OpEq, OpContains, OpPrefix, OpSuffix:
		return ":", false
	case OpNe:
		return ":", true
	case OpGt:
		return "+", false
	case OpLe:
		return "+", true
	case OpLt:
		return "-", false
	case OpGe:
		return "-", true
	default:
		return ":", false
	}
}
