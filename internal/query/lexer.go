package query

import "strings"

// splitTopLevel splits s on any byte in seps that appears outside a
// single-quoted specifier and outside parentheses, dropping empty pieces
// produced by runs of separators (so "'a' + 'b'" and "'a'+'b'" behave the
// same, matching the grammar's treatment of '+' and ' ' as interchangeable
// AND joiners).
func splitTopLevel(s string, seps string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	depth := 0

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !isEscaped(s, i):
			inQuote = !inQuote
			cur.WriteByte(c)
		case inQuote:
			cur.WriteByte(c)
		case c == '(':
			depth++
			cur.WriteByte(c)
		case c == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(c)
		case depth == 0 && strings.IndexByte(seps, c) >= 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return parts
}

// isEscaped reports whether the byte at position i in s is preceded by an
// odd number of backslashes (i.e. it's escaped, not a real delimiter).
func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

const fieldChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._"

func isFieldChar(c byte) bool {
	return strings.IndexByte(fieldChars, c) >= 0
}
