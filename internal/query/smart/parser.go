package smart

import (
	"fmt"
	"strings"

	"github.com/soundvault/daapd/internal/query"
)

// Parse parses a smart-playlist expression into the shared query.Expr tree.
// The literal "1" is a reserved shortcut for the match-all predicate.
func Parse(s string) (query.Expr, error) {
	if strings.TrimSpace(s) == "1" {
		return query.True{}, nil
	}
	p := &parser{lex: newLexer(s)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("smart: unexpected trailing input near %q", p.tok.text)
	}
	return expr, nil
}

// ToPredicate renders an Expr back to the §4.C textual grammar, reusing the
// sibling package's canonical renderer since smart-playlist expressions
// lower to that same predicate form.
func ToPredicate(e query.Expr) string {
	return query.Canonical(e)
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

// parseExpr handles 'or'/'||' joins, the lowest-precedence operator.
func (p *parser) parseExpr() (query.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	exprs := []query.Expr{left}
	for p.tok.kind == tokIdent && p.tok.text == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return query.Or{Exprs: exprs}, nil
}

// parseTerm handles 'and'/'&&' joins, binding tighter than 'or'.
func (p *parser) parseTerm() (query.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	exprs := []query.Expr{left}
	for p.tok.kind == tokIdent && p.tok.text == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return query.And{Exprs: exprs}, nil
}

func (p *parser) parseFactor() (query.Expr, error) {
	if p.tok.kind == tokIdent && p.tok.text == "not" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return query.Not{Expr: inner}, nil
	}
	if p.tok.kind == tokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("smart: expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

// parseComparison parses "field relop literal" or "field string-op literal".
func (p *parser) parseComparison() (query.Expr, error) {
	if p.tok.kind != tokIdent {
		return nil, fmt.Errorf("smart: expected field name, got %q", p.tok.text)
	}
	fieldName := p.tok.text
	info, err := query.LookupField(fieldName)
	if err != nil {
		return nil, fmt.Errorf("smart: %w", err)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.tok.text {
	case "contains", "is":
		isContains := p.tok.text == "contains"
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.expectString()
		if err != nil {
			return nil, err
		}
		op := query.OpEq
		if isContains {
			op = query.OpContains
		}
		return query.Compare{Field: fieldName, Op: op, IsString: true, StrValue: val}, nil
	case "starts with":
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.expectString()
		if err != nil {
			return nil, err
		}
		return query.Compare{Field: fieldName, Op: query.OpPrefix, IsString: true, StrValue: val}, nil
	case "ends with":
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.expectString()
		if err != nil {
			return nil, err
		}
		return query.Compare{Field: fieldName, Op: query.OpSuffix, IsString: true, StrValue: val}, nil
	}

	op, err := p.parseRelop()
	if err != nil {
		return nil, err
	}

	if info.Type == query.ColInt {
		if !p.tok.isNum {
			return nil, fmt.Errorf("smart: field %q expects a number, got %q", fieldName, p.tok.text)
		}
		n := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return query.Compare{Field: fieldName, Op: op, IntValue: n}, nil
	}

	val, err := p.expectString()
	if err != nil {
		return nil, err
	}
	return query.Compare{Field: fieldName, Op: op, IsString: true, StrValue: val}, nil
}

func (p *parser) parseRelop() (query.Op, error) {
	var op query.Op
	switch p.tok.kind {
	case tokEq:
		op = query.OpEq
	case tokNe:
		op = query.OpNe
	case tokLt:
		op = query.OpLt
	case tokLe:
		op = query.OpLe
	case tokGt:
		op = query.OpGt
	case tokGe:
		op = query.OpGe
	default:
		return 0, fmt.Errorf("smart: expected a comparison operator near %q", p.tok.text)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	return op, nil
}

func (p *parser) expectString() (string, error) {
	if p.tok.kind != tokString {
		return "", fmt.Errorf("smart: expected a string literal, got %q", p.tok.text)
	}
	v := p.tok.text
	if err := p.advance(); err != nil {
		return "", err
	}
	return v, nil
}
