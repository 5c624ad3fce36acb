package smart

import (
	"testing"

	"github.com/soundvault/daapd/internal/query"
)

func TestParseMatchAllShortcut(t *testing.T) {
	e, err := Parse("1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(query.True); !ok {
		t.Fatalf("got %T", e)
	}
}

func TestParseSimpleComparison(t *testing.T) {
	e, err := Parse(`daap.songyear > 1990`)
	if err != nil {
		t.Fatal(err)
	}
	cmp, ok := e.(query.Compare)
	if !ok {
		t.Fatalf("got %T", e)
	}
	if cmp.Field != "daap.songyear" || cmp.Op != query.OpGt || cmp.IntValue != 1990 {
		t.Fatalf("got %+v", cmp)
	}
}

func TestParseStringOps(t *testing.T) {
	cases := []struct {
		in   string
		want query.Op
	}{
		{`daap.songartist contains "Beat"`, query.OpContains},
		{`daap.songartist starts with "Beat"`, query.OpPrefix},
		{`daap.songartist ends with "les"`, query.OpSuffix},
		{`daap.songartist is "Beatles"`, query.OpEq},
	}
	for _, c := range cases {
		e, err := Parse(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		cmp := e.(query.Compare)
		if cmp.Op != c.want {
			t.Fatalf("%s: got %v want %v", c.in, cmp.Op, c.want)
		}
	}
}

func TestParseAndOrNot(t *testing.T) {
	e, err := Parse(`daap.songartist = "Beatles" and daap.songyear > 1965 or not daap.songdisabled = 1`)
	if err != nil {
		t.Fatal(err)
	}
	or, ok := e.(query.Or)
	if !ok || len(or.Exprs) != 2 {
		t.Fatalf("got %T %+v", e, e)
	}
	and, ok := or.Exprs[0].(query.And)
	if !ok || len(and.Exprs) != 2 {
		t.Fatalf("expected And as first Or operand, got %T", or.Exprs[0])
	}
	if _, ok := or.Exprs[1].(query.Not); !ok {
		t.Fatalf("expected Not as second Or operand, got %T", or.Exprs[1])
	}
}

func TestParseParenGrouping(t *testing.T) {
	e, err := Parse(`(daap.songartist = "Beatles" or daap.songartist = "Stones") and daap.songyear > 1960`)
	if err != nil {
		t.Fatal(err)
	}
	and, ok := e.(query.And)
	if !ok || len(and.Exprs) != 2 {
		t.Fatalf("got %T", e)
	}
	if _, ok := and.Exprs[0].(query.Or); !ok {
		t.Fatalf("expected Or as first And operand, got %T", and.Exprs[0])
	}
}

func TestParseDoubleAmpAndPipe(t *testing.T) {
	e, err := Parse(`daap.songyear > 1960 && daap.songyear < 1970 || daap.songcompilation = 1`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(query.Or); !ok {
		t.Fatalf("got %T", e)
	}
}

func TestParseUnknownFieldFails(t *testing.T) {
	if _, err := Parse(`daap.bogusfield = 1`); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseTypeMismatchFails(t *testing.T) {
	if _, err := Parse(`daap.songyear = "not a number"`); err == nil {
		t.Fatalf("expected error")
	}
}

func TestToPredicateRoundTrip(t *testing.T) {
	e, err := Parse(`daap.songartist = "Beatles" and daap.songyear > 1960`)
	if err != nil {
		t.Fatal(err)
	}
	pred := ToPredicate(e)
	if pred == "" {
		t.Fatalf("expected non-empty predicate")
	}
}
