package catalog

import (
	"github.com/soundvault/daapd/internal/query"
	"github.com/soundvault/daapd/internal/query/smart"
)

// smartExprOrFallback parses a smart-playlist expression, treating an empty
// string the same as the "1" match-all shortcut (a playlist created without
// an explicit query is not an error case worth rejecting).
func smartExprOrFallback(expr string) (query.Expr, error) {
	if expr == "" {
		return query.True{}, nil
	}
	return smart.Parse(expr)
}

// lowerQuery is the single seam between the query package's Expr tree and
// the catalog's raw SQL — kept as a one-line indirection so every predicate
// the catalog ever compiles (client filters and smart-playlist expressions
// alike) goes through the same lowering path.
func lowerQuery(e query.Expr) (string, []any) {
	return query.Lower(e)
}
