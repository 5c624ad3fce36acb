package catalog

import (
	"fmt"

	"github.com/soundvault/daapd/internal/dmap"
	"github.com/soundvault/daapd/internal/query"
)

// QueryType selects which table/shape a descriptor enumerates.
type QueryType int

const (
	QueryItems QueryType = iota
	QueryPlaylists
	QueryPlaylistItems
	QueryBrowseArtists
	QueryBrowseAlbums
	QueryBrowseGenres
	QueryBrowseComposers
)

// IndexType selects the slicing semantics applied after the base predicate.
type IndexType int

const (
	IndexNone IndexType = iota
	IndexFirstN
	IndexLastN
	IndexSub
)

// Descriptor is the request-scoped, non-persistent query descriptor the
// dispatcher builds from a URL's path and query parameters.
type Descriptor struct {
	Type       QueryType
	Index      IndexType
	IndexLow   int
	IndexHigh  int
	PlaylistID int64
	SessionID  int64
	Predicate  query.Expr // nil means match-all
	Projection dmap.Bitmap
	EmitZeroLengthStrings bool
}

func (d Descriptor) indexClause(baseWhere string, args []any, countFn func() (int, error)) (string, error) {
	switch d.Index {
	case IndexNone:
		return "", nil
	case IndexFirstN:
		return fmt.Sprintf(" LIMIT %d", d.IndexHigh), nil
	case IndexLastN:
		total, err := countFn()
		if err != nil {
			return "", err
		}
		n := d.IndexHigh
		if n >= total {
			return fmt.Sprintf(" LIMIT %d", n), nil
		}
		return fmt.Sprintf(" LIMIT %d OFFSET %d", n, total-n), nil
	case IndexSub:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", d.IndexHigh-d.IndexLow, d.IndexLow), nil
	default:
		return "", nil
	}
}
