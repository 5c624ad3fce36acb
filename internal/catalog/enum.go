package catalog

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/soundvault/daapd/internal/catalogerr"
	"github.com/soundvault/daapd/internal/query"
)

// rowEncoder renders the row rows is currently positioned at (after a
// successful rows.Next()) into its DMAP-framed bytes.
type rowEncoder func(rows *sql.Rows) ([]byte, error)

// Cursor is a live enumeration: a compiled query plus the decoder needed to
// turn each row into wire bytes. Cursors are only ever touched from within
// a submitted job, so no additional locking is needed beyond the catalog's
// single worker goroutine.
type Cursor struct {
	id      int64
	query   string
	args    []any
	encode  rowEncoder
	rows    *sql.Rows
	total   int // row count, set by EnumSize
	exhausted bool
}

var nextCursorID atomic.Int64

// EnumBegin compiles the descriptor into a SQL query, takes (conceptually)
// the catalog's write-lock for the cursor's lifetime by running entirely
// inside the single job queue, and positions at the first row.
func (c *Catalog) EnumBegin(d Descriptor) (int64, error) {
	var id int64
	err := c.submit(func() error {
		q, args, encode, err := c.compile(d)
		if err != nil {
			return err
		}
		rows, err := c.db.Query(q, args...)
		if err != nil {
			return catalogerr.New("EnumBegin", catalogerr.KindIO, err)
		}
		id = nextCursorID.Add(1)
		cur := &Cursor{id: id, query: q, args: args, encode: encode, rows: rows}
		if c.cursors == nil {
			c.cursors = make(map[int64]*Cursor)
		}
		c.cursors[id] = cur
		return nil
	})
	return id, err
}

// EnumSize performs a full pass over the cursor's rows, summing the encoded
// byte length each row would contribute, then rewinds by re-executing the
// same compiled query (sqlite result sets are forward-only, so "rewind" is
// close-and-reopen of an identical statement — observably a rewind for a
// read-only cursor held under the catalog's single-writer serialization).
func (c *Catalog) EnumSize(cursorID int64) (rowCount int, totalBytes int, err error) {
	err = c.submit(func() error {
		cur, ok := c.cursors[cursorID]
		if !ok {
			return catalogerr.New("EnumSize", catalogerr.KindInvalidArgument, fmt.Errorf("unknown cursor %d", cursorID))
		}
		for cur.rows.Next() {
			b, encErr := cur.encode(cur.rows)
			if encErr != nil {
				return catalogerr.New("EnumSize", catalogerr.KindIO, encErr)
			}
			rowCount++
			totalBytes += len(b)
		}
		if rowsErr := cur.rows.Err(); rowsErr != nil {
			return catalogerr.New("EnumSize", catalogerr.KindIO, rowsErr)
		}
		cur.rows.Close()

		rows, reopenErr := c.db.Query(cur.query, cur.args...)
		if reopenErr != nil {
			return catalogerr.New("EnumSize", catalogerr.KindIO, reopenErr)
		}
		cur.rows = rows
		cur.total = rowCount
		cur.exhausted = false
		return nil
	})
	return rowCount, totalBytes, err
}

// EnumFetch yields the next row's already-encoded bytes, or (nil, false) on
// exhaustion.
func (c *Catalog) EnumFetch(cursorID int64) ([]byte, bool, error) {
	var out []byte
	var ok bool
	err := c.submit(func() error {
		cur, found := c.cursors[cursorID]
		if !found {
			return catalogerr.New("EnumFetch", catalogerr.KindInvalidArgument, fmt.Errorf("unknown cursor %d", cursorID))
		}
		if cur.exhausted || !cur.rows.Next() {
			cur.exhausted = true
			return nil
		}
		b, encErr := cur.encode(cur.rows)
		if encErr != nil {
			return catalogerr.New("EnumFetch", catalogerr.KindIO, encErr)
		}
		out = b
		ok = true
		return nil
	})
	return out, ok, err
}

// EnumEnd releases the cursor and its backing *sql.Rows.
func (c *Catalog) EnumEnd(cursorID int64) error {
	return c.submit(func() error {
		cur, ok := c.cursors[cursorID]
		if !ok {
			return nil
		}
		cur.rows.Close()
		delete(c.cursors, cursorID)
		return nil
	})
}

// compile turns a Descriptor into a ready-to-run query, its bound args, and
// the row encoder appropriate to its QueryType.
func (c *Catalog) compile(d Descriptor) (string, []any, rowEncoder, error) {
	pred := d.Predicate
	if pred == nil {
		pred = query.True{}
	}
	where, args := query.Lower(pred)

	switch d.Type {
	case QueryItems:
		q := fmt.Sprintf(`SELECT id, %s FROM songs WHERE %s ORDER BY id`, songColumns, where)
		q, args, err := c.applyIndex(d, q, args, fmt.Sprintf(`SELECT COUNT(*) FROM songs WHERE %s`, where))
		return q, args, decodeSongRow(d.Projection), err

	case QueryPlaylistItems:
		ptype, pquery, err := c.playlistTypeQuery(d.PlaylistID)
		if err != nil {
			return "", nil, nil, err
		}
		if ptype == PlaylistSmart {
			// A smart playlist's membership has no backing playlistitems
			// rows — it's whatever currently matches its stored expression,
			// ANDed with the client's own predicate.
			smartExpr, err := smartExprOrFallback(pquery)
			if err != nil {
				return "", nil, nil, catalogerr.New("compile", catalogerr.KindInvalidArgument, err)
			}
			smartWhere, smartArgs := lowerQuery(smartExpr)
			full := fmt.Sprintf(`(%s) AND (%s)`, smartWhere, where)
			combinedArgs := append(smartArgs, args...)
			base := fmt.Sprintf(`SELECT id, %s FROM songs WHERE %s ORDER BY id`, songColumns, full)
			countQ := fmt.Sprintf(`SELECT COUNT(*) FROM songs WHERE %s`, full)
			q, finalArgs, err := c.applyIndex(d, base, combinedArgs, countQ)
			return q, finalArgs, decodeSongRow(d.Projection), err
		}

		full := fmt.Sprintf(`pi.playlist_id = ? AND (%s)`, where)
		playlistArgs := append([]any{d.PlaylistID}, args...)
		base := fmt.Sprintf(`SELECT s.id, %s FROM playlistitems pi JOIN songs s ON s.id = pi.song_id WHERE %s ORDER BY pi.id`,
			prefixColumns("s", songColumns), full)
		countQ := fmt.Sprintf(`SELECT COUNT(*) FROM playlistitems pi JOIN songs s ON s.id = pi.song_id WHERE %s`, full)
		q, finalArgs, err := c.applyIndex(d, base, playlistArgs, countQ)
		return q, finalArgs, decodeSongRow(d.Projection), err

	case QueryPlaylists:
		q := fmt.Sprintf(`SELECT id, title, type, query, path, db_timestamp, idx, item_count FROM playlists WHERE %s ORDER BY idx, id`, where)
		q, args, err := c.applyIndex(d, q, args, fmt.Sprintf(`SELECT COUNT(*) FROM playlists WHERE %s`, where))
		return q, args, decodePlaylistRow, err

	case QueryBrowseArtists:
		return c.compileBrowse(d, "artist", where, args)
	case QueryBrowseAlbums:
		return c.compileBrowse(d, "album", where, args)
	case QueryBrowseGenres:
		return c.compileBrowse(d, "genre", where, args)
	case QueryBrowseComposers:
		return c.compileBrowse(d, "composer", where, args)

	default:
		return "", nil, nil, catalogerr.New("compile", catalogerr.KindInvalidArgument, fmt.Errorf("unknown query type %d", d.Type))
	}
}

// playlistTypeQuery fetches just the two columns compile needs to decide how
// to resolve a playlist's membership, without the item-count work loadPlaylist
// does.
func (c *Catalog) playlistTypeQuery(id int64) (PlaylistType, string, error) {
	var t PlaylistType
	var q string
	row := c.db.QueryRow(`SELECT type, query FROM playlists WHERE id = ?`, id)
	if err := row.Scan(&t, &q); err != nil {
		if err == sql.ErrNoRows {
			return 0, "", catalogerr.New("compile", catalogerr.KindNotFound, nil)
		}
		return 0, "", catalogerr.New("compile", catalogerr.KindIO, err)
	}
	return t, q, nil
}

func (c *Catalog) applyIndex(d Descriptor, baseQuery string, args []any, countQuery string) (string, []any, error) {
	clause, err := d.indexClause("", nil, func() (int, error) {
		var n int
		if scanErr := c.db.QueryRow(countQuery, args...).Scan(&n); scanErr != nil {
			return 0, catalogerr.New("applyIndex", catalogerr.KindIO, scanErr)
		}
		return n, nil
	})
	if err != nil {
		return "", nil, err
	}
	return baseQuery + clause, args, nil
}

func prefixColumns(alias, cols string) string {
	// songColumns is a flat comma list; re-qualify each column with alias.
	out := ""
	depth := 0
	start := 0
	emit := func(col string) {
		col = trimSpaceNewline(col)
		if col == "" {
			return
		}
		if out != "" {
			out += ", "
		}
		out += alias + "." + col
	}
	for i := 0; i < len(cols); i++ {
		if cols[i] == ',' && depth == 0 {
			emit(cols[start:i])
			start = i + 1
		}
	}
	emit(cols[start:])
	return out
}

func trimSpaceNewline(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\n' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\n' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
