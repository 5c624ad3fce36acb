package catalog

import (
	"database/sql"
	"fmt"

	"github.com/soundvault/daapd/internal/catalogerr"
	"github.com/soundvault/daapd/internal/dmap"
)

// decodeSongRow returns a rowEncoder that scans a songs row (id + the
// standard column set, in that order) and renders it through the shared
// encodeRowBytes path, applying proj.
func decodeSongRow(proj dmap.Bitmap) rowEncoder {
	return func(rows *sql.Rows) ([]byte, error) {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		return encodeRowBytes(s, proj), nil
	}
}

// decodePlaylistRow scans a playlists row (including its cached item_count
// column, kept current by refreshPlaylistItemCounts on every write) and
// renders it as an "mlit" container of playlist metadata tags.
func decodePlaylistRow(rows *sql.Rows) ([]byte, error) {
	var p Playlist
	if err := rows.Scan(&p.ID, &p.Title, &p.Type, &p.Query, &p.Path, &p.DBTimestamp, &p.Index, &p.ItemCount); err != nil {
		return nil, err
	}
	w := dmap.NewWriter()
	w.AddContainer("mlit", func(w *dmap.Writer) {
		w.AddInt("miid", int32(p.ID))
		w.AddLong("mper", p.ID)
		w.AddString("minm", p.Title)
		w.AddInt("mimc", int32(p.ItemCount))
		if p.Type == PlaylistSmart {
			w.AddByte("aeSP", 1)
		}
		if p.ID == LibraryPlaylistID {
			w.AddByte("abpl", 1)
		}
	})
	return w.Bytes(), nil
}

// browseColumn maps a browse axis name to its underlying songs column.
var browseColumn = map[string]string{
	"artist":   "artist",
	"album":    "album",
	"genre":    "genre",
	"composer": "composer",
}

// compileBrowse builds a DISTINCT-value query for one browse axis. Results
// are encoded as bare strings rather than full mlit containers: owntone's
// browse listings carry no per-entry metadata beyond the value itself, so
// there is nothing else to wrap.
func (c *Catalog) compileBrowse(d Descriptor, column, where string, args []any) (string, []any, rowEncoder, error) {
	full := fmt.Sprintf(`%s != '' AND (%s)`, column, where)
	q := fmt.Sprintf(`SELECT DISTINCT %s FROM songs WHERE %s ORDER BY %s`, column, full, column)
	countQ := fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM songs WHERE %s`, column, full)
	q, finalArgs, err := c.applyIndex(d, q, args, countQ)
	if err != nil {
		return "", nil, nil, catalogerr.New("compileBrowse", catalogerr.KindIO, err)
	}
	return q, finalArgs, decodeBrowseValue, nil
}

func decodeBrowseValue(rows *sql.Rows) ([]byte, error) {
	var v string
	if err := rows.Scan(&v); err != nil {
		return nil, err
	}
	w := dmap.NewWriter()
	w.AddString("mlit", v)
	return w.Bytes(), nil
}
