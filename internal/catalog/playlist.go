package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/soundvault/daapd/internal/catalogerr"
)

// Playlist mirrors the playlists table.
type Playlist struct {
	ID          int64
	Title       string
	Type        PlaylistType
	ItemCount   int
	Query       string // smart-playlist expression text; required when Type == PlaylistSmart
	Path        string // source path for static-from-file/xml variants
	DBTimestamp int64
	Index       int
}

// CreatePlaylist inserts a new playlist row. A smart playlist must carry a
// non-empty Query.
func (c *Catalog) CreatePlaylist(p Playlist) (int64, error) {
	if p.Type == PlaylistSmart && p.Query == "" {
		return 0, catalogerr.New("CreatePlaylist", catalogerr.KindInvalidArgument, fmt.Errorf("smart playlist requires a query expression"))
	}
	var id int64
	err := c.submitWrite(func() error {
		p.DBTimestamp = time.Now().Unix()
		res, err := c.db.Exec(`INSERT INTO playlists (title, type, query, path, db_timestamp, idx) VALUES (?, ?, ?, ?, ?, ?)`,
			p.Title, p.Type, p.Query, p.Path, p.DBTimestamp, p.Index)
		if err != nil {
			if isUniqueConstraint(err) {
				return catalogerr.New("CreatePlaylist", catalogerr.KindConstraint, err)
			}
			return catalogerr.New("CreatePlaylist", catalogerr.KindIO, err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// UpdatePlaylist updates a playlist's mutable fields by ID. The immortal
// Library playlist (id 1) rejects type changes.
func (c *Catalog) UpdatePlaylist(p Playlist) error {
	if p.ID == LibraryPlaylistID && p.Type != PlaylistSmart {
		return catalogerr.New("UpdatePlaylist", catalogerr.KindInvalidArgument, fmt.Errorf("the Library playlist cannot change type"))
	}
	return c.submitWrite(func() error {
		p.DBTimestamp = time.Now().Unix()
		res, err := c.db.Exec(`UPDATE playlists SET title = ?, type = ?, query = ?, path = ?, db_timestamp = ?, idx = ? WHERE id = ?`,
			p.Title, p.Type, p.Query, p.Path, p.DBTimestamp, p.Index, p.ID)
		if err != nil {
			return catalogerr.New("UpdatePlaylist", catalogerr.KindIO, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return catalogerr.New("UpdatePlaylist", catalogerr.KindNotFound, nil)
		}
		return nil
	})
}

// DeletePlaylist removes a playlist and its items. The Library playlist is
// immortal and cannot be deleted.
func (c *Catalog) DeletePlaylist(id int64) error {
	if id == LibraryPlaylistID {
		return catalogerr.New("DeletePlaylist", catalogerr.KindInvalidArgument, fmt.Errorf("the Library playlist cannot be deleted"))
	}
	return c.submitWrite(func() error {
		if _, err := c.db.Exec(`DELETE FROM playlistitems WHERE playlist_id = ?`, id); err != nil {
			return catalogerr.New("DeletePlaylist", catalogerr.KindIO, err)
		}
		res, err := c.db.Exec(`DELETE FROM playlists WHERE id = ?`, id)
		if err != nil {
			return catalogerr.New("DeletePlaylist", catalogerr.KindIO, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return catalogerr.New("DeletePlaylist", catalogerr.KindNotFound, nil)
		}
		return nil
	})
}

// GetPlaylist fetches one playlist row by id, with ItemCount recomputed for
// static playlists (a stored count) or the live smart-playlist match count.
func (c *Catalog) GetPlaylist(id int64) (Playlist, error) {
	var p Playlist
	err := c.submit(func() error {
		var scanErr error
		p, scanErr = c.loadPlaylist(id)
		return scanErr
	})
	return p, err
}

func (c *Catalog) loadPlaylist(id int64) (Playlist, error) {
	var p Playlist
	row := c.db.QueryRow(`SELECT id, title, type, query, path, db_timestamp, idx FROM playlists WHERE id = ?`, id)
	if err := row.Scan(&p.ID, &p.Title, &p.Type, &p.Query, &p.Path, &p.DBTimestamp, &p.Index); err != nil {
		if err == sql.ErrNoRows {
			return p, catalogerr.New("GetPlaylist", catalogerr.KindNotFound, nil)
		}
		return p, catalogerr.New("GetPlaylist", catalogerr.KindIO, err)
	}
	count, err := c.countPlaylistItems(p)
	if err != nil {
		return p, err
	}
	p.ItemCount = count
	return p, nil
}

// refreshPlaylistItemCounts recomputes and persists every playlist's cached
// item_count column. Called at the end of every write (see submitWrite) and
// once at Open, so the listing path (decodePlaylistRow) can read item_count
// straight off the row instead of issuing a nested query per playlist while
// a listing cursor's *sql.Rows is still open — the catalog's single sqlite
// connection (catalog.go's SetMaxOpenConns(1)) can't serve a second query
// until the first's rows are fully read or closed, so a per-row nested
// query from inside an active enumeration would deadlock.
func (c *Catalog) refreshPlaylistItemCounts() error {
	rows, err := c.db.Query(`SELECT id, type, query FROM playlists`)
	if err != nil {
		return catalogerr.New("refreshPlaylistItemCounts", catalogerr.KindIO, err)
	}
	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Type, &p.Query); err != nil {
			rows.Close()
			return catalogerr.New("refreshPlaylistItemCounts", catalogerr.KindIO, err)
		}
		playlists = append(playlists, p)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return catalogerr.New("refreshPlaylistItemCounts", catalogerr.KindIO, rowsErr)
	}

	for _, p := range playlists {
		count, err := c.countPlaylistItems(p)
		if err != nil {
			return err
		}
		if _, err := c.db.Exec(`UPDATE playlists SET item_count = ? WHERE id = ?`, count, p.ID); err != nil {
			return catalogerr.New("refreshPlaylistItemCounts", catalogerr.KindIO, err)
		}
	}
	return nil
}

func (c *Catalog) countPlaylistItems(p Playlist) (int, error) {
	if p.Type == PlaylistSmart {
		expr, err := smartExprOrFallback(p.Query)
		if err != nil {
			return 0, catalogerr.New("countPlaylistItems", catalogerr.KindInvalidArgument, err)
		}
		where, args := lowerQuery(expr)
		var count int
		q := fmt.Sprintf(`SELECT COUNT(*) FROM songs WHERE %s`, where)
		if err := c.db.QueryRow(q, args...).Scan(&count); err != nil {
			return 0, catalogerr.New("countPlaylistItems", catalogerr.KindIO, err)
		}
		return count, nil
	}
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM playlistitems WHERE playlist_id = ?`, p.ID).Scan(&count); err != nil {
		return 0, catalogerr.New("countPlaylistItems", catalogerr.KindIO, err)
	}
	return count, nil
}

// AddPlaylistItem appends songID to the tail of playlistID's static
// membership list. Invalid on smart playlists, whose membership is derived
// from their expression at query time.
func (c *Catalog) AddPlaylistItem(playlistID, songID int64) error {
	return c.submitWrite(func() error {
		p, err := c.loadPlaylist(playlistID)
		if err != nil {
			return err
		}
		if p.Type == PlaylistSmart {
			return catalogerr.New("AddPlaylistItem", catalogerr.KindInvalidArgument, fmt.Errorf("cannot add items to a smart playlist"))
		}
		_, err = c.db.Exec(`INSERT INTO playlistitems (playlist_id, song_id) VALUES (?, ?)`, playlistID, songID)
		if err != nil {
			return catalogerr.New("AddPlaylistItem", catalogerr.KindIO, err)
		}
		if c.scanState != nil {
			c.scanState.touchPlaylist(playlistID)
		}
		return nil
	})
}

// RemovePlaylistItem removes one playlistitems row by its own id.
func (c *Catalog) RemovePlaylistItem(itemID int64) error {
	return c.submitWrite(func() error {
		res, err := c.db.Exec(`DELETE FROM playlistitems WHERE id = ?`, itemID)
		if err != nil {
			return catalogerr.New("RemovePlaylistItem", catalogerr.KindIO, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return catalogerr.New("RemovePlaylistItem", catalogerr.KindNotFound, nil)
		}
		return nil
	})
}
