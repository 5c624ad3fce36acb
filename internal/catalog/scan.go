package catalog

import (
	"fmt"
	"log/slog"

	"github.com/soundvault/daapd/internal/catalogerr"
)

// scanState tracks the touched-row scratch set for the scan currently in
// progress. A full reload deletes every song up front and runs with
// synchronous writes relaxed until EndSongScan; its inserts are not grouped
// into a single transaction. An incremental scan instead records touched
// ids so end_song_scan can delete the anti-join.
type scanState struct {
	full      bool
	touched   map[int64]struct{}
	touchedPl map[int64]struct{}
}

func (s *scanState) touch(id int64) {
	if s.touched != nil {
		s.touched[id] = struct{}{}
	}
}

func (s *scanState) touchPlaylist(id int64) {
	if s.touchedPl != nil {
		s.touchedPl[id] = struct{}{}
	}
}

// StartScan begins a scan transaction. full forces a full reload regardless
// of the song table's current contents; per §4.E, a full reload is also
// implied when the song table is empty.
func (c *Catalog) StartScan(full bool) error {
	return c.submit(func() error {
		if c.scanState != nil {
			return catalogerr.New("StartScan", catalogerr.KindInvalidArgument, fmt.Errorf("scan already in progress"))
		}
		if !full {
			var count int
			if err := c.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&count); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			full = count == 0
		}

		if full {
			if _, err := c.db.Exec(dropPathIndex); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`DELETE FROM songs`); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`PRAGMA synchronous = OFF`); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			c.scanState = &scanState{full: true}
		} else {
			if _, err := c.db.Exec(`CREATE TEMP TABLE IF NOT EXISTS updated (id INTEGER PRIMARY KEY)`); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`CREATE TEMP TABLE IF NOT EXISTS plupdated (id INTEGER PRIMARY KEY)`); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`DELETE FROM updated`); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`DELETE FROM plupdated`); err != nil {
				return catalogerr.New("StartScan", catalogerr.KindIO, err)
			}
			c.scanState = &scanState{full: false, touched: make(map[int64]struct{}), touchedPl: make(map[int64]struct{})}
		}
		slog.Info("catalog scan started", "full", full)
		return nil
	})
}

// EndSongScan restores normal synchronous writes after a full reload, or
// deletes untouched songs for an incremental scan, and re-creates the path
// index.
func (c *Catalog) EndSongScan() error {
	return c.submitWrite(func() error {
		if c.scanState == nil {
			return catalogerr.New("EndSongScan", catalogerr.KindInvalidArgument, fmt.Errorf("no scan in progress"))
		}
		if !c.scanState.full {
			for id := range c.scanState.touched {
				if _, err := c.db.Exec(`INSERT OR IGNORE INTO updated (id) VALUES (?)`, id); err != nil {
					return catalogerr.New("EndSongScan", catalogerr.KindIO, err)
				}
			}
			if _, err := c.db.Exec(`DELETE FROM songs WHERE id NOT IN (SELECT id FROM updated)`); err != nil {
				return catalogerr.New("EndSongScan", catalogerr.KindIO, err)
			}
		} else {
			if _, err := c.db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
				return catalogerr.New("EndSongScan", catalogerr.KindIO, err)
			}
		}
		if _, err := c.db.Exec(createPathIndex); err != nil {
			return catalogerr.New("EndSongScan", catalogerr.KindIO, err)
		}
		slog.Info("catalog song scan ended")
		return nil
	})
}

// EndScan finalizes the scan: deletes orphaned static playlists and items
// (incremental mode only) and clears the scan state.
func (c *Catalog) EndScan() error {
	return c.submitWrite(func() error {
		if c.scanState == nil {
			return catalogerr.New("EndScan", catalogerr.KindInvalidArgument, fmt.Errorf("no scan in progress"))
		}
		if !c.scanState.full {
			for id := range c.scanState.touchedPl {
				if _, err := c.db.Exec(`INSERT OR IGNORE INTO plupdated (id) VALUES (?)`, id); err != nil {
					return catalogerr.New("EndScan", catalogerr.KindIO, err)
				}
			}
			if _, err := c.db.Exec(`DELETE FROM playlists WHERE type != ? AND id != ? AND id NOT IN (SELECT id FROM plupdated)`,
				PlaylistSmart, LibraryPlaylistID); err != nil {
				return catalogerr.New("EndScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`DELETE FROM playlistitems WHERE song_id NOT IN (SELECT id FROM songs)`); err != nil {
				return catalogerr.New("EndScan", catalogerr.KindIO, err)
			}
			if _, err := c.db.Exec(`DELETE FROM playlistitems WHERE playlist_id NOT IN (SELECT id FROM playlists)`); err != nil {
				return catalogerr.New("EndScan", catalogerr.KindIO, err)
			}
		}
		c.scanState = nil
		slog.Info("catalog scan ended")
		return nil
	})
}
