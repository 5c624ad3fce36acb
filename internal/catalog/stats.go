package catalog

import "github.com/soundvault/daapd/internal/catalogerr"

// Stats is the small summary the dispatcher's database-info handler needs;
// computing it does not warrant the enumerate/cursor machinery the listing
// endpoints use.
type Stats struct {
	SongCount     int
	PlaylistCount int
}

// Stats returns the current song and playlist row counts.
func (c *Catalog) Stats() (Stats, error) {
	var s Stats
	err := c.submit(func() error {
		if err := c.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&s.SongCount); err != nil {
			return catalogerr.New("Stats", catalogerr.KindIO, err)
		}
		if err := c.db.QueryRow(`SELECT COUNT(*) FROM playlists`).Scan(&s.PlaylistCount); err != nil {
			return catalogerr.New("Stats", catalogerr.KindIO, err)
		}
		return nil
	})
	return s, err
}
