package catalog

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soundvault/daapd/internal/catalogerr"
)

// Song mirrors the songs table. Fields left at their zero value take the
// column's default on insert.
type Song struct {
	ID            int64
	Path          string
	Title         string
	Artist        string
	Album         string
	AlbumArtist   string
	Genre         string
	Comment       string
	Composer      string
	Orchestra     string
	Conductor     string
	Grouping      string
	URL           string
	Type          string
	CodecType     string
	ItemKind      int
	DataKind      int
	MediaKind     int
	Bitrate       int
	SampleRate    int
	Channels      int
	SongLengthMS  int
	FileSize      int64
	Year          int
	DateReleased  int64
	Track         int
	TotalTracks   int
	Disc          int
	TotalDiscs    int
	BPM           int
	Compilation   int
	Rating        int
	PlayCount     int
	TimeAdded     int64
	TimeModified  int64
	TimePlayed    int64
	DBTimestamp   int64
	Disabled      int
	HasVideo      int
	SampleCount   int64
	ForceUpdate   int
	Description   string
	Index         int
	ContentRating int
	Artwork       int
	Seek          int
	ArtistID      int64
	AlbumID       int64
}

// AddSong inserts a new song row, or updates the existing row matched on
// Path if one already exists (the scanner's "add" contract doubles as
// upsert so a rescan of an already-known file is idempotent). Every text
// field is UTF-8 sanitized first, replacing ill-formed bytes with '?'.
func (c *Catalog) AddSong(s Song) (int64, error) {
	var id int64
	err := c.submitWrite(func() error {
		sanitizeSong(&s)
		stampArtistAlbumIDs(&s)
		now := s.TimeAdded
		if now == 0 {
			now = time.Now().Unix()
		}
		s.TimeAdded = now
		if s.TimeModified == 0 {
			s.TimeModified = now
		}
		s.DBTimestamp = time.Now().Unix()

		res, err := c.db.Exec(insertSongSQL, songArgs(&s)...)
		if err != nil {
			if isUniqueConstraint(err) {
				return c.updateSongByPathLocked(s)
			}
			return catalogerr.New("AddSong", catalogerr.KindIO, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return catalogerr.New("AddSong", catalogerr.KindInternal, err)
		}
		if c.scanState != nil {
			c.scanState.touch(id)
		}
		return nil
	})
	return id, err
}

func (c *Catalog) updateSongByPathLocked(s Song) error {
	s.DBTimestamp = time.Now().Unix()
	args := append(songArgs(&s), s.Path)
	_, err := c.db.Exec(updateSongByPathSQL, args...)
	if err != nil {
		return catalogerr.New("AddSong", catalogerr.KindIO, err)
	}
	if c.scanState != nil {
		var id int64
		if err := c.db.QueryRow(`SELECT id FROM songs WHERE path = ?`, s.Path).Scan(&id); err == nil {
			c.scanState.touch(id)
		}
	}
	return nil
}

// UpdateSong updates an existing row by ID.
func (c *Catalog) UpdateSong(s Song) error {
	return c.submitWrite(func() error {
		sanitizeSong(&s)
		stampArtistAlbumIDs(&s)
		s.TimeModified = time.Now().Unix()
		s.DBTimestamp = time.Now().Unix()
		args := append(songArgs(&s), s.ID)
		res, err := c.db.Exec(updateSongByIDSQL, args...)
		if err != nil {
			return catalogerr.New("UpdateSong", catalogerr.KindIO, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return catalogerr.New("UpdateSong", catalogerr.KindNotFound, nil)
		}
		if c.scanState != nil {
			c.scanState.touch(s.ID)
		}
		return nil
	})
}

// GetSong fetches one song row by id.
func (c *Catalog) GetSong(id int64) (Song, error) {
	var s Song
	err := c.submit(func() error {
		row := c.db.QueryRow(selectSongByIDSQL, id)
		var scanErr error
		s, scanErr = scanSong(row)
		if scanErr == sql.ErrNoRows {
			return catalogerr.New("GetSong", catalogerr.KindNotFound, nil)
		}
		if scanErr != nil {
			return catalogerr.New("GetSong", catalogerr.KindIO, scanErr)
		}
		return nil
	})
	return s, err
}

func isUniqueConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// stampArtistAlbumIDs computes owntone-style persistent grouping ids: an
// FNV-1a hash of the lower-cased artist/album string, so browse-by-artist
// and browse-by-album have a stable key independent of string case.
func stampArtistAlbumIDs(s *Song) {
	s.ArtistID = fnv1a(strings.ToLower(s.Artist))
	s.AlbumID = fnv1a(strings.ToLower(s.Album))
}

func fnv1a(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// sanitizeSong replaces any ill-formed UTF-8 byte in every text field with
// '?', per §4.E's per-byte sanitization contract, and logs one warning for
// the song when any field was changed.
func sanitizeSong(s *Song) {
	orig := *s
	s.Path = sanitizeUTF8(s.Path)
	s.Title = sanitizeUTF8(s.Title)
	s.Artist = sanitizeUTF8(s.Artist)
	s.Album = sanitizeUTF8(s.Album)
	s.AlbumArtist = sanitizeUTF8(s.AlbumArtist)
	s.Genre = sanitizeUTF8(s.Genre)
	s.Comment = sanitizeUTF8(s.Comment)
	s.Composer = sanitizeUTF8(s.Composer)
	s.Orchestra = sanitizeUTF8(s.Orchestra)
	s.Conductor = sanitizeUTF8(s.Conductor)
	s.Grouping = sanitizeUTF8(s.Grouping)
	s.URL = sanitizeUTF8(s.URL)
	s.Description = sanitizeUTF8(s.Description)
	if *s != orig {
		slog.Warn("catalog: replaced ill-formed UTF-8 bytes with '?'", "path", s.Path)
	}
}

// sanitizeUTF8 walks s byte by byte: a leading byte matching the
// 0xxxxxxx/110xxxxx/1110xxxx/11110xxx patterns must be followed by the
// corresponding count of 10xxxxxx continuation bytes, or the leading byte is
// replaced with '?' and the scan resumes at the next byte (not the skipped
// continuation bytes, since those didn't form a valid sequence either).
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	b := []byte(s)
	var out strings.Builder
	out.Grow(len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			out.WriteByte(c)
			i++
		case c&0xE0 == 0xC0:
			if ok := hasContinuation(b, i+1, 1); ok {
				out.Write(b[i : i+2])
				i += 2
			} else {
				out.WriteByte('?')
				i++
			}
		case c&0xF0 == 0xE0:
			if ok := hasContinuation(b, i+1, 2); ok {
				out.Write(b[i : i+3])
				i += 3
			} else {
				out.WriteByte('?')
				i++
			}
		case c&0xF8 == 0xF0:
			if ok := hasContinuation(b, i+1, 3); ok {
				out.Write(b[i : i+4])
				i += 4
			} else {
				out.WriteByte('?')
				i++
			}
		default:
			out.WriteByte('?')
			i++
		}
	}
	return out.String()
}

func hasContinuation(b []byte, start, count int) bool {
	if start+count > len(b) {
		return false
	}
	for i := 0; i < count; i++ {
		if b[start+i]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}

const songColumns = `path, title, artist, album, album_artist, genre, comment, composer,
	orchestra, conductor, grouping, url, type, codectype, item_kind, data_kind,
	media_kind, bitrate, samplerate, channels, song_length, file_size, year,
	date_released, track, total_tracks, disc, total_discs, bpm, compilation,
	rating, play_count, time_added, time_modified, time_played, db_timestamp,
	disabled, has_video, sample_count, force_update, description, idx,
	contentrating, artwork, seek, artist_id, album_id`

var insertSongSQL = fmt.Sprintf(`INSERT INTO songs (%s) VALUES (%s)`, songColumns, placeholders(47))
var updateSongByPathSQL = fmt.Sprintf(`UPDATE songs SET %s WHERE path = ?`, assignments())
var updateSongByIDSQL = fmt.Sprintf(`UPDATE songs SET %s WHERE id = ?`, assignments())
var selectSongByIDSQL = fmt.Sprintf(`SELECT id, %s FROM songs WHERE id = ?`, songColumns)

func placeholders(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?")
	}
	return b.String()
}

func assignments() string {
	cols := strings.Fields(strings.ReplaceAll(songColumns, ",", " "))
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = ?")
	}
	return b.String()
}

func songArgs(s *Song) []any {
	return []any{
		s.Path, s.Title, s.Artist, s.Album, s.AlbumArtist, s.Genre, s.Comment, s.Composer,
		s.Orchestra, s.Conductor, s.Grouping, s.URL, s.Type, s.CodecType, s.ItemKind, s.DataKind,
		s.MediaKind, s.Bitrate, s.SampleRate, s.Channels, s.SongLengthMS, s.FileSize, s.Year,
		s.DateReleased, s.Track, s.TotalTracks, s.Disc, s.TotalDiscs, s.BPM, s.Compilation,
		s.Rating, s.PlayCount, s.TimeAdded, s.TimeModified, s.TimePlayed, s.DBTimestamp,
		s.Disabled, s.HasVideo, s.SampleCount, s.ForceUpdate, s.Description, s.Index,
		s.ContentRating, s.Artwork, s.Seek, s.ArtistID, s.AlbumID,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (Song, error) {
	var s Song
	err := row.Scan(
		&s.ID, &s.Path, &s.Title, &s.Artist, &s.Album, &s.AlbumArtist, &s.Genre, &s.Comment, &s.Composer,
		&s.Orchestra, &s.Conductor, &s.Grouping, &s.URL, &s.Type, &s.CodecType, &s.ItemKind, &s.DataKind,
		&s.MediaKind, &s.Bitrate, &s.SampleRate, &s.Channels, &s.SongLengthMS, &s.FileSize, &s.Year,
		&s.DateReleased, &s.Track, &s.TotalTracks, &s.Disc, &s.TotalDiscs, &s.BPM, &s.Compilation,
		&s.Rating, &s.PlayCount, &s.TimeAdded, &s.TimeModified, &s.TimePlayed, &s.DBTimestamp,
		&s.Disabled, &s.HasVideo, &s.SampleCount, &s.ForceUpdate, &s.Description, &s.Index,
		&s.ContentRating, &s.Artwork, &s.Seek, &s.ArtistID, &s.AlbumID,
	)
	return s, err
}
