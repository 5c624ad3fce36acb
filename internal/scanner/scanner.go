// Package scanner implements the default feeder: a filesystem walk that
// extracts tag metadata and calls into the catalog's add/update entry
// points. It is grounded in the teacher's internal/playlist/track.go and
// scanner.go (dhowden/tag, SHA-256 checksum, filepath.Walk), generalized
// to populate catalog.Song rows instead of playlist.Track values.
//
// This is a deliberately thin reference implementation: it extracts only
// the tag metadata dhowden/tag exposes (title/artist/album/album artist/
// genre/composer/comment/track/disc/year, plus an embedded-picture flag)
// and leaves audio technical fields (sample rate, bitrate, exact
// duration) at zero, since computing those requires decoding the audio
// stream itself — out of scope for the default feeder.
package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/soundvault/daapd/internal/catalog"
)

// SupportedExtensions lists the file extensions (including the dot) the
// default feeder recognizes as audio.
var SupportedExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".wav":  {},
}

func isSupported(ext string) bool {
	_, ok := SupportedExtensions[strings.ToLower(ext)]
	return ok
}

// Result summarizes one scan pass.
type Result struct {
	Scanned int
	Added   int
	Failed  map[string]error
}

// Scan walks root recursively, feeds every supported audio file to the
// catalog via AddSong, and wraps the whole pass in StartScan/EndSongScan/
// EndScan so the catalog's delete-untouched-rows logic runs. full selects
// between a full reload and an incremental rescan.
func Scan(c *catalog.Catalog, root string, full bool) (*Result, error) {
	if err := c.StartScan(full); err != nil {
		return nil, fmt.Errorf("scanner: start scan: %w", err)
	}

	res := &Result{Failed: make(map[string]error)}

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			res.Failed[path] = err
			slog.Warn("scanner: cannot access path", "path", path, "error", err)
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !isSupported(filepath.Ext(path)) {
			return nil
		}

		res.Scanned++
		song, err := songFromFile(path, info)
		if err != nil {
			res.Failed[path] = err
			slog.Warn("scanner: failed reading file", "path", path, "error", err)
			return nil
		}

		if _, err := c.AddSong(*song); err != nil {
			res.Failed[path] = err
			slog.Warn("scanner: failed adding song", "path", path, "error", err)
			return nil
		}
		res.Added++
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanner: walk %q: %w", root, walkErr)
	}

	if err := c.EndSongScan(); err != nil {
		return nil, fmt.Errorf("scanner: end song scan: %w", err)
	}
	if err := c.EndScan(); err != nil {
		return nil, fmt.Errorf("scanner: end scan: %w", err)
	}

	slog.Info("scanner: scan complete", "root", root, "scanned", res.Scanned, "added", res.Added, "failed", len(res.Failed))
	return res, nil
}

func songFromFile(path string, info os.FileInfo) (*catalog.Song, error) {
	ext := strings.ToLower(filepath.Ext(path))
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	s := &catalog.Song{
		Path:       path,
		Title:      title,
		Type:       strings.TrimPrefix(ext, "."),
		CodecType:  codecFourCC(ext),
		ItemKind:   2, // music
		FileSize:   info.Size(),
		TimeAdded:  info.ModTime().Unix(),
		PlayCount:  0,
		Disabled:   0,
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("scanner: no readable tags", "path", path, "error", err)
		return s, nil
	}

	if v := m.Title(); v != "" {
		s.Title = v
	}
	s.Artist = m.Artist()
	s.Album = m.Album()
	s.AlbumArtist = m.AlbumArtist()
	s.Genre = m.Genre()
	s.Composer = m.Composer()
	s.Comment = m.Comment()
	if y := m.Year(); y != 0 {
		s.Year = y
	}
	if track, total := m.Track(); track != 0 {
		s.Track = track
		s.TotalTracks = total
	}
	if disc, total := m.Disc(); disc != 0 {
		s.Disc = disc
		s.TotalDiscs = total
	}
	if m.Picture() != nil {
		s.Artwork = 1
	}

	return s, nil
}

// codecFourCC maps a file extension to the four-character codec code stored
// on the song row and consulted by the catalog's transcode-adjustment logic
// (see internal/catalog/encode.go willTranscode).
func codecFourCC(ext string) string {
	switch ext {
	case ".mp3":
		return "mpeg"
	case ".m4a":
		return "alac"
	case ".flac":
		return "flac"
	case ".ogg":
		return "ogg "
	case ".wav":
		return "wav "
	default:
		return ""
	}
}
