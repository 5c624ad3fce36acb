// Package stream implements the song-streaming pipeline: direct-file or
// transcoded byte delivery with Range support and a pluggable cover-art
// splice step. The response-header and copy-loop shape is grounded in the
// teacher's internal/radio.StreamHandler.ServeHTTP (Header()/Flusher/
// ctx.Done() idiom); the transcoded path delegates to internal/transcode.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/soundvault/daapd/internal/catalog"
	"github.com/soundvault/daapd/internal/transcode"
)

// ErrNotFound is returned when the song's backing file cannot be opened.
var ErrNotFound = errors.New("stream: song file not found")

// ArtSplicer splices a cover-art file into the leading bytes of a media
// stream as it is copied, per §4.H step 4. It also reports the byte offset
// adjustment a Range request must apply to land at the equivalent position
// in the spliced stream.
type ArtSplicer interface {
	// Applies reports whether this splicer handles the given song type
	// ("mp3" or "m4a").
	Applies(songType string) bool
	// OffsetAdjustment returns the number of bytes the splice adds ahead of
	// the original media bytes, given the art file's size.
	OffsetAdjustment(artSize int64) int64
	// Open returns a reader that yields the splice frame followed by the
	// original media reader.
	Open(art *os.File, artSize int64, media io.Reader) (io.Reader, error)
}

// Pipeline serves song streams.
type Pipeline struct {
	Launcher *transcode.Launcher
	Splicers []ArtSplicer
}

// New returns a Pipeline with the default mp3/m4a splicers.
func New(launcher *transcode.Launcher) *Pipeline {
	return &Pipeline{
		Launcher: launcher,
		Splicers: []ArtSplicer{mp3ID3Splicer{}, m4aSplicer{}},
	}
}

// Serve implements the 5-step contract from §4.H for one song request.
func (p *Pipeline) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, song catalog.Song) error {
	offset := parseRangeOffset(r.Header.Get("Range"))
	transcoding := catalog.WillTranscode(song)

	contentType := "audio/" + song.Type
	if transcoding {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Connection", "close")
	w.Header().Set("Accept-Ranges", "bytes")

	if transcoding {
		return p.serveTranscoded(ctx, w, song, offset)
	}
	return p.serveDirect(w, song, offset)
}

func (p *Pipeline) serveDirect(w http.ResponseWriter, song catalog.Song, offset int64) error {
	f, err := os.Open(song.Path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, song.Path)
	}
	defer f.Close()

	var src io.Reader = f
	total := song.FileSize
	effectiveOffset := offset

	if splicer, artPath, artSize := p.findArt(song); splicer != nil {
		adj := splicer.OffsetAdjustment(artSize)
		if offset == 0 {
			art, err := os.Open(artPath)
			if err != nil {
				slog.Warn("stream: cannot open cover art", "path", artPath, "error", err)
			} else {
				defer art.Close()
				spliced, err := splicer.Open(art, artSize, f)
				if err != nil {
					slog.Warn("stream: art splice failed", "path", artPath, "error", err)
				} else {
					src = spliced
					total += adj
				}
			}
		} else {
			// Mid-stream range request: skip past the spliced frame in the
			// real file, matching the adjusted offset accounting in §4.H.4.
			effectiveOffset = offset - adj
			if effectiveOffset < 0 {
				effectiveOffset = 0
			}
		}
	}

	if offset > 0 {
		if _, err := f.Seek(effectiveOffset, io.SeekStart); err != nil {
			return fmt.Errorf("stream: seek: %w", err)
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, total, total+1))
		w.Header().Set("Content-Length", strconv.FormatInt(total-offset, 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(total, 10))
		w.WriteHeader(http.StatusOK)
	}

	_, err = io.Copy(w, src)
	return err
}

func (p *Pipeline) serveTranscoded(ctx context.Context, w http.ResponseWriter, song catalog.Song, offset int64) error {
	proc, err := p.Launcher.Start(ctx, song.Path, offset, song.SongLengthMS)
	if err != nil {
		return fmt.Errorf("stream: launch transcoder: %w", err)
	}
	defer proc.Close()

	if offset > 0 {
		// The transcoder emits a fresh WAV stream, not a byte-accurate slice
		// of the original file, but clients still expect a Content-Range
		// echoing the untranscoded file_size — preserved for compatibility
		// with the original's own odd-but-documented behavior here.
		total := song.FileSize
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, total, total+1))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_, err = io.Copy(w, proc)
	return err
}

// findArt looks for cover.jpg/cover.png next to the song and returns the
// applicable splicer for the song's type, if any.
func (p *Pipeline) findArt(song catalog.Song) (ArtSplicer, string, int64) {
	var splicer ArtSplicer
	for _, s := range p.Splicers {
		if s.Applies(strings.ToLower(song.Type)) {
			splicer = s
			break
		}
	}
	if splicer == nil {
		return nil, "", 0
	}

	dir := filepath.Dir(song.Path)
	for _, name := range []string{"cover.jpg", "cover.png", "folder.jpg"} {
		full := filepath.Join(dir, name)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return splicer, full, info.Size()
		}
	}
	return nil, "", 0
}

func parseRangeOffset(header string) int64 {
	if header == "" {
		return 0
	}
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0
	}
	spec := strings.TrimPrefix(header, prefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0
	}
	n, err := strconv.ParseInt(spec[:dash], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
