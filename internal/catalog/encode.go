package catalog

import (
	"github.com/soundvault/daapd/internal/dmap"
)

// songField resolves one projection Field to its wire tag and an encode
// closure over s, or ok=false if the field has no meaningful value on a
// song row (e.g. FieldContainerCount, which only appears on browse/listing
// containers, never on an item's own mlit).
func songField(f dmap.Field, s Song) (tag string, write func(w *dmap.Writer) int, ok bool) {
	tags := f.Tags()
	if len(tags) == 0 {
		return "", nil, false
	}
	tag = tags[0]

	switch f {
	case dmap.FieldItemID:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, int32(s.ID)) }, true
	case dmap.FieldItemName:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Title) }, true
	case dmap.FieldItemKind:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.ItemKind)) }, true
	case dmap.FieldPersistentID:
		return tag, func(w *dmap.Writer) int { return w.AddLong(tag, int64(s.ID)) }, true
	case dmap.FieldSongAlbum:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Album) }, true
	case dmap.FieldSongArtist:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Artist) }, true
	case dmap.FieldSongAlbumArtist:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.AlbumArtist) }, true
	case dmap.FieldSongGenre:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Genre) }, true
	case dmap.FieldSongComment:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Comment) }, true
	case dmap.FieldSongComposer:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Composer) }, true
	case dmap.FieldSongGrouping:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.Grouping) }, true
	case dmap.FieldSongDescription:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, effectiveDescription(s)) }, true
	case dmap.FieldSongFormat:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, effectiveFormat(s)) }, true
	case dmap.FieldSongCodecType:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, fourCCToInt(s.CodecType)) }, true
	case dmap.FieldSongDataKind:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.DataKind)) }, true
	case dmap.FieldSongDataURL:
		return tag, func(w *dmap.Writer) int { return w.AddString(tag, s.URL) }, true
	case dmap.FieldSongBitrate:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(effectiveBitrate(s))) }, true
	case dmap.FieldSongSampleRate:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, int32(s.SampleRate)) }, true
	case dmap.FieldSongSize:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, int32(s.FileSize)) }, true
	case dmap.FieldSongTime:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, int32(s.SongLengthMS)) }, true
	case dmap.FieldSongYear:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(s.Year)) }, true
	case dmap.FieldSongTrackNumber:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(s.Track)) }, true
	case dmap.FieldSongTrackCount:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(s.TotalTracks)) }, true
	case dmap.FieldSongDiscNumber:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(s.Disc)) }, true
	case dmap.FieldSongDiscCount:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(s.TotalDiscs)) }, true
	case dmap.FieldSongBPM:
		return tag, func(w *dmap.Writer) int { return w.AddShort(tag, int16(s.BPM)) }, true
	case dmap.FieldSongCompilation:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.Compilation)) }, true
	case dmap.FieldSongUserRating:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.Rating)) }, true
	case dmap.FieldSongUserPlayCount:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, int32(s.PlayCount)) }, true
	case dmap.FieldSongDateAdded:
		return tag, func(w *dmap.Writer) int { return w.AddDate(tag, int32(s.TimeAdded)) }, true
	case dmap.FieldSongDateModified:
		return tag, func(w *dmap.Writer) int { return w.AddDate(tag, int32(s.TimeModified)) }, true
	case dmap.FieldSongDatePlayed:
		return tag, func(w *dmap.Writer) int { return w.AddDate(tag, int32(s.TimePlayed)) }, true
	case dmap.FieldSongDisabled:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.Disabled)) }, true
	case dmap.FieldSongContentRating:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.ContentRating)) }, true
	case dmap.FieldSongMediaKind:
		return tag, func(w *dmap.Writer) int { return w.AddInt(tag, int32(s.MediaKind)) }, true
	case dmap.FieldSongHasVideo:
		return tag, func(w *dmap.Writer) int { return w.AddByte(tag, int8(s.HasVideo)) }, true
	case dmap.FieldSongDateReleased:
		return tag, func(w *dmap.Writer) int { return w.AddDate(tag, int32(s.DateReleased)) }, true
	default:
		return "", nil, false
	}
}

// WillTranscode reports whether s will be transcoded to WAV on stream,
// exported so internal/stream can pick the direct-file or transcoder path
// without duplicating the codec table.
func WillTranscode(s Song) bool {
	return willTranscode(s)
}

// effectiveBitrate and effectiveFormat implement the transcode adjustment: if
// the song's codec indicates it will be transcoded, the bitrate is
// recomputed from the sample rate (stereo 16-bit assumption) and the
// format/description become the literal WAV strings. File size is
// deliberately left untouched.
func willTranscode(s Song) bool {
	switch s.CodecType {
	case "alac", "wma", "ogg":
		return true
	default:
		return false
	}
}

func effectiveBitrate(s Song) int {
	if willTranscode(s) {
		return s.SampleRate * 4 * 8 / 1000
	}
	return s.Bitrate
}

func effectiveFormat(s Song) string {
	if willTranscode(s) {
		return "wav"
	}
	return s.Type
}

func effectiveDescription(s Song) string {
	if willTranscode(s) {
		return "wav audio file"
	}
	return s.Description
}

func fourCCToInt(cc string) int32 {
	var b [4]byte
	copy(b[:], cc)
	return int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3])
}

// encodeRowBytes renders one song row as a complete "mlit" container,
// applying proj to select which fields appear. Used by both EnumSize (to
// measure) and EnumFetch (to emit) — the two passes share this single code
// path so their byte counts are equal by construction, not by convention.
func encodeRowBytes(s Song, proj dmap.Bitmap) []byte {
	w := dmap.NewWriter()
	w.AddContainer("mlit", func(w *dmap.Writer) {
		for _, f := range dmap.AllFields() {
			if !proj.Has(f) {
				continue
			}
			if _, write, ok := songField(f, s); ok {
				write(w)
			}
		}
	})
	return w.Bytes()
}
