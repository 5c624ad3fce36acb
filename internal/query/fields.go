// Package query implements the client `query=`/`filter=` expression grammar
// (a closed-field comparison language joined by AND/OR) and lowers it to a
// storage-engine predicate. The smart-playlist grammar in the sibling
// package query/smart lowers to the same Expr tree via the FieldRegistry
// defined here.
package query

import "fmt"

// ColumnType is the storage type a field's SQL column holds.
type ColumnType int

const (
	ColString ColumnType = iota
	ColInt
)

// FieldInfo maps one client-visible DMAP field name to its storage column.
type FieldInfo struct {
	Column string
	Type   ColumnType
}

// FieldRegistry is the closed set of fields the query grammar accepts.
// Unknown fields fail the parse, per §4.C.
var FieldRegistry = map[string]FieldInfo{
	"dmap.itemid":             {"id", ColInt},
	"dmap.itemname":           {"title", ColString},
	"dmap.persistentid":       {"id", ColInt},
	"daap.songalbum":          {"album", ColString},
	"daap.songartist":         {"artist", ColString},
	"daap.songalbumartist":    {"album_artist", ColString},
	"daap.songgenre":          {"genre", ColString},
	"daap.songcomment":        {"comment", ColString},
	"daap.songcomposer":       {"composer", ColString},
	"daap.songgrouping":       {"grouping", ColString},
	"daap.songdescription":    {"description", ColString},
	"daap.songformat":         {"type", ColString},
	"daap.songdatakind":       {"data_kind", ColInt},
	"daap.songbitrate":        {"bitrate", ColInt},
	"daap.songsamplerate":     {"samplerate", ColInt},
	"daap.songsize":           {"file_size", ColInt},
	"daap.songtime":           {"song_length", ColInt},
	"daap.songyear":           {"year", ColInt},
	"daap.songtracknumber":    {"track", ColInt},
	"daap.songtrackcount":     {"total_tracks", ColInt},
	"daap.songdiscnumber":     {"disc", ColInt},
	"daap.songdisccount":      {"total_discs", ColInt},
	"daap.songbeatsperminute": {"bpm", ColInt},
	"daap.songcompilation":    {"compilation", ColInt},
	"daap.songuserrating":     {"rating", ColInt},
	"daap.songuserplaycount":  {"play_count", ColInt},
	"daap.songdateadded":      {"time_added", ColInt},
	"daap.songdatemodified":   {"time_modified", ColInt},
	"daap.songdateplayed":     {"time_played", ColInt},
	"daap.songdisabled":       {"disabled", ColInt},
	"daap.songdataurl":        {"url", ColString},
}

// LookupField returns the column info for a client-visible field name, or an
// error if the field is unknown (a closed registry, per §4.C).
func LookupField(name string) (FieldInfo, error) {
	info, ok := FieldRegistry[name]
	if !ok {
		return FieldInfo{}, fmt.Errorf("query: unknown field %q", name)
	}
	return info, nil
}
