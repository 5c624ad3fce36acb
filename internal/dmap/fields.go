package dmap

// Field is a bit position in the 64-bit projection bitmap the dispatcher
// builds from a client's comma-separated `meta=` parameter.
type Field uint

const (
	FieldItemID Field = iota
	FieldItemName
	FieldItemKind
	FieldPersistentID
	FieldSongAlbum
	FieldSongArtist
	FieldSongAlbumArtist
	FieldSongGenre
	FieldSongComment
	FieldSongComposer
	FieldSongGrouping
	FieldSongDescription
	FieldSongFormat
	FieldSongCodecType
	FieldSongDataKind
	FieldSongDataURL
	FieldSongBitrate
	FieldSongSampleRate
	FieldSongSize
	FieldSongTime
	FieldSongYear
	FieldSongTrackNumber
	FieldSongTrackCount
	FieldSongDiscNumber
	FieldSongDiscCount
	FieldSongBPM
	FieldSongCompilation
	FieldSongUserRating
	FieldSongUserPlayCount
	FieldSongDateAdded
	FieldSongDateModified
	FieldSongDatePlayed
	FieldSongDisabled
	FieldSongContentRating
	FieldSongMediaKind
	FieldSongHasVideo
	FieldSongDateReleased
	FieldContainerCount
	fieldCount
)

// Bitmap is a set of Fields.
type Bitmap uint64

// Set returns a new Bitmap with f added.
func (b Bitmap) Set(f Field) Bitmap { return b | (1 << f) }

// Has reports whether f is a member.
func (b Bitmap) Has(f Field) bool { return b&(1<<f) != 0 }

// fieldMeta associates a projection Field with the DMAP tag(s) it emits and
// the client-visible `meta=` name that selects it.
type fieldMeta struct {
	MetaName string
	Tags     []string // tags emitted, in order, when the field is selected
}

var fieldRegistry = map[Field]fieldMeta{
	FieldItemID:            {"dmap.itemid", []string{"miid"}},
	FieldItemName:          {"dmap.itemname", []string{"minm"}},
	FieldItemKind:          {"dmap.itemkind", []string{"mikd"}},
	FieldPersistentID:      {"dmap.persistentid", []string{"mper"}},
	FieldSongAlbum:         {"daap.songalbum", []string{"asal"}},
	FieldSongArtist:        {"daap.songartist", []string{"asar"}},
	FieldSongAlbumArtist:   {"daap.songalbumartist", []string{"asaa"}},
	FieldSongGenre:         {"daap.songgenre", []string{"asgn"}},
	FieldSongComment:       {"daap.songcomment", []string{"ascm"}},
	FieldSongComposer:      {"daap.songcomposer", []string{"ascp"}},
	FieldSongGrouping:      {"daap.songgrouping", []string{"agrp"}},
	FieldSongDescription:   {"daap.songdescription", []string{"asdt"}},
	FieldSongFormat:        {"daap.songformat", []string{"asfm"}},
	FieldSongCodecType:     {"daap.songcodectype", []string{"ascd"}},
	FieldSongDataKind:      {"daap.songdatakind", []string{"asdk"}},
	FieldSongDataURL:       {"daap.songdataurl", []string{"asul"}},
	FieldSongBitrate:       {"daap.songbitrate", []string{"asbr"}},
	FieldSongSampleRate:    {"daap.songsamplerate", []string{"assr"}},
	FieldSongSize:          {"daap.songsize", []string{"assz"}},
	FieldSongTime:          {"daap.songtime", []string{"astm"}},
	FieldSongYear:          {"daap.songyear", []string{"asyr"}},
	FieldSongTrackNumber:   {"daap.songtracknumber", []string{"astn"}},
	FieldSongTrackCount:    {"daap.songtrackcount", []string{"astc"}},
	FieldSongDiscNumber:    {"daap.songdiscnumber", []string{"asdn"}},
	FieldSongDiscCount:     {"daap.songdisccount", []string{"asdc"}},
	FieldSongBPM:           {"daap.songbeatsperminute", []string{"asbt"}},
	FieldSongCompilation:   {"daap.songcompilation", []string{"asco"}},
	FieldSongUserRating:    {"daap.songuserrating", []string{"asur"}},
	FieldSongUserPlayCount: {"daap.songuserplaycount", []string{"asuc"}},
	FieldSongDateAdded:     {"daap.songdateadded", []string{"asda"}},
	FieldSongDateModified:  {"daap.songdatemodified", []string{"asdm"}},
	FieldSongDatePlayed:    {"daap.songdateplayed", []string{"asdp"}},
	FieldSongDisabled:      {"daap.songdisabled", []string{"asdb"}},
	FieldSongContentRating: {"daap.songcontentrating", []string{"asvc"}},
	FieldSongMediaKind:     {"com.apple.itunes.mediakind", []string{"aeMK"}},
	FieldSongHasVideo:      {"com.apple.itunes.has-video", []string{"aeHV"}},
	FieldSongDateReleased:  {"daap.songdatereleased", []string{"asdr"}},
	FieldContainerCount:    {"dmap.itemcount", []string{"mimc"}},
}

var metaNameToField map[string]Field

func init() {
	metaNameToField = make(map[string]Field, len(fieldRegistry))
	for f, m := range fieldRegistry {
		metaNameToField[m.MetaName] = f
	}
}

// DefaultItemsProjection is used when a request supplies no `meta=`
// parameter at all, per §8's boundary behavior: a missing or zero-length
// meta selects the implementation's default projection, not the empty one.
var DefaultItemsProjection = Bitmap(0).
	Set(FieldItemKind).
	Set(FieldItemID).
	Set(FieldItemName).
	Set(FieldPersistentID).
	Set(FieldSongAlbum).
	Set(FieldSongArtist).
	Set(FieldSongBitrate).
	Set(FieldSongDataKind).
	Set(FieldSongDataURL).
	Set(FieldSongFormat).
	Set(FieldSongGenre).
	Set(FieldSongSampleRate).
	Set(FieldSongSize).
	Set(FieldSongTime).
	Set(FieldSongTrackNumber)

// ParseProjection decodes a comma-separated list of client-visible DMAP
// field names into a Bitmap. An unknown name is silently ignored (owntone
// does the same — clients sometimes probe for fields a server doesn't
// support).
func ParseProjection(names []string) Bitmap {
	var b Bitmap
	for _, n := range names {
		if f, ok := metaNameToField[n]; ok {
			b = b.Set(f)
		}
	}
	return b
}

// Tags returns the wire tags a field emits, in registry order.
func (f Field) Tags() []string {
	return fieldRegistry[f].Tags
}

// AllFields returns every Field in the registry, in a stable order, for
// iteration during encode/size passes.
func AllFields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		if _, ok := fieldRegistry[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
