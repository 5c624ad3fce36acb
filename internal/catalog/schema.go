package catalog

// schemaVersion is the current migration target. Bump it and append a new
// entry to migrations when the schema changes.
const schemaVersion = 1

const createSongs = `
CREATE TABLE IF NOT EXISTS songs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	path           TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL DEFAULT '',
	artist         TEXT NOT NULL DEFAULT '',
	album          TEXT NOT NULL DEFAULT '',
	album_artist   TEXT NOT NULL DEFAULT '',
	genre          TEXT NOT NULL DEFAULT '',
	comment        TEXT NOT NULL DEFAULT '',
	composer       TEXT NOT NULL DEFAULT '',
	orchestra      TEXT NOT NULL DEFAULT '',
	conductor      TEXT NOT NULL DEFAULT '',
	grouping       TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL DEFAULT '',
	type           TEXT NOT NULL DEFAULT '',
	codectype      TEXT NOT NULL DEFAULT '',
	item_kind      INTEGER NOT NULL DEFAULT 2,
	data_kind      INTEGER NOT NULL DEFAULT 0,
	media_kind     INTEGER NOT NULL DEFAULT 1,
	bitrate        INTEGER NOT NULL DEFAULT 0,
	samplerate     INTEGER NOT NULL DEFAULT 0,
	channels       INTEGER NOT NULL DEFAULT 2,
	song_length    INTEGER NOT NULL DEFAULT 0,
	file_size      INTEGER NOT NULL DEFAULT 0,
	year           INTEGER NOT NULL DEFAULT 0,
	date_released  INTEGER NOT NULL DEFAULT 0,
	track          INTEGER NOT NULL DEFAULT 0,
	total_tracks   INTEGER NOT NULL DEFAULT 0,
	disc           INTEGER NOT NULL DEFAULT 0,
	total_discs    INTEGER NOT NULL DEFAULT 0,
	bpm            INTEGER NOT NULL DEFAULT 0,
	compilation    INTEGER NOT NULL DEFAULT 0,
	rating         INTEGER NOT NULL DEFAULT 0,
	play_count     INTEGER NOT NULL DEFAULT 0,
	time_added     INTEGER NOT NULL DEFAULT 0,
	time_modified  INTEGER NOT NULL DEFAULT 0,
	time_played    INTEGER NOT NULL DEFAULT 0,
	db_timestamp   INTEGER NOT NULL DEFAULT 0,
	disabled       INTEGER NOT NULL DEFAULT 0,
	has_video      INTEGER NOT NULL DEFAULT 0,
	sample_count   INTEGER NOT NULL DEFAULT 0,
	force_update   INTEGER NOT NULL DEFAULT 0,
	description    TEXT NOT NULL DEFAULT '',
	idx            INTEGER NOT NULL DEFAULT 0,
	contentrating  INTEGER NOT NULL DEFAULT 0,
	artwork        INTEGER NOT NULL DEFAULT 0,
	seek           INTEGER NOT NULL DEFAULT 0,
	artist_id      INTEGER NOT NULL DEFAULT 0,
	album_id       INTEGER NOT NULL DEFAULT 0
);`

const createPlaylists = `
CREATE TABLE IF NOT EXISTS playlists (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL UNIQUE,
	type         INTEGER NOT NULL DEFAULT 0,
	item_count   INTEGER NOT NULL DEFAULT 0,
	query        TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL DEFAULT '',
	db_timestamp INTEGER NOT NULL DEFAULT 0,
	idx          INTEGER NOT NULL DEFAULT 0
);`

const createPlaylistItems = `
CREATE TABLE IF NOT EXISTS playlistitems (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL,
	song_id     INTEGER NOT NULL
);`

const createConfig = `
CREATE TABLE IF NOT EXISTS config (
	term    TEXT NOT NULL,
	subterm TEXT NOT NULL DEFAULT '',
	value   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (term, subterm)
);`

const createPathIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_songs_path ON songs(path);`

const dropPathIndex = `DROP INDEX IF EXISTS idx_songs_path;`

const createPlaylistItemsIndex = `CREATE INDEX IF NOT EXISTS idx_playlistitems_playlist ON playlistitems(playlist_id);`

// PlaylistType enumerates the playlist.type column values.
type PlaylistType int

const (
	PlaylistSmart PlaylistType = iota
	PlaylistStaticFile
	PlaylistStaticXML
	PlaylistStaticWeb
)

// LibraryPlaylistID is the immortal, always-present "Library" playlist's id.
const LibraryPlaylistID = 1
