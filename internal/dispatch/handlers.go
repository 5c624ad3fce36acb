package dispatch

import (
	"strconv"
	"strings"
	"time"

	"github.com/soundvault/daapd/internal/catalog"
	"github.com/soundvault/daapd/internal/dmap"
)

const (
	protoMajorMDAP, protoMinorMDAP, protoPatchMDAP = 2, 0, 0
	protoMajorDAAP, protoMinorDAAP, protoPatchDAAP = 3, 12, 2
)

// ServerInfo handles GET /server-info: a mostly-constant record, with the
// protocol version fields echoed back according to the client's declared
// Client-DAAP-Version header when present.
func ServerInfo(s *Server, c Conn) {
	mpro := [3]uint8{protoMajorMDAP, protoMinorMDAP, protoPatchMDAP}
	apro := [3]uint8{protoMajorDAAP, protoMinorDAAP, protoPatchDAAP}
	if v := c.RequestHeader("Client-DAAP-Version"); v != "" {
		if major, minor, ok := parseClientVersion(v); ok {
			apro = [3]uint8{major, minor, 0}
		}
	}

	w := dmap.NewWriter()
	w.AddContainer("msrv", func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		w.AddVersion("mpro", mpro[0], mpro[1], mpro[2])
		w.AddVersion("apro", apro[0], apro[1], apro[2])
		w.AddString("minm", s.LibraryName)
		w.AddByte("mslr", 0)
		w.AddInt("mstm", 1800)
		w.AddByte("msal", 0)
		w.AddByte("msau", 0)
		w.AddByte("msex", 0)
		w.AddByte("msup", 1)
		w.AddByte("mspi", 1)
		w.AddByte("msix", 1)
		w.AddByte("msbr", 1)
		w.AddByte("msqy", 1)
		w.AddByte("msrs", 0)
		w.AddInt("msdc", 1)
	})
	writeDMAP(c, w.Bytes())
}

// parseClientVersion reads a "X.Y" (or "X.Y.Z") Client-DAAP-Version header.
func parseClientVersion(v string) (major, minor uint8, ok bool) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || maj < 0 || maj > 255 || min < 0 || min > 255 {
		return 0, 0, false
	}
	return uint8(maj), uint8(min), true
}

// ContentCodes handles GET /content-codes: a dump of the full tag registry.
func ContentCodes(s *Server, c Conn) {
	w := dmap.NewWriter()
	w.AddContainer("mccr", func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		for _, tag := range dmap.Tags() {
			typ, _ := dmap.TagType(tag)
			desc, _ := dmap.TagDescription(tag)
			w.AddContainer("mdcl", func(w *dmap.Writer) {
				w.AddString("mcnm", tag)
				w.AddString("mcna", desc)
				w.AddShort("mcty", int16(typ))
			})
		}
	})
	writeDMAP(c, w.Bytes())
}

// Login handles GET /login: allocates a session id and returns it.
func Login(s *Server, c Conn) {
	id := s.sessions.allocate()
	w := dmap.NewWriter()
	w.AddContainer("mlog", func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		w.AddInt("mlid", id)
	})
	writeDMAP(c, w.Bytes())
}

// Logout handles GET /logout: drops the session and replies 204.
func Logout(s *Server, c Conn) {
	if raw := c.Query("session-id"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			s.sessions.drop(int32(n))
		}
	}
	c.Status(204)
}

// Update handles GET /update: the long-poll on the revision counter.
func Update(s *Server, c Conn) {
	since, _ := strconv.ParseInt(c.Query("revision-number"), 10, 64)
	if since == 0 {
		since = 1
	}

	rev, changed := s.Revision.Wait(c.Context(), since, 30*time.Second)
	if !changed {
		// Either the client hung up or the long poll timed out with nothing
		// new to report; the original implementation writes nothing in
		// either case and lets the connection close.
		return
	}

	w := dmap.NewWriter()
	w.AddContainer("mupd", func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		w.AddInt("musr", int32(rev))
	})
	writeDMAP(c, w.Bytes())
}

// Databases handles GET /databases: the one-database list.
func Databases(s *Server, c Conn) {
	w := dmap.NewWriter()
	w.AddContainer("avdb", func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		w.AddInt("muty", 0)
		w.AddInt("mtco", 1)
		w.AddInt("mrco", 1)
		w.AddContainer("mlcl", func(w *dmap.Writer) {
			w.AddContainer("mlit", func(w *dmap.Writer) {
				w.AddInt("miid", 1)
				w.AddString("minm", s.LibraryName)
			})
		})
	})
	writeDMAP(c, w.Bytes())
}

// DatabaseInfo handles GET /databases/<id>: song and playlist counts. This
// doesn't fit the cursor/enumeration machinery — it's one fixed-shape row,
// not a predicate-driven scan — so it bypasses EnumBegin/EnumSize/EnumFetch
// entirely and reads catalog.Stats directly.
func DatabaseInfo(s *Server, c Conn) {
	stats, err := s.Catalog.Stats()
	if err != nil {
		writeError(c, err)
		return
	}
	w := dmap.NewWriter()
	w.AddContainer("adbs", func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		w.AddInt("muty", 0)
		w.AddInt("mtco", 1)
		w.AddInt("mrco", 1)
		w.AddContainer("mlcl", func(w *dmap.Writer) {
			w.AddContainer("mlit", func(w *dmap.Writer) {
				w.AddInt("miid", 1)
				w.AddString("minm", s.LibraryName)
				w.AddInt("mimc", int32(stats.SongCount))
				w.AddInt("mctc", int32(stats.PlaylistCount))
			})
		})
	})
	writeDMAP(c, w.Bytes())
}

// Items handles GET /databases/<id>/items: the song listing.
func Items(s *Server, c Conn) {
	pred, err := parsePredicate(c)
	if err != nil {
		c.Status(400)
		return
	}
	d := catalog.Descriptor{
		Type:       catalog.QueryItems,
		Predicate:  pred,
		Projection: parseProjection(c.Query("meta")),
	}
	parseIndex(c.Query("index"), &d)
	writeListing(s, c, d, "adbs", "mlcl")
}

// Containers handles GET /databases/<id>/containers: the playlist listing.
func Containers(s *Server, c Conn) {
	pred, err := parsePredicate(c)
	if err != nil {
		c.Status(400)
		return
	}
	d := catalog.Descriptor{
		Type:      catalog.QueryPlaylists,
		Predicate: pred,
	}
	parseIndex(c.Query("index"), &d)
	writeListing(s, c, d, "aply", "mlcl")
}

// ContainerItems handles GET /databases/<id>/containers/<pid>/items: the
// songs belonging to one playlist.
func ContainerItems(s *Server, c Conn) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		c.Status(400)
		return
	}
	pred, err := parsePredicate(c)
	if err != nil {
		c.Status(400)
		return
	}
	d := catalog.Descriptor{
		Type:       catalog.QueryPlaylistItems,
		PlaylistID: pid,
		Predicate:  pred,
		Projection: parseProjection(c.Query("meta")),
	}
	parseIndex(c.Query("index"), &d)
	writeListing(s, c, d, "apso", "mlcl")
}

var browseAxes = map[string]struct {
	queryType catalog.QueryType
	tag       string
}{
	"artists":   {catalog.QueryBrowseArtists, "abar"},
	"albums":    {catalog.QueryBrowseAlbums, "abal"},
	"genres":    {catalog.QueryBrowseGenres, "abgn"},
	"composers": {catalog.QueryBrowseComposers, "abcp"},
}

// Browse handles GET /databases/<id>/browse/<axis>.
func Browse(s *Server, c Conn) {
	axis, ok := browseAxes[c.Param("axis")]
	if !ok {
		c.Status(400)
		return
	}
	pred, err := parsePredicate(c)
	if err != nil {
		c.Status(400)
		return
	}
	d := catalog.Descriptor{
		Type:      axis.queryType,
		Predicate: pred,
	}
	parseIndex(c.Query("index"), &d)
	writeListing(s, c, d, "abro", axis.tag)
}
