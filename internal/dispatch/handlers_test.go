package dispatch

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/soundvault/daapd/internal/catalog"
	"github.com/soundvault/daapd/internal/dmap"
	"github.com/soundvault/daapd/internal/revision"
	"github.com/soundvault/daapd/internal/stream"
	"github.com/soundvault/daapd/internal/transcode"
)

// fakeConn is an in-memory Conn for testing handlers without a live HTTP
// round trip.
type fakeConn struct {
	headers map[string]string
	status  int
	body    []byte
	reqHdrs map[string]string
	query   map[string]string
	params  map[string]string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		headers: make(map[string]string),
		reqHdrs: make(map[string]string),
		query:   make(map[string]string),
		params:  make(map[string]string),
	}
}

func (f *fakeConn) Header(key, value string)       { f.headers[key] = value }
func (f *fakeConn) Status(code int)                { f.status = code }
func (f *fakeConn) Write(p []byte) (int, error)    { f.body = append(f.body, p...); return len(p), nil }
func (f *fakeConn) RequestHeader(key string) string { return f.reqHdrs[key] }
func (f *fakeConn) Query(key string) string        { return f.query[key] }
func (f *fakeConn) Param(key string) string        { return f.params[key] }
func (f *fakeConn) Context() context.Context       { return context.Background() }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })
	rev := revision.New()
	cat.OnWrite(func() { rev.Bump() })
	pipeline := stream.New(transcode.NewLauncher(44100, 2, "ffmpeg"))
	return NewServer(cat, rev, pipeline, "Test Library")
}

func mustAddSong(t *testing.T, cat *catalog.Catalog, s catalog.Song) int64 {
	t.Helper()
	id, err := cat.AddSong(s)
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	return id
}

func firstElement(t *testing.T, buf []byte) dmap.Element {
	t.Helper()
	el, ok, err := dmap.NewReader(buf).Next()
	if err != nil || !ok {
		t.Fatalf("expected one top-level element, err=%v ok=%v", err, ok)
	}
	return el
}

func TestServerInfoDefaultVersion(t *testing.T) {
	s := newTestServer(t)
	c := newFakeConn()
	ServerInfo(s, c)

	el := firstElement(t, c.body)
	if el.Tag != "msrv" {
		t.Fatalf("got tag %q", el.Tag)
	}
}

func TestServerInfoEchoesClientVersion(t *testing.T) {
	s := newTestServer(t)
	c := newFakeConn()
	c.reqHdrs["Client-DAAP-Version"] = "3.10"
	ServerInfo(s, c)

	r := dmap.NewReader(firstElement(t, c.body).Payload)
	for {
		el, ok, err := r.Next()
		if err != nil || !ok {
			t.Fatalf("apro element not found")
		}
		if el.Tag == "apro" {
			if len(el.Payload) != 4 || el.Payload[1] != 3 || el.Payload[2] != 10 {
				t.Fatalf("got apro payload %v", el.Payload)
			}
			return
		}
	}
}

func TestContentCodesListsRegisteredTags(t *testing.T) {
	s := newTestServer(t)
	c := newFakeConn()
	ContentCodes(s, c)

	el := firstElement(t, c.body)
	if el.Tag != "mccr" {
		t.Fatalf("got tag %q", el.Tag)
	}
}

func TestLoginAllocatesIncreasingSessionIDs(t *testing.T) {
	s := newTestServer(t)

	c1 := newFakeConn()
	Login(s, c1)
	c2 := newFakeConn()
	Login(s, c2)

	id1 := sessionIDFromLogin(t, c1.body)
	id2 := sessionIDFromLogin(t, c2.body)
	if id2 <= id1 {
		t.Fatalf("expected increasing session ids, got %d then %d", id1, id2)
	}
}

func sessionIDFromLogin(t *testing.T, buf []byte) int32 {
	t.Helper()
	r := dmap.NewReader(firstElement(t, buf).Payload)
	for {
		el, ok, err := r.Next()
		if err != nil || !ok {
			t.Fatalf("mlid not found")
		}
		if el.Tag == "mlid" {
			var v int32
			for _, b := range el.Payload {
				v = v<<8 | int32(b)
			}
			return v
		}
	}
}

func TestLogoutReturns204(t *testing.T) {
	s := newTestServer(t)
	c := newFakeConn()
	c.query["session-id"] = "1"
	Logout(s, c)
	if c.status != 204 {
		t.Fatalf("got status %d", c.status)
	}
}

func TestItemsEndToEnd(t *testing.T) {
	s := newTestServer(t)
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/a.mp3", Title: "A", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/b.mp3", Title: "B", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/c.mp3", Title: "C", Type: "mp3"})

	c := newFakeConn()
	c.query["meta"] = "dmap.itemid,dmap.itemname"
	Items(s, c)

	outer := firstElement(t, c.body)
	if outer.Tag != "adbs" {
		t.Fatalf("got outer tag %q", outer.Tag)
	}
	r := dmap.NewReader(outer.Payload)
	var mtco, mrco int32
	var rows int
	for {
		el, ok, err := r.Next()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if !ok {
			break
		}
		switch el.Tag {
		case "mtco":
			mtco = int32FromBytes(el.Payload)
		case "mrco":
			mrco = int32FromBytes(el.Payload)
		case "mlcl":
			inner := dmap.NewReader(el.Payload)
			for {
				item, ok, err := inner.Next()
				if err != nil || !ok {
					break
				}
				rows++
				fieldCount := 0
				fr := dmap.NewReader(item.Payload)
				for {
					_, ok, err := fr.Next()
					if err != nil || !ok {
						break
					}
					fieldCount++
				}
				if fieldCount != 2 {
					t.Fatalf("expected 2 fields per row, got %d", fieldCount)
				}
			}
		}
	}
	if mtco != 3 || mrco != 3 {
		t.Fatalf("got mtco=%d mrco=%d", mtco, mrco)
	}
	if rows != 3 {
		t.Fatalf("got %d rows", rows)
	}
}

func TestBrowseArtistsReturnsDistinctBareStrings(t *testing.T) {
	s := newTestServer(t)
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/a.mp3", Artist: "Beatles", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/b.mp3", Artist: "Beatles", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/c.mp3", Artist: "Stones", Type: "mp3"})

	c := newFakeConn()
	c.params["axis"] = "artists"
	Browse(s, c)

	outer := firstElement(t, c.body)
	if outer.Tag != "abro" {
		t.Fatalf("got outer tag %q", outer.Tag)
	}
	r := dmap.NewReader(outer.Payload)
	var artists []string
	for {
		el, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		if el.Tag == "abar" {
			inner := dmap.NewReader(el.Payload)
			for {
				item, ok, err := inner.Next()
				if err != nil || !ok {
					break
				}
				artists = append(artists, string(item.Payload))
			}
		}
	}
	if len(artists) != 2 {
		t.Fatalf("got artists %v", artists)
	}
}

func TestContainerItemsOnSmartPlaylist(t *testing.T) {
	s := newTestServer(t)
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/a.mp3", Artist: "Beatles", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/b.mp3", Artist: "Stones", Type: "mp3"})

	pid, err := s.Catalog.CreatePlaylist(catalog.Playlist{
		Title: "Beatles only",
		Type:  catalog.PlaylistSmart,
		Query: `daap.songartist is "Beatles"`,
	})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	c := newFakeConn()
	c.params["pid"] = itoa(pid)
	ContainerItems(s, c)

	outer := firstElement(t, c.body)
	if outer.Tag != "apso" {
		t.Fatalf("got outer tag %q", outer.Tag)
	}
	r := dmap.NewReader(outer.Payload)
	var mrco int32
	for {
		el, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		if el.Tag == "mrco" {
			mrco = int32FromBytes(el.Payload)
		}
	}
	if mrco != 1 {
		t.Fatalf("got mrco=%d", mrco)
	}
}

func TestContainersReportsCachedItemCount(t *testing.T) {
	s := newTestServer(t)
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/a.mp3", Artist: "Beatles", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/b.mp3", Artist: "Stones", Type: "mp3"})

	pid, err := s.Catalog.CreatePlaylist(catalog.Playlist{
		Title: "Beatles only",
		Type:  catalog.PlaylistSmart,
		Query: `daap.songartist is "Beatles"`,
	})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	c := newFakeConn()
	Containers(s, c)

	outer := firstElement(t, c.body)
	if outer.Tag != "aply" {
		t.Fatalf("got outer tag %q", outer.Tag)
	}
	r := dmap.NewReader(outer.Payload)
	var mimc int32
	found := false
	for {
		el, ok, err := r.Next()
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		if !ok {
			break
		}
		if el.Tag != "mlcl" {
			continue
		}
		inner := dmap.NewReader(el.Payload)
		for {
			item, ok, err := inner.Next()
			if err != nil || !ok {
				break
			}
			ir := dmap.NewReader(item.Payload)
			var miid int32
			var itemMimc int32
			for {
				f, ok, err := ir.Next()
				if err != nil || !ok {
					break
				}
				switch f.Tag {
				case "miid":
					miid = int32FromBytes(f.Payload)
				case "mimc":
					itemMimc = int32FromBytes(f.Payload)
				}
			}
			if int64(miid) == pid {
				mimc = itemMimc
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("playlist %d not found in containers listing", pid)
	}
	if mimc != 1 {
		t.Fatalf("got mimc=%d, want 1", mimc)
	}
}

func TestUpdateBlocksThenWakesOnBump(t *testing.T) {
	s := newTestServer(t)
	cur := s.Revision.Current()

	c := newFakeConn()
	c.query["revision-number"] = itoa(cur)

	done := make(chan struct{})
	go func() {
		Update(s, c)
		close(done)
	}()

	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/a.mp3", Type: "mp3"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update handler did not wake on revision bump")
	}

	outer := firstElement(t, c.body)
	if outer.Tag != "mupd" {
		t.Fatalf("got tag %q", outer.Tag)
	}
}

func TestDatabaseInfoReportsCounts(t *testing.T) {
	s := newTestServer(t)
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/a.mp3", Type: "mp3"})
	mustAddSong(t, s.Catalog, catalog.Song{Path: "/m/b.mp3", Type: "mp3"})

	c := newFakeConn()
	c.params["id"] = "1"
	DatabaseInfo(s, c)

	outer := firstElement(t, c.body)
	r := dmap.NewReader(outer.Payload)
	for {
		el, ok, err := r.Next()
		if err != nil || !ok {
			break
		}
		if el.Tag == "mlcl" {
			item, ok, err := dmap.NewReader(el.Payload).Next()
			if err != nil || !ok {
				t.Fatalf("expected one mlit")
			}
			ir := dmap.NewReader(item.Payload)
			for {
				f, ok, err := ir.Next()
				if err != nil || !ok {
					break
				}
				if f.Tag == "mimc" && int32FromBytes(f.Payload) != 2 {
					t.Fatalf("got song count %d", int32FromBytes(f.Payload))
				}
			}
		}
	}
}

func TestXMLOutputRendersNestedElements(t *testing.T) {
	s := newTestServer(t)
	c := newFakeConn()
	c.query["output"] = "xml"
	ServerInfo(s, c)

	if c.headers["Content-Type"] != "text/xml; charset=utf-8" {
		t.Fatalf("got content-type %q", c.headers["Content-Type"])
	}
	if c.headers["Connection"] != "close" {
		t.Fatalf("expected forced connection close")
	}
	if _, present := c.headers["Content-Length"]; present {
		t.Fatalf("xml output must not pre-declare Content-Length")
	}
	if len(c.body) == 0 {
		t.Fatalf("expected a non-empty xml body")
	}
}

func int32FromBytes(b []byte) int32 {
	var v int32
	for _, x := range b {
		v = v<<8 | int32(x)
	}
	return v
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
