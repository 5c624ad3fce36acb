package dispatch

import (
	"github.com/soundvault/daapd/internal/catalog"
	"github.com/soundvault/daapd/internal/mdns"
	"github.com/soundvault/daapd/internal/queue"
	"github.com/soundvault/daapd/internal/revision"
	"github.com/soundvault/daapd/internal/stream"
)

// Server holds every piece of shared state the running daemon needs: the
// catalog, the revision bus, the streaming pipeline, the allocated-session
// table, the playback queue, and (once mDNS startup succeeds) the discovery
// responder. One Server is constructed by cmd/daapd/main.go and passed to
// NewRouter; tests construct independent Servers against independent
// catalogs. The queue and responder have no HTTP surface of their own in
// this URL grammar — they're bundled here so the whole running daemon's
// state lives behind one value instead of being scattered across globals.
type Server struct {
	Catalog     *catalog.Catalog
	Revision    *revision.Bus
	Stream      *stream.Pipeline
	Queue       *queue.Queue
	Responder   *mdns.Responder
	LibraryName string

	sessions *sessionTable
}

// NewServer wires a catalog, revision bus, and streaming pipeline into a
// dispatch Server, along with a fresh playback queue. libraryName is
// advertised in server-info as the library/database's display name. The
// mDNS responder is optional and attached afterward via SetResponder, since
// its construction can fail independently of everything else starting up.
func NewServer(cat *catalog.Catalog, rev *revision.Bus, pipeline *stream.Pipeline, libraryName string) *Server {
	return &Server{
		Catalog:     cat,
		Revision:    rev,
		Stream:      pipeline,
		Queue:       queue.New(),
		LibraryName: libraryName,
		sessions:    newSessionTable(),
	}
}

// SetResponder attaches the mDNS responder once it's started, for lifecycle
// purposes (the responder outlives individual requests, same as everything
// else on Server).
func (s *Server) SetResponder(r *mdns.Responder) {
	s.Responder = r
}
