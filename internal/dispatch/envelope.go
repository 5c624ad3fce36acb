package dispatch

import (
	"strconv"
	"strings"

	"github.com/soundvault/daapd/internal/catalog"
	"github.com/soundvault/daapd/internal/catalogerr"
	"github.com/soundvault/daapd/internal/dmap"
	"github.com/soundvault/daapd/internal/query"
)

// writeDMAP finalizes a response: DMAP bytes by default, or the XML
// alternate rendering when output=xml or output=readable is present.
func writeDMAP(c Conn, buf []byte) {
	if mode := c.Query("output"); mode == "xml" || mode == "readable" {
		writeXML(c, buf)
		return
	}
	c.Header("Content-Type", "application/x-dmap-tagged")
	c.Header("Content-Length", strconv.Itoa(len(buf)))
	c.Status(200)
	c.Write(buf)
}

// writeError maps a catalog error to an HTTP status and writes an empty
// body; there is no DMAP error envelope in the wire format, only status
// codes.
func writeError(c Conn, err error) {
	switch catalogerr.KindOf(err) {
	case catalogerr.KindNotFound:
		c.Status(404)
	case catalogerr.KindInvalidArgument:
		c.Status(400)
	case catalogerr.KindBusy:
		c.Status(503)
	default:
		c.Status(500)
	}
}

// parseIndex reads the `index=` query parameter and fills in a Descriptor's
// Index/IndexLow/IndexHigh fields. Three forms are accepted, matching the
// DAAP clients actually send: "N" (first N), "-N" (last N), "A-B" (the
// inclusive range [A, B]). An absent or malformed value leaves IndexNone.
func parseIndex(raw string, d *catalog.Descriptor) {
	if raw == "" {
		return
	}
	if strings.HasPrefix(raw, "-") {
		n, err := strconv.Atoi(raw[1:])
		if err != nil {
			return
		}
		d.Index = catalog.IndexLastN
		d.IndexHigh = n
		return
	}
	if lo, hi, ok := strings.Cut(raw, "-"); ok {
		low, err1 := strconv.Atoi(lo)
		high, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			return
		}
		d.Index = catalog.IndexSub
		d.IndexLow = low
		d.IndexHigh = high + 1
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	d.Index = catalog.IndexFirstN
	d.IndexHigh = n
}

// parseProjection reads the `meta=` query parameter, falling back to
// dmap.DefaultItemsProjection when absent, per §8's boundary behavior.
func parseProjection(raw string) dmap.Bitmap {
	if raw == "" {
		return dmap.DefaultItemsProjection
	}
	return dmap.ParseProjection(strings.Split(raw, ","))
}

// parsePredicate reads the `query=` or `filter=` parameter (either name is
// accepted; clients are inconsistent about which they send) into a
// query.Expr, defaulting to match-all.
func parsePredicate(c Conn) (query.Expr, error) {
	raw := c.Query("query")
	if raw == "" {
		raw = c.Query("filter")
	}
	if raw == "" {
		return query.True{}, nil
	}
	return query.Parse(raw)
}

// writeListing runs the two-pass enumeration sequence against d and wraps
// the rows in outerTag > listingTag, per §4.F's envelope shape.
func writeListing(s *Server, c Conn, d catalog.Descriptor, outerTag, listingTag string) {
	cursorID, err := s.Catalog.EnumBegin(d)
	if err != nil {
		writeError(c, err)
		return
	}
	defer s.Catalog.EnumEnd(cursorID)

	rowCount, _, err := s.Catalog.EnumSize(cursorID)
	if err != nil {
		writeError(c, err)
		return
	}

	w := dmap.NewWriter()
	w.AddContainer(outerTag, func(w *dmap.Writer) {
		w.AddInt("mstt", 200)
		w.AddByte("muty", 0)
		w.AddInt("mtco", int32(rowCount))
		w.AddInt("mrco", int32(rowCount))
		w.AddContainer(listingTag, func(w *dmap.Writer) {
			for {
				row, ok, err := s.Catalog.EnumFetch(cursorID)
				if err != nil || !ok {
					break
				}
				w.AddRaw(row)
			}
		})
	})
	writeDMAP(c, w.Bytes())
}
