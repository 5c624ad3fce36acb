package dispatch

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/soundvault/daapd/internal/dmap"
)

// writeXML renders an already-built DMAP byte tree as XML instead of the
// tagged binary wire format. It walks the tree with dmap.Reader: containers
// become nested elements, strings become text, numbers become decimal
// text, and byte payloads of unregistered type fall back to dotted-quad (4
// bytes) or hex. Content-Length is never pre-declared and the connection is
// closed after the response, per the alternate-output contract.
func writeXML(c Conn, buf []byte) {
	c.Header("Content-Type", "text/xml; charset=utf-8")
	c.Header("Connection", "close")
	c.Status(200)

	enc := xml.NewEncoder(directWriter{c})
	enc.Indent("", "  ")
	_ = encodeElements(enc, buf)
	_ = enc.Flush()
}

// directWriter adapts Conn to io.Writer for the xml.Encoder.
type directWriter struct{ c Conn }

func (d directWriter) Write(p []byte) (int, error) { return d.c.Write(p) }

func encodeElements(enc *xml.Encoder, buf []byte) error {
	r := dmap.NewReader(buf)
	for {
		el, ok, err := r.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := encodeElement(enc, el); err != nil {
			return err
		}
	}
}

func encodeElement(enc *xml.Encoder, el dmap.Element) error {
	start := xml.StartElement{Name: xml.Name{Local: el.Tag}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch el.Type {
	case dmap.TypeContainer:
		if err := encodeElements(enc, el.Payload); err != nil {
			return err
		}
	case dmap.TypeString:
		if err := enc.EncodeToken(xml.CharData(el.Payload)); err != nil {
			return err
		}
	case dmap.TypeByte, dmap.TypeUByte, dmap.TypeShort, dmap.TypeInt, dmap.TypeLong, dmap.TypeDate:
		if err := enc.EncodeToken(xml.CharData(decimalText(el.Payload))); err != nil {
			return err
		}
	case dmap.TypeVersion:
		if err := enc.EncodeToken(xml.CharData(versionText(el.Payload))); err != nil {
			return err
		}
	default:
		if err := enc.EncodeToken(xml.CharData(rawBytesText(el.Payload))); err != nil {
			return err
		}
	}

	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

func decimalText(payload []byte) []byte {
	var v int64
	for _, b := range payload {
		v = v<<8 | int64(b)
	}
	// Sign-extend single/double-byte fields so negative bytes/shorts render
	// correctly rather than as their unsigned magnitude.
	switch len(payload) {
	case 1:
		v = int64(int8(v))
	case 2:
		v = int64(int16(v))
	case 4:
		v = int64(int32(v))
	}
	return []byte(strconv.FormatInt(v, 10))
}

func versionText(payload []byte) []byte {
	if len(payload) != 4 {
		return rawBytesText(payload)
	}
	major := int(payload[0])<<8 | int(payload[1])
	minor := int(payload[2])
	patch := int(payload[3])
	return []byte(fmt.Sprintf("%d.%d.%d", major, minor, patch))
}

func rawBytesText(payload []byte) []byte {
	if len(payload) == 4 {
		return []byte(fmt.Sprintf("%d.%d.%d.%d", payload[0], payload[1], payload[2], payload[3]))
	}
	return []byte(hex.EncodeToString(payload))
}
