// Package mdns implements a link-local DNS-SD responder: it multicasts on
// 224.0.0.251:5353, answers queries about this host's advertised services,
// and probes/announces its own records per RFC 6762. It is built on
// golang.org/x/net/ipv4 for multicast socket control, the way the rest of
// this corpus reaches for x/net rather than hand-rolling syscalls, and
// reuses internal/dmap/name for RFC 1035 label framing.
package mdns

import (
	"encoding/binary"
	"errors"

	"github.com/soundvault/daapd/internal/dmap/name"
)

// RRType enumerates the record types this responder understands.
type RRType uint16

const (
	TypeA     RRType = 1
	TypeCNAME RRType = 5
	TypePTR   RRType = 12
	TypeTXT   RRType = 16
	TypeSRV   RRType = 33
	TypeANY   RRType = 255
)

// ClassIN is the only record class this responder advertises or answers.
const ClassIN uint16 = 1

// CacheFlushBit is the top bit of the class field, set on unique records.
const CacheFlushBit uint16 = 0x8000

var ErrMalformedMessage = errors.New("mdns: malformed message")

// Question is a parsed question-section entry.
type Question struct {
	Name  string
	Type  RRType
	Class uint16 // top bit set means "unicast response requested"
}

func (q Question) wantsUnicastResponse() bool { return q.Class&0x8000 != 0 }

// SRVData holds the RDATA fields of an SRV record.
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

// Record is one resource record, parsed or about to be emitted.
type Record struct {
	Name  string
	Type  RRType
	Class uint16 // includes the cache-flush bit when set
	TTL   uint32

	// Exactly one of these is populated depending on Type.
	A     [4]byte
	PTR   string
	TXT   []string
	SRV   SRVData
	CNAME string
}

func (r Record) CacheFlush() bool { return r.Class&CacheFlushBit != 0 }
func (r Record) ClassOnly() uint16 { return r.Class &^ CacheFlushBit }

// Message is a parsed mDNS/DNS message: header flags plus the four
// sections. Only the fields this responder needs are retained.
type Message struct {
	ID          uint16
	Response    bool
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

// header field offsets, RFC 1035 §4.1.1.
const headerLen = 12

// ParseMessage decodes an mDNS message from a raw UDP datagram.
func ParseMessage(buf []byte) (*Message, error) {
	if len(buf) < headerLen {
		return nil, ErrMalformedMessage
	}
	id := binary.BigEndian.Uint16(buf[0:2])
	flags := binary.BigEndian.Uint16(buf[2:4])
	qdcount := binary.BigEndian.Uint16(buf[4:6])
	ancount := binary.BigEndian.Uint16(buf[6:8])
	nscount := binary.BigEndian.Uint16(buf[8:10])
	arcount := binary.BigEndian.Uint16(buf[10:12])

	m := &Message{ID: id, Response: flags&0x8000 != 0}
	off := headerLen

	var err error
	for i := 0; i < int(qdcount); i++ {
		var q Question
		q, off, err = parseQuestion(buf, off)
		if err != nil {
			return nil, err
		}
		m.Questions = append(m.Questions, q)
	}
	for i := 0; i < int(ancount); i++ {
		var r Record
		r, off, err = parseRecord(buf, off)
		if err != nil {
			return nil, err
		}
		m.Answers = append(m.Answers, r)
	}
	for i := 0; i < int(nscount); i++ {
		var r Record
		r, off, err = parseRecord(buf, off)
		if err != nil {
			return nil, err
		}
		m.Authorities = append(m.Authorities, r)
	}
	for i := 0; i < int(arcount); i++ {
		var r Record
		r, off, err = parseRecord(buf, off)
		if err != nil {
			return nil, err
		}
		m.Additionals = append(m.Additionals, r)
	}
	return m, nil
}

func parseQuestion(buf []byte, off int) (Question, int, error) {
	n, next, err := name.Decode(buf, off)
	if err != nil {
		return Question{}, 0, err
	}
	if next+4 > len(buf) {
		return Question{}, 0, ErrMalformedMessage
	}
	qtype := binary.BigEndian.Uint16(buf[next : next+2])
	qclass := binary.BigEndian.Uint16(buf[next+2 : next+4])
	return Question{Name: n, Type: RRType(qtype), Class: qclass}, next + 4, nil
}

func parseRecord(buf []byte, off int) (Record, int, error) {
	n, next, err := name.Decode(buf, off)
	if err != nil {
		return Record{}, 0, err
	}
	if next+10 > len(buf) {
		return Record{}, 0, ErrMalformedMessage
	}
	rtype := RRType(binary.BigEndian.Uint16(buf[next : next+2]))
	class := binary.BigEndian.Uint16(buf[next+2 : next+4])
	ttl := binary.BigEndian.Uint32(buf[next+4 : next+8])
	rdlen := int(binary.BigEndian.Uint16(buf[next+8 : next+10]))
	next += 10
	if next+rdlen > len(buf) {
		return Record{}, 0, ErrMalformedMessage
	}
	rdata := buf[next : next+rdlen]

	rec := Record{Name: n, Type: rtype, Class: class, TTL: ttl}
	switch rtype {
	case TypeA:
		if len(rdata) != 4 {
			return Record{}, 0, ErrMalformedMessage
		}
		copy(rec.A[:], rdata)
	case TypePTR:
		ptrName, _, err := name.Decode(buf, next)
		if err != nil {
			return Record{}, 0, err
		}
		rec.PTR = ptrName
	case TypeCNAME:
		cname, _, err := name.Decode(buf, next)
		if err != nil {
			return Record{}, 0, err
		}
		rec.CNAME = cname
	case TypeTXT:
		rec.TXT = parseTXT(rdata)
	case TypeSRV:
		if len(rdata) < 6 {
			return Record{}, 0, ErrMalformedMessage
		}
		target, _, err := name.Decode(buf, next+6)
		if err != nil {
			return Record{}, 0, err
		}
		rec.SRV = SRVData{
			Priority: binary.BigEndian.Uint16(rdata[0:2]),
			Weight:   binary.BigEndian.Uint16(rdata[2:4]),
			Port:     binary.BigEndian.Uint16(rdata[4:6]),
			Target:   target,
		}
	}
	return rec, next + rdlen, nil
}

func parseTXT(rdata []byte) []string {
	var out []string
	for i := 0; i < len(rdata); {
		n := int(rdata[i])
		i++
		if i+n > len(rdata) {
			break
		}
		out = append(out, string(rdata[i:i+n]))
		i += n
	}
	return out
}

// encoder builds an outgoing message. Compression is emitted only for
// self-references within the current message, via a name->offset table.
type encoder struct {
	buf     []byte
	nameOff map[string]int
}

func newEncoder() *encoder {
	return &encoder{buf: make([]byte, headerLen), nameOff: make(map[string]int)}
}

// EncodeResponse serializes a response message with the given answer and
// additional records (no questions are echoed, matching standard mDNS
// responses).
func EncodeResponse(id uint16, answers, additionals []Record) []byte {
	e := newEncoder()
	binary.BigEndian.PutUint16(e.buf[0:2], id)
	binary.BigEndian.PutUint16(e.buf[2:4], 0x8400) // response, authoritative
	binary.BigEndian.PutUint16(e.buf[6:8], uint16(len(answers)))
	binary.BigEndian.PutUint16(e.buf[10:12], uint16(len(additionals)))

	for _, r := range answers {
		e.writeRecord(r)
	}
	for _, r := range additionals {
		e.writeRecord(r)
	}
	return e.buf
}

// EncodeProbe serializes a probe query carrying the proposed record(s) in
// the authority section.
func EncodeProbe(id uint16, questions []Question, authorities []Record) []byte {
	e := newEncoder()
	binary.BigEndian.PutUint16(e.buf[0:2], id)
	binary.BigEndian.PutUint16(e.buf[4:6], uint16(len(questions)))
	binary.BigEndian.PutUint16(e.buf[8:10], uint16(len(authorities)))

	for _, q := range questions {
		e.writeName(q.Name)
		e.writeUint16(uint16(q.Type))
		e.writeUint16(q.Class)
	}
	for _, r := range authorities {
		e.writeRecord(r)
	}
	return e.buf
}

func (e *encoder) writeUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

func (e *encoder) writeUint32(v uint32) {
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// writeName emits a self-compressed name: if an identical name was already
// written earlier in this message, emit a pointer to it instead.
func (e *encoder) writeName(n string) {
	if off, ok := e.nameOff[n]; ok && off <= 0x3fff {
		e.buf = append(e.buf, byte(0xC0|(off>>8)), byte(off))
		return
	}
	encoded, err := name.Encode(n)
	if err != nil {
		e.buf = append(e.buf, 0)
		return
	}
	if len(e.buf) <= 0x3fff {
		e.nameOff[n] = len(e.buf)
	}
	e.buf = append(e.buf, encoded...)
}

func (e *encoder) writeRecord(r Record) {
	e.writeName(r.Name)
	e.writeUint16(uint16(r.Type))
	e.writeUint16(r.Class)
	e.writeUint32(r.TTL)

	rdlenOff := len(e.buf)
	e.buf = append(e.buf, 0, 0) // placeholder rdlength
	rdataStart := len(e.buf)

	switch r.Type {
	case TypeA:
		e.buf = append(e.buf, r.A[:]...)
	case TypePTR:
		e.writeName(r.PTR)
	case TypeCNAME:
		e.writeName(r.CNAME)
	case TypeTXT:
		for _, s := range r.TXT {
			e.buf = append(e.buf, byte(len(s)))
			e.buf = append(e.buf, s...)
		}
		if len(r.TXT) == 0 {
			e.buf = append(e.buf, 0)
		}
	case TypeSRV:
		e.writeUint16(r.SRV.Priority)
		e.writeUint16(r.SRV.Weight)
		e.writeUint16(r.SRV.Port)
		e.writeName(r.SRV.Target)
	}

	rdlen := len(e.buf) - rdataStart
	binary.BigEndian.PutUint16(e.buf[rdlenOff:rdlenOff+2], uint16(rdlen))
}
