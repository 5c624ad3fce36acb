// Package name implements the length-prefixed label encoding shared by DNS
// (RFC 1035) names and the mDNS responder that advertises this server. It
// knows nothing about DMAP or DAAP; it is pure wire-level name framing.
package name

import (
	"errors"
	"strings"
)

// ErrInvalidName is returned for any malformed label sequence: an oversized
// label, an overlong name, a forward compression pointer, or a pointer
// that lands on another pointer (double indirection).
var ErrInvalidName = errors.New("dmap/name: invalid name encoding")

const (
	maxLabelLen = 63
	maxNameLen  = 255
	ptrMask     = 0xC0
)

// Encode converts a dot-separated host name into its wire form: a sequence of
// length-prefixed labels terminated by a zero-length label. It returns
// ErrInvalidName if any label exceeds 63 bytes or the encoded name (including
// the terminator) would exceed 255 bytes.
func Encode(host string) ([]byte, error) {
	if host == "" {
		return []byte{0}, nil
	}

	labels := strings.Split(host, ".")
	buf := make([]byte, 0, len(host)+2)

	for _, l := range labels {
		if l == "" {
			continue
		}
		if len(l) > maxLabelLen {
			return nil, ErrInvalidName
		}
		buf = append(buf, byte(len(l)))
		buf = append(buf, l...)
	}
	buf = append(buf, 0)

	if len(buf) > maxNameLen {
		return nil, ErrInvalidName
	}
	return buf, nil
}

// Decode parses a name starting at offset within msg, following compression
// pointers as needed. It returns the decoded dot-separated name and the
// offset immediately following the name *as it appeared at the start
// position* (i.e. past the first pointer, if any, not past whatever the
// pointer target's trailing bytes are) — the caller resumes parsing from
// there.
func Decode(msg []byte, offset int) (string, int, error) {
	var labels []string
	chased := false
	cur := offset
	end := -1 // offset to resume at, set on first pointer followed

	for {
		if cur < 0 || cur >= len(msg) {
			return "", 0, ErrInvalidName
		}
		lenByte := msg[cur]

		switch {
		case lenByte == 0:
			cur++
			if end == -1 {
				end = cur
			}
			if len(labels) == 0 {
				return "", end, nil
			}
			return strings.Join(labels, "."), end, nil

		case lenByte&ptrMask == ptrMask:
			// Exactly one level of indirection is allowed: a pointer whose
			// target is itself another pointer is rejected outright, rather
			// than chased.
			if chased {
				return "", 0, ErrInvalidName
			}
			if cur+1 >= len(msg) {
				return "", 0, ErrInvalidName
			}
			target := int(lenByte&^ptrMask)<<8 | int(msg[cur+1])
			if target >= cur {
				// Pointers must reference a strictly earlier offset.
				return "", 0, ErrInvalidName
			}
			if end == -1 {
				end = cur + 2
			}
			chased = true
			cur = target

		case lenByte&ptrMask != 0:
			// 0x40 / 0x80 prefix: reserved, not a valid length or pointer.
			return "", 0, ErrInvalidName

		default:
			labelLen := int(lenByte)
			cur++
			if cur+labelLen > len(msg) {
				return "", 0, ErrInvalidName
			}
			labels = append(labels, string(msg[cur:cur+labelLen]))
			cur += labelLen
			if totalLen(labels) > maxNameLen {
				return "", 0, ErrInvalidName
			}
		}
	}
}

func totalLen(labels []string) int {
	n := 1 // terminator
	for _, l := range labels {
		n += 1 + len(l)
	}
	return n
}

// EscapeText renders a label for human/log display, escaping embedded dots
// and non-printable bytes the way `dig`-style tools do (`\.` for a literal
// dot inside a label, `\DDD` for non-printable bytes).
func EscapeText(label string) string {
	var b strings.Builder
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c == '.' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			b.WriteByte('\\')
			b.WriteString(padDecimal(c))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func padDecimal(c byte) string {
	s := [3]byte{'0', '0', '0'}
	v := int(c)
	for i := 2; i >= 0 && v > 0; i-- {
		s[i] = byte('0' + v%10)
		v /= 10
	}
	return string(s[:])
}
