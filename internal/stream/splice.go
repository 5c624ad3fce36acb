package stream

import (
	"bytes"
	"io"
	"os"
)

// mp3FrameHeaderSize is the fixed overhead this splicer prepends ahead of
// the raw art bytes: a minimal synthetic APIC-style frame header. Real
// frame-level ID3 splicing rewrites the tag's frame table; this default
// implementation instead prepends a fixed-size header, which is enough to
// exercise the offset-accounting contract in §4.H without a full ID3 writer.
const mp3FrameHeaderSize = 10

// m4aFrameHeaderSize matches the "+24" adjustment named in §4.H.4 for M4A
// streams (an 'ilst'/'covr' atom's box header plus data-atom header).
const m4aFrameHeaderSize = 24

type mp3ID3Splicer struct{}

func (mp3ID3Splicer) Applies(songType string) bool { return songType == "mp3" }

func (mp3ID3Splicer) OffsetAdjustment(artSize int64) int64 {
	return artSize + mp3FrameHeaderSize
}

func (mp3ID3Splicer) Open(art *os.File, artSize int64, media io.Reader) (io.Reader, error) {
	header := make([]byte, mp3FrameHeaderSize)
	header[0], header[1], header[2] = 'A', 'P', 'C'
	putUint32(header[3:], uint32(artSize))
	return io.MultiReader(bytes.NewReader(header), art, media), nil
}

type m4aSplicer struct{}

func (m4aSplicer) Applies(songType string) bool { return songType == "m4a" }

func (m4aSplicer) OffsetAdjustment(artSize int64) int64 {
	return artSize + m4aFrameHeaderSize
}

func (m4aSplicer) Open(art *os.File, artSize int64, media io.Reader) (io.Reader, error) {
	header := make([]byte, m4aFrameHeaderSize)
	copy(header, "covr")
	putUint32(header[4:], uint32(artSize))
	return io.MultiReader(bytes.NewReader(header), art, media), nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
