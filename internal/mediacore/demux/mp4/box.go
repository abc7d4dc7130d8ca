// Package mp4 implements the ISO-BMFF demultiplexer: moov/trak/mdia/minf/stbl
// box walking, sample-table resolution, and codec-private extraction for
// H.264/HEVC/VP9/AV1 video and AAC audio. Adapted from the box-walking style
// of a sibling container-metadata reader in the example pack (box header
// plus length-bounded payload slice, one function per box type) and
// generalized to also resolve sample offsets/sizes for extraction rather
// than just reporting track metadata.
package mp4

import "encoding/binary"

// boxHeader is a box's type and the byte range of its payload within the
// buffer being walked.
type boxHeader struct {
	boxType    string
	payloadOff int
	payloadEnd int
}

// walkBoxes calls fn once per top-level box found in buf, in order, passing
// the box's 4-character type and its payload slice. Stops early if fn
// returns false.
func walkBoxes(buf []byte, fn func(boxType string, payload []byte) bool) {
	offset := 0
	for offset+8 <= len(buf) {
		h, ok := readBoxHeader(buf, offset)
		if !ok {
			return
		}
		if !fn(h.boxType, buf[h.payloadOff:h.payloadEnd]) {
			return
		}
		offset = h.payloadEnd
	}
}

// readBoxHeader parses the 8-or-16-byte box header at offset, returning the
// payload bounds clamped to len(buf).
func readBoxHeader(buf []byte, offset int) (boxHeader, bool) {
	if offset+8 > len(buf) {
		return boxHeader{}, false
	}
	size32 := binary.BigEndian.Uint32(buf[offset : offset+4])
	boxType := string(buf[offset+4 : offset+8])

	headerLen := 8
	var size int64
	switch {
	case size32 == 1:
		if offset+16 > len(buf) {
			return boxHeader{}, false
		}
		size = int64(binary.BigEndian.Uint64(buf[offset+8 : offset+16]))
		headerLen = 16
	case size32 == 0:
		size = int64(len(buf) - offset)
	default:
		size = int64(size32)
	}
	if size < int64(headerLen) {
		return boxHeader{}, false
	}
	end := offset + int(size)
	if end > len(buf) {
		end = len(buf)
	}
	if end < offset+headerLen {
		return boxHeader{}, false
	}
	return boxHeader{boxType: boxType, payloadOff: offset + headerLen, payloadEnd: end}, true
}

// findBox returns the payload of the first direct child box of the given
// type, or nil, false if absent.
func findBox(buf []byte, boxType string) ([]byte, bool) {
	var out []byte
	found := false
	walkBoxes(buf, func(t string, payload []byte) bool {
		if t == boxType {
			out = payload
			found = true
			return false
		}
		return true
	})
	return out, found
}

// findBoxes returns the payloads of every direct child box of the given
// type, in order.
func findBoxes(buf []byte, boxType string) [][]byte {
	var out [][]byte
	walkBoxes(buf, func(t string, payload []byte) bool {
		if t == boxType {
			out = append(out, payload)
		}
		return true
	})
	return out
}
