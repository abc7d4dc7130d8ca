// Package mkv implements the Matroska/WebM demux.Demuxer: an EBML walker
// over the source bytes, producing video/audio chunks and subtitle cues the
// same way the ISO-BMFF and MPEG-TS demuxers do. Open reads the whole
// ByteSource into memory in one slice and the walker runs over that buffer;
// elements are not pulled from the source one by one.
package mkv

import "fmt"

// element is one EBML element header plus the byte range of its payload
// (data_start, data_end) within the buffer it was read from.
type element struct {
	id            uint64
	dataStart     int
	dataEnd       int
	unknownLength bool
}

// readVINT reads an EBML variable-length integer starting at offset.
// keepMarker controls whether the leading length-marker bit stays folded
// into the returned value: element IDs keep it (it is part of their wire
// identity), sizes and data values strip it.
func readVINT(data []byte, offset int, keepMarker bool) (value uint64, length int, ok bool) {
	if offset >= len(data) {
		return 0, 0, false
	}
	b0 := data[offset]
	if b0 == 0 {
		return 0, 0, false
	}
	length = 1
	mask := byte(0x80)
	for mask != 0 && b0&mask == 0 {
		length++
		mask >>= 1
	}
	if length > 8 || offset+length > len(data) {
		return 0, 0, false
	}
	value = uint64(b0)
	if !keepMarker {
		value &^= uint64(mask)
	}
	for i := 1; i < length; i++ {
		value = value<<8 | uint64(data[offset+i])
	}
	return value, length, true
}

// isUnknownSize reports whether a just-decoded (marker-stripped) size VINT
// of the given on-wire byte length holds all-ones data bits, Matroska's
// "unknown size" sentinel used for streamed Segment/Cluster elements.
func isUnknownSize(value uint64, length int) bool {
	bits := uint(7 * length)
	return value == (uint64(1)<<bits)-1
}

// readElementHeader reads one element's ID and size starting at offset,
// returning the element and the offset just past the header.
func readElementHeader(data []byte, offset int) (element, int, bool) {
	id, idLen, ok := readVINT(data, offset, true)
	if !ok {
		return element{}, 0, false
	}
	size, sizeLen, ok := readVINT(data, offset+idLen, false)
	if !ok {
		return element{}, 0, false
	}
	headerEnd := offset + idLen + sizeLen
	e := element{id: id, dataStart: headerEnd}
	if isUnknownSize(size, sizeLen) {
		e.unknownLength = true
		e.dataEnd = len(data)
	} else {
		e.dataEnd = headerEnd + int(size)
		if e.dataEnd > len(data) {
			return element{}, 0, false
		}
	}
	return e, headerEnd, true
}

// walkElements visits each top-level element in data, invoking fn with the
// element's id and its payload slice. It stops early if fn returns false.
func walkElements(data []byte, fn func(id uint64, payload []byte) bool) {
	offset := 0
	for offset < len(data) {
		e, headerEnd, ok := readElementHeader(data, offset)
		if !ok {
			return
		}
		if !fn(e.id, data[e.dataStart:e.dataEnd]) {
			return
		}
		if e.unknownLength {
			return
		}
		offset = headerEnd + (e.dataEnd - e.dataStart)
	}
}

// findChild returns the payload of the first child element with the given
// id, or ok=false if absent.
func findChild(data []byte, id uint64) ([]byte, bool) {
	var out []byte
	found := false
	walkElements(data, func(gotID uint64, payload []byte) bool {
		if gotID == id {
			out = payload
			found = true
			return false
		}
		return true
	})
	return out, found
}

// uintValue decodes a big-endian unsigned integer element body (EBML
// stores fixed-width uints as their minimal big-endian encoding).
func uintValue(payload []byte) uint64 {
	var v uint64
	for _, b := range payload {
		v = v<<8 | uint64(b)
	}
	return v
}

func requireLen(payload []byte, n int, what string) error {
	if len(payload) < n {
		return fmt.Errorf("mkv: %s too short: %d bytes", what, len(payload))
	}
	return nil
}
