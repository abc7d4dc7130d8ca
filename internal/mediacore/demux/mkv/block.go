package mkv

import "encoding/binary"

// laceNone etc. are the four Matroska lacing modes packed into bits 1-2 of
// a block's flags byte.
const (
	laceNone  = 0
	laceXiph  = 1
	laceFixed = 2
	laceEBML  = 3
)

// blockHeader is one parsed SimpleBlock/Block header.
type blockHeader struct {
	trackNumber uint64
	relTimecode int16
	keyframe    bool
	lacing      byte
	payload     []byte
}

// parseBlockHeader parses a SimpleBlock or Block body: track_number
// (VINT), rel_timecode (signed 16-bit), flags (u8), optional lacing size
// metadata, then the frame payload. Per the lacing contract, laced frames
// are not split apart: their bytes are retained concatenated as one chunk,
// with only the size metadata consumed and discarded.
func parseBlockHeader(data []byte) (blockHeader, bool) {
	trackNumber, vintLen, ok := readVINT(data, 0, false)
	if !ok || len(data) < vintLen+3 {
		return blockHeader{}, false
	}
	relTimecode := int16(binary.BigEndian.Uint16(data[vintLen : vintLen+2]))
	flags := data[vintLen+2]
	offset := vintLen + 3

	h := blockHeader{
		trackNumber: trackNumber,
		relTimecode: relTimecode,
		keyframe:    flags&0x80 != 0,
		lacing:      (flags >> 1) & 0x03,
	}

	if h.lacing != laceNone {
		if offset >= len(data) {
			return blockHeader{}, false
		}
		frameCountMinus1 := int(data[offset])
		offset++
		switch h.lacing {
		case laceXiph:
			for i := 0; i < frameCountMinus1; i++ {
				for offset < len(data) && data[offset] == 255 {
					offset++
				}
				if offset >= len(data) {
					return blockHeader{}, false
				}
				offset++ // consume the final, non-255 terminating byte
			}
		case laceEBML:
			for i := 0; i < frameCountMinus1; i++ {
				_, length, ok := readVINT(data, offset, false)
				if !ok {
					return blockHeader{}, false
				}
				offset += length
			}
		case laceFixed:
			// No explicit sizes: all frames share an equal, implied size.
		}
	}

	if offset > len(data) {
		return blockHeader{}, false
	}
	h.payload = data[offset:]
	return h, true
}
