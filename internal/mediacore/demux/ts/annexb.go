package ts

// annexBToAVCC converts one PES payload's worth of Annex-B H.264 (NAL units
// delimited by 0x000001 / 0x00000001 start codes) into AVCC framing (each
// NAL prefixed by its big-endian 4-byte length), and reports whether an IDR
// slice (nal_type 5) was seen. Adapted from the device-mirroring
// transport's AnnexBToAVCConverter: that version only produced AVCC bytes;
// here it additionally classifies the access unit as key/delta for the TS
// extraction loop, which has no separate keyframe flag the way Matroska's
// SimpleBlock does.
func annexBToAVCC(data []byte) (avcc []byte, sawIDR bool) {
	if len(data) == 0 {
		return nil, false
	}

	out := make([]byte, 0, len(data)+16)
	offset := 0
	for offset < len(data) {
		startPos := findStartCode(data[offset:])
		if startPos == -1 {
			nal := data[offset:]
			if len(nal) > 0 {
				out = appendNAL(out, nal)
				sawIDR = sawIDR || isIDR(nal)
			}
			break
		}
		actual := offset + startPos
		if actual > offset {
			nal := data[offset:actual]
			out = appendNAL(out, nal)
			sawIDR = sawIDR || isIDR(nal)
		}
		offset = actual + startCodeLen(data[actual:])
	}
	return out, sawIDR
}

func isIDR(nal []byte) bool {
	return len(nal) > 0 && nal[0]&0x1F == 5
}

func appendNAL(dst, nal []byte) []byte {
	length := uint32(len(nal))
	dst = append(dst, byte(length>>24), byte(length>>16), byte(length>>8), byte(length))
	return append(dst, nal...)
}

func findStartCode(data []byte) int {
	for i := 0; i+2 < len(data); i++ {
		if data[i] == 0x00 && data[i+1] == 0x00 {
			if i+3 < len(data) && data[i+2] == 0x00 && data[i+3] == 0x01 {
				return i
			}
			if data[i+2] == 0x01 && (i == 0 || data[i-1] != 0x00) {
				return i
			}
		}
	}
	return -1
}

func startCodeLen(data []byte) int {
	if len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1 {
		return 4
	}
	if len(data) >= 3 && data[0] == 0 && data[1] == 0 && data[2] == 1 {
		return 3
	}
	return 0
}

// splitAnnexB splits Annex-B data into its constituent NAL unit payloads
// (start codes stripped).
func splitAnnexB(data []byte) [][]byte {
	var nals [][]byte
	offset := 0
	for offset < len(data) {
		startPos := findStartCode(data[offset:])
		if startPos == -1 {
			break
		}
		actual := offset + startPos
		next := actual + startCodeLen(data[actual:])
		followLen := findStartCode(data[next:])
		end := len(data)
		if followLen != -1 {
			end = next + followLen
		}
		if end > next {
			nals = append(nals, data[next:end])
		}
		offset = end
	}
	return nals
}

// findNALByType returns the first NAL unit of the given type found in
// Annex-B data, or nil if none is present.
func findNALByType(data []byte, nalType byte) []byte {
	for _, nal := range splitAnnexB(data) {
		if len(nal) > 0 && nal[0]&0x1F == nalType {
			return nal
		}
	}
	return nil
}
