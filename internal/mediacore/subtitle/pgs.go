package subtitle

import "encoding/binary"

// IsSupPacket reports whether b is already a framed PGS (.sup) packet,
// identified by its "PG" magic, and should be passed through unchanged
// rather than repacked.
func IsSupPacket(b []byte) bool {
	return len(b) >= 2 && b[0] == 'P' && b[1] == 'G'
}

// AssemblePGS synthesizes one 13-byte PG packet header ("PG" + PTS90k +
// DTS90k + segment_type + segment_length) followed by segment, for a
// Matroska Block payload that was not already a framed .sup packet. DTS90k
// is set equal to PTS90k: PGS streams carry no B-frames, so the two never
// diverge in practice.
func AssemblePGS(timestampUs int64, segType byte, segment []byte) []byte {
	pts90k := uint32((timestampUs*90000 + 500_000) / 1_000_000)

	out := make([]byte, 13+len(segment))
	out[0], out[1] = 'P', 'G'
	binary.BigEndian.PutUint32(out[2:6], pts90k)
	binary.BigEndian.PutUint32(out[6:10], pts90k)
	out[10] = segType
	binary.BigEndian.PutUint16(out[11:13], uint16(len(segment)))
	copy(out[13:], segment)
	return out
}
