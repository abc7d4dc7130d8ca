package mp4

import "encoding/binary"

// SampleTable is the fully-resolved per-sample index built from a track's
// stbl box: for every sample, its absolute byte offset in the file, its
// size, its duration in track timescale units, and whether it is a sync
// (key) sample.
type SampleTable struct {
	Offsets   []int64
	Sizes     []int
	Durations []int64
	keyframes map[int]bool // nil means every sample is a sync sample
}

func (t *SampleTable) Count() int { return len(t.Sizes) }

// IsKey reports whether sample index i (0-based) is a sync sample.
func (t *SampleTable) IsKey(i int) bool {
	if t.keyframes == nil {
		return true
	}
	return t.keyframes[i]
}

type sttsEntry struct {
	count int
	delta int64
}

func parseSTTS(buf []byte) []sttsEntry {
	if len(buf) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(buf[4:8]))
	var out []sttsEntry
	pos := 8
	for i := 0; i < count && pos+8 <= len(buf); i++ {
		out = append(out, sttsEntry{
			count: int(binary.BigEndian.Uint32(buf[pos : pos+4])),
			delta: int64(binary.BigEndian.Uint32(buf[pos+4 : pos+8])),
		})
		pos += 8
	}
	return out
}

func expandDurations(entries []sttsEntry, sampleCount int) []int64 {
	out := make([]int64, 0, sampleCount)
	for _, e := range entries {
		for i := 0; i < e.count && len(out) < sampleCount; i++ {
			out = append(out, e.delta)
		}
	}
	for len(out) < sampleCount {
		out = append(out, 0)
	}
	return out
}

func parseSTSZ(buf []byte) (sizes []int, ok bool) {
	if len(buf) < 12 {
		return nil, false
	}
	sampleSize := binary.BigEndian.Uint32(buf[4:8])
	sampleCount := int(binary.BigEndian.Uint32(buf[8:12]))
	if sampleSize != 0 {
		out := make([]int, sampleCount)
		for i := range out {
			out[i] = int(sampleSize)
		}
		return out, true
	}
	out := make([]int, 0, sampleCount)
	pos := 12
	for i := 0; i < sampleCount && pos+4 <= len(buf); i++ {
		out = append(out, int(binary.BigEndian.Uint32(buf[pos:pos+4])))
		pos += 4
	}
	return out, true
}

type stscEntry struct {
	firstChunk      int
	samplesPerChunk int
}

func parseSTSC(buf []byte) []stscEntry {
	if len(buf) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(buf[4:8]))
	var out []stscEntry
	pos := 8
	for i := 0; i < count && pos+12 <= len(buf); i++ {
		out = append(out, stscEntry{
			firstChunk:      int(binary.BigEndian.Uint32(buf[pos : pos+4])),
			samplesPerChunk: int(binary.BigEndian.Uint32(buf[pos+4 : pos+8])),
		})
		pos += 12
	}
	return out
}

func parseSTCO(buf []byte) []int64 {
	if len(buf) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(buf[4:8]))
	out := make([]int64, 0, count)
	pos := 8
	for i := 0; i < count && pos+4 <= len(buf); i++ {
		out = append(out, int64(binary.BigEndian.Uint32(buf[pos:pos+4])))
		pos += 4
	}
	return out
}

func parseCO64(buf []byte) []int64 {
	if len(buf) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(buf[4:8]))
	out := make([]int64, 0, count)
	pos := 8
	for i := 0; i < count && pos+8 <= len(buf); i++ {
		out = append(out, int64(binary.BigEndian.Uint64(buf[pos:pos+8])))
		pos += 8
	}
	return out
}

func parseSTSS(buf []byte) map[int]bool {
	if len(buf) < 8 {
		return nil
	}
	count := int(binary.BigEndian.Uint32(buf[4:8]))
	out := make(map[int]bool, count)
	pos := 8
	for i := 0; i < count && pos+4 <= len(buf); i++ {
		sampleNumber := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		out[sampleNumber-1] = true // stss is 1-indexed
		pos += 4
	}
	return out
}

// buildSampleTable resolves a stbl box's children into a SampleTable. Chunk
// offsets come from stco (32-bit) or co64 (64-bit), whichever is present.
func buildSampleTable(stbl []byte) (*SampleTable, bool) {
	sttsBuf, ok := findBox(stbl, "stts")
	if !ok {
		return nil, false
	}
	stszBuf, ok := findBox(stbl, "stsz")
	if !ok {
		return nil, false
	}
	stscBuf, ok := findBox(stbl, "stsc")
	if !ok {
		return nil, false
	}

	var chunkOffsets []int64
	if buf, ok := findBox(stbl, "co64"); ok {
		chunkOffsets = parseCO64(buf)
	} else if buf, ok := findBox(stbl, "stco"); ok {
		chunkOffsets = parseSTCO(buf)
	} else {
		return nil, false
	}

	sizes, ok := parseSTSZ(stszBuf)
	if !ok {
		return nil, false
	}
	sampleCount := len(sizes)

	durations := expandDurations(parseSTTS(sttsBuf), sampleCount)

	stsc := parseSTSC(stscBuf)
	if len(stsc) == 0 {
		return nil, false
	}

	offsets := make([]int64, sampleCount)
	sampleIdx := 0
	for chunkIdx := 0; chunkIdx < len(chunkOffsets) && sampleIdx < sampleCount; chunkIdx++ {
		chunkNumber := chunkIdx + 1 // 1-indexed to match stsc.firstChunk
		samplesInChunk := samplesPerChunkFor(stsc, chunkNumber)
		running := chunkOffsets[chunkIdx]
		for i := 0; i < samplesInChunk && sampleIdx < sampleCount; i++ {
			offsets[sampleIdx] = running
			running += int64(sizes[sampleIdx])
			sampleIdx++
		}
	}

	var keyframes map[int]bool
	if buf, ok := findBox(stbl, "stss"); ok {
		keyframes = parseSTSS(buf)
	}

	return &SampleTable{
		Offsets:   offsets,
		Sizes:     sizes,
		Durations: durations,
		keyframes: keyframes,
	}, true
}

// samplesPerChunkFor finds the stsc entry governing chunkNumber (1-indexed),
// i.e. the entry with the largest firstChunk <= chunkNumber.
func samplesPerChunkFor(entries []stscEntry, chunkNumber int) int {
	best := 0
	for _, e := range entries {
		if e.firstChunk <= chunkNumber {
			best = e.samplesPerChunk
		} else {
			break
		}
	}
	return best
}
