package mp4

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBox(boxType string, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(payload)))
	copy(out[4:8], boxType)
	copy(out[8:], payload)
	return out
}

func TestReadBoxHeaderSmallSize(t *testing.T) {
	buf := makeBox("moov", []byte("hello"))
	h, ok := readBoxHeader(buf, 0)
	require.True(t, ok)
	assert.Equal(t, "moov", h.boxType)
	assert.Equal(t, 8, h.payloadOff)
	assert.Equal(t, len(buf), h.payloadEnd)
}

func TestReadBoxHeaderLargeSize(t *testing.T) {
	payload := make([]byte, 20)
	buf := make([]byte, 16+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], 1)
	copy(buf[4:8], "mdat")
	binary.BigEndian.PutUint64(buf[8:16], uint64(16+len(payload)))
	copy(buf[16:], payload)

	h, ok := readBoxHeader(buf, 0)
	require.True(t, ok)
	assert.Equal(t, "mdat", h.boxType)
	assert.Equal(t, 16, h.payloadOff)
	assert.Equal(t, len(buf), h.payloadEnd)
}

func TestWalkBoxesVisitsEachSibling(t *testing.T) {
	buf := append(makeBox("free", nil), makeBox("moov", []byte("x"))...)
	var seen []string
	walkBoxes(buf, func(boxType string, payload []byte) bool {
		seen = append(seen, boxType)
		return true
	})
	assert.Equal(t, []string{"free", "moov"}, seen)
}

func TestFindBoxReturnsFirstMatch(t *testing.T) {
	buf := append(makeBox("trak", []byte("a")), makeBox("trak", []byte("b"))...)
	payload, ok := findBox(buf, "trak")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), payload)
}

func TestFindBoxesReturnsAllMatches(t *testing.T) {
	buf := append(makeBox("trak", []byte("a")), makeBox("trak", []byte("b"))...)
	payloads := findBoxes(buf, "trak")
	require.Len(t, payloads, 2)
	assert.Equal(t, []byte("a"), payloads[0])
	assert.Equal(t, []byte("b"), payloads[1])
}
