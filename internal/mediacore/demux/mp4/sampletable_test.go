package mp4

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func buildSTTS(entries [][2]uint32) []byte {
	buf := append([]byte{0, 0, 0, 0}, u32(uint32(len(entries)))...)
	for _, e := range entries {
		buf = append(buf, u32(e[0])...)
		buf = append(buf, u32(e[1])...)
	}
	return makeBox("stts", buf)
}

func buildSTSZVariable(sizes []uint32) []byte {
	buf := append([]byte{0, 0, 0, 0}, u32(0)...)
	buf = append(buf, u32(uint32(len(sizes)))...)
	for _, s := range sizes {
		buf = append(buf, u32(s)...)
	}
	return makeBox("stsz", buf)
}

func buildSTSC(entries [][2]uint32) []byte {
	buf := append([]byte{0, 0, 0, 0}, u32(uint32(len(entries)))...)
	for _, e := range entries {
		buf = append(buf, u32(e[0])...)
		buf = append(buf, u32(e[1])...)
		buf = append(buf, u32(1)...) // sample_description_index
	}
	return makeBox("stsc", buf)
}

func buildSTCO(offsets []uint32) []byte {
	buf := append([]byte{0, 0, 0, 0}, u32(uint32(len(offsets)))...)
	for _, o := range offsets {
		buf = append(buf, u32(o)...)
	}
	return makeBox("stco", buf)
}

func buildSTSS(sampleNumbers []uint32) []byte {
	buf := append([]byte{0, 0, 0, 0}, u32(uint32(len(sampleNumbers)))...)
	for _, n := range sampleNumbers {
		buf = append(buf, u32(n)...)
	}
	return makeBox("stss", buf)
}

func TestBuildSampleTableSingleChunk(t *testing.T) {
	var stbl []byte
	stbl = append(stbl, buildSTTS([][2]uint32{{3, 10}})...)
	stbl = append(stbl, buildSTSZVariable([]uint32{5, 7, 9})...)
	stbl = append(stbl, buildSTSC([][2]uint32{{1, 3}})...)
	stbl = append(stbl, buildSTCO([]uint32{1000})...)
	stbl = append(stbl, buildSTSS([]uint32{2})...)

	table, ok := buildSampleTable(stbl)
	require.True(t, ok)
	require.Equal(t, 3, table.Count())

	assert.Equal(t, []int64{1000, 1005, 1012}, table.Offsets)
	assert.Equal(t, []int{5, 7, 9}, table.Sizes)
	assert.Equal(t, []int64{10, 10, 10}, table.Durations)

	assert.False(t, table.IsKey(0))
	assert.True(t, table.IsKey(1))
	assert.False(t, table.IsKey(2))
}

func TestBuildSampleTableNoStssMeansAllKeyframes(t *testing.T) {
	var stbl []byte
	stbl = append(stbl, buildSTTS([][2]uint32{{1, 0}})...)
	stbl = append(stbl, buildSTSZVariable([]uint32{42})...)
	stbl = append(stbl, buildSTSC([][2]uint32{{1, 1}})...)
	stbl = append(stbl, buildSTCO([]uint32{0})...)

	table, ok := buildSampleTable(stbl)
	require.True(t, ok)
	require.Equal(t, 1, table.Count())
	assert.True(t, table.IsKey(0))
	assert.Equal(t, int64(0), table.Durations[0])
}

func TestBuildSampleTableMultipleChunks(t *testing.T) {
	var stbl []byte
	stbl = append(stbl, buildSTTS([][2]uint32{{4, 100}})...)
	stbl = append(stbl, buildSTSZVariable([]uint32{10, 10, 20, 20})...)
	// chunk 1 holds 2 samples, chunk 2 (and beyond) holds 1 sample each.
	stbl = append(stbl, buildSTSC([][2]uint32{{1, 2}, {2, 1}})...)
	stbl = append(stbl, buildSTCO([]uint32{0, 100, 200})...)

	table, ok := buildSampleTable(stbl)
	require.True(t, ok)
	require.Equal(t, 4, table.Count())
	assert.Equal(t, []int64{0, 10, 100, 200}, table.Offsets)
}
