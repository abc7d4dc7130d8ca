package ts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPAT builds a single-program PAT section with CRC32 zeroed (parsePAT
// does not validate the CRC).
func buildPAT(programNumber, pmtPID uint16) []byte {
	section := []byte{
		0x00,       // table_id
		0xB0, 0x0D, // section_syntax_indicator=1, section_length=13
		0x00, 0x01, // transport_stream_id
		0xC1,       // version/current_next_indicator
		0x00,       // section_number
		0x00,       // last_section_number
		byte(programNumber >> 8), byte(programNumber),
		0xE0 | byte(pmtPID>>8), byte(pmtPID),
		0x00, 0x00, 0x00, 0x00, // CRC32 (unchecked)
	}
	return section
}

func TestParsePATYieldsPMTPID(t *testing.T) {
	section := buildPAT(1, 0x100)
	pid, ok := parsePAT(section)
	require.True(t, ok)
	assert.Equal(t, uint16(0x100), pid)
}

func TestParsePATSkipsNetworkPIDEntry(t *testing.T) {
	// program_number=0 entries are the network PID and must be skipped.
	section := buildPAT(0, 0x10)
	section = append(section[:len(section)-4], buildEntryAndCRC(1, 0x200)...)
	pid, ok := parsePAT(section)
	require.True(t, ok)
	assert.Equal(t, uint16(0x200), pid)
}

func buildEntryAndCRC(programNumber, pid uint16) []byte {
	return []byte{
		byte(programNumber >> 8), byte(programNumber),
		0xE0 | byte(pid>>8), byte(pid),
		0x00, 0x00, 0x00, 0x00,
	}
}

func TestSectionAssemblerReassemblesAcrossPackets(t *testing.T) {
	full := buildPAT(1, 0x100)
	var a sectionAssembler

	first := append([]byte{0x00}, full[:10]...) // pointer byte = 0
	a.feed(first, true)
	_, ready := a.section()
	assert.False(t, ready)

	a.feed(full[10:], false)
	section, ready := a.section()
	require.True(t, ready)
	assert.Equal(t, full, section)
}

func TestParsePMTSelectsVideoAndAudio(t *testing.T) {
	section := []byte{
		0x02,       // table_id
		0xB0, 0x17, // section_syntax_indicator=1, section_length=23
		0x00, 0x01, // program_number
		0xC1,             // version
		0x00,             // section_number
		0x00,             // last_section_number
		0xE0, 0x00,       // reserved + PCR_PID
		0xF0, 0x00,       // reserved + program_info_length=0
		streamTypeH264, 0xE0, 0x41, 0xF0, 0x00, // video PID 0x41
		streamTypeAACADTS, 0xE0, 0x42, 0xF0, 0x00, // audio PID 0x42
		0x00, 0x00, 0x00, 0x00, // CRC32
	}
	streams, ok := parsePMT(section)
	require.True(t, ok)
	assert.True(t, streams.hasVideo)
	assert.Equal(t, uint16(0x41), streams.videoPID)
	assert.True(t, streams.hasAudio)
	assert.Equal(t, uint16(0x42), streams.audioPID)
}
