package mp4

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
)

// aacSampleRates is the MPEG-4 Audio sampling_frequency_index table.
var aacSampleRates = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// decodeAudioSpecificConfig decodes the first 2-3 bytes of an ASC into the
// mediacommon AAC config type shared with the device-mirroring RTP
// transport's fMP4 writer, so that track sample rate/channel metadata comes
// from the same struct shape used elsewhere in the module.
func decodeAudioSpecificConfig(asc []byte) (mpeg4audio.AudioSpecificConfig, bool) {
	if len(asc) < 2 {
		return mpeg4audio.AudioSpecificConfig{}, false
	}
	objectType := (asc[0] >> 3) & 0x1F
	samplingFreqIdx := ((asc[0] & 0x07) << 1) | (asc[1] >> 7)
	channelConfig := (asc[1] >> 3) & 0x0F
	if samplingFreqIdx >= 13 {
		return mpeg4audio.AudioSpecificConfig{}, false
	}
	return mpeg4audio.AudioSpecificConfig{
		Type:         mpeg4audio.ObjectType(objectType),
		SampleRate:   aacSampleRates[samplingFreqIdx],
		ChannelCount: int(channelConfig),
	}, true
}

// sampleEntry is what a stsd child box parses down to: the codec's
// four-character code, its fixed visual/audio fields, and the remaining
// child boxes (avcC/hvcC/vpcC/av1C/esds/...).
type sampleEntry struct {
	fourCC   string
	width    int
	height   int
	sampleRate int
	channels   int
	children []byte
}

// parseStsd walks the first sample entry of a stsd box (track fragmentation
// is not supported, so only one sample description is expected per track).
func parseStsd(stsd []byte) (sampleEntry, bool) {
	if len(stsd) < 8 {
		return sampleEntry{}, false
	}
	entryCount := binary.BigEndian.Uint32(stsd[4:8])
	if entryCount == 0 {
		return sampleEntry{}, false
	}
	var out sampleEntry
	found := false
	walkBoxes(stsd[8:], func(fourCC string, payload []byte) bool {
		out = sampleEntry{fourCC: fourCC}
		switch fourCC {
		case "avc1", "avc3", "hev1", "hvc1", "vp09", "av01":
			if len(payload) < 78 {
				return true
			}
			out.width = int(binary.BigEndian.Uint16(payload[24:26]))
			out.height = int(binary.BigEndian.Uint16(payload[26:28]))
			out.children = payload[78:]
		case "mp4a", "opus", "fLaC":
			if len(payload) < 28 {
				return true
			}
			out.channels = int(binary.BigEndian.Uint16(payload[8:10]))
			out.sampleRate = int(binary.BigEndian.Uint32(payload[24:28]) >> 16)
			out.children = payload[28:]
		default:
			return true
		}
		found = true
		return false
	})
	return out, found
}

// avcDescription builds the codec string and Description bytes for an
// avc1/avc3 sample entry. The avcC box payload is already a well-formed
// AVCDecoderConfigurationRecord, so it is used as-is.
func avcDescription(children []byte) (codec string, description []byte, ok bool) {
	avcC, ok := findBox(children, "avcC")
	if !ok || len(avcC) < 4 {
		return "", nil, false
	}
	return fmt.Sprintf("avc1.%02X%02X%02X", avcC[1], avcC[2], avcC[3]), avcC, true
}

// hevcDescription builds the "hvc1.<profile-space><profile-idc>.<compat-flags>.<tier><level>[.<constraint-bytes>]"
// codec string per the HEVC-in-ISOBMFF codec string convention, and returns
// the hvcC payload unchanged as the Description.
func hevcDescription(children []byte) (codec string, description []byte, ok bool) {
	hvcC, ok := findBox(children, "hvcC")
	if !ok || len(hvcC) < 23 {
		return "", nil, false
	}
	generalProfileSpace := (hvcC[1] >> 6) & 0x03
	generalTierFlag := (hvcC[1] >> 5) & 0x01
	generalProfileIdc := hvcC[1] & 0x1F
	compatFlags := binary.BigEndian.Uint32(hvcC[2:6])
	constraintBytes := hvcC[6:12]
	generalLevelIdc := hvcC[12]

	var sb strings.Builder
	sb.WriteString("hvc1.")
	switch generalProfileSpace {
	case 1:
		sb.WriteString("A")
	case 2:
		sb.WriteString("B")
	case 3:
		sb.WriteString("C")
	}
	fmt.Fprintf(&sb, "%d.", generalProfileIdc)
	fmt.Fprintf(&sb, "%X.", reverseBits32(compatFlags))
	if generalTierFlag == 0 {
		sb.WriteString("L")
	} else {
		sb.WriteString("H")
	}
	fmt.Fprintf(&sb, "%d", generalLevelIdc)

	constraintBytes = trimTrailingZeros(constraintBytes)
	for _, b := range constraintBytes {
		fmt.Fprintf(&sb, ".%X", b)
	}
	return sb.String(), hvcC, true
}

func reverseBits32(v uint32) uint32 {
	var out uint32
	for i := 0; i < 32; i++ {
		out <<= 1
		out |= v & 1
		v >>= 1
	}
	return out
}

func trimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

// vp9Description builds the "vp09.PP.LL.DD" codec string from a vpcC box.
func vp9Description(children []byte) (codec string, description []byte, ok bool) {
	vpcC, ok := findBox(children, "vpcC")
	if !ok || len(vpcC) < 7 {
		return "", nil, false
	}
	profile := vpcC[4]
	level := vpcC[5]
	bitDepth := (vpcC[6] >> 4) & 0x0F
	return fmt.Sprintf("vp09.%02d.%02d.%02d", profile, level, bitDepth), vpcC, true
}

// av1Description builds the "av01.P.LLT.DD" codec string from an av1C box.
func av1Description(children []byte) (codec string, description []byte, ok bool) {
	av1C, ok := findBox(children, "av1C")
	if !ok || len(av1C) < 4 {
		return "", nil, false
	}
	seqProfile := (av1C[1] >> 5) & 0x07
	seqLevelIdx0 := av1C[1] & 0x1F
	seqTier0 := (av1C[2] >> 7) & 0x01
	highBitdepth := (av1C[2] >> 6) & 0x01
	twelveBit := (av1C[2] >> 5) & 0x01

	bitDepth := 8
	if highBitdepth == 1 {
		if twelveBit == 1 {
			bitDepth = 12
		} else {
			bitDepth = 10
		}
	}
	tier := "M"
	if seqTier0 == 1 {
		tier = "H"
	}
	return fmt.Sprintf("av01.%d.%02d%s.%02d", seqProfile, seqLevelIdx0, tier, bitDepth), av1C, true
}

// aacDescription extracts the AudioSpecificConfig from an esds box's nested
// MPEG-4 descriptors and builds the "mp4a.40.{AOT}" codec string.
func aacDescription(children []byte) (codec string, description []byte, ok bool) {
	esds, ok := findBox(children, "esds")
	if !ok || len(esds) < 5 {
		return "", nil, false
	}
	asc, ok := findDecoderSpecificInfo(esds[4:]) // skip version/flags
	if !ok || len(asc) == 0 {
		return "", nil, false
	}
	aot := (asc[0] >> 3) & 0x1F
	return "mp4a.40." + itoa(int(aot)), asc, true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// findDecoderSpecificInfo walks the ES_Descriptor (tag 0x03) down through
// DecoderConfigDescriptor (tag 0x04) to DecoderSpecificInfo (tag 0x05),
// returning its raw bytes (the AudioSpecificConfig for AAC).
func findDecoderSpecificInfo(buf []byte) ([]byte, bool) {
	tag, content, _, ok := readDescriptor(buf, 0)
	if !ok || tag != 0x03 {
		return nil, false
	}
	// ES_ID(2) + flags(1), plus optional fields gated by flags bits.
	if len(content) < 3 {
		return nil, false
	}
	flags := content[2]
	pos := 3
	if flags&0x80 != 0 { // streamDependenceFlag
		pos += 2
	}
	if flags&0x40 != 0 { // URL_Flag
		if pos >= len(content) {
			return nil, false
		}
		urlLen := int(content[pos])
		pos += 1 + urlLen
	}
	if flags&0x20 != 0 { // OCRstreamFlag
		pos += 2
	}
	if pos > len(content) {
		return nil, false
	}

	tag, decConfig, _, ok := readDescriptor(content, pos)
	if !ok || tag != 0x04 {
		return nil, false
	}
	if len(decConfig) < 13 {
		return nil, false
	}
	tag, decSpecific, _, ok := readDescriptor(decConfig, 13)
	if !ok || tag != 0x05 {
		return nil, false
	}
	return decSpecific, true
}

// readDescriptor reads one MPEG-4 descriptor (tag + expandable-length size +
// content) starting at pos, returning the descriptor's content bytes and the
// offset just past it.
func readDescriptor(buf []byte, pos int) (tag byte, content []byte, next int, ok bool) {
	if pos >= len(buf) {
		return 0, nil, 0, false
	}
	tag = buf[pos]
	pos++
	size := 0
	for i := 0; i < 4; i++ {
		if pos >= len(buf) {
			return 0, nil, 0, false
		}
		b := buf[pos]
		pos++
		size = (size << 7) | int(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	if pos+size > len(buf) {
		size = len(buf) - pos
	}
	return tag, buf[pos : pos+size], pos + size, true
}

// describeSampleEntry dispatches to the codec-specific Description builder
// for e.fourCC.
func describeSampleEntry(e sampleEntry) (codec string, description []byte, ok bool) {
	switch e.fourCC {
	case "avc1", "avc3":
		return avcDescription(e.children)
	case "hev1", "hvc1":
		return hevcDescription(e.children)
	case "vp09":
		return vp9Description(e.children)
	case "av01":
		return av1Description(e.children)
	case "mp4a":
		return aacDescription(e.children)
	case "opus":
		return "opus", nil, true
	case "fLaC":
		return "flac", nil, true
	default:
		return "", nil, false
	}
}
