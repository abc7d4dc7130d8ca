package ts

// adtsSampleRates is the ADTS sampling_frequency_index table (MPEG-4 Part 3).
var adtsSampleRates = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350, 0, 0, 0,
}

// adtsFrame describes one parsed ADTS frame.
type adtsFrame struct {
	profile          byte // AOT - 1, i.e. the ADTS "profile" field
	samplingFreqIdx  byte
	channelConfig    byte
	frameLength      int // includes the 7 (or 9) byte header
	headerLen        int
	samplesPerFrame  int
}

// findADTSSync scans data for the 12-bit 0xFFF syncword, returning the
// offset of a plausible ADTS header, or -1.
func findADTSSync(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xF0 == 0xF0 {
			return i
		}
	}
	return -1
}

// parseADTSHeader parses a 7-byte (or 9-byte, with CRC) ADTS header at the
// start of data. Returns ok=false if data is too short or malformed.
func parseADTSHeader(data []byte) (adtsFrame, bool) {
	if len(data) < 7 {
		return adtsFrame{}, false
	}
	if data[0] != 0xFF || data[1]&0xF0 != 0xF0 {
		return adtsFrame{}, false
	}
	protectionAbsent := data[1] & 0x01
	profile := (data[2] >> 6) & 0x03
	samplingFreqIdx := (data[2] >> 2) & 0x0F
	channelConfig := ((data[2] & 0x01) << 2) | ((data[3] >> 6) & 0x03)
	frameLength := (int(data[3]&0x03) << 11) | (int(data[4]) << 3) | (int(data[5]) >> 5)

	headerLen := 7
	if protectionAbsent == 0 {
		headerLen = 9
	}
	if samplingFreqIdx >= 13 || frameLength < headerLen {
		return adtsFrame{}, false
	}
	return adtsFrame{
		profile:         profile,
		samplingFreqIdx: samplingFreqIdx,
		channelConfig:   channelConfig,
		frameLength:     frameLength,
		headerLen:       headerLen,
		samplesPerFrame: 1024,
	}, true
}

// audioSpecificConfig builds the 2-byte AudioSpecificConfig from an ADTS
// header's (AOT, sampling_frequency_index, channel_configuration).
func audioSpecificConfig(f adtsFrame) []byte {
	aot := f.profile + 1
	b0 := (aot << 3) | (f.samplingFreqIdx >> 1)
	b1 := (f.samplingFreqIdx&0x01)<<7 | (f.channelConfig << 3)
	return []byte{b0, b1}
}

// aacCodecString builds the "mp4a.40.{AOT}" codec string.
func aacCodecString(f adtsFrame) string {
	aot := f.profile + 1
	return "mp4a.40." + itoa(int(aot))
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

// mp3Frame describes one parsed MPEG audio (Layer III) frame header.
type mp3Frame struct {
	frameLength     int
	samplesPerFrame int
	sampleRate      int
}

var mpegSampleRatesV1 = [3]int{44100, 48000, 32000}
var mpegSampleRatesV2 = [3]int{22050, 24000, 16000}
var mpegSampleRatesV25 = [3]int{11025, 12000, 8000}

var mp3BitratesV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var mp3BitratesV2L3 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}

// parseMP3Header parses an MPEG audio frame header, requiring layer III.
func parseMP3Header(data []byte) (mp3Frame, bool) {
	if len(data) < 4 {
		return mp3Frame{}, false
	}
	if data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return mp3Frame{}, false
	}
	version := (data[1] >> 3) & 0x03 // 00=2.5, 10=2, 11=1
	layer := (data[1] >> 1) & 0x03   // 01=Layer III
	if layer != 0x01 {
		return mp3Frame{}, false
	}
	bitrateIdx := (data[2] >> 4) & 0x0F
	sampleRateIdx := (data[2] >> 2) & 0x03
	padding := (data[2] >> 1) & 0x01
	if bitrateIdx == 0 || bitrateIdx == 15 || sampleRateIdx == 3 {
		return mp3Frame{}, false
	}

	var sampleRate, kbps, coef, samplesPerFrame int
	switch version {
	case 0x03: // MPEG-1
		sampleRate = mpegSampleRatesV1[sampleRateIdx]
		kbps = mp3BitratesV1L3[bitrateIdx]
		coef = 144
		samplesPerFrame = 1152
	case 0x02: // MPEG-2
		sampleRate = mpegSampleRatesV2[sampleRateIdx]
		kbps = mp3BitratesV2L3[bitrateIdx]
		coef = 72
		samplesPerFrame = 576
	case 0x00: // MPEG-2.5
		sampleRate = mpegSampleRatesV25[sampleRateIdx]
		kbps = mp3BitratesV2L3[bitrateIdx]
		coef = 72
		samplesPerFrame = 576
	default:
		return mp3Frame{}, false
	}
	if sampleRate == 0 || kbps == 0 {
		return mp3Frame{}, false
	}

	frameLen := (coef*kbps*1000)/sampleRate + int(padding)
	if frameLen < 4 {
		return mp3Frame{}, false
	}
	return mp3Frame{frameLength: frameLen, samplesPerFrame: samplesPerFrame, sampleRate: sampleRate}, true
}
