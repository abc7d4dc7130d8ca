package mkv

import (
	"math"
	"strings"

	"github.com/zsiec/mediacore/internal/mediacore/demux"
	"github.com/zsiec/mediacore/internal/mediacore/subtitle"
)

// trackInfo bundles a parsed TrackDescriptor with the MKV-specific extras
// the block extractor needs: the ASS/SSA Format column layout and the
// index of its Text column.
type trackInfo struct {
	descriptor demux.TrackDescriptor
	assColumns []string
	assTextIdx int
}

// parseTrackEntry builds a trackInfo from one TrackEntry element's payload,
// or ok=false if the CodecID is unsupported or required fields are absent.
func parseTrackEntry(payload []byte) (trackInfo, bool) {
	var trackNumber uint64
	var trackType uint64
	var codecID string
	var codecPrivate []byte
	var name, language string
	var defaultDurationNs uint64
	var videoPayload, audioPayload []byte
	hasVideo, hasAudio := false, false

	walkElements(payload, func(id uint64, data []byte) bool {
		switch id {
		case idTrackNumber:
			trackNumber = uintValue(data)
		case idTrackType:
			trackType = uintValue(data)
		case idCodecID:
			codecID = string(data)
		case idCodecPrivate:
			codecPrivate = data
		case idName:
			name = string(data)
		case idLanguage:
			language = string(data)
		case idDefaultDuration:
			defaultDurationNs = uintValue(data)
		case idVideo:
			videoPayload = data
			hasVideo = true
		case idAudio:
			audioPayload = data
			hasAudio = true
		}
		return true
	})

	if trackNumber == 0 || codecID == "" {
		return trackInfo{}, false
	}

	var kind demux.TrackKind
	switch trackType {
	case trackTypeVideo:
		kind = demux.TrackVideo
	case trackTypeAudio:
		kind = demux.TrackAudio
	case trackTypeSubtitle:
		kind = demux.TrackSubtitle
	default:
		return trackInfo{}, false
	}

	descriptor := demux.TrackDescriptor{
		Kind:              kind,
		ID:                int(trackNumber),
		Name:              name,
		Language:          language,
		DefaultDurationUs: int64(defaultDurationNs) / 1000,
	}

	switch kind {
	case demux.TrackVideo:
		if !hasVideo {
			return trackInfo{}, false
		}
		if w, ok := findChild(videoPayload, idPixelWidth); ok {
			descriptor.Width = int(uintValue(w))
		}
		if h, ok := findChild(videoPayload, idPixelHeight); ok {
			descriptor.Height = int(uintValue(h))
		}
		codec, desc, ok := videoCodecDescriptor(codecID, codecPrivate)
		if !ok {
			return trackInfo{}, false
		}
		descriptor.Codec = codec
		descriptor.Description = desc

	case demux.TrackAudio:
		if !hasAudio {
			return trackInfo{}, false
		}
		if sr, ok := findChild(audioPayload, idSamplingFrequency); ok {
			descriptor.SampleRate = int(floatValue(sr))
		}
		if ch, ok := findChild(audioPayload, idChannels); ok {
			descriptor.Channels = int(uintValue(ch))
		}
		codec, desc, ok := audioCodecDescriptor(codecID, codecPrivate)
		if !ok {
			return trackInfo{}, false
		}
		descriptor.Codec = codec
		descriptor.Description = desc
		if codec == "opus" {
			descriptor.SampleRate = 48000
			if descriptor.Channels == 0 {
				if n, ok := opusChannelsFromHead(codecPrivate); ok {
					descriptor.Channels = n
				}
			}
		}

	case demux.TrackSubtitle:
		descriptor.SubtitleFormat = codecID
		switch codecID {
		case "S_TEXT/UTF8", "S_TEXT/ASS", "S_TEXT/SSA", "S_HDMV/PGS":
		default:
			return trackInfo{}, false
		}
	}

	info := trackInfo{descriptor: descriptor}
	if codecID == "S_TEXT/ASS" || codecID == "S_TEXT/SSA" {
		columns, textIdx, ok := subtitle.ParseEventFormat(codecPrivate)
		if ok {
			info.assColumns = columns
			info.assTextIdx = textIdx
		}
	}
	return info, true
}

// floatValue decodes an EBML float element body (4 or 8 bytes, IEEE 754
// big-endian), used for Audio.SamplingFrequency.
func floatValue(payload []byte) float64 {
	switch len(payload) {
	case 4:
		var bits uint32
		for _, b := range payload {
			bits = bits<<8 | uint32(b)
		}
		return float64(math.Float32frombits(bits))
	case 8:
		var bits uint64
		for _, b := range payload {
			bits = bits<<8 | uint64(b)
		}
		return math.Float64frombits(bits)
	default:
		return 0
	}
}

func videoCodecDescriptor(codecID string, codecPrivate []byte) (string, []byte, bool) {
	switch codecID {
	case "V_MPEG4/ISO/AVC":
		codec, ok := avcCodecString(codecPrivate)
		return codec, codecPrivate, ok
	case "V_MPEGH/ISO/HEVC":
		codec, ok := hevcCodecString(codecPrivate)
		return codec, codecPrivate, ok
	case "V_VP9":
		return vp9CodecString(codecPrivate), nil, true
	case "V_AV1":
		codec, ok := av1CodecString(codecPrivate)
		return codec, codecPrivate, ok
	default:
		return "", nil, false
	}
}

func audioCodecDescriptor(codecID string, codecPrivate []byte) (string, []byte, bool) {
	switch {
	case codecID == "A_AAC":
		codec, ok := aacCodecString(codecPrivate)
		return codec, codecPrivate, ok
	case codecID == "A_OPUS":
		return "opus", codecPrivate, true
	case codecID == "A_MPEG/L3":
		return "mp3", nil, true
	case codecID == "A_FLAC":
		return "flac", codecPrivate, true
	case strings.HasPrefix(codecID, "A_AAC/"):
		codec, ok := aacCodecString(codecPrivate)
		return codec, codecPrivate, ok
	default:
		return "", nil, false
	}
}
