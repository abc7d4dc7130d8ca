package mkv

// EBML/Matroska element IDs, wire-form (leading length marker included).
const (
	idEBML    = 0x1A45DFA3
	idSegment = 0x18538067

	idInfo          = 0x1549A966
	idTimecodeScale = 0x2AD7B1

	idTracks           = 0x1654AE6B
	idTrackEntry       = 0xAE
	idTrackNumber      = 0xD7
	idTrackType        = 0x83
	idCodecID          = 0x86
	idCodecPrivate     = 0x63A2
	idDefaultDuration  = 0x23E383
	idName             = 0x536E
	idLanguage         = 0x22B59C
	idVideo            = 0xE0
	idAudio            = 0xE1
	idPixelWidth       = 0xB0
	idPixelHeight      = 0xBA
	idSamplingFrequency = 0xB5
	idChannels         = 0x9F

	idCluster       = 0x1F43B675
	idTimecode      = 0xE7
	idSimpleBlock   = 0xA3
	idBlockGroup    = 0xA0
	idBlock         = 0xA1
	idBlockDuration = 0x9B
)

// Track types (Matroska TrackType values).
const (
	trackTypeVideo    = 1
	trackTypeAudio    = 2
	trackTypeSubtitle = 17
)
