// Package demux defines the types shared by the three container
// demultiplexers (mp4, mkv, ts) and the tagged-variant Demuxer interface
// the orchestrator drives them through.
package demux

import "context"

// TrackKind distinguishes the media carried by a track.
type TrackKind int

const (
	TrackUnknown TrackKind = iota
	TrackVideo
	TrackAudio
	TrackSubtitle
)

// TrackDescriptor is the immutable per-track metadata produced once at
// open() and consumed by decoder configuration.
type TrackDescriptor struct {
	Kind TrackKind

	// Codec is the ISO-BMFF-style codec string, e.g. "avc1.42C01E",
	// "mp4a.40.2", "opus".
	Codec string

	// Description carries codec-private configuration bytes when the
	// codec requires them (AVCDecoderConfigurationRecord,
	// HEVCDecoderConfigurationRecord, AudioSpecificConfig, ...). Nil when
	// the codec needs none (vp09 with no CodecPrivate, mp3, ...).
	Description []byte

	// Video-only.
	Width, Height int

	// Audio-only.
	SampleRate int
	Channels   int

	// DefaultDurationUs is the track's default per-sample duration in
	// microseconds, when the container states one (0 if unknown).
	DefaultDurationUs int64

	// Name and Language are informational, mainly populated for
	// subtitle tracks.
	Name     string
	Language string

	// SubtitleFormat distinguishes "S_TEXT/UTF8" / "S_TEXT/ASS" /
	// "S_TEXT/SSA" / "S_HDMV/PGS" style identifiers for subtitle tracks.
	SubtitleFormat string

	// ID is the demuxer-internal track identifier (MP4 track ID, MKV
	// TrackNumber, TS elementary PID) used to select this track for
	// extraction.
	ID int
}

// ChunkKind distinguishes sync (key) samples from delta samples.
type ChunkKind int

const (
	ChunkDelta ChunkKind = iota
	ChunkKey
)

// EncodedVideoChunk is one video access unit.
type EncodedVideoChunk struct {
	Kind         ChunkKind
	TimestampUs  int64
	DurationUs   int64
	Bytes        []byte
}

// EncodedAudioChunk is one audio frame.
type EncodedAudioChunk struct {
	Kind        ChunkKind
	TimestampUs int64
	DurationUs  int64
	Bytes       []byte
}

// SubtitleCue is a sum type: exactly one of Text or Pgs is non-nil. The two
// variants share no metadata, so callers branch on which pointer is
// non-nil.
type SubtitleCue struct {
	Text *TextCue
	Pgs  *PgsCue
}

// TextCue is a plain or ASS/SSA dialogue-line cue.
type TextCue struct {
	StartUs int64
	EndUs   int64
	Text    string
}

// PgsCue is a self-contained sequence of PGS packets (13-byte header +
// segment each), already timestamped internally via PTS90k fields.
type PgsCue struct {
	Bytes []byte
}

// VideoChunkSink receives extracted video chunks.
type VideoChunkSink func(EncodedVideoChunk)

// AudioChunkSink receives extracted audio chunks.
type AudioChunkSink func(EncodedAudioChunk)

// SubtitleCueSink receives extracted subtitle cues.
type SubtitleCueSink func(SubtitleCue)

// Demuxer is the shape shared by the MP4, MKV, and TS demultiplexers: the
// orchestrator stores exactly one live instance behind this interface,
// selected by container detection.
type Demuxer interface {
	// Open reads enough of the source to discover tracks and returns once
	// ready for track queries and extraction.
	Open(ctx context.Context) error

	// VideoTrack and AudioTrack return the selected track descriptor, or
	// ok=false if the container has none.
	VideoTrack() (TrackDescriptor, bool)
	AudioTrack() (TrackDescriptor, bool)
	SubtitleTracks() []TrackDescriptor

	// StartVideoExtraction and StartAudioExtraction begin delivering
	// chunks to sink as they become available; both return once
	// extraction has been requested, not once it completes.
	StartVideoExtraction(ctx context.Context, sink VideoChunkSink) error
	StartAudioExtraction(ctx context.Context, sink AudioChunkSink) error

	// StartSubtitleExtraction begins delivering cues for the given
	// subtitle track ID.
	StartSubtitleExtraction(ctx context.Context, trackID int, sink SubtitleCueSink) error

	// PauseExtraction suspends all extraction loops at their next
	// cooperative suspension point.
	PauseExtraction()
	// ResumeExtraction wakes any loop blocked on PauseExtraction.
	ResumeExtraction()

	// Stop tears the demuxer down and aborts its underlying ByteSource.
	Stop() error
}

// PendingChunk is the single-slot look-ahead every demuxer's video
// extractor owns so that an emitted chunk's duration can be derived from
// the next chunk's timestamp. Modeled explicitly rather than as a pointer
// into any queue.
type PendingChunk struct {
	Kind        ChunkKind
	TimestampUs int64
	Bytes       []byte
	Valid       bool
}

// Flush emits the pending chunk (if any) with the given duration and
// clears the slot, calling sink. Used both mid-stream (duration from the
// next chunk) and at end-of-stream (duration 0).
func (p *PendingChunk) Flush(sink VideoChunkSink, durationUs int64) {
	if !p.Valid {
		return
	}
	if durationUs < 0 {
		durationUs = 0
	}
	sink(EncodedVideoChunk{
		Kind:        p.Kind,
		TimestampUs: p.TimestampUs,
		DurationUs:  durationUs,
		Bytes:       p.Bytes,
	})
	p.Valid = false
	p.Bytes = nil
}

// Set replaces the pending chunk, first flushing any previous occupant with
// the duration implied by the new chunk's timestamp.
func (p *PendingChunk) Set(sink VideoChunkSink, kind ChunkKind, timestampUs int64, data []byte) {
	if p.Valid {
		p.Flush(sink, timestampUs-p.TimestampUs)
	}
	p.Kind = kind
	p.TimestampUs = timestampUs
	p.Bytes = data
	p.Valid = true
}
