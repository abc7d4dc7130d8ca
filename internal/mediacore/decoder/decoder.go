// Package decoder fixes the Go shape of the codec decoders the orchestrator
// drives. Real decoders (hardware or software, video/audio) are out of
// scope for this module; this package exists so the orchestrator can be
// built and tested end-to-end against a fake implementation, the way the
// teacher's core.Source consumers are tested against channel-backed fakes.
package decoder

import "github.com/zsiec/mediacore/internal/mediacore/demux"

// VideoConfig describes the codec a VideoDecoder is asked to configure for.
type VideoConfig struct {
	Codec       string
	Description []byte
	Width       int
	Height      int
}

// AudioConfig describes the codec an AudioDecoder is asked to configure for.
type AudioConfig struct {
	Codec       string
	Description []byte
	SampleRate  int
	Channels    int
}

// VideoFrame is an opaque decoded surface. Ownership transfers to whoever
// holds it (the frame ring, then the render loop); it must be closed
// exactly once, on eviction or after rendering.
type VideoFrame interface {
	TimestampUs() int64
	Close() error
}

// AudioData is an opaque decoded PCM block sized to some sample rate.
// DurationSec is the block's own playback duration, the "buffer.duration"
// the audio scheduling policy compares offsets against.
type AudioData interface {
	TimestampUs() int64
	DurationSec() float64
	Close() error
}

// VideoDecoder decodes EncodedVideoChunks into VideoFrames, delivered
// asynchronously to the callback registered at Configure. Pending reports
// the number of chunks submitted but not yet decoded, the figure the
// orchestrator's back-pressure check compares against its cap.
type VideoDecoder interface {
	IsConfigSupported(cfg VideoConfig) (supported bool, normalized VideoConfig, err error)
	Configure(cfg VideoConfig, onFrame func(VideoFrame)) error
	Submit(chunk demux.EncodedVideoChunk) error
	Pending() int
	Flush() error
	Close() error
}

// AudioDecoder mirrors VideoDecoder for encoded audio chunks.
type AudioDecoder interface {
	IsConfigSupported(cfg AudioConfig) (supported bool, normalized AudioConfig, err error)
	Configure(cfg AudioConfig, onData func(AudioData)) error
	Submit(chunk demux.EncodedAudioChunk) error
	Pending() int
	Flush() error
	Close() error
}

// SubtitleSink receives subtitle cues forwarded by the orchestrator,
// unmodified from what the demuxer produced.
type SubtitleSink interface {
	OnCue(demux.SubtitleCue)
}
