// Package orchestrator drives one playback session: container detection,
// decoder setup, the decode/render loop, back-pressure, audio scheduling,
// and teardown. It is modeled as a single-threaded cooperative executor —
// one goroutine draining a channel of session events — mirroring the
// teacher's channel-centric core.Source, generalized from its
// multi-subscriber broadcast model to a single internal consumer loop.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsiec/mediacore/internal/mediacore/audio"
	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/clock"
	"github.com/zsiec/mediacore/internal/mediacore/decoder"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
	"github.com/zsiec/mediacore/internal/mediacore/ringbuffer"
)

const (
	// highWaterChunks and lowWaterChunks bound each encoded queue, applied
	// uniformly to both the video and audio encoded queues. They equal the
	// defaults of mediacore.audio_high_water / mediacore.audio_low_water in
	// config, but Config does not carry them, so those keys do not change
	// them.
	highWaterChunks = 120
	lowWaterChunks  = 40

	// videoDecoderPendingCap and audioDecoderPendingCap bound how many
	// chunks may be outstanding at a decoder before pump_* stops
	// submitting more.
	videoDecoderPendingCap = 4
	audioDecoderPendingCap = 8

	// audioLookaheadUs caps how far ahead of the clock an audio chunk may
	// be submitted for decode.
	audioLookaheadUs = 2_000_000

	// waitingForAudioTimeout forces the clock to start from the earliest
	// buffered video frame if audio never arrives within this long.
	waitingForAudioTimeout = 1 * time.Second

	// defaultVideoRingCapacity is mediacore.video_ring_capacity's default.
	defaultVideoRingCapacity = 8
)

// Renderer presents a decoded video frame. Close is the caller's
// responsibility on the frame the Session already holds; Renderer only
// draws it.
type Renderer interface {
	RenderVideoFrame(decoder.VideoFrame)
}

// AudioOutput is the playback device the Session schedules decoded audio
// blocks onto.
type AudioOutput interface {
	// CurrentTimeSec is the device's own playback clock, in seconds.
	CurrentTimeSec() float64
	// Play schedules data to start at startSec, begun offsetSec into the
	// block, playing for durationSec. The Session closes data afterward.
	Play(data decoder.AudioData, startSec, offsetSec, durationSec float64)
}

// Config collects the tunables the session applies; a zero Config is
// replaced with the spec's defaults.
type Config struct {
	VideoRingCapacity int
}

func (c Config) withDefaults() Config {
	if c.VideoRingCapacity <= 0 {
		c.VideoRingCapacity = defaultVideoRingCapacity
	}
	return c
}

// Session owns one playback pipeline: a demuxer, up to one video decoder
// and one audio decoder, and the queues/ring/clock/scheduler that connect
// them. It is not safe for concurrent use from outside its own event loop;
// all public methods communicate with that loop via channel sends.
type Session struct {
	logger *slog.Logger
	cfg    Config

	clock     *clock.MediaClock
	scheduler *audio.Scheduler
	ring      *ringbuffer.RingBuffer[decoder.VideoFrame]

	demuxer      demux.Demuxer
	videoDecoder decoder.VideoDecoder
	audioDecoder decoder.AudioDecoder
	subtitleSink decoder.SubtitleSink
	renderer     Renderer
	audioOutput  AudioOutput

	videoQueue []demux.EncodedVideoChunk
	audioQueue []demux.EncodedAudioChunk

	extractionPaused bool
	userPaused       bool

	waitingForAudio    bool
	waitingSinceWallMs int64

	nowWallMs func() int64

	events  chan sessionEvent
	done    chan struct{}
	stopped bool
}

type eventKind int

const (
	evVideoChunk eventKind = iota
	evAudioChunk
	evSubtitleCue
	evDecodedVideoFrame
	evDecodedAudioData
	evRenderTick
	evPause
	evResume
	evStop
)

type sessionEvent struct {
	kind       eventKind
	videoChunk demux.EncodedVideoChunk
	audioChunk demux.EncodedAudioChunk
	cue        demux.SubtitleCue
	frame      decoder.VideoFrame
	audioData  decoder.AudioData
}

// New constructs a Session. renderer and audioOutput may be nil for a
// video-only or audio-only pipeline (a nil renderer drops decoded frames
// after closing them; with a nil audioOutput, decoded audio blocks are still
// scheduled, against a device time of 0, and closed without being played).
func New(logger *slog.Logger, cfg Config, renderer Renderer, audioOutput AudioOutput) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	c := clock.New()
	return &Session{
		logger:      logger.With("component", "orchestrator"),
		cfg:         cfg,
		clock:       c,
		scheduler:   audio.New(c, logger),
		ring:        ringbuffer.New[decoder.VideoFrame](cfg.VideoRingCapacity),
		renderer:    renderer,
		audioOutput: audioOutput,
		events:      make(chan sessionEvent, 256),
		done:        make(chan struct{}),
		nowWallMs:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Load detects src's container, opens the matching demuxer, configures the
// supplied decoders against the discovered tracks, and starts extraction.
// It does not start the event loop; call Run afterward.
func (s *Session) Load(ctx context.Context, src bytesource.ByteSource, pathOrURL, explicitMode string, videoDecoder decoder.VideoDecoder, audioDecoder decoder.AudioDecoder, subtitleSink decoder.SubtitleSink) error {
	kind, err := DetectContainer(pathOrURL, explicitMode)
	if err != nil {
		return fmt.Errorf("orchestrator: load: %w", err)
	}
	d, err := newDemuxer(kind, src, s.logger)
	if err != nil {
		return fmt.Errorf("orchestrator: load: %w", err)
	}
	if err := d.Open(ctx); err != nil {
		return fmt.Errorf("orchestrator: open: %w", err)
	}
	s.demuxer = d
	s.videoDecoder = videoDecoder
	s.audioDecoder = audioDecoder
	s.subtitleSink = subtitleSink

	if track, ok := d.VideoTrack(); ok {
		if videoDecoder == nil {
			return fmt.Errorf("orchestrator: %w: container has video but no video decoder supplied", demux.ErrNoVideoTrack)
		}
		cfg := decoder.VideoConfig{Codec: track.Codec, Description: track.Description, Width: track.Width, Height: track.Height}
		supported, normalized, err := videoDecoder.IsConfigSupported(cfg)
		if err != nil || !supported {
			return fmt.Errorf("orchestrator: video decoder does not support %q: %w", track.Codec, errOrUnsupported(err))
		}
		if err := videoDecoder.Configure(normalized, func(f decoder.VideoFrame) {
			s.postOrDrop(sessionEvent{kind: evDecodedVideoFrame, frame: f})
		}); err != nil {
			return fmt.Errorf("orchestrator: configure video decoder: %w", err)
		}
		if err := d.StartVideoExtraction(ctx, func(c demux.EncodedVideoChunk) {
			s.post(sessionEvent{kind: evVideoChunk, videoChunk: c})
		}); err != nil {
			return fmt.Errorf("orchestrator: start video extraction: %w", err)
		}
	}

	if track, ok := d.AudioTrack(); ok && audioDecoder != nil {
		cfg := decoder.AudioConfig{Codec: track.Codec, Description: track.Description, SampleRate: track.SampleRate, Channels: track.Channels}
		supported, normalized, err := audioDecoder.IsConfigSupported(cfg)
		if err != nil || !supported {
			s.logger.Warn("audio decoder does not support track codec, disabling audio", "codec", track.Codec)
		} else if err := audioDecoder.Configure(normalized, func(a decoder.AudioData) {
			s.postOrDrop(sessionEvent{kind: evDecodedAudioData, audioData: a})
		}); err != nil {
			s.logger.Warn("audio decoder configure failed, disabling audio", "error", err)
		} else {
			s.waitingForAudio = true
			s.waitingSinceWallMs = s.nowWallMs()
			if err := d.StartAudioExtraction(ctx, func(c demux.EncodedAudioChunk) {
				s.post(sessionEvent{kind: evAudioChunk, audioChunk: c})
			}); err != nil {
				return fmt.Errorf("orchestrator: start audio extraction: %w", err)
			}
		}
	}

	for _, sub := range d.SubtitleTracks() {
		id := sub.ID
		if err := d.StartSubtitleExtraction(ctx, id, func(c demux.SubtitleCue) {
			s.post(sessionEvent{kind: evSubtitleCue, cue: c})
		}); err != nil {
			s.logger.Warn("subtitle extraction failed to start", "track", id, "error", err)
		}
	}

	return nil
}

func errOrUnsupported(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("unsupported configuration")
}

// post blocks until the event is accepted or the session has stopped.
func (s *Session) post(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// postOrDrop is used for decoder output callbacks: if the event channel is
// saturated (the session is shutting down or wedged) the event is dropped
// rather than blocking a decoder's own goroutine indefinitely.
func (s *Session) postOrDrop(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	default:
	}
}

// RenderTick should be called once per display refresh; it drives step 4
// of the decode/render loop.
func (s *Session) RenderTick() {
	s.post(sessionEvent{kind: evRenderTick})
}

// Pause sets the session paused and pauses extraction.
func (s *Session) Pause() { s.post(sessionEvent{kind: evPause}) }

// Resume un-pauses the session and resumes extraction.
func (s *Session) Resume() { s.post(sessionEvent{kind: evResume}) }

// Stop tears the session down: cancels the loop, drains and closes
// buffered frames, closes decoders, and stops the demuxer.
func (s *Session) Stop() {
	select {
	case s.events <- sessionEvent{kind: evStop}:
	case <-s.done:
	}
}

// Run drives the single-threaded event loop until Stop is called or ctx
// is cancelled. It returns once teardown has completed.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return
		case ev := <-s.events:
			if s.dispatch(ev) {
				s.teardown()
				return
			}
		}
	}
}

// dispatch handles one event and reports whether the loop should exit.
func (s *Session) dispatch(ev sessionEvent) (stop bool) {
	switch ev.kind {
	case evVideoChunk:
		s.onVideoChunk(ev.videoChunk)
	case evAudioChunk:
		s.onAudioChunk(ev.audioChunk)
	case evSubtitleCue:
		if s.subtitleSink != nil {
			s.subtitleSink.OnCue(ev.cue)
		}
	case evDecodedVideoFrame:
		s.onDecodedVideoFrame(ev.frame)
	case evDecodedAudioData:
		s.onDecodedAudioData(ev.audioData)
	case evRenderTick:
		s.renderTick()
	case evPause:
		s.userPaused = true
		if s.demuxer != nil {
			s.demuxer.PauseExtraction()
		}
	case evResume:
		s.userPaused = false
		if s.demuxer != nil && !s.extractionPaused {
			s.demuxer.ResumeExtraction()
		}
	case evStop:
		return true
	}
	return false
}

func (s *Session) onVideoChunk(c demux.EncodedVideoChunk) {
	s.videoQueue = append(s.videoQueue, c)
	s.checkBackpressure()
	s.pumpVideo()
}

func (s *Session) onAudioChunk(c demux.EncodedAudioChunk) {
	s.audioQueue = append(s.audioQueue, c)
	s.checkBackpressure()
	s.pumpAudio()
}

// pumpVideo submits queued chunks to the video decoder while its pending
// count and the frame ring both have headroom, per step 2 of the
// decode/render loop.
func (s *Session) pumpVideo() {
	if s.videoDecoder == nil {
		return
	}
	for len(s.videoQueue) > 0 &&
		s.videoDecoder.Pending() <= videoDecoderPendingCap &&
		s.ring.Len() <= s.ring.Capacity()-2 {
		chunk := s.videoQueue[0]
		s.videoQueue = s.videoQueue[1:]
		if err := s.videoDecoder.Submit(chunk); err != nil {
			s.logger.Error("video decode submit failed", "error", err)
		}
	}
	s.checkBackpressure()
}

// pumpAudio submits queued chunks to the audio decoder while its pending
// count has headroom and the chunk is not more than audioLookaheadUs
// ahead of the clock.
func (s *Session) pumpAudio() {
	if s.audioDecoder == nil {
		return
	}
	wall := s.nowWallMs()
	for len(s.audioQueue) > 0 && s.audioDecoder.Pending() <= audioDecoderPendingCap {
		next := s.audioQueue[0]
		if s.clock.Started() && next.TimestampUs-s.clock.NowUs(wall) > audioLookaheadUs {
			break
		}
		s.audioQueue = s.audioQueue[1:]
		if err := s.audioDecoder.Submit(next); err != nil {
			s.logger.Error("audio decode submit failed", "error", err)
		}
	}
	s.checkBackpressure()
}

// checkBackpressure applies the high/low-water hysteresis: exceeding the
// high-water on either queue pauses extraction; falling below both
// low-waters resumes it (unless the user has separately paused).
func (s *Session) checkBackpressure() {
	if s.demuxer == nil {
		return
	}
	over := len(s.videoQueue) > highWaterChunks || len(s.audioQueue) > highWaterChunks
	under := len(s.videoQueue) <= lowWaterChunks && len(s.audioQueue) <= lowWaterChunks

	if over && !s.extractionPaused {
		s.extractionPaused = true
		s.demuxer.PauseExtraction()
	} else if under && s.extractionPaused {
		s.extractionPaused = false
		if !s.userPaused {
			s.demuxer.ResumeExtraction()
		}
	}
}

func (s *Session) onDecodedVideoFrame(f decoder.VideoFrame) {
	if !s.clock.Started() && !s.waitingForAudio {
		s.clock.Start(f.TimestampUs(), s.nowWallMs())
	}
	s.ring.PushEvict(f)
	s.pumpVideo()
}

func (s *Session) onDecodedAudioData(a decoder.AudioData) {
	s.waitingForAudio = false
	deviceNow := 0.0
	if s.audioOutput != nil {
		deviceNow = s.audioOutput.CurrentTimeSec()
	}
	decision := s.scheduler.Schedule(deviceNow, a.TimestampUs(), a.DurationSec())
	if decision.Dropped {
		a.Close()
		s.pumpAudio()
		return
	}
	if s.audioOutput != nil {
		s.audioOutput.Play(a, decision.StartSec, decision.PlaybackOffsetSec, decision.DurationSec)
	}
	a.Close()
	s.pumpAudio()
}

// renderTick implements step 4: force-start the clock if audio never
// shows up, then pop and render everything whose time has come.
func (s *Session) renderTick() {
	wall := s.nowWallMs()

	if s.waitingForAudio && wall-s.waitingSinceWallMs > waitingForAudioTimeout.Milliseconds() {
		if peek, ok := s.ring.Peek(); ok {
			s.waitingForAudio = false
			s.clock.Start(peek.TimestampUs(), wall)
		}
	}

	for {
		peek, ok := s.ring.Peek()
		if !ok || !s.clock.Started() || peek.TimestampUs() > s.clock.NowUs(wall) {
			break
		}
		frame, _ := s.ring.Shift()
		if s.renderer != nil {
			s.renderer.RenderVideoFrame(frame)
		}
		frame.Close()
	}
	s.pumpVideo()
	s.pumpAudio()
}

// teardown cancels rendering, drains and closes buffered frames, closes
// decoders, and stops the demuxer (which aborts its ByteSource).
func (s *Session) teardown() {
	if s.stopped {
		return
	}
	s.stopped = true

	s.ring.Drain()
	s.videoQueue = nil
	s.audioQueue = nil

	if s.videoDecoder != nil {
		s.videoDecoder.Flush() // best-effort; errors never fail teardown
		if err := s.videoDecoder.Close(); err != nil {
			s.logger.Warn("video decoder close error", "error", err)
		}
	}
	if s.audioDecoder != nil {
		s.audioDecoder.Flush()
		if err := s.audioDecoder.Close(); err != nil {
			s.logger.Warn("audio decoder close error", "error", err)
		}
	}
	if s.demuxer != nil {
		if err := s.demuxer.Stop(); err != nil {
			s.logger.Warn("demuxer stop error", "error", err)
		}
	}
}
