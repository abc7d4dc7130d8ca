// Package ts implements the MPEG-TS/M2TS demultiplexer: stride/sync
// probing, PAT/PMT discovery, PES reassembly, Annex-B->AVCC conversion for
// H.264, and ADTS/MP3 framing for audio.
package ts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

const driftGuardUs = 500_000

// Demuxer implements demux.Demuxer for MPEG-TS streams.
type Demuxer struct {
	src    bytesource.ByteSource
	logger *slog.Logger
	pauser *demux.Pauser

	stride     int
	syncOffset int

	data []byte // whole stream, read into memory in one slice at Open

	videoPID uint16
	hasVideo bool
	audioPID uint16
	hasAudio bool

	videoTrack demux.TrackDescriptor
	audioTrack demux.TrackDescriptor

	stopped bool
}

// New constructs a TS demuxer over src.
func New(src bytesource.ByteSource, logger *slog.Logger) *Demuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demuxer{
		src:    src,
		logger: logger.With("component", "ts_demuxer"),
		pauser: demux.NewPauser(),
	}
}

func (d *Demuxer) Open(ctx context.Context) error {
	size := d.src.Size()
	data, err := d.src.Slice(0, size).Bytes(ctx)
	if err != nil {
		return fmt.Errorf("ts: read source: %w", err)
	}
	d.data = data

	stride, syncOffset, ok := probeStride(data)
	if !ok {
		return fmt.Errorf("ts: %w: no valid packet sync found", demux.ErrMalformed)
	}
	d.stride, d.syncOffset = stride, syncOffset
	d.logger.Debug("probed TS packetization", "stride", stride, "sync_offset", syncOffset)

	if err := d.discoverTracks(); err != nil {
		return err
	}
	return nil
}

func (d *Demuxer) packets() func(func(pkt []byte) bool) {
	return func(yield func(pkt []byte) bool) {
		for pos := d.syncOffset; pos+188 <= len(d.data); pos += d.stride {
			if !yield(d.data[pos : pos+188]) {
				return
			}
		}
	}
}

func (d *Demuxer) discoverTracks() error {
	var pat sectionAssembler
	var pmt sectionAssembler
	var pmtPID uint16
	var pmtPIDKnown bool
	var streams pmtStreams
	var streamsKnown bool

	var videoPES, audioPES []byte
	var videoPESActive, audioPESActive bool
	var videoSPS, videoPPS []byte
	var audioFrame adtsFrame
	var audioHeaderBytes []byte
	var audioIsMP3 bool
	var mp3Hdr mp3Frame

	for pkt := range d.packets() {
		h, ok := parsePacketHeader(pkt)
		if !ok {
			continue
		}
		payload := packetPayload(pkt, h)
		if payload == nil {
			continue
		}

		switch {
		case h.pid == 0:
			pat.feed(payload, h.pusi)
			if section, ready := pat.section(); ready && !pmtPIDKnown {
				if pid, ok := parsePAT(section); ok {
					pmtPID = pid
					pmtPIDKnown = true
				}
			}
		case pmtPIDKnown && h.pid == pmtPID && !streamsKnown:
			pmt.feed(payload, h.pusi)
			if section, ready := pmt.section(); ready {
				if s, ok := parsePMT(section); ok {
					streams = s
					streamsKnown = true
					d.videoPID, d.hasVideo = s.videoPID, s.hasVideo
					d.audioPID, d.hasAudio = s.audioPID, s.hasAudio
				}
			}
		case streamsKnown && streams.hasVideo && h.pid == streams.videoPID && len(videoSPS) == 0:
			if h.pusi {
				if videoPESActive {
					videoSPS, videoPPS = scanH264Init(videoPES)
				}
				videoPES = append([]byte(nil), payload...)
				videoPESActive = true
			} else if videoPESActive {
				videoPES = append(videoPES, payload...)
			}
			if len(videoPES) > 0 {
				if sps, pps := scanH264Init(videoPES); sps != nil && pps != nil {
					videoSPS, videoPPS = sps, pps
				}
			}
		case streamsKnown && streams.hasAudio && h.pid == streams.audioPID && len(audioHeaderBytes) == 0:
			if h.pusi {
				if audioPESActive {
					audioHeaderBytes, audioFrame, audioIsMP3, mp3Hdr = scanAudioInit(audioPES, streams.audioStreamType)
				}
				audioPES = append([]byte(nil), payload...)
				audioPESActive = true
			} else if audioPESActive {
				audioPES = append(audioPES, payload...)
			}
			if len(audioHeaderBytes) == 0 && len(audioPES) > 0 {
				audioHeaderBytes, audioFrame, audioIsMP3, mp3Hdr = scanAudioInit(audioPES, streams.audioStreamType)
			}
		}

		if (!d.hasVideo || len(videoSPS) != 0) && (!d.hasAudio || len(audioHeaderBytes) != 0) {
			break
		}
	}
	if videoPESActive && len(videoSPS) == 0 {
		videoSPS, videoPPS = scanH264Init(videoPES)
	}
	if audioPESActive && len(audioHeaderBytes) == 0 {
		audioHeaderBytes, audioFrame, audioIsMP3, mp3Hdr = scanAudioInit(audioPES, streams.audioStreamType)
	}

	if !streamsKnown {
		return fmt.Errorf("ts: %w: no PMT found", demux.ErrMalformed)
	}

	if d.hasVideo {
		if len(videoSPS) == 0 {
			return fmt.Errorf("ts: %w: no SPS/PPS found for video PID %d", demux.ErrMalformed, d.videoPID)
		}
		d.videoTrack = demux.TrackDescriptor{
			Kind:        demux.TrackVideo,
			Codec:       h264CodecString(videoSPS),
			Description: buildAVCDecoderConfigurationRecord(videoSPS, videoPPS),
			ID:          int(d.videoPID),
		}
	}
	if d.hasAudio {
		if audioIsMP3 {
			d.audioTrack = demux.TrackDescriptor{
				Kind:       demux.TrackAudio,
				Codec:      "mp3",
				SampleRate: mp3Hdr.sampleRate,
				ID:         int(d.audioPID),
			}
		} else if audioFrame.frameLength > 0 {
			d.audioTrack = demux.TrackDescriptor{
				Kind:        demux.TrackAudio,
				Codec:       aacCodecString(audioFrame),
				Description: audioSpecificConfig(audioFrame),
				SampleRate:  adtsSampleRates[audioFrame.samplingFreqIdx],
				Channels:    int(audioFrame.channelConfig),
				ID:          int(d.audioPID),
			}
		} else {
			return fmt.Errorf("ts: %w: no audio init data found for PID %d", demux.ErrMalformed, d.audioPID)
		}
	}
	return nil
}

// scanH264Init scans an accumulated PES payload for the first SPS/PPS NAL
// units, skipping the PES header.
func scanH264Init(pes []byte) (sps, pps []byte) {
	hdr, ok := parsePESHeader(pes)
	if !ok {
		return nil, nil
	}
	if hdr.headerLen > len(pes) {
		return nil, nil
	}
	payload := pes[hdr.headerLen:]
	return findNALByType(payload, 7), findNALByType(payload, 8)
}

// scanAudioInit scans an accumulated PES payload for the first ADTS or MP3
// frame header, depending on the stream type selected by the PMT.
func scanAudioInit(pes []byte, streamType byte) (headerBytes []byte, adts adtsFrame, isMP3 bool, mp3 mp3Frame) {
	hdr, ok := parsePESHeader(pes)
	if !ok {
		return nil, adtsFrame{}, false, mp3Frame{}
	}
	if hdr.headerLen > len(pes) {
		return nil, adtsFrame{}, false, mp3Frame{}
	}
	payload := pes[hdr.headerLen:]

	if streamType == streamTypeMPEG1L3 || streamType == streamTypeMPEG2L3 {
		idx := findMPEGSync(payload)
		if idx == -1 {
			return nil, adtsFrame{}, false, mp3Frame{}
		}
		f, ok := parseMP3Header(payload[idx:])
		if !ok {
			return nil, adtsFrame{}, false, mp3Frame{}
		}
		return payload[idx : idx+4], adtsFrame{}, true, f
	}

	idx := findADTSSync(payload)
	if idx == -1 {
		return nil, adtsFrame{}, false, mp3Frame{}
	}
	f, ok := parseADTSHeader(payload[idx:])
	if !ok {
		return nil, adtsFrame{}, false, mp3Frame{}
	}
	return payload[idx : idx+f.headerLen], f, false, mp3Frame{}
}

func findMPEGSync(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return i
		}
	}
	return -1
}

// trimToSyncCandidate is called once findADTSSync/findMPEGSync have found no
// complete sync word in remainder. Both only recognize a sync word once its
// two bytes are present, so a lone 0xFF at the very end of remainder is
// never examined as a candidate start; keep it rather than discarding it,
// since the next PES's payload may supply the second byte and complete the
// sync word. Anything before that trailing candidate byte is genuinely
// un-syncable and is dropped.
func trimToSyncCandidate(remainder []byte) []byte {
	if n := len(remainder); n > 0 && remainder[n-1] == 0xFF {
		return remainder[n-1:]
	}
	return nil
}

func (d *Demuxer) VideoTrack() (demux.TrackDescriptor, bool) { return d.videoTrack, d.hasVideo }
func (d *Demuxer) AudioTrack() (demux.TrackDescriptor, bool) { return d.audioTrack, d.hasAudio }
func (d *Demuxer) SubtitleTracks() []demux.TrackDescriptor   { return nil }

func (d *Demuxer) StartVideoExtraction(ctx context.Context, sink demux.VideoChunkSink) error {
	if !d.hasVideo {
		return demux.ErrNoVideoTrack
	}
	go d.extractVideo(ctx, sink)
	return nil
}

func (d *Demuxer) extractVideo(ctx context.Context, sink demux.VideoChunkSink) {
	var pending demux.PendingChunk
	var pes []byte
	var pesActive bool

	emit := func() {
		if !pesActive || len(pes) == 0 {
			return
		}
		hdr, ok := parsePESHeader(pes)
		if !ok || hdr.headerLen > len(pes) || !hdr.hasPTS {
			return
		}
		avcc, sawIDR := annexBToAVCC(pes[hdr.headerLen:])
		if len(avcc) == 0 {
			return
		}
		kind := demux.ChunkDelta
		if sawIDR {
			kind = demux.ChunkKey
		}
		pending.Set(sink, kind, hdr.ptsUs, avcc)
	}

	for pkt := range d.packets() {
		if d.pauser.Stopped() {
			return
		}
		d.pauser.Wait()
		select {
		case <-ctx.Done():
			return
		default:
		}

		h, ok := parsePacketHeader(pkt)
		if !ok || h.pid != d.videoPID {
			continue
		}
		payload := packetPayload(pkt, h)
		if payload == nil {
			continue
		}
		if h.pusi {
			emit()
			pes = append([]byte(nil), payload...)
			pesActive = true
		} else if pesActive {
			pes = append(pes, payload...)
		}
	}
	emit()
	pending.Flush(sink, 0)
}

func (d *Demuxer) StartAudioExtraction(ctx context.Context, sink demux.AudioChunkSink) error {
	if !d.hasAudio {
		return demux.ErrNoAudioTrack
	}
	go d.extractAudio(ctx, sink)
	return nil
}

func (d *Demuxer) extractAudio(ctx context.Context, sink demux.AudioChunkSink) {
	isMP3 := d.audioTrack.Codec == "mp3"
	var remainder []byte
	var nextTsUs int64
	var started bool

	processRemainder := func() {
		for {
			var idx int
			if isMP3 {
				idx = findMPEGSync(remainder)
			} else {
				idx = findADTSSync(remainder)
			}
			if idx == -1 {
				remainder = trimToSyncCandidate(remainder)
				return
			}
			if idx > 0 {
				remainder = remainder[idx:]
			}
			if isMP3 {
				f, ok := parseMP3Header(remainder)
				if !ok || f.frameLength > len(remainder) {
					return
				}
				frameBytes := remainder[:f.frameLength]
				remainder = remainder[f.frameLength:]
				sink(demux.EncodedAudioChunk{Kind: demux.ChunkKey, TimestampUs: nextTsUs, Bytes: frameBytes})
				nextTsUs += int64(f.samplesPerFrame) * 1_000_000 / int64(f.sampleRate)
			} else {
				f, ok := parseADTSHeader(remainder)
				if !ok || f.frameLength > len(remainder) {
					return
				}
				frameBytes := remainder[:f.frameLength]
				remainder = remainder[f.frameLength:]
				sink(demux.EncodedAudioChunk{Kind: demux.ChunkKey, TimestampUs: nextTsUs, Bytes: frameBytes})
				rate := adtsSampleRates[f.samplingFreqIdx]
				if rate > 0 {
					nextTsUs += int64(f.samplesPerFrame) * 1_000_000 / int64(rate)
				}
			}
		}
	}

	for pkt := range d.packets() {
		if d.pauser.Stopped() {
			return
		}
		d.pauser.Wait()
		select {
		case <-ctx.Done():
			return
		default:
		}

		h, ok := parsePacketHeader(pkt)
		if !ok || h.pid != d.audioPID {
			continue
		}
		payload := packetPayload(pkt, h)
		if payload == nil {
			continue
		}
		if h.pusi {
			hdr, ok := parsePESHeader(payload)
			if ok && hdr.hasPTS {
				if !started {
					nextTsUs = hdr.ptsUs
					started = true
				} else if abs64(hdr.ptsUs-nextTsUs) >= driftGuardUs {
					nextTsUs = hdr.ptsUs
				}
				if hdr.headerLen <= len(payload) {
					remainder = append(remainder, payload[hdr.headerLen:]...)
				}
			}
		} else if started {
			remainder = append(remainder, payload...)
		}
		processRemainder()
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (d *Demuxer) StartSubtitleExtraction(ctx context.Context, trackID int, sink demux.SubtitleCueSink) error {
	return fmt.Errorf("ts: subtitle tracks are not produced by MPEG-TS")
}

func (d *Demuxer) PauseExtraction()  { d.pauser.Pause() }
func (d *Demuxer) ResumeExtraction() { d.pauser.Resume() }

func (d *Demuxer) Stop() error {
	if d.stopped {
		return nil
	}
	d.stopped = true
	d.pauser.Stop()
	d.src.Abort()
	return nil
}
