package mkv

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
	"github.com/zsiec/mediacore/internal/mediacore/subtitle"
)

// pendingCueFallbackUs is the duration an ASS/SSA pending cue is given
// when the stream ends before a closing block or BlockDuration arrives.
const pendingCueFallbackUs = 5_000_000

// yieldEveryNBlocks is how often the block-walking loop checks the pause
// gate and context cancellation, keeping the executor responsive without
// paying a syscall-ish check per block.
const yieldEveryNBlocks = 200

// Demuxer implements demux.Demuxer for Matroska/WebM: the whole Segment
// body is buffered in memory at Open (mirroring the TS demuxer's design),
// and each extraction goroutine independently walks the buffered Clusters,
// filtering blocks down to its own track number.
type Demuxer struct {
	src    bytesource.ByteSource
	logger *slog.Logger
	pauser *demux.Pauser

	timecodeScale uint64 // nanoseconds per tick; default 1_000_000
	segment       []byte

	videoTrack trackInfo
	hasVideo   bool
	audioTrack trackInfo
	hasAudio   bool
	subtitles  []trackInfo

	stopped bool
}

func New(src bytesource.ByteSource, logger *slog.Logger) *Demuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demuxer{
		src:           src,
		logger:        logger.With("component", "mkv_demuxer"),
		pauser:        demux.NewPauser(),
		timecodeScale: 1_000_000,
	}
}

func (d *Demuxer) Open(ctx context.Context) error {
	size := d.src.Size()
	data, err := d.src.Slice(0, size).Bytes(ctx)
	if err != nil {
		return fmt.Errorf("mkv: read source: %w", err)
	}

	found := false
	walkElements(data, func(id uint64, payload []byte) bool {
		if id == idSegment {
			d.segment = payload
			found = true
			return false
		}
		return true
	})
	if !found {
		return fmt.Errorf("mkv: %w: no Segment element found", demux.ErrMalformed)
	}

	var tracks []trackInfo
	walkElements(d.segment, func(id uint64, payload []byte) bool {
		switch id {
		case idInfo:
			if tsc, ok := findChild(payload, idTimecodeScale); ok {
				if v := uintValue(tsc); v > 0 {
					d.timecodeScale = v
				}
			}
		case idTracks:
			walkElements(payload, func(tid uint64, tpayload []byte) bool {
				if tid != idTrackEntry {
					return true
				}
				if info, ok := parseTrackEntry(tpayload); ok {
					tracks = append(tracks, info)
				}
				return true
			})
		}
		return true
	})

	for _, t := range tracks {
		switch t.descriptor.Kind {
		case demux.TrackVideo:
			if !d.hasVideo {
				d.videoTrack = t
				d.hasVideo = true
			}
		case demux.TrackAudio:
			if !d.hasAudio {
				d.audioTrack = t
				d.hasAudio = true
			}
		case demux.TrackSubtitle:
			d.subtitles = append(d.subtitles, t)
		}
	}

	if !d.hasVideo && !d.hasAudio && len(d.subtitles) == 0 {
		return fmt.Errorf("mkv: %w: Tracks has no usable entry", demux.ErrMalformed)
	}
	return nil
}

func (d *Demuxer) VideoTrack() (demux.TrackDescriptor, bool) {
	return d.videoTrack.descriptor, d.hasVideo
}
func (d *Demuxer) AudioTrack() (demux.TrackDescriptor, bool) {
	return d.audioTrack.descriptor, d.hasAudio
}
func (d *Demuxer) SubtitleTracks() []demux.TrackDescriptor {
	out := make([]demux.TrackDescriptor, len(d.subtitles))
	for i, t := range d.subtitles {
		out[i] = t.descriptor
	}
	return out
}

// blockVisitor is called once per Block/SimpleBlock with its resolved
// track number, timestamp, keyframe flag, lacing mode, concatenated
// payload, and (for BlockGroup) the explicit duration if one was present.
type blockVisitor func(trackNumber uint64, timestampUs int64, keyframe bool, lacing byte, payload []byte, hasDuration bool, durationUs int64) bool

// forEachBlock walks every Cluster in the buffered Segment, dispatching
// SimpleBlock and BlockGroup/Block bodies to visit. It is the single
// shared walking loop reused by video, audio, and subtitle extraction,
// each filtering down to its own track number.
func (d *Demuxer) forEachBlock(ctx context.Context, visit blockVisitor) {
	blockCount := 0
	stop := false

	checkYield := func() bool {
		blockCount++
		if blockCount%yieldEveryNBlocks != 0 {
			return false
		}
		if d.pauser.Stopped() {
			return true
		}
		d.pauser.Wait()
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	walkElements(d.segment, func(id uint64, payload []byte) bool {
		if stop || id != idCluster {
			return !stop
		}
		if d.pauser.Stopped() {
			return false
		}
		d.pauser.Wait()
		select {
		case <-ctx.Done():
			return false
		default:
		}
		var clusterTc uint64
		walkElements(payload, func(cid uint64, cdata []byte) bool {
			if stop {
				return false
			}
			switch cid {
			case idTimecode:
				clusterTc = uintValue(cdata)
			case idSimpleBlock:
				if checkYield() {
					stop = true
					return false
				}
				bh, ok := parseBlockHeader(cdata)
				if !ok {
					return true
				}
				tsUs := blockTimestampUs(clusterTc, bh.relTimecode, d.timecodeScale)
				if !visit(bh.trackNumber, tsUs, bh.keyframe, bh.lacing, bh.payload, false, 0) {
					stop = true
					return false
				}
			case idBlockGroup:
				if checkYield() {
					stop = true
					return false
				}
				var blockPayload []byte
				hasBlock := false
				var durationTicks uint64
				hasDuration := false
				walkElements(cdata, func(gid uint64, gdata []byte) bool {
					switch gid {
					case idBlock:
						blockPayload = gdata
						hasBlock = true
					case idBlockDuration:
						durationTicks = uintValue(gdata)
						hasDuration = true
					}
					return true
				})
				if !hasBlock {
					return true
				}
				bh, ok := parseBlockHeader(blockPayload)
				if !ok {
					return true
				}
				tsUs := blockTimestampUs(clusterTc, bh.relTimecode, d.timecodeScale)
				durUs := int64(0)
				if hasDuration {
					durUs = int64(math.Round(float64(durationTicks) * float64(d.timecodeScale) / 1000))
				}
				if !visit(bh.trackNumber, tsUs, bh.keyframe, bh.lacing, bh.payload, hasDuration, durUs) {
					stop = true
					return false
				}
			}
			return true
		})
		return !stop
	})
}

func blockTimestampUs(clusterTc uint64, relTimecode int16, timecodeScale uint64) int64 {
	combined := int64(clusterTc) + int64(relTimecode)
	return int64(math.Round(float64(combined) * float64(timecodeScale) / 1000))
}

func (d *Demuxer) StartVideoExtraction(ctx context.Context, sink demux.VideoChunkSink) error {
	if !d.hasVideo {
		return demux.ErrNoVideoTrack
	}
	trackNumber := uint64(d.videoTrack.descriptor.ID)
	go func() {
		var pending demux.PendingChunk
		d.forEachBlock(ctx, func(tn uint64, tsUs int64, keyframe bool, lacing byte, payload []byte, _ bool, _ int64) bool {
			if tn != trackNumber {
				return true
			}
			if lacing != laceNone {
				// Video lacing is unsupported: the block is discarded.
				return true
			}
			kind := demux.ChunkDelta
			if keyframe {
				kind = demux.ChunkKey
			}
			pending.Set(sink, kind, tsUs, payload)
			return true
		})
		pending.Flush(sink, 0)
	}()
	return nil
}

func (d *Demuxer) StartAudioExtraction(ctx context.Context, sink demux.AudioChunkSink) error {
	if !d.hasAudio {
		return demux.ErrNoAudioTrack
	}
	trackNumber := uint64(d.audioTrack.descriptor.ID)
	go func() {
		d.forEachBlock(ctx, func(tn uint64, tsUs int64, _ bool, _ byte, payload []byte, _ bool, _ int64) bool {
			if tn != trackNumber {
				return true
			}
			sink(demux.EncodedAudioChunk{Kind: demux.ChunkKey, TimestampUs: tsUs, DurationUs: 0, Bytes: payload})
			return true
		})
	}()
	return nil
}

func (d *Demuxer) StartSubtitleExtraction(ctx context.Context, trackID int, sink demux.SubtitleCueSink) error {
	var info trackInfo
	found := false
	for _, t := range d.subtitles {
		if t.descriptor.ID == trackID {
			info = t
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("mkv: %w: no subtitle track with id %d", demux.ErrMalformed, trackID)
	}

	trackNumber := uint64(trackID)
	isPGS := info.descriptor.SubtitleFormat == "S_HDMV/PGS"

	go func() {
		if isPGS {
			d.extractPGS(ctx, trackNumber, sink)
			return
		}
		d.extractText(ctx, trackNumber, info, sink)
	}()
	return nil
}

func (d *Demuxer) extractPGS(ctx context.Context, trackNumber uint64, sink demux.SubtitleCueSink) {
	var accum []byte
	d.forEachBlock(ctx, func(tn uint64, tsUs int64, _ bool, _ byte, payload []byte, _ bool, _ int64) bool {
		if tn != trackNumber {
			return true
		}
		if subtitle.IsSupPacket(payload) {
			accum = append(accum, payload...)
			return true
		}
		offset := 0
		for offset+3 <= len(payload) {
			segType := payload[offset]
			segLen := int(binary.BigEndian.Uint16(payload[offset+1 : offset+3]))
			segStart := offset + 3
			segEnd := segStart + segLen
			if segEnd > len(payload) {
				break
			}
			accum = append(accum, subtitle.AssemblePGS(tsUs, segType, payload[segStart:segEnd])...)
			offset = segEnd
		}
		return true
	})
	if len(accum) > 0 {
		sink(demux.SubtitleCue{Pgs: &demux.PgsCue{Bytes: accum}})
	}
}

func (d *Demuxer) extractText(ctx context.Context, trackNumber uint64, info trackInfo, sink demux.SubtitleCueSink) {
	var pendingStart int64
	var pendingText string
	havePending := false

	flush := func(endUs int64) {
		if !havePending {
			return
		}
		sink(demux.SubtitleCue{Text: &demux.TextCue{StartUs: pendingStart, EndUs: endUs, Text: pendingText}})
		havePending = false
	}

	d.forEachBlock(ctx, func(tn uint64, tsUs int64, _ bool, _ byte, payload []byte, hasDuration bool, durationUs int64) bool {
		if tn != trackNumber {
			return true
		}
		text := decodeSubtitleText(payload, info)
		if hasDuration {
			flush(tsUs)
			sink(demux.SubtitleCue{Text: &demux.TextCue{StartUs: tsUs, EndUs: tsUs + durationUs, Text: text}})
			return true
		}
		flush(tsUs)
		pendingStart = tsUs
		pendingText = text
		havePending = true
		return true
	})
	flush(pendingStart + pendingCueFallbackUs)
}

func decodeSubtitleText(payload []byte, info trackInfo) string {
	s := strings.ReplaceAll(string(payload), "\x00", "")
	if info.assColumns != nil {
		return subtitle.ProjectText(s, info.assColumns, info.assTextIdx)
	}
	return s
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
