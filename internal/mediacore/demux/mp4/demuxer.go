package mp4

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
)

const maxMoovSize = 64 << 20

// Demuxer implements demux.Demuxer for ISO-BMFF (MP4) files: fragmented
// (fMP4) streams are not supported, only a single moov/mdat with resolved
// sample tables.
type Demuxer struct {
	src    bytesource.ByteSource
	logger *slog.Logger
	pauser *demux.Pauser

	videoTrack demux.TrackDescriptor
	hasVideo   bool
	videoTable *SampleTable
	videoScale uint32

	audioTrack demux.TrackDescriptor
	hasAudio   bool
	audioTable *SampleTable
	audioScale uint32

	stopped bool
}

func New(src bytesource.ByteSource, logger *slog.Logger) *Demuxer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Demuxer{
		src:    src,
		logger: logger.With("component", "mp4_demuxer"),
		pauser: demux.NewPauser(),
	}
}

func (d *Demuxer) Open(ctx context.Context) error {
	size := d.src.Size()
	var offset uint64
	var moov []byte

	for offset+8 <= size {
		end := offset + 16
		if end > size {
			end = size
		}
		header, err := d.src.Slice(offset, end).Bytes(ctx)
		if err != nil {
			return fmt.Errorf("mp4: read box header at %d: %w", offset, err)
		}
		h, ok := readBoxHeader(header, 0)
		if !ok {
			return fmt.Errorf("mp4: %w: malformed box header at offset %d", demux.ErrMalformed, offset)
		}
		// h.payloadEnd is clamped to the tiny header buffer's length and is
		// not meaningful here; only the header length (h.payloadOff) and
		// box type are used, with the true box size recomputed below.
		headerLen := h.payloadOff
		var totalSize uint64
		switch {
		case binary.BigEndian.Uint32(header[0:4]) == 1:
			totalSize = binary.BigEndian.Uint64(header[8:16])
		case binary.BigEndian.Uint32(header[0:4]) == 0:
			totalSize = size - offset
		default:
			totalSize = uint64(binary.BigEndian.Uint32(header[0:4]))
		}
		boxType := h.boxType
		payloadStart := offset + uint64(headerLen)
		payloadEnd := offset + totalSize
		if payloadEnd > size {
			payloadEnd = size
		}

		if boxType == "moov" {
			if payloadEnd-payloadStart > maxMoovSize {
				return fmt.Errorf("mp4: moov box too large (%d bytes)", payloadEnd-payloadStart)
			}
			data, err := d.src.Slice(payloadStart, payloadEnd).Bytes(ctx)
			if err != nil {
				return fmt.Errorf("mp4: read moov: %w", err)
			}
			moov = data
			break
		}
		if totalSize < uint64(headerLen) {
			return fmt.Errorf("mp4: %w: non-increasing box size at offset %d", demux.ErrMalformed, offset)
		}
		offset = payloadEnd
	}

	if moov == nil {
		return fmt.Errorf("mp4: %w: no moov box found", demux.ErrMalformed)
	}
	return d.parseMoov(moov)
}

type parsedTrack struct {
	kind       demux.TrackKind
	trackID    int
	timescale  uint32
	table      *SampleTable
	descriptor demux.TrackDescriptor
}

func (d *Demuxer) parseMoov(moov []byte) error {
	var videoTracks, audioTracks []parsedTrack

	for _, trak := range findBoxes(moov, "trak") {
		t, ok := parseTrak(trak)
		if !ok {
			continue
		}
		switch t.kind {
		case demux.TrackVideo:
			videoTracks = append(videoTracks, t)
		case demux.TrackAudio:
			audioTracks = append(audioTracks, t)
		}
	}

	if len(videoTracks) > 0 {
		t := videoTracks[0]
		d.videoTrack = t.descriptor
		d.videoTable = t.table
		d.videoScale = t.timescale
		d.hasVideo = true
	}
	if len(audioTracks) > 0 {
		t := audioTracks[0]
		d.audioTrack = t.descriptor
		d.audioTable = t.table
		d.audioScale = t.timescale
		d.hasAudio = true
	}
	if !d.hasVideo && !d.hasAudio {
		return fmt.Errorf("mp4: %w: moov has no usable video or audio track", demux.ErrMalformed)
	}
	return nil
}

func parseTrak(trak []byte) (parsedTrack, bool) {
	tkhdTrackID := 0
	if tkhd, ok := findBox(trak, "tkhd"); ok && len(tkhd) >= 4 {
		version := tkhd[0]
		idOff := 12
		if version == 1 {
			idOff = 20
		}
		if len(tkhd) >= idOff+4 {
			tkhdTrackID = int(binary.BigEndian.Uint32(tkhd[idOff : idOff+4]))
		}
	}

	mdia, ok := findBox(trak, "mdia")
	if !ok {
		return parsedTrack{}, false
	}
	hdlr, ok := findBox(mdia, "hdlr")
	if !ok || len(hdlr) < 12 {
		return parsedTrack{}, false
	}
	handlerType := string(hdlr[8:12])

	var kind demux.TrackKind
	switch handlerType {
	case "vide":
		kind = demux.TrackVideo
	case "soun":
		kind = demux.TrackAudio
	default:
		return parsedTrack{}, false
	}

	var timescale uint32 = 1
	if mdhd, ok := findBox(mdia, "mdhd"); ok {
		if len(mdhd) >= 4 && mdhd[0] == 1 && len(mdhd) >= 24 {
			timescale = binary.BigEndian.Uint32(mdhd[20:24])
		} else if len(mdhd) >= 16 {
			timescale = binary.BigEndian.Uint32(mdhd[12:16])
		}
	}
	if timescale == 0 {
		timescale = 1
	}

	minf, ok := findBox(mdia, "minf")
	if !ok {
		return parsedTrack{}, false
	}
	stbl, ok := findBox(minf, "stbl")
	if !ok {
		return parsedTrack{}, false
	}
	table, ok := buildSampleTable(stbl)
	if !ok || table.Count() == 0 {
		return parsedTrack{}, false
	}

	stsd, ok := findBox(stbl, "stsd")
	if !ok {
		return parsedTrack{}, false
	}
	entry, ok := parseStsd(stsd)
	if !ok {
		return parsedTrack{}, false
	}
	codec, description, ok := describeSampleEntry(entry)
	if !ok {
		return parsedTrack{}, false
	}

	descriptor := demux.TrackDescriptor{
		Kind:        kind,
		Codec:       codec,
		Description: description,
		ID:          tkhdTrackID,
	}
	if kind == demux.TrackVideo {
		descriptor.Width = entry.width
		descriptor.Height = entry.height
	} else {
		descriptor.SampleRate = entry.sampleRate
		descriptor.Channels = entry.channels
		if cfg, ok := decodeAudioSpecificConfig(description); ok && codec != "opus" && codec != "flac" {
			descriptor.SampleRate = cfg.SampleRate
			descriptor.Channels = cfg.ChannelCount
		}
	}
	if len(table.Durations) > 0 {
		descriptor.DefaultDurationUs = int64(math.Round(float64(table.Durations[0]) * 1_000_000 / float64(timescale)))
	}

	return parsedTrack{
		kind:       kind,
		trackID:    tkhdTrackID,
		timescale:  timescale,
		table:      table,
		descriptor: descriptor,
	}, true
}

func (d *Demuxer) VideoTrack() (demux.TrackDescriptor, bool) { return d.videoTrack, d.hasVideo }
func (d *Demuxer) AudioTrack() (demux.TrackDescriptor, bool) { return d.audioTrack, d.hasAudio }
func (d *Demuxer) SubtitleTracks() []demux.TrackDescriptor   { return nil }

func (d *Demuxer) StartVideoExtraction(ctx context.Context, sink demux.VideoChunkSink) error {
	if !d.hasVideo {
		return demux.ErrNoVideoTrack
	}
	go d.extract(ctx, d.videoTable, d.videoScale, func(kind demux.ChunkKind, tsUs, durUs int64, data []byte) {
		sink(demux.EncodedVideoChunk{Kind: kind, TimestampUs: tsUs, DurationUs: durUs, Bytes: data})
	})
	return nil
}

func (d *Demuxer) StartAudioExtraction(ctx context.Context, sink demux.AudioChunkSink) error {
	if !d.hasAudio {
		return demux.ErrNoAudioTrack
	}
	go d.extract(ctx, d.audioTable, d.audioScale, func(kind demux.ChunkKind, tsUs, durUs int64, data []byte) {
		sink(demux.EncodedAudioChunk{Kind: kind, TimestampUs: tsUs, DurationUs: durUs, Bytes: data})
	})
	return nil
}

// extract delivers one sample at a time, sliced lazily from the ByteSource
// (samples_per_callback=1): exactly one sample is read and emitted per
// iteration, so pausing takes effect between individual samples rather than
// between whole chunks of the mdat.
func (d *Demuxer) extract(ctx context.Context, table *SampleTable, timescale uint32, emit func(kind demux.ChunkKind, tsUs, durUs int64, data []byte)) {
	var runningTicks int64
	for i := 0; i < table.Count(); i++ {
		if d.pauser.Stopped() {
			return
		}
		d.pauser.Wait()
		select {
		case <-ctx.Done():
			return
		default:
		}

		offset := table.Offsets[i]
		size := table.Sizes[i]
		data, err := d.src.Slice(uint64(offset), uint64(offset+int64(size))).Bytes(ctx)
		if err != nil {
			d.logger.Warn("mp4: failed to read sample", "index", i, "err", err)
			return
		}

		tsUs := int64(math.Round(float64(runningTicks) * 1_000_000 / float64(timescale)))
		durUs := int64(math.Round(float64(table.Durations[i]) * 1_000_000 / float64(timescale)))
		kind := demux.ChunkDelta
		if table.IsKey(i) {
			kind = demux.ChunkKey
		}
		emit(kind, tsUs, durUs, data)
		runningTicks += table.Durations[i]
	}
}

func (d *Demuxer) StartSubtitleExtraction(ctx context.Context, trackID int, sink demux.SubtitleCueSink) error {
	return fmt.Errorf("mp4: subtitle tracks are not supported by the ISO-BMFF demuxer")
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
