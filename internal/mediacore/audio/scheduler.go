// Package audio implements the audio scheduling policy that keeps decoded
// audio blocks landing on an output device at the right wall-clock time,
// absorbing small device-clock jitter and dropping blocks that arrive too
// late to play without an audible glitch.
package audio

import (
	"log/slog"

	"github.com/zsiec/mediacore/internal/mediacore/clock"
)

// startDelaySec is the small cushion given before the very first block so
// the device has a moment to start consuming before the clock's anchor.
const startDelaySec = 0.050

// resetDriftThresholdSec bounds how far the device clock may jump backward
// between two Schedule calls before it is treated as a suspend/resume reset
// rather than ordinary jitter. The device clock is assumed monotonic and
// free of resets in normal operation (spec.md's open question); this is the
// reanchor path for when that assumption is violated.
const resetDriftThresholdSec = 0.5

// Decision is the outcome of scheduling one decoded audio block.
type Decision struct {
	// Dropped is true when the block arrived too late to play.
	Dropped bool
	// StartSec is the wall-clock second the block should start playing.
	StartSec float64
	// PlaybackOffsetSec is how far into the block playback should begin,
	// trimming the portion that has already fallen behind.
	PlaybackOffsetSec float64
	// DurationSec is how much of the block remains to be played.
	DurationSec float64
}

// Scheduler tracks the rolling end of the audio timeline and anchors a
// MediaClock to the first block it schedules.
type Scheduler struct {
	clock  *clock.MediaClock
	logger *slog.Logger

	lastScheduledEndSec float64

	haveDeviceTime    bool
	lastDeviceTimeSec float64
}

// New returns a Scheduler that anchors c on its first Schedule call.
func New(c *clock.MediaClock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{clock: c, logger: logger.With("component", "audio_scheduler")}
}

// Schedule decides when a decoded audio block of durationSec should start
// playing, given the device's current playback position deviceCurrentTimeSec
// and the block's media timestamp timestampUs.
func (s *Scheduler) Schedule(deviceCurrentTimeSec float64, timestampUs int64, durationSec float64) Decision {
	if s.clock.Started() && s.haveDeviceTime && deviceCurrentTimeSec < s.lastDeviceTimeSec-resetDriftThresholdSec {
		s.logger.Warn("audio device clock moved backward, reanchoring",
			"previous_device_time_sec", s.lastDeviceTimeSec, "device_time_sec", deviceCurrentTimeSec)
		s.clock.Start(timestampUs, int64((deviceCurrentTimeSec+startDelaySec)*1000))
		s.lastScheduledEndSec = 0
	}
	s.haveDeviceTime = true
	s.lastDeviceTimeSec = deviceCurrentTimeSec

	if !s.clock.Started() {
		wallMs := int64((deviceCurrentTimeSec + startDelaySec) * 1000)
		s.clock.Start(timestampUs, wallMs)
	}

	baseTimeSec := float64(s.clock.BaseWallMs()) / 1000
	baseTsUs := s.clock.BaseTimestampUs()
	idealStartSec := baseTimeSec + float64(timestampUs-baseTsUs)/1e6

	minStartSec := deviceCurrentTimeSec
	if s.lastScheduledEndSec > minStartSec {
		minStartSec = s.lastScheduledEndSec
	}
	offsetSec := minStartSec - idealStartSec
	if offsetSec < 0 {
		offsetSec = 0
	}

	if offsetSec >= durationSec {
		s.logger.Warn("dropping late audio block", "offset_sec", offsetSec, "duration_sec", durationSec)
		return Decision{Dropped: true}
	}

	end := idealStartSec + durationSec
	if end > s.lastScheduledEndSec {
		s.lastScheduledEndSec = end
	}

	return Decision{
		StartSec:          idealStartSec + offsetSec,
		PlaybackOffsetSec: offsetSec,
		DurationSec:       durationSec - offsetSec,
	}
}

// LastScheduledEndSec returns the rolling end of the scheduled timeline.
func (s *Scheduler) LastScheduledEndSec() float64 { return s.lastScheduledEndSec }
