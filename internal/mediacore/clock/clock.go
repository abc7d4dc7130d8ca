// Package clock implements the pausable, seekable, rate-scalable mapping
// from a wall clock to a media timestamp that anchors A/V synchrony.
package clock

// MediaClock maps wall-clock milliseconds to a media timestamp in
// microseconds. It is not safe for concurrent use; the orchestrator's
// single-threaded executor owns it exclusively.
type MediaClock struct {
	baseTimestampUs int64
	baseWallMs      int64
	rate            float64

	paused            bool
	pausedAtWallMs    int64
	pausedAtTimestamp int64

	started bool
}

// New returns a MediaClock at rate 1 that has not yet been started.
func New() *MediaClock {
	return &MediaClock{rate: 1}
}

// Started reports whether Start or Seek has been called.
func (c *MediaClock) Started() bool { return c.started }

// Start anchors the clock at (ts, wall) and leaves it running.
func (c *MediaClock) Start(tsUs, wallMs int64) {
	c.baseTimestampUs = tsUs
	c.baseWallMs = wallMs
	c.paused = false
	c.started = true
}

// Pause latches the clock to its current value as of wallMs.
func (c *MediaClock) Pause(wallMs int64) {
	if c.paused {
		return
	}
	c.pausedAtTimestamp = c.NowUs(wallMs)
	c.pausedAtWallMs = wallMs
	c.paused = true
}

// Resume rebases the clock so now_us(wallMs) == paused_at_timestamp_us,
// then un-pauses it.
func (c *MediaClock) Resume(wallMs int64) {
	if !c.paused {
		return
	}
	c.baseTimestampUs = c.pausedAtTimestamp
	c.baseWallMs = wallMs
	c.paused = false
}

// Seek resets both anchors without implying any change to the paused state.
func (c *MediaClock) Seek(tsUs, wallMs int64) {
	c.baseTimestampUs = tsUs
	if c.paused {
		c.pausedAtTimestamp = tsUs
		c.pausedAtWallMs = wallMs
	} else {
		c.baseWallMs = wallMs
	}
	c.started = true
}

// SetRate changes the playback rate, rebasing at wallMs so time stays
// continuous across the change. r must be > 0.
func (c *MediaClock) SetRate(r float64, wallMs int64) {
	if r <= 0 {
		return
	}
	if !c.paused {
		c.baseTimestampUs = c.NowUs(wallMs)
		c.baseWallMs = wallMs
	}
	c.rate = r
}

// Rate returns the current playback rate.
func (c *MediaClock) Rate() float64 { return c.rate }

// NowUs returns the media timestamp at wall-clock time wallMs. When paused
// it is latched to the timestamp captured at Pause time.
func (c *MediaClock) NowUs(wallMs int64) int64 {
	if c.paused {
		return c.pausedAtTimestamp
	}
	elapsedMs := wallMs - c.baseWallMs
	return c.baseTimestampUs + int64(float64(elapsedMs)*1000*c.rate)
}

// Paused reports whether the clock is currently paused.
func (c *MediaClock) Paused() bool { return c.paused }

// BaseWallMs returns the wall-clock anchor set by the last Start/Resume/Seek.
func (c *MediaClock) BaseWallMs() int64 { return c.baseWallMs }

// BaseTimestampUs returns the media-timestamp anchor set by the last
// Start/Resume/Seek.
func (c *MediaClock) BaseTimestampUs() int64 { return c.baseTimestampUs }
