package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/mediacore/internal/mediacore/clock"
)

func TestScheduleAnchorsClockOnFirstBlock(t *testing.T) {
	c := clock.New()
	s := New(c, nil)

	d := s.Schedule(1.0, 0, 0.02)

	require.False(t, d.Dropped)
	assert.InDelta(t, 1.05, d.StartSec, 1e-9)
	assert.InDelta(t, 0, d.PlaybackOffsetSec, 1e-9)
	assert.InDelta(t, 0.02, d.DurationSec, 1e-9)
	assert.InDelta(t, 1.07, s.LastScheduledEndSec(), 1e-9)

	require.True(t, c.Started())
	assert.EqualValues(t, 1050, c.BaseWallMs())
	assert.EqualValues(t, 0, c.BaseTimestampUs())
}

func TestScheduleFollowOnBlockLandsAtPriorEnd(t *testing.T) {
	c := clock.New()
	s := New(c, nil)

	s.Schedule(1.0, 0, 0.02)
	d := s.Schedule(1.05, 20_000, 0.02)

	require.False(t, d.Dropped)
	assert.InDelta(t, 1.07, d.StartSec, 1e-9)
	assert.InDelta(t, 0, d.PlaybackOffsetSec, 1e-9)
	assert.InDelta(t, 0.02, d.DurationSec, 1e-9)
	assert.InDelta(t, 1.09, s.LastScheduledEndSec(), 1e-9)
}

func TestScheduleTrimsOffsetWhenDeviceRunsAhead(t *testing.T) {
	c := clock.New()
	s := New(c, nil)

	s.Schedule(1.0, 0, 0.02)
	// Device reports it's a little ahead of where this block would ideally
	// land; the block should still play, trimmed by the overrun.
	d := s.Schedule(1.08, 20_000, 0.02)

	require.False(t, d.Dropped)
	assert.InDelta(t, 1.08, d.StartSec, 1e-9)
	assert.InDelta(t, 0.01, d.PlaybackOffsetSec, 1e-9)
	assert.InDelta(t, 0.01, d.DurationSec, 1e-9)
}

func TestScheduleDropsBlockTooLateToPlay(t *testing.T) {
	c := clock.New()
	s := New(c, nil)

	s.Schedule(1.0, 0, 0.02)
	s.Schedule(1.05, 20_000, 0.02)

	// Device has jumped far ahead (e.g. catching up after a stall); the
	// overrun now exceeds the block's own duration.
	d := s.Schedule(2.0, 40_000, 0.02)

	assert.True(t, d.Dropped)
	assert.Zero(t, d.StartSec)
	assert.InDelta(t, 1.09, s.LastScheduledEndSec(), 1e-9)
}

func TestScheduleDoesNotRewindLastScheduledEnd(t *testing.T) {
	c := clock.New()
	s := New(c, nil)

	s.Schedule(1.0, 0, 0.05)
	before := s.LastScheduledEndSec()

	// An out-of-order, earlier-timestamped block must not push the rolling
	// end backwards.
	s.Schedule(1.0, 10_000, 0.01)

	assert.Equal(t, before, s.LastScheduledEndSec())
}

func TestScheduleReanchorsAfterDeviceClockResetsBackward(t *testing.T) {
	c := clock.New()
	s := New(c, nil)

	s.Schedule(5.0, 100_000, 0.02)
	require.Greater(t, s.LastScheduledEndSec(), 0.0)

	// The device suspended and resumed, reporting a current_time far behind
	// where it left off; the scheduler must reanchor rather than keep
	// scheduling against the stale rolling end.
	d := s.Schedule(1.0, 200_000, 0.02)

	require.False(t, d.Dropped)
	assert.InDelta(t, 1.05, d.StartSec, 1e-9)
	assert.InDelta(t, 0, d.PlaybackOffsetSec, 1e-9)
	assert.InDelta(t, 0.02, d.DurationSec, 1e-9)
	assert.InDelta(t, 1.07, s.LastScheduledEndSec(), 1e-9)
	assert.EqualValues(t, 200_000, c.BaseTimestampUs())
}
