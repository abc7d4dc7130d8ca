package clock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNowUsLinearWhileRunning(t *testing.T) {
	c := New()
	c.Start(1_000_000, 0)

	require.EqualValues(t, 1_000_000, c.NowUs(0))
	require.EqualValues(t, 1_500_000, c.NowUs(500))
	require.EqualValues(t, 2_000_000, c.NowUs(1000))
}

func TestPauseLatchesThenResumeRebases(t *testing.T) {
	c := New()
	c.Start(0, 0)

	require.EqualValues(t, 500_000, c.NowUs(500))
	c.Pause(500)
	require.EqualValues(t, 500_000, c.NowUs(500))
	// Clock stays constant at any later wall time while paused.
	require.EqualValues(t, 500_000, c.NowUs(10_000))

	c.Resume(10_000)
	require.EqualValues(t, 500_000, c.NowUs(10_000))
	require.EqualValues(t, 600_000, c.NowUs(10_100))
}

func TestPauseResumeNoTimeAdvanceIsIdempotent(t *testing.T) {
	c := New()
	c.Start(0, 0)
	_ = c.NowUs(1000)
	c.Pause(1000)
	c.Resume(1000)
	c.Pause(1000)
	c.Resume(1000)
	require.EqualValues(t, 1_000_000, c.NowUs(1000))
}

func TestSetRateRebasesContinuously(t *testing.T) {
	c := New()
	c.Start(0, 0)
	before := c.NowUs(1000) // 1_000_000 us at rate 1
	c.SetRate(2, 1000)
	require.Equal(t, before, c.NowUs(1000))
	require.EqualValues(t, before+2_000_000, c.NowUs(2000))
}

func TestSeekDoesNotChangePausedState(t *testing.T) {
	c := New()
	c.Start(0, 0)
	c.Pause(0)
	c.Seek(5_000_000, 0)
	require.True(t, c.Paused())
	require.EqualValues(t, 5_000_000, c.NowUs(0))
}

func TestMonotonicSamplingWhileRunning(t *testing.T) {
	c := New()
	c.Start(0, 0)
	var wallSamples = []int64{0, 10, 250, 251, 9999}
	prevTs := c.NowUs(0)
	for _, w := range wallSamples[1:] {
		ts := c.NowUs(w)
		require.GreaterOrEqual(t, ts, prevTs)
		prevTs = ts
	}
}
