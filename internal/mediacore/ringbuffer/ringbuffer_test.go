package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type closeCounter struct {
	id     int
	closed *int
}

func (c closeCounter) Close() error {
	*c.closed++
	return nil
}

func TestPushEvictDropsOldest(t *testing.T) {
	closed := 0
	r := New[closeCounter](3)

	for i := 0; i < 3; i++ {
		r.PushEvict(closeCounter{id: i, closed: &closed})
	}
	require.Equal(t, 3, r.Len())
	require.Equal(t, 0, closed)

	// Fourth push overflows: the oldest (id 0) must be closed before insert.
	r.PushEvict(closeCounter{id: 3, closed: &closed})
	require.Equal(t, 3, r.Len())
	require.Equal(t, 1, closed)

	head, ok := r.Peek()
	require.True(t, ok)
	require.Equal(t, 1, head.id)
}

func TestOrderPreservedWithinCapacity(t *testing.T) {
	closed := 0
	r := New[closeCounter](4)
	for i := 0; i < 4; i++ {
		r.PushEvict(closeCounter{id: i, closed: &closed})
	}
	for i := 0; i < 4; i++ {
		v, ok := r.Shift()
		require.True(t, ok)
		require.Equal(t, i, v.id)
	}
	require.Equal(t, 0, r.Len())
}

func TestDrainClosesEverything(t *testing.T) {
	closed := 0
	r := New[closeCounter](2)
	r.PushEvict(closeCounter{id: 0, closed: &closed})
	r.PushEvict(closeCounter{id: 1, closed: &closed})
	r.Drain()
	require.Equal(t, 2, closed)
	require.Equal(t, 0, r.Len())
}
