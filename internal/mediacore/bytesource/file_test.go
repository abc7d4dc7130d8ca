package bytesource

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileByteSourceIndependentRepeatableSlices(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bytesource")
	require.NoError(t, err)
	_, err = f.Write([]byte("abcdefghij"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	src, err := OpenFile(f.Name())
	require.NoError(t, err)
	require.EqualValues(t, 10, src.Size())

	ctx := context.Background()

	first, err := src.Slice(0, 3).Bytes(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), first)

	second, err := src.Slice(3, 7).Bytes(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("defg"), second)

	// Repeating the first slice must yield the same bytes (independent reads).
	firstAgain, err := src.Slice(0, 3).Bytes(ctx)
	require.NoError(t, err)
	require.Equal(t, first, firstAgain)
}

func TestFileByteSourceAbortFailsReads(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bytesource")
	require.NoError(t, err)
	_, err = f.Write([]byte("abcdefghij"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	src, err := OpenFile(f.Name())
	require.NoError(t, err)

	src.Abort()
	_, err = src.Slice(0, 3).Bytes(context.Background())
	require.ErrorIs(t, err, ErrAborted)
}
