// Package bytesource provides the random-access, read-only byte views that
// every demuxer in mediacore pulls from: a local file or an HTTP resource
// addressed by Range requests.
package bytesource

import (
	"context"
	"errors"
)

// ErrAborted is returned by Slice.Bytes (and by any in-flight read) once
// Abort has been called on the owning ByteSource.
var ErrAborted = errors.New("bytesource: aborted")

// ByteSource is a sized, random-access, read-only view over a byte stream.
// Implementations must tolerate concurrent Slice calls: the demuxers issue
// sequential small reads plus occasional out-of-order seeks from a single
// cooperative executor, never from multiple goroutines at once, but the
// read loop and a pause/resume path may race to slice concurrently.
type ByteSource interface {
	// Size returns the total number of bytes in the source. It is constant
	// for the lifetime of the ByteSource.
	Size() uint64

	// Slice returns a handle to the half-open range [start, end). No bytes
	// are read until Slice.Bytes is called on the returned handle.
	Slice(start, end uint64) Slice

	// Abort cancels any in-flight reads and causes every subsequent Slice.Bytes
	// call to fail with ErrAborted.
	Abort()
}

// Slice is a byte range that can be materialized asynchronously.
type Slice interface {
	// Bytes reads and returns the slice's bytes. It is safe to call once;
	// behavior of a second call is implementation-defined but never unsafe.
	Bytes(ctx context.Context) ([]byte, error)

	// Start and End report the half-open byte range this slice covers.
	Start() uint64
	End() uint64
}
