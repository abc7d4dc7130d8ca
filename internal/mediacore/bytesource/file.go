package bytesource

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
)

// FileByteSource wraps an os.File opened read-only, giving every Slice its
// own ReadAt call rather than sharing a cursor, so concurrent slicing from
// the read loop and a pause/resume path is safe by construction.
type FileByteSource struct {
	f        *os.File
	size     uint64
	aborted  atomic.Bool
}

// OpenFile opens path for random-access reading.
func OpenFile(path string) (*FileByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bytesource: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bytesource: stat %s: %w", path, err)
	}
	return &FileByteSource{f: f, size: uint64(info.Size())}, nil
}

func (s *FileByteSource) Size() uint64 { return s.size }

func (s *FileByteSource) Slice(start, end uint64) Slice {
	return &fileSlice{source: s, start: start, end: end}
}

func (s *FileByteSource) Abort() {
	s.aborted.Store(true)
	s.f.Close()
}

type fileSlice struct {
	source *FileByteSource
	start  uint64
	end    uint64
}

func (sl *fileSlice) Start() uint64 { return sl.start }
func (sl *fileSlice) End() uint64   { return sl.end }

func (sl *fileSlice) Bytes(ctx context.Context) ([]byte, error) {
	if sl.source.aborted.Load() {
		return nil, ErrAborted
	}
	if sl.end < sl.start {
		return nil, fmt.Errorf("bytesource: invalid range [%d,%d)", sl.start, sl.end)
	}
	n := sl.end - sl.start
	buf := make([]byte, n)
	read, err := sl.source.f.ReadAt(buf, int64(sl.start))
	if sl.source.aborted.Load() {
		return nil, ErrAborted
	}
	if err != nil {
		return nil, fmt.Errorf("bytesource: read [%d,%d): %w", sl.start, sl.end, err)
	}
	return buf[:read], nil
}
