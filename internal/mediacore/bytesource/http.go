package bytesource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPOptions configures an HTTPByteSource.
type HTTPOptions struct {
	// Client is the http.Client used for all requests. Defaults to
	// http.DefaultClient.
	Client *http.Client
	// Retries is the number of retry attempts per request on failure.
	// Defaults to 1, per the byte-source HTTP request policy.
	Retries int
	// RetryBaseDelay is the base of the exponential backoff between
	// retries. Defaults to 300ms.
	RetryBaseDelay time.Duration
	// Referrer policy; an empty string defaults to "no-referrer". The
	// policy applies to every request, whatever the source's origin.
	ReferrerPolicy string
	Logger         *slog.Logger
}

// HTTPByteSource is a ByteSource over an HTTP(S) resource. It probes the
// server with a one-byte Range request: a 206 response with a matching
// Content-Range, or an "Accept-Ranges: bytes" header, switches it into true
// range-read mode; anything else falls back to a single whole-resource
// fetch cached in memory.
type HTTPByteSource struct {
	url     string
	opts    HTTPOptions
	size    uint64
	ranged  bool
	aborted atomic.Bool

	mu       sync.Mutex
	whole    []byte // populated lazily in degraded (non-ranged) mode
	wholeErr error
	fetched  bool
}

// OpenHTTP probes url and returns a ready-to-use HTTPByteSource.
func OpenHTTP(ctx context.Context, url string, opts HTTPOptions) (*HTTPByteSource, error) {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Retries == 0 {
		opts.Retries = 1
	}
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = 300 * time.Millisecond
	}
	if opts.ReferrerPolicy == "" {
		opts.ReferrerPolicy = "no-referrer"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &HTTPByteSource{url: url, opts: opts}
	if err := s.probe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HTTPByteSource) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("bytesource: build probe request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-1")
	applyReferrerPolicy(req, s.opts.ReferrerPolicy)

	resp, err := s.doWithRetry(req)
	if err != nil {
		return fmt.Errorf("bytesource: probe %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	size, ok := contentRangeTotal(resp.Header.Get("Content-Range"))
	if resp.StatusCode == http.StatusPartialContent && ok {
		s.size = size
		s.ranged = true
		s.opts.Logger.Debug("bytesource: range reads enabled", "url", s.url, "size", size)
		return nil
	}

	// Degraded mode: size from Content-Length/X-Content-Length if present.
	if n, ok := parseSize(resp.Header.Get("Content-Length")); ok {
		s.size = n
	} else if n, ok := parseSize(resp.Header.Get("X-Content-Length")); ok {
		s.size = n
	} else {
		return fmt.Errorf("bytesource: server does not support ranges and reports no size for %s", s.url)
	}
	s.ranged = resp.Header.Get("Accept-Ranges") == "bytes"
	s.opts.Logger.Debug("bytesource: falling back to whole-resource fetch", "url", s.url, "size", s.size)
	return nil
}

func (s *HTTPByteSource) Size() uint64 { return s.size }

func (s *HTTPByteSource) Slice(start, end uint64) Slice {
	return &httpSlice{source: s, start: start, end: end}
}

func (s *HTTPByteSource) Abort() { s.aborted.Store(true) }

type httpSlice struct {
	source *HTTPByteSource
	start  uint64
	end    uint64
}

func (sl *httpSlice) Start() uint64 { return sl.start }
func (sl *httpSlice) End() uint64   { return sl.end }

func (sl *httpSlice) Bytes(ctx context.Context) ([]byte, error) {
	s := sl.source
	if s.aborted.Load() {
		return nil, ErrAborted
	}
	if s.ranged {
		return s.rangedRead(ctx, sl.start, sl.end)
	}
	return s.wholeRead(ctx, sl.start, sl.end)
}

func (s *HTTPByteSource) rangedRead(ctx context.Context, start, end uint64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("bytesource: build range request: %w", err)
	}
	if end > start {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))
	}
	applyReferrerPolicy(req, s.opts.ReferrerPolicy)

	resp, err := s.doWithRetry(req)
	if err != nil {
		if s.aborted.Load() {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("bytesource: range read [%d,%d): %w", start, end, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if s.aborted.Load() {
		return nil, ErrAborted
	}
	if err != nil {
		return nil, fmt.Errorf("bytesource: read range body [%d,%d): %w", start, end, err)
	}
	return body, nil
}

func (s *HTTPByteSource) wholeRead(ctx context.Context, start, end uint64) ([]byte, error) {
	s.mu.Lock()
	if !s.fetched {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("bytesource: build whole-fetch request: %w", err)
		}
		applyReferrerPolicy(req, s.opts.ReferrerPolicy)
		resp, err := s.doWithRetry(req)
		if err != nil {
			s.wholeErr = fmt.Errorf("bytesource: whole-resource fetch: %w", err)
		} else {
			defer resp.Body.Close()
			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				s.wholeErr = fmt.Errorf("bytesource: read whole-resource body: %w", readErr)
			} else {
				s.whole = body
			}
		}
		s.fetched = true
	}
	whole, wholeErr := s.whole, s.wholeErr
	s.mu.Unlock()

	if s.aborted.Load() {
		return nil, ErrAborted
	}
	if wholeErr != nil {
		return nil, wholeErr
	}
	if start > uint64(len(whole)) {
		start = uint64(len(whole))
	}
	if end > uint64(len(whole)) {
		end = uint64(len(whole))
	}
	if end < start {
		end = start
	}
	return bytes.Clone(whole[start:end]), nil
}

func (s *HTTPByteSource) doWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			delay := s.opts.RetryBaseDelay * (1 << (attempt - 1))
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
		}
		resp, err := s.opts.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			resp.Body.Close()
		}
	}
	return nil, lastErr
}

func applyReferrerPolicy(req *http.Request, policy string) {
	if policy == "no-referrer" {
		req.Header.Set("Referrer-Policy", "no-referrer")
	}
}

func contentRangeTotal(header string) (uint64, bool) {
	// Expected shape: "bytes 0-1/12345"
	idx := indexByte(header, '/')
	if idx < 0 || idx+1 >= len(header) {
		return 0, false
	}
	return parseSize(header[idx+1:])
}

func parseSize(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
