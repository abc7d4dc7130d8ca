package demux

import "errors"

var (
	// ErrUnsupportedContainer is returned when container detection cannot
	// match any of the three demuxers.
	ErrUnsupportedContainer = errors.New("demux: unsupported container")
	// ErrNoVideoTrack is returned when a video-requiring operation is
	// attempted on a container with no usable video track.
	ErrNoVideoTrack = errors.New("demux: no video track")
	// ErrNoAudioTrack mirrors ErrNoVideoTrack for audio.
	ErrNoAudioTrack = errors.New("demux: no audio track")
	// ErrMalformed indicates the container bytes violate the format
	// (missing sync, truncated structures, unknown required elements).
	ErrMalformed = errors.New("demux: malformed container")
	// ErrStopped is observed by cooperative awaiters inside a demuxer's
	// extraction loop once Stop has been called.
	ErrStopped = errors.New("demux: stopped")
)
