package orchestrator

import (
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
	"github.com/zsiec/mediacore/internal/mediacore/demux/mkv"
	"github.com/zsiec/mediacore/internal/mediacore/demux/mp4"
	"github.com/zsiec/mediacore/internal/mediacore/demux/ts"
)

// Container identifies which of the three demuxers applies.
type Container int

const (
	ContainerUnknown Container = iota
	ContainerMP4
	ContainerMKV
	ContainerTS
)

// DetectContainer picks a Container from a file path or URL's extension,
// the way load(source) does for files and "URL path suffix ... for URLs"
// per the session lifecycle contract. Mode can be passed explicitly by a
// caller that already knows the container (e.g. from a Content-Type);
// an empty mode falls back to the suffix.
func DetectContainer(pathOrURL, explicitMode string) (Container, error) {
	ext := strings.ToLower(explicitMode)
	if ext == "" {
		ext = suffixOf(pathOrURL)
	}
	switch ext {
	case "mp4", "m4v", "m4a", "mov":
		return ContainerMP4, nil
	case "mkv", "webm":
		return ContainerMKV, nil
	case "ts", "m2ts", "mts":
		return ContainerTS, nil
	default:
		return ContainerUnknown, fmt.Errorf("orchestrator: %w: %q", demux.ErrUnsupportedContainer, pathOrURL)
	}
}

func suffixOf(pathOrURL string) string {
	if u, err := url.Parse(pathOrURL); err == nil && u.Path != "" {
		pathOrURL = u.Path
	}
	ext := path.Ext(pathOrURL)
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// newDemuxer instantiates the demuxer matching c over src.
func newDemuxer(c Container, src bytesource.ByteSource, logger *slog.Logger) (demux.Demuxer, error) {
	switch c {
	case ContainerMP4:
		return mp4.New(src, logger), nil
	case ContainerMKV:
		return mkv.New(src, logger), nil
	case ContainerTS:
		return ts.New(src, logger), nil
	default:
		return nil, demux.ErrUnsupportedContainer
	}
}
