package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/briandowns/spinner"

	"github.com/zsiec/mediacore/config"
	"github.com/zsiec/mediacore/internal/mediacore/bytesource"
	"github.com/zsiec/mediacore/internal/mediacore/decoder"
	"github.com/zsiec/mediacore/internal/mediacore/demux"
	"github.com/zsiec/mediacore/internal/mediacore/orchestrator"
)

// MediacorePlayOptions holds the flags for `gbox mediacore play`.
type MediacorePlayOptions struct {
	Mode     string
	Duration time.Duration
}

// NewMediacorePlayCommand drives a headless orchestrator session over a
// local path or URL with fake decoders that just count chunks and frames,
// and prints a summary. Real GPU/audio decoders are out of scope; this
// exists as the container-parses diagnostic, the same spirit as
// device-connect's `ls` subcommand.
func NewMediacorePlayCommand() *cobra.Command {
	opts := &MediacorePlayOptions{}

	cmd := &cobra.Command{
		Use:   "play <path-or-url>",
		Short: "Open a media file or URL and drive a headless playback session",
		Long:  "Parse a container with the mediacore demuxers, run it through a headless decode/render loop, and print a summary of what was extracted.",
		Args:  cobra.ExactArgs(1),
		Example: `  # Parse a local MKV and summarize its tracks
  gbox mediacore play movie.mkv

  # Force container detection for an extensionless URL
  gbox mediacore play https://example.com/stream --mode ts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeMediacorePlay(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Mode, "mode", "", "Force container detection (mp4|mkv|ts) instead of inferring it from the path/URL suffix")
	flags.DurationVar(&opts.Duration, "timeout", 10*time.Second, "How long to drive the session before stopping")

	return cmd
}

func executeMediacorePlay(cmd *cobra.Command, opts *MediacorePlayOptions, target string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Duration)
	defer cancel()

	sp := newPlaySpinner(fmt.Sprintf("opening %s", target))

	src, err := openMediacoreSource(ctx, target)
	if err != nil {
		sp.Fail(err.Error())
		return err
	}

	video := &countingVideoDecoder{}
	audioDec := &countingAudioDecoder{}
	subtitles := &countingSubtitleSink{}
	renderer := &countingRenderer{}
	audioOut := &clockAudioOutput{}

	sess := orchestrator.New(slog.New(slog.DiscardHandler), orchestrator.Config{
		VideoRingCapacity: config.GetMediacoreVideoRingCapacity(),
	}, renderer, audioOut)

	if err := sess.Load(ctx, src, target, opts.Mode, video, audioDec, subtitles); err != nil {
		sp.Fail(err.Error())
		return err
	}
	sp.Success(fmt.Sprintf("opened %s", target))

	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sess.Stop()
			<-done
			printMediacoreSummary(cmd, video, audioDec, subtitles, renderer)
			return nil
		case <-ticker.C:
			sess.RenderTick()
		}
	}
}

func openMediacoreSource(ctx context.Context, target string) (bytesource.ByteSource, error) {
	if u, err := url.Parse(target); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return bytesource.OpenHTTP(ctx, target, bytesource.HTTPOptions{
			Retries:        config.GetMediacoreHTTPRetries(),
			RetryBaseDelay: time.Duration(config.GetMediacoreHTTPRetryBaseMs()) * time.Millisecond,
		})
	}
	return bytesource.OpenFile(target)
}

func newPlaySpinner(message string) *playSpinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Prefix = "  "
	s.Suffix = " " + message
	s.Start()
	return &playSpinner{sp: s}
}

type playSpinner struct {
	sp *spinner.Spinner
}

func (p *playSpinner) Success(message string) {
	p.sp.Stop()
	fmt.Printf("\r\033[K  %s %s\n", color.GreenString("✓"), message)
}

func (p *playSpinner) Fail(message string) {
	p.sp.Stop()
	fmt.Printf("\r\033[K  %s %s\n", color.RedString("✗"), message)
}

func printMediacoreSummary(cmd *cobra.Command, video *countingVideoDecoder, audioDec *countingAudioDecoder, subtitles *countingSubtitleSink, renderer *countingRenderer) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.CyanString("mediacore session summary"))
	fmt.Fprintf(out, "  video chunks decoded: %d\n", video.decoded)
	fmt.Fprintf(out, "  video frames rendered: %d\n", renderer.count)
	fmt.Fprintf(out, "  audio chunks decoded: %d\n", audioDec.decoded)
	fmt.Fprintf(out, "  subtitle cues: %d\n", subtitles.count)
}

// countingVideoDecoder and countingAudioDecoder accept any configuration
// and immediately "decode" each submitted chunk into a zero-length frame
// or data block, stamped with the chunk's own timestamp — enough to drive
// the orchestrator's full loop without a real codec.
type countingVideoDecoder struct {
	onFrame func(decoder.VideoFrame)
	decoded int
}

func (d *countingVideoDecoder) IsConfigSupported(cfg decoder.VideoConfig) (bool, decoder.VideoConfig, error) {
	return true, cfg, nil
}
func (d *countingVideoDecoder) Configure(cfg decoder.VideoConfig, onFrame func(decoder.VideoFrame)) error {
	d.onFrame = onFrame
	return nil
}
func (d *countingVideoDecoder) Submit(chunk demux.EncodedVideoChunk) error {
	d.decoded++
	d.onFrame(&countingFrame{ts: chunk.TimestampUs})
	return nil
}
func (d *countingVideoDecoder) Pending() int { return 0 }
func (d *countingVideoDecoder) Flush() error { return nil }
func (d *countingVideoDecoder) Close() error { return nil }

type countingFrame struct{ ts int64 }

func (f *countingFrame) TimestampUs() int64 { return f.ts }
func (f *countingFrame) Close() error       { return nil }

type countingAudioDecoder struct {
	onData  func(decoder.AudioData)
	decoded int
}

func (d *countingAudioDecoder) IsConfigSupported(cfg decoder.AudioConfig) (bool, decoder.AudioConfig, error) {
	return true, cfg, nil
}
func (d *countingAudioDecoder) Configure(cfg decoder.AudioConfig, onData func(decoder.AudioData)) error {
	d.onData = onData
	return nil
}
func (d *countingAudioDecoder) Submit(chunk demux.EncodedAudioChunk) error {
	d.decoded++
	d.onData(&countingAudioData{ts: chunk.TimestampUs, dur: 0.02})
	return nil
}
func (d *countingAudioDecoder) Pending() int { return 0 }
func (d *countingAudioDecoder) Flush() error { return nil }
func (d *countingAudioDecoder) Close() error { return nil }

type countingAudioData struct {
	ts  int64
	dur float64
}

func (a *countingAudioData) TimestampUs() int64   { return a.ts }
func (a *countingAudioData) DurationSec() float64 { return a.dur }
func (a *countingAudioData) Close() error         { return nil }

type countingSubtitleSink struct{ count int }

func (s *countingSubtitleSink) OnCue(demux.SubtitleCue) { s.count++ }

type countingRenderer struct{ count int }

func (r *countingRenderer) RenderVideoFrame(decoder.VideoFrame) { r.count++ }

// clockAudioOutput reports elapsed wall time as its device clock and
// discards what it's asked to play; good enough to drive the audio
// scheduling policy without real audio hardware.
type clockAudioOutput struct {
	started time.Time
}

func (a *clockAudioOutput) CurrentTimeSec() float64 {
	if a.started.IsZero() {
		a.started = time.Now()
		return 0
	}
	return time.Since(a.started).Seconds()
}

func (a *clockAudioOutput) Play(data decoder.AudioData, startSec, offsetSec, durationSec float64) {}

func init() {
	mediacoreCmd := &cobra.Command{
		Use:   "mediacore",
		Short: "Media playback engine diagnostics",
	}
	mediacoreCmd.AddCommand(NewMediacorePlayCommand())
	rootCmd.AddCommand(mediacoreCmd)
}
