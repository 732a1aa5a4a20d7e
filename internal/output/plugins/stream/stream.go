// Package stream implements an output plugin that pipes raw PCM into an
// ffmpeg subprocess, letting one "output" target arbitrary encoded
// formats or streaming destinations (icecast, RTMP, a local file in any
// container) that ffmpeg itself understands. Grounded on the teacher's
// ffmpeg-subprocess export pattern (stdin pipe + waited Cmd, one process
// per active stream).
package stream

import (
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/output"
	"github.com/tunewave/tunewaved/internal/songref"
)

type Plugin struct {
	// FFmpegPath overrides the looked-up ffmpeg binary, for tests.
	FFmpegPath string
}

func New() *Plugin { return &Plugin{FFmpegPath: "ffmpeg"} }

func (p *Plugin) Name() string { return "stream" }

func (p *Plugin) TestDefaultDevice() bool {
	_, err := exec.LookPath(p.FFmpegPath)
	return err == nil
}

func (p *Plugin) Create(config map[string]any) (output.AudioOutput, error) {
	target, _ := config["target"].(string)
	if target == "" {
		return nil, errors.Newf("stream output: missing \"target\" config").
			Component("output").Category(errors.CategoryPluginUnavailable).Build()
	}
	format, _ := config["format"].(string) // container/codec passed to ffmpeg's -f
	ffmpegPath := p.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &sink{target: target, outputFormat: format, ffmpegPath: ffmpegPath}, nil
}

type sink struct {
	target       string
	outputFormat string
	ffmpegPath   string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	format audioformat.AudioFormat
}

func (s *sink) Enable() error  { return nil }
func (s *sink) Disable() error { return nil }

func (s *sink) Open(format audioformat.AudioFormat) (audioformat.AudioFormat, error) {
	codec := pcmCodec(format.Format)
	if codec == "" {
		return format, errors.Newf("stream: unsupported sample format %s", format.Format).
			Component("output").Category(errors.CategoryUnsupportedFormat).Build()
	}

	args := []string{
		"-f", codec,
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
		"-i", "pipe:0",
	}
	if s.outputFormat != "" {
		args = append(args, "-f", s.outputFormat)
	}
	args = append(args, s.target)

	cmd := exec.Command(s.ffmpegPath, args...) //nolint:gosec // target/format come from local config, not untrusted input
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return format, errors.New(err).Component("output").Category(errors.CategoryPluginUnavailable).Build()
	}
	if err := cmd.Start(); err != nil {
		return format, errors.New(err).Component("output").Category(errors.CategoryPluginUnavailable).Build()
	}

	s.cmd = cmd
	s.stdin = stdin
	s.format = format
	return format, nil
}

func (s *sink) Close() error {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}

func (s *sink) Delay() time.Duration { return 0 }

func (s *sink) SendTag(tag *songref.Tag) error { return nil }

func (s *sink) Play(data []byte) (int, error) {
	n, err := s.stdin.Write(data)
	if err != nil {
		return n, errors.New(err).Component("output").Category(errors.CategoryOutput).Build()
	}
	return n, nil
}

func (s *sink) Drain() error { return nil }

func (s *sink) Cancel() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

func (s *sink) Pause() bool { return true }

func (s *sink) Interrupt() { s.Cancel() }

func pcmCodec(f audioformat.SampleFormat) string {
	switch f {
	case audioformat.S8:
		return "u8"
	case audioformat.S16:
		return "s16le"
	case audioformat.S24P32:
		return "s24le"
	case audioformat.S32:
		return "s32le"
	case audioformat.Float:
		return "f32le"
	default:
		return ""
	}
}
