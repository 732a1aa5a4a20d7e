// Package null implements an output plugin that discards bytes, used for
// smoke-testing the player/filter pipeline and for "null" sinks configured
// in tests (mirrors the decoder's null plugin).
package null

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/output"
	"github.com/tunewave/tunewaved/internal/songref"
)

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "null" }

func (p *Plugin) TestDefaultDevice() bool { return true }

func (p *Plugin) Create(config map[string]any) (output.AudioOutput, error) {
	return &sink{}, nil
}

// sink honors Delay so it behaves like a real-time device instead of
// draining the pipe instantly.
type sink struct {
	format    audioformat.AudioFormat
	delay     time.Duration
	interrupt chan struct{}
}

func (s *sink) Enable() error  { return nil }
func (s *sink) Disable() error { return nil }

func (s *sink) Open(format audioformat.AudioFormat) (audioformat.AudioFormat, error) {
	s.format = format
	s.delay = 0
	s.interrupt = make(chan struct{})
	return format, nil
}

func (s *sink) Close() error { return nil }

// Delay is the play time of the last accepted data, so the next Play
// waits as long as a real device would need to consume it.
func (s *sink) Delay() time.Duration { return s.delay }

func (s *sink) SendTag(tag *songref.Tag) error { return nil }

func (s *sink) Play(data []byte) (int, error) {
	if fs := s.format.FrameSize(); fs > 0 && s.format.SampleRate > 0 {
		s.delay = time.Duration(len(data)/fs) * time.Second / time.Duration(s.format.SampleRate)
	}
	return len(data), nil
}

func (s *sink) Drain() error { return nil }

func (s *sink) Cancel() {}

func (s *sink) Pause() bool { return true }

func (s *sink) Interrupt() {
	select {
	case <-s.interrupt:
	default:
		close(s.interrupt)
	}
}
