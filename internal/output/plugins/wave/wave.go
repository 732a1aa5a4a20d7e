// Package wave implements an output plugin that writes PCM to a RIFF/WAVE
// file, the inverse of the decoder's wave plugin and grounded on the same
// go-audio/wav encoder the teacher's export package used for file sinks.
package wave

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/output"
	"github.com/tunewave/tunewaved/internal/songref"
)

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "wave" }

func (p *Plugin) TestDefaultDevice() bool { return true }

func (p *Plugin) Create(config map[string]any) (output.AudioOutput, error) {
	path, _ := config["path"].(string)
	if path == "" {
		return nil, errors.Newf("wave output: missing \"path\" config").
			Component("output").Category(errors.CategoryPluginUnavailable).Build()
	}
	return &sink{path: path}, nil
}

type sink struct {
	path   string
	f      *os.File
	enc    *wav.Encoder
	format audioformat.AudioFormat
}

func (s *sink) Enable() error  { return nil }
func (s *sink) Disable() error { return nil }

func (s *sink) Open(format audioformat.AudioFormat) (audioformat.AudioFormat, error) {
	f, err := os.Create(s.path)
	if err != nil {
		return format, errors.New(err).Component("output").Category(errors.CategoryFileIO).Build()
	}
	s.f = f
	s.format = format
	s.enc = wav.NewEncoder(f, int(format.SampleRate), int(format.Format.SampleSize()*8), int(format.Channels), 1)
	return format, nil
}

func (s *sink) Close() error {
	var errEnc, errFile error
	if s.enc != nil {
		errEnc = s.enc.Close()
	}
	if s.f != nil {
		errFile = s.f.Close()
	}
	if errEnc != nil {
		return errEnc
	}
	return errFile
}

func (s *sink) Delay() time.Duration { return 0 }

func (s *sink) SendTag(tag *songref.Tag) error { return nil }

func (s *sink) Play(data []byte) (int, error) {
	sampleSize := s.format.Format.SampleSize()
	n := len(data) / sampleSize
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: int(s.format.Channels), SampleRate: int(s.format.SampleRate)},
		SourceBitDepth: sampleSize * 8,
		Data:           make([]int, n),
	}
	for i := 0; i < n; i++ {
		off := i * sampleSize
		buf.Data[i] = decodeInt(data[off:off+sampleSize], sampleSize)
	}
	if err := s.enc.Write(buf); err != nil {
		return 0, errors.New(err).Component("output").Category(errors.CategoryFileIO).Build()
	}
	return n * sampleSize, nil
}

func (s *sink) Drain() error { return nil }

func (s *sink) Cancel() {}

func (s *sink) Pause() bool { return true }

func (s *sink) Interrupt() {}

func decodeInt(b []byte, size int) int {
	switch size {
	case 1:
		return int(int8(b[0]))
	case 2:
		return int(int16(uint16(b[0]) | uint16(b[1])<<8))
	case 4:
		return int(int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24))
	default:
		panic(fmt.Sprintf("wave output: unsupported sample size %d", size))
	}
}
