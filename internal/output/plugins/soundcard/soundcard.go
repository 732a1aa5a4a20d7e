// Package soundcard implements an output plugin backed by a real audio
// device via gen2brain/malgo's miniaudio bindings. It adapts the teacher's
// capture-direction malgo usage (device callback pulls samples *in*) to
// playback direction (device callback pulls samples *out*): Play fills a
// small ring buffer that the device's data callback drains on its own
// real-time thread.
package soundcard

import (
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/output"
	"github.com/tunewave/tunewaved/internal/songref"
)

// ringBytes is the device-facing ring buffer size; generous enough to
// absorb scheduling jitter between Play() calls and the device callback
// without adding audible latency at typical chunk sizes.
const ringBytes = 64 * 1024

type Plugin struct{}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "soundcard" }

func (p *Plugin) TestDefaultDevice() bool {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return false
	}
	defer ctx.Uninit() //nolint:errcheck // best-effort probe
	return true
}

func (p *Plugin) Create(config map[string]any) (output.AudioOutput, error) {
	deviceName, _ := config["device"].(string)
	return &sink{deviceName: deviceName, closed: make(chan struct{})}, nil
}

type sink struct {
	deviceName string

	ctx    *malgo.AllocatedContext
	device *malgo.Device
	format audioformat.AudioFormat

	mu     sync.Mutex
	ring   []byte
	head   int
	tail   int
	size   int
	notify chan struct{}
	closed chan struct{}
}

func (s *sink) Enable() error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).Component("output").Category(errors.CategoryPluginUnavailable).Build()
	}
	s.ctx = ctx
	return nil
}

func (s *sink) Disable() error {
	if s.ctx == nil {
		return nil
	}
	err := s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil
	return err
}

func (s *sink) Open(format audioformat.AudioFormat) (audioformat.AudioFormat, error) {
	if s.ctx == nil {
		if err := s.Enable(); err != nil {
			return format, err
		}
	}

	malFormat := malgoSampleFormat(format.Format)
	if malFormat == malgo.FormatUnknown {
		return format, errors.Newf("soundcard: unsupported sample format %s", format.Format).
			Component("output").Category(errors.CategoryUnsupportedFormat).Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = format.SampleRate
	if s.deviceName != "" {
		deviceConfig.Playback.DeviceID = malgo.ParseDeviceID(s.deviceName)
	}

	s.mu.Lock()
	s.ring = make([]byte, ringBytes)
	s.head, s.tail, s.size = 0, 0, 0
	s.notify = make(chan struct{}, 1)
	s.closed = make(chan struct{})
	s.mu.Unlock()

	callbacks := malgo.DeviceCallbacks{
		Data: func(outSamples, _ []byte, frameCount uint32) {
			s.fillFromRing(outSamples)
		},
	}
	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return format, errors.New(err).Component("output").Category(errors.CategoryUnsupportedFormat).Build()
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return format, errors.New(err).Component("output").Category(errors.CategoryOutput).Build()
	}

	s.device = device
	s.format = format
	return format, nil
}

func (s *sink) Close() error {
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	return nil
}

func (s *sink) Delay() time.Duration { return 0 }

func (s *sink) SendTag(tag *songref.Tag) error { return nil }

// Play copies data into the device ring, blocking until space frees up or
// Interrupt fires.
func (s *sink) Play(data []byte) (int, error) {
	s.mu.Lock()
	free := len(s.ring) - s.size
	if free <= 0 {
		s.mu.Unlock()
		select {
		case <-s.notify:
		case <-s.closed:
			return 0, nil
		}
		s.mu.Lock()
		free = len(s.ring) - s.size
	}
	n := len(data)
	if n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		s.ring[s.tail] = data[i]
		s.tail = (s.tail + 1) % len(s.ring)
	}
	s.size += n
	s.mu.Unlock()
	return n, nil
}

func (s *sink) fillFromRing(out []byte) {
	s.mu.Lock()
	n := len(out)
	if n > s.size {
		n = s.size
	}
	for i := 0; i < n; i++ {
		out[i] = s.ring[s.head]
		s.head = (s.head + 1) % len(s.ring)
	}
	for i := n; i < len(out); i++ {
		out[i] = 0 // underrun: pad with silence rather than stall the device
	}
	s.size -= n
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *sink) Drain() error {
	for {
		s.mu.Lock()
		empty := s.size == 0
		s.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-s.notify:
		case <-s.closed:
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (s *sink) Cancel() {
	s.mu.Lock()
	s.head, s.tail, s.size = 0, 0, 0
	s.mu.Unlock()
}

func (s *sink) Pause() bool { return true }

func (s *sink) Interrupt() {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

func malgoSampleFormat(f audioformat.SampleFormat) malgo.FormatType {
	switch f {
	case audioformat.S8:
		return malgo.FormatU8
	case audioformat.S16:
		return malgo.FormatS16
	case audioformat.S24P32:
		return malgo.FormatS24
	case audioformat.S32:
		return malgo.FormatS32
	case audioformat.Float:
		return malgo.FormatF32
	default:
		return malgo.FormatUnknown
	}
}
