package filter

import (
	"context"
	"sync/atomic"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

// VolumeFilter applies a software volume scalar in [0, 100]. Its volume may
// be shared with a SoftwareMixer so external volume changes (e.g. from a
// control surface) and filter-chain playback agree on one value.
type VolumeFilter struct {
	id     string
	volume atomic.Int32 // percent, 0..100
	format audioformat.AudioFormat
}

// NewVolumeFilter creates a filter at full volume.
func NewVolumeFilter(id string) *VolumeFilter {
	f := &VolumeFilter{id: id}
	f.volume.Store(100)
	return f
}

func (f *VolumeFilter) ID() string { return f.id }

func (f *VolumeFilter) Configure(in, out audioformat.AudioFormat) error {
	f.format = in
	return nil
}

// SetVolume sets the volume percent, clamped to [0, 100].
func (f *VolumeFilter) SetVolume(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	f.volume.Store(int32(percent))
}

// Volume returns the current volume percent.
func (f *VolumeFilter) Volume() int {
	return int(f.volume.Load())
}

func (f *VolumeFilter) Process(ctx context.Context, data []byte) ([]byte, error) {
	percent := f.volume.Load()
	if percent == 100 {
		return data, nil
	}
	gain := float64(percent) / 100
	size := f.format.Format.SampleSize()
	for off := 0; off+size <= len(data); off += size {
		v := decodeSample(data, off, f.format.Format)
		encodeSample(data, off, f.format.Format, v*gain)
	}
	return data, nil
}

func (f *VolumeFilter) Flush() []byte { return nil }

// SoftwareMixer serializes volume reads/writes for an output onto a
// dedicated worker goroutine, standing in for the thread/apartment affinity
// some native mixer APIs require (spec §4.4's mixer concurrency note).
type SoftwareMixer struct {
	filter *VolumeFilter
	tasks  chan func()
	done   chan struct{}
}

// NewSoftwareMixer starts a mixer bound to filter's shared volume scalar.
func NewSoftwareMixer(filter *VolumeFilter) *SoftwareMixer {
	m := &SoftwareMixer{
		filter: filter,
		tasks:  make(chan func()),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *SoftwareMixer) run() {
	for {
		select {
		case task := <-m.tasks:
			task()
		case <-m.done:
			return
		}
	}
}

// SetVolume posts a volume change to the mixer's worker and waits for it
// to take effect.
func (m *SoftwareMixer) SetVolume(percent int) {
	done := make(chan struct{})
	select {
	case m.tasks <- func() { m.filter.SetVolume(percent); close(done) }:
		<-done
	case <-m.done:
	}
}

// Volume reads the current volume through the mixer's worker.
func (m *SoftwareMixer) Volume() int {
	result := make(chan int, 1)
	select {
	case m.tasks <- func() { result <- m.filter.Volume() }:
		return <-result
	case <-m.done:
		return m.filter.Volume()
	}
}

// Close stops the mixer's worker goroutine.
func (m *SoftwareMixer) Close() {
	close(m.done)
}
