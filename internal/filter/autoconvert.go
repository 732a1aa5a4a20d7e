package filter

import (
	"context"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

// AutoConvertFilter resamples when the output's negotiated sample rate
// differs from the pipe's. Sample format and channel count are expected to
// already match (ConvertFilter and ChannelRemapFilter run on either side of
// this stage in the chain). Uses linear interpolation, carrying the
// fractional phase and trailing frame across Process calls so chunk
// boundaries don't introduce clicks.
type AutoConvertFilter struct {
	id      string
	in, out audioformat.AudioFormat
	ratio   float64 // in samples per out sample

	prev  []float64 // last frame of the previous call, one sample per channel
	phase float64   // fractional position into the next input frame, relative to prev
	valid bool
}

func NewAutoConvertFilter(id string) *AutoConvertFilter {
	return &AutoConvertFilter{id: id}
}

func (f *AutoConvertFilter) ID() string { return f.id }

func (f *AutoConvertFilter) Configure(in, out audioformat.AudioFormat) error {
	f.in, f.out = in, out
	if out.SampleRate == 0 {
		f.ratio = 1
	} else {
		f.ratio = float64(in.SampleRate) / float64(out.SampleRate)
	}
	f.prev = nil
	f.phase = 0
	f.valid = false
	return nil
}

func (f *AutoConvertFilter) Process(ctx context.Context, data []byte) ([]byte, error) {
	if f.in.SampleRate == f.out.SampleRate {
		return data, nil
	}

	channels := int(f.in.Channels)
	sampleSize := f.in.Format.SampleSize()
	frameSize := sampleSize * channels
	frameCount := len(data) / frameSize
	if frameCount == 0 {
		return nil, nil
	}

	// With a held frame from the previous call, index 0 is that frame and
	// index i (i >= 1) is frame i-1 of data.
	n := frameCount
	if f.valid {
		n++
	}
	frame := func(i int, ch int) float64 {
		if f.valid {
			if i == 0 {
				return f.prev[ch]
			}
			i--
		}
		return decodeSample(data, i*frameSize+ch*sampleSize, f.in.Format)
	}

	var out []byte
	pos := f.phase
	for {
		i0 := int(pos)
		if i0 >= n-1 {
			break
		}
		frac := pos - float64(i0)
		buf := make([]byte, frameSize)
		for ch := 0; ch < channels; ch++ {
			a := frame(i0, ch)
			b := frame(i0+1, ch)
			v := a + (b-a)*frac
			encodeSample(buf, ch*sampleSize, f.in.Format, v)
		}
		out = append(out, buf...)
		pos += f.ratio
	}

	consumedFrames := n - 1
	f.phase = pos - float64(consumedFrames)
	last := make([]float64, channels)
	for ch := 0; ch < channels; ch++ {
		last[ch] = frame(n-1, ch)
	}
	f.prev = last
	f.valid = true

	return out, nil
}

func (f *AutoConvertFilter) Flush() []byte {
	f.prev = nil
	f.phase = 0
	f.valid = false
	return nil
}
