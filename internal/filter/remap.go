package filter

import (
	"context"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

// ChannelRemapFilter converts between channel counts: mono-to-stereo
// duplication, stereo-to-mono averaging, and channel truncation/padding
// for the general N-to-M case (extra output channels are silent, extra
// input channels are dropped).
type ChannelRemapFilter struct {
	id      string
	in, out audioformat.AudioFormat
}

func NewChannelRemapFilter(id string) *ChannelRemapFilter {
	return &ChannelRemapFilter{id: id}
}

func (f *ChannelRemapFilter) ID() string { return f.id }

func (f *ChannelRemapFilter) Configure(in, out audioformat.AudioFormat) error {
	f.in, f.out = in, out
	return nil
}

func (f *ChannelRemapFilter) Process(ctx context.Context, data []byte) ([]byte, error) {
	if f.in.Channels == f.out.Channels {
		return data, nil
	}

	sampleSize := f.in.Format.SampleSize()
	inCh := int(f.in.Channels)
	outCh := int(f.out.Channels)
	frameSize := sampleSize * inCh
	frames := len(data) / frameSize
	out := make([]byte, frames*sampleSize*outCh)

	switch {
	case inCh == 1 && outCh == 2:
		for i := 0; i < frames; i++ {
			v := decodeSample(data, i*frameSize, f.in.Format)
			encodeSample(out, i*outCh*sampleSize, f.out.Format, v)
			encodeSample(out, i*outCh*sampleSize+sampleSize, f.out.Format, v)
		}
	case inCh == 2 && outCh == 1:
		for i := 0; i < frames; i++ {
			l := decodeSample(data, i*frameSize, f.in.Format)
			r := decodeSample(data, i*frameSize+sampleSize, f.in.Format)
			encodeSample(out, i*sampleSize, f.out.Format, (l+r)/2)
		}
	default:
		for i := 0; i < frames; i++ {
			for ch := 0; ch < outCh; ch++ {
				var v float64
				if ch < inCh {
					v = decodeSample(data, i*frameSize+ch*sampleSize, f.in.Format)
				}
				encodeSample(out, i*outCh*sampleSize+ch*sampleSize, f.out.Format, v)
			}
		}
	}
	return out, nil
}

func (f *ChannelRemapFilter) Flush() []byte { return nil }
