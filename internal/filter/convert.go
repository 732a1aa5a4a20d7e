package filter

import (
	"context"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

// ConvertFilter changes sample format (bit depth / int-vs-float) without
// touching sample rate or channel count. A no-op when in.Format == out.Format.
type ConvertFilter struct {
	id      string
	in, out audioformat.AudioFormat
}

// NewConvertFilter creates an unconfigured filter; Configure fixes formats.
func NewConvertFilter(id string) *ConvertFilter {
	return &ConvertFilter{id: id}
}

func (f *ConvertFilter) ID() string { return f.id }

func (f *ConvertFilter) Configure(in, out audioformat.AudioFormat) error {
	f.in, f.out = in, out
	return nil
}

func (f *ConvertFilter) Process(ctx context.Context, data []byte) ([]byte, error) {
	if f.in.Format == f.out.Format {
		return data, nil
	}

	inSize := f.in.Format.SampleSize()
	outSize := f.out.Format.SampleSize()
	frames := len(data) / inSize
	out := make([]byte, frames*outSize)

	for i := 0; i < frames; i++ {
		v := decodeSample(data, i*inSize, f.in.Format)
		encodeSample(out, i*outSize, f.out.Format, v)
	}
	return out, nil
}

func (f *ConvertFilter) Flush() []byte { return nil }
