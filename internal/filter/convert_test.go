package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

func TestConvertFilterS16ToFloat(t *testing.T) {
	f := NewConvertFilter("c")
	in := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	out := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.Float, Channels: 1}
	require.NoError(t, f.Configure(in, out))

	result, err := f.Process(context.Background(), s16Buffer(16384))
	require.NoError(t, err)
	assert.Len(t, result, 4)

	v := decodeSample(result, 0, audioformat.Float)
	assert.InDelta(t, 0.5, v, 0.01)
}

func TestConvertFilterSameFormatNoOp(t *testing.T) {
	f := NewConvertFilter("c")
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))

	data := s16Buffer(42)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
