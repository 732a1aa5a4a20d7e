package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

func TestAutoConvertFilterSameRateNoOp(t *testing.T) {
	f := NewAutoConvertFilter("a")
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))

	data := s16Buffer(1, 2, 3)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestAutoConvertFilterUpsamplesRoughlyByRatio(t *testing.T) {
	f := NewAutoConvertFilter("a")
	in := audioformat.AudioFormat{SampleRate: 22050, Format: audioformat.S16, Channels: 1}
	out := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(in, out))

	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i * 10)
	}
	data := s16Buffer(samples...)

	result, err := f.Process(context.Background(), data)
	require.NoError(t, err)

	frameSize := 2
	gotFrames := len(result) / frameSize
	wantFrames := 198 // ~2x input frames, minus the trailing frame the resampler holds back
	assert.InDelta(t, wantFrames, gotFrames, 3)
}
