package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/config"
)

func TestBuildOutputChainOrderAndFormats(t *testing.T) {
	in := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	out := audioformat.AudioFormat{SampleRate: 48000, Format: audioformat.Float, Channels: 1}

	result, err := BuildOutputChain("out1", in, out, config.ReplayGainSettings{Mode: config.ReplayGainTrack}, false)
	require.NoError(t, err)
	require.NotNil(t, result.Chain)
	require.NotNil(t, result.Volume)
	require.NotNil(t, result.PrimaryReplayGain)
	assert.Nil(t, result.CrossfadeReplayGain)

	filters := result.Chain.Filters()
	require.Len(t, filters, 5)
	assert.Equal(t, "out1:rg-primary", filters[0].ID())
	assert.Equal(t, "out1:convert", filters[1].ID())
	assert.Equal(t, "out1:autoconvert", filters[2].ID())
	assert.Equal(t, "out1:remap", filters[3].ID())
	assert.Equal(t, "out1:volume", filters[4].ID())

	// A full chunk of stereo S16 frames should come out as mono float.
	data := s16Buffer(1000, 1000, 2000, 2000, 3000, 3000, 4000, 4000)
	processed, err := result.Chain.Process(context.Background(), data)
	require.NoError(t, err)
	require.NotEmpty(t, processed)
	assert.Equal(t, 0, len(processed)%4, "expected whole float32 samples")
}

func TestBuildOutputChainWithCrossfade(t *testing.T) {
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	result, err := BuildOutputChain("out1", format, format, config.ReplayGainSettings{Mode: config.ReplayGainTrack}, true)
	require.NoError(t, err)
	require.NotNil(t, result.CrossfadeReplayGain)
	assert.Len(t, result.Chain.Filters(), 6)
}
