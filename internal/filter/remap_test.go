package filter

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

func TestChannelRemapMonoToStereo(t *testing.T) {
	f := NewChannelRemapFilter("r")
	mono := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	stereo := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	require.NoError(t, f.Configure(mono, stereo))

	out, err := f.Process(context.Background(), s16Buffer(1000))
	require.NoError(t, err)
	require.Len(t, out, 4)
	l := int16(binary.LittleEndian.Uint16(out[0:2]))
	r := int16(binary.LittleEndian.Uint16(out[2:4]))
	assert.Equal(t, int16(1000), l)
	assert.Equal(t, int16(1000), r)
}

func TestChannelRemapStereoToMono(t *testing.T) {
	f := NewChannelRemapFilter("r")
	stereo := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	mono := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(stereo, mono))

	out, err := f.Process(context.Background(), s16Buffer(1000, 2000))
	require.NoError(t, err)
	require.Len(t, out, 2)
	got := int16(binary.LittleEndian.Uint16(out[0:2]))
	assert.Equal(t, int16(1500), got)
}

func TestChannelRemapSameChannelsNoOp(t *testing.T) {
	f := NewChannelRemapFilter("r")
	stereo := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	require.NoError(t, f.Configure(stereo, stereo))

	data := s16Buffer(1, 2)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
