package filter

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/config"
	"github.com/tunewave/tunewaved/internal/songref"
)

func TestReplayGainOffModeIsUnity(t *testing.T) {
	f := NewReplayGainFilter("rg", config.ReplayGainSettings{Mode: config.ReplayGainOff})
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))
	f.SetTag(&songref.ReplayGain{TrackGain: -6})

	data := s16Buffer(10000)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestReplayGainTrackModeAttenuates(t *testing.T) {
	f := NewReplayGainFilter("rg", config.ReplayGainSettings{Mode: config.ReplayGainTrack})
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))
	f.SetTag(&songref.ReplayGain{TrackGain: -6})

	out, err := f.Process(context.Background(), s16Buffer(10000))
	require.NoError(t, err)
	got := int16(binary.LittleEndian.Uint16(out[0:2]))
	assert.Less(t, got, int16(10000))
}

func TestReplayGainMissingTagUsesMissingPreamp(t *testing.T) {
	f := NewReplayGainFilter("rg", config.ReplayGainSettings{Mode: config.ReplayGainTrack, MissingPreamp: 0})
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))
	f.SetTag(nil)

	data := s16Buffer(10000)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
