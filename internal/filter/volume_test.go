package filter

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
)

func s16Buffer(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestVolumeFilterHalvesAmplitude(t *testing.T) {
	f := NewVolumeFilter("v")
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))
	f.SetVolume(50)

	data := s16Buffer(10000, -10000)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)

	got0 := int16(binary.LittleEndian.Uint16(out[0:2]))
	got1 := int16(binary.LittleEndian.Uint16(out[2:4]))
	assert.InDelta(t, 5000, got0, 2)
	assert.InDelta(t, -5000, got1, 2)
}

func TestVolumeFilterFullVolumeNoOp(t *testing.T) {
	f := NewVolumeFilter("v")
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 1}
	require.NoError(t, f.Configure(format, format))

	data := s16Buffer(1234)
	out, err := f.Process(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestVolumeFilterClamps(t *testing.T) {
	f := NewVolumeFilter("v")
	f.SetVolume(-5)
	assert.Equal(t, 0, f.Volume())
	f.SetVolume(200)
	assert.Equal(t, 100, f.Volume())
}

func TestSoftwareMixerSharesVolumeWithFilter(t *testing.T) {
	f := NewVolumeFilter("v")
	mixer := NewSoftwareMixer(f)
	defer mixer.Close()

	mixer.SetVolume(33)
	assert.Equal(t, 33, f.Volume())
	assert.Equal(t, 33, mixer.Volume())
}
