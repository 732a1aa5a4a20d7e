// Package audioformat describes the PCM sample layout shared by every
// chunk, decoder, filter, and output plugin in the playback engine.
package audioformat

import "fmt"

// SampleFormat identifies how one sample is encoded.
type SampleFormat uint8

const (
	// Undefined is only valid inside a format mask expressing a partial
	// constraint (e.g. "any sample rate, but S16 samples").
	Undefined SampleFormat = iota
	S8
	S16
	S24P32 // 24-bit samples packed into 32-bit words
	S32
	Float
	DSD
)

func (f SampleFormat) String() string {
	switch f {
	case S8:
		return "S8"
	case S16:
		return "S16"
	case S24P32:
		return "S24_P32"
	case S32:
		return "S32"
	case Float:
		return "FLOAT"
	case DSD:
		return "DSD"
	default:
		return "undefined"
	}
}

// SampleSize returns the number of bytes one sample occupies.
func (f SampleFormat) SampleSize() int {
	switch f {
	case S8, DSD:
		return 1
	case S16:
		return 2
	case S24P32, S32, Float:
		return 4
	default:
		return 0
	}
}

const (
	MinSampleRate = 8000
	MaxSampleRate = 768000
	MinChannels   = 1
	MaxChannels   = 8
)

// AudioFormat is the (sample_rate, sample_format, channel_count) triple
// every MusicChunk, decoder, and output plugin negotiates over.
type AudioFormat struct {
	SampleRate uint32
	Format     SampleFormat
	Channels   uint8
}

// Valid reports whether every field is defined and within the bounds
// required of a concrete (non-mask) AudioFormat.
func (a AudioFormat) Valid() bool {
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return false
	}
	if a.Channels < MinChannels || a.Channels > MaxChannels {
		return false
	}
	return a.Format != Undefined
}

// FrameSize returns the number of bytes one frame (one sample per channel)
// occupies. Zero if the sample format is undefined or there are no
// channels; the sample rate and the channel upper bound are not checked.
func (a AudioFormat) FrameSize() int {
	return int(a.Channels) * a.Format.SampleSize()
}

// Equal reports whether two formats describe identical PCM layouts.
func (a AudioFormat) Equal(b AudioFormat) bool {
	return a.SampleRate == b.SampleRate && a.Format == b.Format && a.Channels == b.Channels
}

func (a AudioFormat) String() string {
	return fmt.Sprintf("%d:%s:%d", a.SampleRate, a.Format, a.Channels)
}
