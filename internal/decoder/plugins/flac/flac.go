// Package flac implements a decoder plugin for FLAC streams, grounded on
// the teacher's vendored fork github.com/tphakala/flac.
package flac

import (
	"io"

	"github.com/tphakala/flac"
	"github.com/tphakala/flac/frame"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/decoder"
	"github.com/tunewave/tunewaved/internal/errors"
)

// Plugin decodes FLAC via tphakala/flac.
type Plugin struct {
	decoder.BasePlugin
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "flac" }

func (p *Plugin) Suffixes() []string { return []string{"flac"} }

func (p *Plugin) MimeTypes() []string { return []string{"audio/flac", "audio/x-flac"} }

type streamReader struct {
	client decoder.Client
	is     decoder.InputStream
}

func (r streamReader) Read(p []byte) (int, error) { return r.client.Read(r.is, p) }

func (p *Plugin) StreamDecode(client decoder.Client, is decoder.InputStream) error {
	stream, err := flac.New(streamReader{client: client, is: is})
	if err != nil {
		return errors.New(err).Category(errors.CategoryUnsupportedFormat).Build()
	}

	format := audioformat.AudioFormat{
		SampleRate: stream.Info.SampleRate,
		Channels:   uint8(stream.Info.NChannels),
		Format:     sampleFormatFor(int(stream.Info.BitsPerSample)),
	}
	if !format.Valid() {
		return errors.Newf("flac: unsupported sample format bits=%d channels=%d", stream.Info.BitsPerSample, stream.Info.NChannels).
			Category(errors.CategoryUnsupportedFormat).Build()
	}

	if err := client.Ready(format, is.Seekable(), 0); err != nil {
		return err
	}

	for {
		if cmd := client.GetCommand(); cmd == decoder.CommandStop {
			return nil
		} else if cmd == decoder.CommandSeek {
			// tphakala/flac has no random-access seek table exposed through
			// this plugin; report the seek as unsupported and keep playing
			// from the current position (spec §4.1's SeekError path).
			client.SeekError()
		}

		f, err := stream.ParseNext()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.New(err).Category(errors.CategoryUnsupportedFormat).Build()
		}

		data := encodeFrame(f, format)
		if cmd := client.SubmitAudio(is, data, 0); cmd == decoder.CommandStop {
			return nil
		}
	}
}

func sampleFormatFor(bits int) audioformat.SampleFormat {
	switch bits {
	case 8:
		return audioformat.S8
	case 16:
		return audioformat.S16
	case 24:
		return audioformat.S24P32
	case 32:
		return audioformat.S32
	default:
		return audioformat.Undefined
	}
}

// encodeFrame interleaves a decoded FLAC frame's per-channel subframe
// samples into the raw little-endian layout a MusicChunk carries.
func encodeFrame(f *frame.Frame, format audioformat.AudioFormat) []byte {
	sampleSize := format.Format.SampleSize()
	channels := len(f.Subframes)
	blockSize := int(f.BlockSize)
	out := make([]byte, blockSize*channels*sampleSize)

	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < channels; ch++ {
			v := int32(f.Subframes[ch].Samples[i])
			off := (i*channels + ch) * sampleSize
			switch sampleSize {
			case 1:
				out[off] = byte(v)
			case 2:
				out[off] = byte(v)
				out[off+1] = byte(v >> 8)
			case 4:
				out[off] = byte(v)
				out[off+1] = byte(v >> 8)
				out[off+2] = byte(v >> 16)
				out[off+3] = byte(v >> 24)
			}
		}
	}
	return out
}
