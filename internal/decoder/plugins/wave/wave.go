// Package wave implements a decoder plugin for RIFF/WAVE files, grounded on
// go-audio/wav (the same library the teacher's export package uses for its
// WAV encoder).
package wave

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/decoder"
	"github.com/tunewave/tunewaved/internal/errors"
)

// Plugin decodes WAVE-container PCM via go-audio/wav.
type Plugin struct {
	decoder.BasePlugin
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return "wave" }

func (p *Plugin) Suffixes() []string { return []string{"wav", "wave"} }

func (p *Plugin) MimeTypes() []string { return []string{"audio/wav", "audio/x-wav", "audio/wave"} }

// streamReader adapts decoder.InputStream to io.Reader/io.Seeker, which the
// wav decoder requires.
type streamReader struct {
	client decoder.Client
	is     decoder.InputStream
}

func (r streamReader) Read(p []byte) (int, error) { return r.client.Read(r.is, p) }

func (r streamReader) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart || !r.is.Seekable() {
		return 0, errors.Newf("wave: unsupported seek mode").
			Category(errors.CategorySeek).Build()
	}
	if err := r.is.Seek(offset); err != nil {
		return 0, err
	}
	return offset, nil
}

func (p *Plugin) StreamDecode(client decoder.Client, is decoder.InputStream) error {
	rs := streamReader{client: client, is: is}
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return errors.Newf("wave: not a valid RIFF/WAVE file").
			Category(errors.CategoryUnsupportedFormat).Build()
	}
	dec.ReadInfo()
	if dec.Err() != nil {
		return errors.New(dec.Err()).Category(errors.CategoryUnsupportedFormat).Build()
	}

	format := audioformat.AudioFormat{
		SampleRate: dec.SampleRate,
		Channels:   uint8(dec.NumChans),
		Format:     sampleFormatFor(int(dec.BitDepth)),
	}
	if !format.Valid() {
		return errors.Newf("wave: unsupported sample format bit_depth=%d channels=%d", dec.BitDepth, dec.NumChans).
			Category(errors.CategoryUnsupportedFormat).Build()
	}

	duration, _ := dec.Duration()
	if err := client.Ready(format, is.Seekable(), duration); err != nil {
		return err
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		SourceBitDepth: int(dec.BitDepth),
		Data:           make([]int, 4096),
	}

	for {
		if cmd := client.GetCommand(); cmd == decoder.CommandStop {
			return nil
		} else if cmd == decoder.CommandSeek {
			if err := seekToFrame(dec, rs, client.GetSeekFrame(), format); err != nil {
				client.SeekError()
			} else {
				client.SubmitTimestamp(client.GetSeekTime())
				client.CommandFinished()
			}
		}

		n, err := dec.PCMBuffer(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.New(err).Category(errors.CategoryUnsupportedFormat).Build()
		}
		if n == 0 {
			return nil
		}

		data := encodePCM(buf, n, format)
		if cmd := client.SubmitAudio(is, data, 0); cmd == decoder.CommandStop {
			return nil
		}
	}
}

func sampleFormatFor(bitDepth int) audioformat.SampleFormat {
	switch bitDepth {
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

// encodePCM packs the first n samples of buf into the raw little-endian
// byte layout a MusicChunk carries.
func encodePCM(buf *audio.IntBuffer, n int, format audioformat.AudioFormat) []byte {
	sampleSize := format.Format.SampleSize()
	out := make([]byte, n*sampleSize)
	for i := 0; i < n; i++ {
		v := buf.Data[i]
		off := i * sampleSize
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
	return out
}

// standardWAVHeaderSize is the byte offset of the "data" chunk's payload in
// a canonical (no extra chunks) RIFF/WAVE file.
const standardWAVHeaderSize = 44

// seekToFrame repositions the underlying stream to frame, approximating the
// WAV data-chunk start as the canonical 44-byte header; files with extra
// chunks before "data" are not handled precisely here.
func seekToFrame(dec *wav.Decoder, rs streamReader, frame int64, format audioformat.AudioFormat) error {
	byteOffset := int64(standardWAVHeaderSize) + frame*int64(format.FrameSize())
	_, err := rs.Seek(byteOffset, io.SeekStart)
	return err
}
