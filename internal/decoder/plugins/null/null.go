// Package null implements a decoder plugin that produces silence, used for
// smoke-testing the player/output pipeline without real audio files (spec
// §1 calls out "null" as an illustrative, non-specified plugin).
package null

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/decoder"
)

// Plugin decodes any URI with the ".null" suffix into silence at a fixed
// CD-quality format. The length in seconds is the input stream's byte size
// divided by 1000, or 5 seconds when the size is unknown or zero.
type Plugin struct {
	decoder.BasePlugin
	chunkDuration time.Duration
}

// New creates a null decoder plugin. chunkDuration controls how much audio
// one SubmitAudio call carries; it defaults to 100ms.
func New() *Plugin {
	return &Plugin{chunkDuration: 100 * time.Millisecond}
}

func (p *Plugin) Name() string { return "null" }

func (p *Plugin) Suffixes() []string { return []string{"null"} }

func (p *Plugin) StreamDecode(client decoder.Client, is decoder.InputStream) error {
	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	seconds := 5.0
	if size, ok := is.Size(); ok && size > 0 {
		// Convention: the stream's byte length, if any, encodes seconds*1000.
		seconds = float64(size) / 1000
	}
	duration := time.Duration(seconds * float64(time.Second))

	if err := client.Ready(format, true, duration); err != nil {
		return err
	}

	frameSize := format.FrameSize()
	framesPerChunk := int(p.chunkDuration.Seconds() * float64(format.SampleRate))
	silence := make([]byte, framesPerChunk*frameSize)

	elapsed := time.Duration(0)
	for elapsed < duration {
		cmd := client.GetCommand()
		switch cmd {
		case decoder.CommandStop:
			return nil
		case decoder.CommandSeek:
			elapsed = client.GetSeekTime()
			client.SubmitTimestamp(elapsed)
			client.CommandFinished()
		}

		cmd = client.SubmitAudio(is, silence, 0)
		if cmd == decoder.CommandStop {
			return nil
		}
		elapsed += p.chunkDuration
	}
	return nil
}
