package decoder

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/songref"
)

// Client is the set of callbacks a Plugin uses to hand decoded audio and
// metadata back to the bridge hosting it (spec §4.1). The bridge implements
// this interface; a plugin's *Decode method is passed one and must not
// retain it past return.
type Client interface {
	// Ready locks in the stream's format on the first call and enables
	// chunk submission. duration is zero if unknown.
	Ready(format audioformat.AudioFormat, seekable bool, duration time.Duration) error

	// SubmitAudio copies bytes into chunks, stamps the timestamp, and
	// pushes them to the pipe; it may block on buffer exhaustion. Returns
	// the decoder's current command so the plugin can react without a
	// separate GetCommand call.
	SubmitAudio(is InputStream, data []byte, kbitRate int) Command

	// SubmitTimestamp overrides the timestamp of the next submitted chunk.
	SubmitTimestamp(t time.Duration)

	// SubmitTag attaches a tag to the next chunk boundary.
	SubmitTag(tag *songref.Tag) Command

	// SubmitReplayGain updates the replay-gain slot, bumping its serial.
	SubmitReplayGain(rg *songref.ReplayGain)

	// SubmitMixRamp records cross-fade tuning envelope points.
	SubmitMixRamp(mr *songref.MixRamp)

	// GetCommand is a non-blocking read of the current decoder command.
	GetCommand() Command

	// CommandFinished acknowledges a SEEK or START, clearing it to NONE.
	CommandFinished()

	// GetSeekTime/GetSeekFrame consume the pending seek target.
	GetSeekTime() time.Duration
	GetSeekFrame() int64

	// SeekError reports that a seek failed; engine continues from the
	// previous position, clearing SEEK without a position change.
	SeekError()

	// OpenURI opens a nested stream, used by container decoders.
	OpenURI(uri string) (InputStream, error)

	// Read is a cooperative read that aborts early once the decoder has
	// been stopped; a pending SEEK does not interrupt it.
	Read(is InputStream, dest []byte) (int, error)
}
