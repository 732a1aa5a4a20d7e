// Package chunk implements the fixed-capacity PCM transfer unit (MusicChunk)
// and the pooled arena it is allocated from (MusicBuffer).
package chunk

import (
	"sync"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/songref"
)

// PayloadBudget is the nominal capacity of one chunk's PCM payload.
const PayloadBudget = 4 * 1024

// MusicChunk is a fixed-capacity PCM buffer carrying a slice of one song's
// audio plus the metadata the player and outputs need to act on it.
type MusicChunk struct {
	Data             [PayloadBudget]byte
	Length           int
	Timestamp        int64 // monotonic playback time within the current song, in nanoseconds
	BitRate          int   // advisory, last known instantaneous bit rate
	Tag              *songref.Tag
	ReplayGainSerial uint32
	AudioFormat      audioformat.AudioFormat

	buf *MusicBuffer
}

// Bytes returns the valid prefix of the chunk's payload.
func (c *MusicChunk) Bytes() []byte {
	return c.Data[:c.Length]
}

// reset clears a chunk's transient fields for reuse. The capacity-sized
// backing array is never reallocated.
func (c *MusicChunk) reset() {
	c.Length = 0
	c.Timestamp = 0
	c.BitRate = 0
	c.Tag = nil
	c.ReplayGainSerial = 0
	c.AudioFormat = audioformat.AudioFormat{}
}

// MusicBuffer is a chunk arena with a fixed capacity. Chunks are handed
// out by Allocate and must be handed back by Return exactly once; a chunk
// in active use anywhere in the engine is owned by exactly one pipe or one
// thread mid-transfer (spec §3.3's invariant), never two at once — this
// package cannot enforce that across goroutines, but Allocate/Return are
// themselves safe for concurrent use.
type MusicBuffer struct {
	pool        sync.Pool
	mu          sync.Mutex
	capacity    int // max number of chunks outstanding, 0 = unbounded
	outstanding int
	notifyCh    chan struct{}
}

// NewMusicBuffer creates a buffer. capacityKiB is the configured total
// capacity in KiB (0 means unbounded, bounded only by available memory);
// it is converted to a chunk-count ceiling using PayloadBudget.
func NewMusicBuffer(capacityKiB int) *MusicBuffer {
	b := &MusicBuffer{
		notifyCh: make(chan struct{}, 1),
	}
	if capacityKiB > 0 {
		b.capacity = (capacityKiB * 1024) / PayloadBudget
		if b.capacity < 1 {
			b.capacity = 1
		}
	}
	b.pool.New = func() any {
		return &MusicChunk{buf: b}
	}
	return b
}

// Allocate returns a fresh chunk, or (nil, false) if the buffer's capacity
// is exhausted. Callers that receive false must park until Return frees a
// slot — Wait blocks for exactly that.
func (b *MusicBuffer) Allocate() (*MusicChunk, bool) {
	b.mu.Lock()
	if b.capacity > 0 && b.outstanding >= b.capacity {
		b.mu.Unlock()
		return nil, false
	}
	b.outstanding++
	b.mu.Unlock()

	c := b.pool.Get().(*MusicChunk)
	c.reset()
	return c, true
}

// Return gives a chunk back to the arena. It must be called exactly once
// per successful Allocate, after every pipe holding the chunk has shifted
// it out.
func (b *MusicBuffer) Return(c *MusicChunk) {
	if c == nil {
		return
	}
	b.mu.Lock()
	b.outstanding--
	b.mu.Unlock()

	b.pool.Put(c)

	select {
	case b.notifyCh <- struct{}{}:
	default:
	}
}

// Wait blocks until a Return makes room for another Allocate, or until
// stop is closed. Returns false if stop fired first.
func (b *MusicBuffer) Wait(stop <-chan struct{}) bool {
	select {
	case <-b.notifyCh:
		return true
	case <-stop:
		return false
	}
}

// Outstanding reports how many chunks are currently allocated (for
// metrics and tests, not used for control flow).
func (b *MusicBuffer) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outstanding
}
