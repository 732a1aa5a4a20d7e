// Package pipe implements MusicPipe, the FIFO of chunks that buffers
// between a decoder and the player, and between the player and each
// output.
package pipe

import (
	"sync"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/chunk"
)

// MusicPipe is an ordered queue of chunks, single-producer/single-consumer
// under the player's discipline. Size is unbounded by policy — the real
// limit is MusicBuffer exhaustion upstream.
type MusicPipe struct {
	mu    sync.Mutex
	items []*chunk.MusicChunk

	format        audioformat.AudioFormat
	formatKnown   bool
	formatChanged bool

	notify chan struct{}
}

// NewMusicPipe creates an empty pipe.
func NewMusicPipe() *MusicPipe {
	return &MusicPipe{notify: make(chan struct{}, 1)}
}

// Notify returns a channel that receives a value whenever a Push makes the
// pipe non-empty, so a consumer (an output thread) can block on it instead
// of polling. The channel never closes; at most one pending notification
// is buffered.
func (p *MusicPipe) Notify() <-chan struct{} {
	return p.notify
}

// Push appends a chunk to the tail. Never blocks; back-pressure happens
// upstream when the producer fails to Allocate a new chunk.
func (p *MusicPipe) Push(c *chunk.MusicChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.formatKnown && !p.format.Equal(c.AudioFormat) {
		p.formatChanged = true
	}
	p.format = c.AudioFormat
	p.formatKnown = true

	p.items = append(p.items, c)

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// PeekHead returns the head chunk without removing it, or nil if empty.
func (p *MusicPipe) PeekHead() *chunk.MusicChunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return nil
	}
	return p.items[0]
}

// Shift removes and returns the head chunk, or nil if empty. The caller
// becomes responsible for returning the chunk to its MusicBuffer.
func (p *MusicPipe) Shift() *chunk.MusicChunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return nil
	}
	c := p.items[0]
	p.items[0] = nil
	p.items = p.items[1:]
	return c
}

// Clear drains every chunk, returning them to buf, and resets the
// format-changed flag. The producer should be quiesced before calling
// this; a Push racing with Clear that lands after it simply becomes the
// new head.
func (p *MusicPipe) Clear(buf *chunk.MusicBuffer) {
	p.mu.Lock()
	items := p.items
	p.items = nil
	p.formatChanged = false
	p.mu.Unlock()

	for _, c := range items {
		buf.Return(c)
	}
}

// GetSize returns the number of chunks currently queued.
func (p *MusicPipe) GetSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// IsEmpty reports whether the pipe currently holds no chunks.
func (p *MusicPipe) IsEmpty() bool {
	return p.GetSize() == 0
}

// Contains reports whether c is currently queued in this pipe.
func (p *MusicPipe) Contains(c *chunk.MusicChunk) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range p.items {
		if item == c {
			return true
		}
	}
	return false
}

// FormatChanged reports whether the AudioFormat of chunks pushed into this
// pipe changed mid-stream since the last ConsumeFormatChanged call. The
// player must observe this before forwarding chunks to outputs (spec
// §3.4's pipe-format invariant).
func (p *MusicPipe) FormatChanged() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.formatChanged
}

// ConsumeFormatChanged reports and clears the format-changed flag.
func (p *MusicPipe) ConsumeFormatChanged() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	changed := p.formatChanged
	p.formatChanged = false
	return changed
}

// Format returns the AudioFormat of the most recently pushed chunk.
func (p *MusicPipe) Format() (audioformat.AudioFormat, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format, p.formatKnown
}

// TotalBytes sums the length of every queued chunk, used to enforce the
// "sum(chunks[i].length) <= capacity*chunk_size" invariant in tests.
func (p *MusicPipe) TotalBytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, c := range p.items {
		total += c.Length
	}
	return total
}
