package pipe

import (
	"testing"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/chunk"
)

func TestPushShiftFIFOOrder(t *testing.T) {
	buf := chunk.NewMusicBuffer(0)
	p := NewMusicPipe()

	format := audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	var pushed []*chunk.MusicChunk
	for i := 0; i < 3; i++ {
		c, _ := buf.Allocate()
		c.AudioFormat = format
		c.Timestamp = int64(i)
		p.Push(c)
		pushed = append(pushed, c)
	}

	if p.GetSize() != 3 {
		t.Fatalf("GetSize() = %d, want 3", p.GetSize())
	}

	for i, want := range pushed {
		got := p.Shift()
		if got != want {
			t.Fatalf("Shift() at index %d returned wrong chunk", i)
		}
	}

	if !p.IsEmpty() {
		t.Fatal("expected pipe to be empty after shifting all chunks")
	}
}

func TestFormatChangeFlag(t *testing.T) {
	buf := chunk.NewMusicBuffer(0)
	p := NewMusicPipe()

	c1, _ := buf.Allocate()
	c1.AudioFormat = audioformat.AudioFormat{SampleRate: 44100, Format: audioformat.S16, Channels: 2}
	p.Push(c1)

	if p.FormatChanged() {
		t.Fatal("format should not be reported changed after the first push")
	}

	c2, _ := buf.Allocate()
	c2.AudioFormat = audioformat.AudioFormat{SampleRate: 48000, Format: audioformat.S16, Channels: 2}
	p.Push(c2)

	if !p.FormatChanged() {
		t.Fatal("expected format-changed flag to be set after a differing push")
	}
	if !p.ConsumeFormatChanged() {
		t.Fatal("expected ConsumeFormatChanged to report true once")
	}
	if p.FormatChanged() {
		t.Fatal("expected the flag to be cleared after ConsumeFormatChanged")
	}
}

func TestClearReturnsChunksToBuffer(t *testing.T) {
	buf := chunk.NewMusicBuffer(0)
	p := NewMusicPipe()

	for i := 0; i < 2; i++ {
		c, _ := buf.Allocate()
		p.Push(c)
	}
	if got := buf.Outstanding(); got != 2 {
		t.Fatalf("Outstanding() = %d, want 2 before Clear", got)
	}

	p.Clear(buf)

	if !p.IsEmpty() {
		t.Fatal("expected pipe to be empty after Clear")
	}
	if got := buf.Outstanding(); got != 0 {
		t.Fatalf("Outstanding() = %d, want 0 after Clear", got)
	}
}

func TestContains(t *testing.T) {
	buf := chunk.NewMusicBuffer(0)
	p := NewMusicPipe()

	c, _ := buf.Allocate()
	p.Push(c)

	if !p.Contains(c) {
		t.Fatal("expected pipe to contain the pushed chunk")
	}

	shifted := p.Shift()
	if p.Contains(shifted) {
		t.Fatal("expected pipe to no longer contain a shifted-out chunk")
	}
}
