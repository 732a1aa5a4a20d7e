package chunk

import (
	"testing"
	"time"
)

func TestAllocateReturnRoundTrip(t *testing.T) {
	buf := NewMusicBuffer(0)

	c, ok := buf.Allocate()
	if !ok || c == nil {
		t.Fatal("expected a chunk from an unbounded buffer")
	}
	c.Length = 128
	buf.Return(c)

	if got := buf.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d, want 0 after Return", got)
	}
}

func TestAllocateExhaustion(t *testing.T) {
	buf := NewMusicBuffer(1) // capacity rounds up to at least 1 chunk worth of KiB

	c1, ok := buf.Allocate()
	if !ok {
		t.Fatal("expected first allocation to succeed")
	}

	_, ok = buf.Allocate()
	if ok {
		t.Fatal("expected second allocation to fail once capacity is exhausted")
	}

	stop := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		done <- buf.Wait(stop)
	}()

	buf.Return(c1)

	select {
	case woke := <-done:
		if !woke {
			t.Fatal("expected Wait to report a successful wake-up, not a stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Return")
	}
}

func TestAllocateResetsChunkState(t *testing.T) {
	buf := NewMusicBuffer(0)

	c, _ := buf.Allocate()
	c.Length = 42
	c.BitRate = 320
	buf.Return(c)

	c2, _ := buf.Allocate()
	if c2.Length != 0 || c2.BitRate != 0 {
		t.Errorf("expected reused chunk to be reset, got Length=%d BitRate=%d", c2.Length, c2.BitRate)
	}
}
