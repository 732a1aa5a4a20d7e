package player

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/decoder"
	"github.com/tunewave/tunewaved/internal/pipe"
	"github.com/tunewave/tunewaved/internal/songref"
)

// maxChunksPerTick bounds how much a single tick forwards, so a burst of
// buffered audio can't starve command dispatch.
const maxChunksPerTick = 8

// forwardChunks moves chunks from the decoder pipe into every active
// output's own pipe (spec §5's per-output fan-out: each chunk a given
// output consumes is a private copy, since MusicChunk carries no
// refcount and two outputs must never share one chunk's lifetime).
func (p *Player) forwardChunks() {
	p.mu.Lock()
	decPipe := p.decPipe
	format := p.format
	crossfading := p.crossfading
	p.mu.Unlock()

	if decPipe == nil {
		return
	}
	if crossfading {
		p.forwardCrossfade()
		return
	}

	for i := 0; i < maxChunksPerTick; i++ {
		c := decPipe.PeekHead()
		if c == nil {
			return
		}
		if c.AudioFormat.Valid() {
			format = c.AudioFormat
		}

		p.fanOut(c.Bytes(), format, c.BitRate, c.Tag, c.ReplayGainSerial)

		decPipe.Shift()
		frames := frameCount(c.Length, format)
		p.decBuf.Return(c)

		p.mu.Lock()
		p.format = format
		p.bitRate = c.BitRate
		if format.Valid() && format.SampleRate > 0 {
			p.elapsed += time.Duration(frames) * time.Second / time.Duration(format.SampleRate)
		}
		p.mu.Unlock()
	}
}

// fanOut allocates one chunk copy per enabled, open output and pushes it
// into that output's dedicated pipe. A chunk this player can't allocate
// for a given output is simply dropped for that output rather than
// stalling the rest of the pipeline (spec §7: a single starved output
// never blocks playback on the others).
func (p *Player) fanOut(data []byte, format audioformat.AudioFormat, bitRate int, tag *songref.Tag, rgSerial uint32) {
	for i, out := range p.outputs {
		enabled, reallyEnabled, open, _ := out.Status()
		if !enabled || !reallyEnabled || !open {
			continue
		}
		dup, ok := p.decBuf.Allocate()
		if !ok {
			continue
		}
		dup.Length = copy(dup.Data[:], data)
		dup.AudioFormat = format
		dup.BitRate = bitRate
		dup.Tag = tag
		dup.ReplayGainSerial = rgSerial
		p.outputPipes[i].Push(dup)
	}
}

func frameCount(length int, format audioformat.AudioFormat) int {
	fs := format.FrameSize()
	if fs <= 0 {
		return 0
	}
	return length / fs
}

// maybeStartNext starts decoding the queued song ahead of time once the
// current song's remaining duration drops under the cross-fade window (or
// a fixed gapless lead when cross-fade is disabled), so the driver never
// runs dry at a song boundary (spec §4.3 "gapless transition").
func (p *Player) maybeStartNext() {
	p.mu.Lock()
	already := p.nextDec != nil
	next := p.nextSong
	cur := p.currentSong
	duration := p.duration
	elapsed := p.elapsed
	crossfadeSecs := p.crossfadeSeconds
	p.mu.Unlock()

	if already || next == nil || cur == nil || duration <= 0 {
		return
	}

	threshold := crossfadeSecs
	if threshold < gaplessLead {
		threshold = gaplessLead
	}
	if duration-elapsed > threshold {
		return
	}

	p.startNextDecoder(next)
}

func (p *Player) startNextDecoder(song *songref.SongRef) {
	nextPipe := pipe.NewMusicPipe()
	nextDec := decoder.NewBridge(p.registry, p.decBuf, p.opener)
	nextDec.Start(song, nextPipe)

	p.mu.Lock()
	p.nextDecPipe = nextPipe
	p.nextDec = nextDec
	p.mu.Unlock()
}

// checkSongTransition advances to the prebuffered next song once the
// current decoder has drained, begins a cross-fade once both decoders
// have a known, matching format, and applies spec §4.3's failure
// semantics when a decoder fails or the queue runs dry.
func (p *Player) checkSongTransition() {
	p.mu.Lock()
	dec := p.dec
	decPipe := p.decPipe
	nextDec := p.nextDec
	nextPipe := p.nextDecPipe
	nextSong := p.nextSong
	crossfadeSecs := p.crossfadeSeconds
	crossfading := p.crossfading
	duration := p.duration
	elapsed := p.elapsed
	format := p.format
	p.mu.Unlock()

	if dec == nil || crossfading {
		return
	}

	if nextDec != nil && crossfadeSecs > 0 && duration > 0 && duration-elapsed <= crossfadeSecs {
		if nextFormat, ok := nextDec.Format(); ok && nextFormat.Equal(format) {
			p.beginCrossfade(nextFormat)
			return
		}
	}

	if !isClosed(dec.Done()) || !decPipe.IsEmpty() {
		return
	}

	if err := dec.LastError(); err != nil {
		p.logger.Error("decoder failed", "error", err)
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		if p.recorder != nil {
			p.recorder.RecordDecoderFailure()
		}
	}

	if nextDec == nil {
		if nextSong == nil {
			p.handleQueueExhausted()
			return
		}
		p.startNextDecoder(nextSong)
		return
	}

	nextFormat, ok := nextDec.Format()
	if !ok {
		if isClosed(nextDec.Done()) {
			// next song failed before producing a single chunk: skip it
			// rather than wedging the loop on a decoder that will never
			// become ready.
			p.handleQueueExhausted()
		}
		return
	}

	p.advanceToNext(nextSong, nextDec, nextPipe, nextFormat)
}

func (p *Player) beginCrossfade(format audioformat.AudioFormat) {
	p.mu.Lock()
	p.crossfading = true
	p.crossfadeDone = 0
	p.crossfadeTotal = int(p.crossfadeSeconds.Seconds() * float64(format.SampleRate))
	if p.crossfadeTotal <= 0 {
		p.crossfadeTotal = 1
	}
	p.mu.Unlock()
	if p.recorder != nil {
		p.recorder.RecordCrossfadeEngaged()
	}
}

// advanceToNext swaps the prebuffered decoder in as the current one
// (spec §4.3 "gapless transition" when no cross-fade ran, or the tail of
// a cross-fade once the mix window has fully elapsed).
func (p *Player) advanceToNext(song *songref.SongRef, dec *decoder.Bridge, decPipe *pipe.MusicPipe, format audioformat.AudioFormat) {
	p.mu.Lock()
	sameFormat := p.format.Equal(format)
	p.mu.Unlock()
	if !sameFormat {
		p.openOutputs(format, false)
	}

	p.mu.Lock()
	p.currentSong = song
	p.dec = dec
	p.decPipe = decPipe
	p.nextDec = nil
	p.nextDecPipe = nil
	p.nextSong = nil
	p.format = format
	p.elapsed = 0
	p.duration = 0
	p.crossfading = false
	p.crossfadeDone = 0
	p.crossfadeTotal = 0
	p.mu.Unlock()

	if d, ok := song.Duration(); ok {
		p.mu.Lock()
		p.duration = d
		p.mu.Unlock()
	} else if dur := dec.Duration(); dur > 0 {
		p.mu.Lock()
		p.duration = dur
		p.mu.Unlock()
	}

	if p.notifier != nil {
		p.notifier.SongChanged(song)
	}
}

// handleQueueExhausted implements spec §4.3's "Queue exhausted" failure
// semantics: STOP and publish an idle event rather than spinning.
func (p *Player) handleQueueExhausted() {
	p.teardownCurrent()
	p.mu.Lock()
	p.currentSong = nil
	p.elapsed = 0
	p.duration = 0
	p.state = StateStop
	p.mu.Unlock()
	p.notifyIdle("queue-exhausted")
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
