package player

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/decoder"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/pipe"
	"github.com/tunewave/tunewaved/internal/songref"
)

// pollInterval drives chunk forwarding and song-transition checks. The
// teacher's audiocore pipeline waits on condition variables pinned to
// buffer state; this tree uses a short poll instead (spec §9's redesign
// note: a typed channel replaces raw CV pairs, and the principal loop is
// simple enough that polling at this interval costs nothing audible).
const pollInterval = 20 * time.Millisecond

func (p *Player) run() {
	defer close(p.done)
	defer p.teardownAll()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-p.requests:
			exit := p.dispatch(req)
			if exit {
				return
			}
		case <-ticker.C:
			p.tick()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Player) dispatch(req request) (exit bool) {
	err := p.handle(req)
	select {
	case req.done <- err:
	default:
	}
	return req.cmd == CommandExit
}

func (p *Player) handle(req request) error {
	switch req.cmd {
	case CommandPlay:
		return p.handlePlay(req.song)
	case CommandQueue:
		p.mu.Lock()
		p.nextSong = req.song
		p.mu.Unlock()
		return nil
	case CommandStop:
		return p.handleStop()
	case CommandPause:
		return p.handleSetPause(req.pause)
	case CommandSeek:
		return p.handleSeek(req.song, req.seekTo)
	case CommandExit:
		return p.handleStop()
	default:
		return nil
	}
}

func (p *Player) tick() {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	if state != StatePlay {
		return
	}

	p.forwardChunks()
	p.maybeStartNext()
	p.checkSongTransition()
}

// handlePlay implements spec §4.3's "Play(SongRef)": tear down whatever is
// playing, start a fresh decoder, block until it reports its format (or
// fails), open every output against that format, and become PLAY.
func (p *Player) handlePlay(song *songref.SongRef) error {
	if song == nil {
		return errors.Newf("player: Play requires a song").
			Component("player").Category(errors.CategoryValidation).Build()
	}

	p.teardownCurrent()

	p.mu.Lock()
	p.currentSong = song
	p.nextSong = nil
	p.elapsed = 0
	p.duration = 0
	p.lastErr = nil
	p.state = StatePause
	p.mu.Unlock()

	if d, ok := song.Duration(); ok {
		p.mu.Lock()
		p.duration = d
		p.mu.Unlock()
	}

	decPipe := pipe.NewMusicPipe()
	dec := decoder.NewBridge(p.registry, p.decBuf, p.opener)
	dec.Start(song, decPipe)

	p.mu.Lock()
	p.decPipe = decPipe
	p.dec = dec
	p.mu.Unlock()

	format, ok := p.waitForFormat(dec)
	if !ok {
		err := dec.LastError()
		if err == nil {
			err = errors.Newf("player: decoder produced no audio for %s", song.URI).
				Component("player").Category(errors.CategoryDecoder).Build()
		}
		p.mu.Lock()
		p.lastErr = err
		p.state = StateStop
		p.mu.Unlock()
		p.notifyIdle("decoder-failed")
		return err
	}

	if dur := dec.Duration(); dur > 0 {
		p.mu.Lock()
		if p.duration == 0 {
			p.duration = dur
		}
		p.mu.Unlock()
	}

	p.openOutputs(format, false)

	p.mu.Lock()
	p.format = format
	p.state = StatePlay
	p.mu.Unlock()

	if p.notifier != nil {
		p.notifier.SongChanged(song)
	}
	return nil
}

// waitForFormat bounds the wait for a decoder's first Ready call (spec
// §4.1's decoder-selection algorithm runs synchronously on the decoder's
// own goroutine; the player only learns the outcome through polling).
func (p *Player) waitForFormat(dec *decoder.Bridge) (audioformat.AudioFormat, bool) {
	deadline := time.Now().Add(formatWaitTimeout)
	for time.Now().Before(deadline) {
		if format, ok := dec.Format(); ok {
			return format, true
		}
		select {
		case <-dec.Done():
			return dec.Format()
		case <-time.After(5 * time.Millisecond):
		}
	}
	return audioformat.AudioFormat{}, false
}

// openOutputs enables and opens every output against format. A single
// output failing to open never blocks the others or fails the overall
// Play (spec §7: output failures are per-output, never fatal to playback
// as long as at least one sink keeps working).
func (p *Player) openOutputs(format audioformat.AudioFormat, crossfade bool) {
	for i, out := range p.outputs {
		err := out.Enable()
		if err == nil {
			err = out.Open(format, p.outputPipes[i], p.decBuf, crossfade)
		}
		p.mu.Lock()
		if err != nil {
			p.outputErrors[out.Name] = err
		} else {
			delete(p.outputErrors, out.Name)
		}
		p.mu.Unlock()
		if err != nil && p.notifier != nil {
			p.notifier.OutputFailed(out.Name, err)
		}
	}
}

func (p *Player) handleStop() error {
	p.teardownCurrent()
	p.mu.Lock()
	p.currentSong = nil
	p.nextSong = nil
	p.elapsed = 0
	p.duration = 0
	p.state = StateStop
	p.mu.Unlock()
	return nil
}

func (p *Player) handleSetPause(pause bool) error {
	p.mu.Lock()
	if p.state == StateStop {
		p.mu.Unlock()
		return nil
	}
	if pause {
		p.state = StatePause
	} else {
		p.state = StatePlay
	}
	p.mu.Unlock()

	for _, out := range p.outputs {
		if pause {
			_ = out.Pause()
		} else {
			out.Resume()
		}
	}
	return nil
}

// handleSeek implements spec §4.3's "Seek within song" and "Seek across
// songs": if song differs from the currently playing one it is a fresh
// Play at the given offset; otherwise the live decoder is asked to
// reposition and every output's pipe is cleared of stale audio so the new
// position reaches the driver promptly.
func (p *Player) handleSeek(song *songref.SongRef, at time.Duration) error {
	p.mu.Lock()
	sameSong := song == nil || p.currentSong == song
	dec := p.dec
	p.mu.Unlock()

	if !sameSong {
		if err := p.handlePlay(song); err != nil {
			return err
		}
		p.mu.Lock()
		dec = p.dec
		p.mu.Unlock()
	}

	if dec == nil {
		return errors.Newf("player: seek with no active decoder").
			Component("player").Category(errors.CategoryState).Build()
	}

	dec.Seek(at)

	p.mu.Lock()
	decPipe := p.decPipe
	p.elapsed = at
	p.mu.Unlock()

	if decPipe != nil {
		decPipe.Clear(p.decBuf)
	}
	for i, out := range p.outputs {
		_ = out.Cancel()
		p.outputPipes[i].Clear(p.decBuf)
	}
	return nil
}

// teardownCurrent stops the live decoder(s) and releases every output's
// pipe contents, leaving the outputs enabled/open so the next Play can
// reuse the driver without a full re-handshake when formats match.
func (p *Player) teardownCurrent() {
	p.mu.Lock()
	dec := p.dec
	decPipe := p.decPipe
	nextDec := p.nextDec
	nextDecPipe := p.nextDecPipe
	p.dec = nil
	p.decPipe = nil
	p.nextDec = nil
	p.nextDecPipe = nil
	p.crossfading = false
	p.crossfadeDone = 0
	p.crossfadeTotal = 0
	p.mu.Unlock()

	if dec != nil {
		dec.Stop()
	}
	if nextDec != nil {
		nextDec.Stop()
	}
	if decPipe != nil {
		decPipe.Clear(p.decBuf)
	}
	if nextDecPipe != nil {
		nextDecPipe.Clear(p.decBuf)
	}
	for i, out := range p.outputs {
		_ = out.Cancel()
		p.outputPipes[i].Clear(p.decBuf)
	}
}

// teardownAll additionally kills every output, used when the principal
// loop itself exits (spec §6.2's Kill: fire-and-forget then join).
func (p *Player) teardownAll() {
	p.teardownCurrent()
	for _, out := range p.outputs {
		out.Kill()
	}
}

func (p *Player) notifyIdle(source string) {
	if p.notifier != nil {
		p.notifier.Idle(source)
	}
}
