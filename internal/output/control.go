package output

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/chunk"
	"github.com/tunewave/tunewaved/internal/config"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/filter"
	"github.com/tunewave/tunewaved/internal/logging"
	"github.com/tunewave/tunewaved/internal/pipe"
)

// FailTimerDefault is the device-loss recovery delay (spec §4.4 "Failure /
// device loss", §5 "Timeouts").
const FailTimerDefault = 10 * time.Second

// pauseKeepAlive is how often the playback loop calls the plugin's Pause
// while playAllowed is false and the driver stays open, maintaining device
// activity per spec §4.4's PAUSE command semantics.
const pauseKeepAlive = 250 * time.Millisecond

type request struct {
	cmd  Command
	done chan error
}

// Control is one OutputControl/OutputThread pair (spec §4.4, §6.2): it
// owns exactly one AudioOutput plugin instance, runs its I/O on a
// dedicated goroutine, and exposes the blocking command surface the
// player drives it with.
type Control struct {
	Name string

	mu            sync.Mutex
	enabled       bool
	reallyEnabled bool
	open          bool
	playing       bool
	playAllowed   bool
	lastErr       error

	format           audioformat.AudioFormat // negotiated with the plugin
	inFormat         audioformat.AudioFormat // the pipe's format
	chain            *filter.BuildResult
	pipe             *pipe.MusicPipe
	buf              *chunk.MusicBuffer
	rgCfg            config.ReplayGainSettings
	pendingCrossfade bool

	plugin AudioOutput

	requests chan request
	stopCh   chan struct{}
	done     chan struct{}
	logger   *slog.Logger

	consumed  atomic.Int64
	failTimer *time.Timer
}

// New creates a Control bound to plugin, not yet started.
func New(name string, plugin AudioOutput, rgCfg config.ReplayGainSettings) *Control {
	logger := logging.ForService("output")
	if logger == nil {
		logger = slog.Default()
	}
	return &Control{
		Name:     name,
		plugin:   plugin,
		rgCfg:    rgCfg,
		requests: make(chan request),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.With("component", "output_control", "output", name),
	}
}

// Start launches the output's goroutine.
func (c *Control) Start() { go c.run() }

func (c *Control) send(cmd Command) error {
	done := make(chan error, 1)
	select {
	case c.requests <- request{cmd: cmd, done: done}:
	case <-c.done:
		return errors.Newf("output %s: already stopped", c.Name).
			Component("output").Category(errors.CategoryState).Build()
	}
	select {
	case err := <-done:
		return err
	case <-c.done:
		return nil
	}
}

// Enable implements §6.2's blocking Enable.
func (c *Control) Enable() error { return c.send(CommandEnable) }

// Disable implements §6.2's blocking Disable.
func (c *Control) Disable() error { return c.send(CommandDisable) }

// Open negotiates format and begins reading from p, returning chunks to
// buf as they are consumed. It sends the OPEN command itself and blocks
// until the output goroutine has handled it.
func (c *Control) Open(format audioformat.AudioFormat, p *pipe.MusicPipe, buf *chunk.MusicBuffer, crossfade bool) error {
	c.mu.Lock()
	c.inFormat = format
	c.pipe = p
	c.buf = buf
	c.mu.Unlock()
	return c.sendWithCrossfade(CommandOpen, crossfade)
}

func (c *Control) sendWithCrossfade(cmd Command, crossfade bool) error {
	c.mu.Lock()
	c.pendingCrossfade = crossfade
	c.mu.Unlock()
	return c.send(cmd)
}

// Close implements §6.2's blocking Close.
func (c *Control) Close() error { return c.send(CommandClose) }

// Pause implements §6.2's blocking Pause.
func (c *Control) Pause() error { return c.send(CommandPause) }

// Resume un-pauses an already-open output without a full re-Open, mirroring
// the direct mutex-guarded Lock* operations rather than the heavyweight
// command table (spec's command table has no explicit "un-pause" entry;
// see DESIGN.md for this resolved open question).
func (c *Control) Resume() {
	c.mu.Lock()
	if c.open {
		c.playAllowed = true
	}
	c.mu.Unlock()
}

// Drain implements §6.2's blocking Drain.
func (c *Control) Drain() error { return c.send(CommandDrain) }

// Cancel implements §6.2's blocking Cancel.
func (c *Control) Cancel() error {
	c.mu.Lock()
	plugin := c.plugin
	c.mu.Unlock()
	if plugin != nil {
		plugin.Interrupt()
	}
	return c.send(CommandCancel)
}

// Kill implements §6.2's fire-and-forget-then-join Kill.
func (c *Control) Kill() {
	select {
	case c.requests <- request{cmd: CommandKill, done: make(chan error, 1)}:
	case <-c.done:
		return
	}
	<-c.done
}

// LockUpdateAudioFormat updates the pipe-side format the filter chain
// should expect, e.g. after the decoder pipe's format changed mid-song
// (spec §6.2); it does not itself reopen the driver.
func (c *Control) LockUpdateAudioFormat(format audioformat.AudioFormat) {
	c.mu.Lock()
	c.inFormat = format
	c.mu.Unlock()
}

// LockGetLastError implements §6.2's blocking-free error peek.
func (c *Control) LockGetLastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Status reports the four orthogonal flags of spec §3.8.
func (c *Control) Status() (enabled, reallyEnabled, open, playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled, c.reallyEnabled, c.open, c.playing
}

// ConsumedChunks reports how many chunks this output has played. The
// player does not read it; the decoder is not throttled by it.
func (c *Control) ConsumedChunks() int64 { return c.consumed.Load() }

func (c *Control) run() {
	defer close(c.done)

	for {
		c.mu.Lock()
		open := c.open
		playAllowed := c.playAllowed
		p := c.pipe
		c.mu.Unlock()

		if !(open && playAllowed) {
			if open {
				select {
				case req := <-c.requests:
					c.dispatch(req)
				case <-time.After(pauseKeepAlive):
					if !c.plugin.Pause() {
						c.fail(errors.Newf("output %s: pause keep-alive failed", c.Name).
							Component("output").Category(errors.CategoryOutput).Build())
					}
				case <-c.stopCh:
					return
				}
			} else {
				select {
				case req := <-c.requests:
					c.dispatch(req)
				case <-c.stopCh:
					return
				}
			}
			continue
		}

		select {
		case req := <-c.requests:
			c.dispatch(req)
			continue
		default:
		}

		if p == nil {
			select {
			case req := <-c.requests:
				c.dispatch(req)
			case <-c.stopCh:
				return
			}
			continue
		}

		if p.IsEmpty() {
			select {
			case req := <-c.requests:
				c.dispatch(req)
			case <-p.Notify():
			case <-c.stopCh:
				return
			}
			continue
		}

		c.playOneChunk()
	}
}

func (c *Control) dispatch(req request) {
	err := c.handle(req.cmd)
	select {
	case req.done <- err:
	default:
	}
	if req.cmd == CommandKill {
		select {
		case <-c.stopCh:
		default:
			close(c.stopCh)
		}
	}
}

func (c *Control) handle(cmd Command) error {
	switch cmd {
	case CommandEnable:
		return c.handleEnable()
	case CommandDisable:
		return c.handleDisable()
	case CommandOpen:
		return c.handleOpen()
	case CommandClose:
		return c.handleClose()
	case CommandPause:
		c.mu.Lock()
		c.playAllowed = false
		c.mu.Unlock()
		return nil
	case CommandRelease:
		return c.handleRelease()
	case CommandDrain:
		return c.handleDrain()
	case CommandCancel:
		return c.handleCancel()
	case CommandKill:
		return c.handleDisable()
	default:
		return nil
	}
}

func (c *Control) handleEnable() error {
	c.mu.Lock()
	already := c.reallyEnabled
	c.mu.Unlock()
	if already {
		return nil
	}
	if err := c.plugin.Enable(); err != nil {
		c.mu.Lock()
		c.enabled = true
		c.reallyEnabled = false
		c.lastErr = err
		c.mu.Unlock()
		c.armFailTimer()
		return err
	}
	c.mu.Lock()
	c.enabled = true
	c.reallyEnabled = true
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

func (c *Control) handleDisable() error {
	c.mu.Lock()
	open := c.open
	p := c.pipe
	buf := c.buf
	c.mu.Unlock()

	if open {
		_ = c.plugin.Close()
	}
	if p != nil && buf != nil {
		p.Clear(buf)
	}
	_ = c.plugin.Disable()

	c.mu.Lock()
	c.open = false
	c.playAllowed = false
	c.playing = false
	c.enabled = false
	c.reallyEnabled = false
	c.mu.Unlock()
	return nil
}

func (c *Control) handleOpen() error {
	c.mu.Lock()
	in := c.inFormat
	crossfade := c.pendingCrossfade
	c.mu.Unlock()

	negotiated, err := c.plugin.Open(in)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.open = false
		c.mu.Unlock()
		c.armFailTimer()
		return err
	}

	result, err := filter.BuildOutputChain(c.Name, in, negotiated, c.rgCfg, crossfade)
	if err != nil {
		_ = c.plugin.Close()
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.format = negotiated
	c.chain = result
	c.open = true
	c.playAllowed = true
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

func (c *Control) handleClose() error {
	c.mu.Lock()
	p := c.pipe
	buf := c.buf
	c.mu.Unlock()

	err := c.plugin.Close()

	if p != nil && buf != nil {
		p.Clear(buf)
	}

	c.mu.Lock()
	c.open = false
	c.playAllowed = false
	c.playing = false
	c.mu.Unlock()
	return err
}

func (c *Control) handleRelease() error {
	c.mu.Lock()
	c.playAllowed = false
	c.mu.Unlock()
	return c.handleClose()
}

func (c *Control) handleDrain() error {
	c.mu.Lock()
	chain := c.chain
	plugin := c.plugin
	c.mu.Unlock()

	if chain != nil {
		residue := chain.Chain.Flush()
		for len(residue) > 0 {
			n, err := plugin.Play(residue)
			if err != nil {
				return err
			}
			residue = residue[n:]
		}
	}
	return plugin.Drain()
}

func (c *Control) handleCancel() error {
	c.mu.Lock()
	p := c.pipe
	buf := c.buf
	c.mu.Unlock()

	if p != nil && buf != nil {
		p.Clear(buf)
	}
	c.plugin.Cancel()
	return nil
}

func (c *Control) playOneChunk() {
	c.mu.Lock()
	p := c.pipe
	buf := c.buf
	chain := c.chain
	plugin := c.plugin
	c.mu.Unlock()

	head := p.PeekHead()
	if head == nil {
		return
	}

	data, err := chain.Chain.Process(context.Background(), head.Bytes())
	if err != nil {
		c.fail(err)
		return
	}

	for len(data) > 0 {
		if delay := plugin.Delay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.stopCh:
				return
			}
		}
		n, err := plugin.Play(data)
		if err != nil {
			c.fail(err)
			return
		}
		if n <= 0 {
			return // interrupted; command will be consumed on next loop
		}
		data = data[n:]
	}

	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
	c.consumed.Add(1)

	p.Shift()
	buf.Return(head)
}

func (c *Control) fail(err error) {
	wrapped := errors.New(err).
		Component("output").
		Category(errors.CategoryOutput).
		Context("output", c.Name).
		Build()

	c.mu.Lock()
	c.lastErr = wrapped
	c.open = false
	c.playAllowed = false
	c.playing = false
	c.mu.Unlock()

	_ = c.plugin.Close()
	c.logger.Error("output failed", "error", wrapped)
	c.armFailTimer()
}

// armFailTimer schedules an automatic re-ENABLE attempt after
// FailTimerDefault, the device-loss recovery path of spec §4.4.
func (c *Control) armFailTimer() {
	c.mu.Lock()
	if c.failTimer != nil {
		c.failTimer.Stop()
	}
	c.failTimer = time.AfterFunc(FailTimerDefault, func() {
		c.mu.Lock()
		c.reallyEnabled = false
		c.mu.Unlock()
		_ = c.Enable()
	})
	c.mu.Unlock()
}
