package player

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/chunk"
	"github.com/tunewave/tunewaved/internal/decoder"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/logging"
	"github.com/tunewave/tunewaved/internal/output"
	"github.com/tunewave/tunewaved/internal/pipe"
	"github.com/tunewave/tunewaved/internal/songref"
)

// gaplessLead is the minimum lookahead before a song ends at which the next
// decoder is started, even with cross-fade disabled (spec §4.3 "gapless
// transition").
const gaplessLead = 500 * time.Millisecond

// formatWaitTimeout bounds how long Play waits for a freshly started
// decoder to report its first Ready call before giving up (mirrors the
// teacher's bounded-wait startup pattern in audiocore's manager).
const formatWaitTimeout = 3 * time.Second

type request struct {
	cmd    Command
	song   *songref.SongRef
	pause  bool
	seekTo time.Duration
	done   chan error
}

// Player is the principal loop of spec §4.3: it owns at most two live
// decoders (the current song and, during cross-fade or gapless lookahead,
// the next one), forwards chunks into every active output's pipe, and
// arbitrates state transitions via a typed command channel.
type Player struct {
	mu           sync.Mutex
	state        State
	currentSong  *songref.SongRef
	nextSong     *songref.SongRef
	elapsed      time.Duration
	duration     time.Duration
	bitRate      int
	format       audioformat.AudioFormat
	lastErr      error
	outputErrors map[string]error

	decBuf  *chunk.MusicBuffer
	decPipe *pipe.MusicPipe
	dec     *decoder.Bridge

	nextDecPipe *pipe.MusicPipe
	nextDec     *decoder.Bridge

	crossfading      bool
	crossfadeTotal   int
	crossfadeDone    int
	crossfadeSeconds time.Duration

	outputs     []*output.Control
	outputPipes []*pipe.MusicPipe

	registry *decoder.Registry
	opener   decoder.Opener
	notifier Notifier
	recorder Recorder

	requests chan request
	stopCh   chan struct{}
	done     chan struct{}
	logger   *slog.Logger
}

// New creates a Player. buf is shared with every output's pipe consumers
// (spec §5's single shared MusicBuffer per player instance); outputs must
// already be constructed (via output.New) but not yet Start-ed — the
// player calls Start on each during its own Start.
func New(registry *decoder.Registry, opener decoder.Opener, buf *chunk.MusicBuffer, outputs []*output.Control, crossfadeSeconds time.Duration, notifier Notifier, recorder Recorder) *Player {
	logger := logging.ForService("player")
	if logger == nil {
		logger = slog.Default()
	}

	pipes := make([]*pipe.MusicPipe, len(outputs))
	for i := range outputs {
		pipes[i] = pipe.NewMusicPipe()
	}

	return &Player{
		state:            StateStop,
		outputErrors:     make(map[string]error),
		decBuf:           buf,
		outputs:          outputs,
		outputPipes:      pipes,
		registry:         registry,
		opener:           opener,
		crossfadeSeconds: crossfadeSeconds,
		notifier:         notifier,
		recorder:         recorder,
		requests:         make(chan request),
		stopCh:           make(chan struct{}),
		done:             make(chan struct{}),
		logger:           logger.With("component", "player"),
	}
}

// Start launches every output's goroutine and the player's own principal
// loop.
func (p *Player) Start() {
	for _, out := range p.outputs {
		out.Start()
	}
	go p.run()
}

func (p *Player) send(cmd Command, song *songref.SongRef, seekTo time.Duration, pause bool) error {
	req := request{cmd: cmd, song: song, seekTo: seekTo, pause: pause, done: make(chan error, 1)}
	select {
	case p.requests <- req:
	case <-p.done:
		return errors.Newf("player: already stopped").
			Component("player").Category(errors.CategoryState).Build()
	}
	select {
	case err := <-req.done:
		return err
	case <-p.done:
		return nil
	}
}

// Play implements PlayerControl.Play (spec §6.1): become PLAY on the given
// song, blocking until the decoder has accepted it or failed outright.
func (p *Player) Play(song *songref.SongRef) error {
	return p.send(CommandPlay, song, 0, false)
}

// EnqueueSong implements PlayerControl's queue-ahead hook (spec §9's
// resolved "external queue pulls vs. pushes" question: the client pushes
// the next song in advance rather than the player pulling from a
// callback, since no separate queue component exists in this tree).
func (p *Player) EnqueueSong(song *songref.SongRef) error {
	return p.send(CommandQueue, song, 0, false)
}

// Next skips directly to song, abandoning any cross-fade/gapless lookahead
// in progress.
func (p *Player) Next(song *songref.SongRef) error {
	return p.Play(song)
}

// Stop implements PlayerControl.Stop.
func (p *Player) Stop() error {
	return p.send(CommandStop, nil, 0, false)
}

// SetPause implements PlayerControl.Pause(bool) (spec §6.1): pause is not a
// toggle at the control surface, only at the keyboard/UI layer above it.
func (p *Player) SetPause(pause bool) error {
	return p.send(CommandPause, nil, 0, pause)
}

// Pause toggles the current PLAY/PAUSE state.
func (p *Player) Pause() error {
	p.mu.Lock()
	toggle := p.state != StatePause
	p.mu.Unlock()
	return p.SetPause(toggle)
}

// Seek implements PlayerControl.Seek: reposition within the current song,
// or within song if it names a different SongRef (spec §4.3 "Seek across
// songs").
func (p *Player) Seek(song *songref.SongRef, at time.Duration) error {
	return p.send(CommandSeek, song, at, false)
}

// Exit shuts the player and every output down.
func (p *Player) Exit() {
	_ = p.send(CommandExit, nil, 0, false)
	<-p.done
}

// GetStatus implements PlayerControl.GetStatus: a point-in-time snapshot,
// safe to read without blocking the principal loop.
func (p *Player) GetStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	outErrs := make(map[string]error, len(p.outputErrors))
	for k, v := range p.outputErrors {
		outErrs[k] = v
	}

	return Status{
		State:        p.state,
		Song:         p.currentSong,
		Elapsed:      p.elapsed,
		Duration:     p.duration,
		BitRate:      p.bitRate,
		AudioFormat:  p.format,
		Error:        p.lastErr,
		OutputErrors: outErrs,
	}
}

// LockSetTaggedSong implements the decoder's SubmitTag path surfacing into
// the current SongRef (spec §4.1's "live tag" case, e.g. a shoutcast
// stream-title change mid-song): it replaces only the Tag field, leaving
// the rest of the currently playing SongRef untouched.
func (p *Player) LockSetTaggedSong(tag songref.Tag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentSong == nil {
		return
	}
	updated := *p.currentSong
	updated.Tag = tag
	p.currentSong = &updated
}
