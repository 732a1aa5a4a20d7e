package decoder

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/chunk"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/logging"
	"github.com/tunewave/tunewaved/internal/pipe"
	"github.com/tunewave/tunewaved/internal/songref"
)

// Opener resolves a URI to a readable stream. It is the core's one
// deliberate hook into boundary code (spec §1's "archive ↔ input stream"
// intersection).
type Opener interface {
	Open(uri string) (InputStream, error)
}

// FileOpener opens local filesystem paths (the "file" scheme and bare
// paths). It does not handle remote or archive schemes; the daemon's run
// command wires in FileOpener, so such URIs fail to open there.
type FileOpener struct{}

func (FileOpener) Open(uri string) (InputStream, error) {
	path := uri
	const filePrefix = "file://"
	if len(uri) >= len(filePrefix) && uri[:len(filePrefix)] == filePrefix {
		path = uri[len(filePrefix):]
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("decoder").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	info, err := f.Stat()
	size := int64(-1)
	if err == nil {
		size = info.Size()
	}
	return NewFileInputStream(f, size), nil
}

// Bridge hosts one decoder plugin for the lifetime of exactly one song
// (spec §4.1, §5's resource-scoping rule). It implements Client so plugins
// call back into it directly.
type Bridge struct {
	mu       sync.Mutex
	state    State
	command  Command
	seekTime time.Duration
	lastErr  error

	readyCalled bool
	format      audioformat.AudioFormat
	seekable    bool
	duration    time.Duration

	pendingTimestamp *time.Duration
	pendingTag       *songref.Tag
	replayGain       *songref.ReplayGain
	replayGainSerial uint32
	mixRamp          *songref.MixRamp

	stream InputStream

	done   chan struct{}
	stopCh chan struct{}

	buf      *chunk.MusicBuffer
	pipe     *pipe.MusicPipe
	registry *Registry
	opener   Opener
	logger   *slog.Logger
	song     *songref.SongRef
}

// NewBridge creates a bridge ready to decode one song. opener may be nil,
// in which case FileOpener is used.
func NewBridge(registry *Registry, buf *chunk.MusicBuffer, opener Opener) *Bridge {
	if opener == nil {
		opener = FileOpener{}
	}
	logger := logging.ForService("decoder")
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		registry: registry,
		buf:      buf,
		opener:   opener,
		logger:   logger.With("component", "decoder_bridge"),
		done:     make(chan struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Start selects a plugin for song.URI and begins decoding into p on a new
// goroutine.
func (b *Bridge) Start(song *songref.SongRef, p *pipe.MusicPipe) {
	b.mu.Lock()
	b.song = song
	b.pipe = p
	b.state = StateStart
	b.mu.Unlock()

	go b.run()
}

func (b *Bridge) run() {
	defer close(b.done)

	b.mu.Lock()
	b.state = StateDecode
	song := b.song
	b.mu.Unlock()

	err := b.decodeSong(song)

	b.mu.Lock()
	b.state = StateStop
	b.lastErr = err
	b.mu.Unlock()

	if err != nil {
		b.logger.Error("decode failed", "uri", song.URI, "error", err)
	}
}

// decodeSong runs the selection algorithm of spec §4.1.
func (b *Bridge) decodeSong(song *songref.SongRef) error {
	uri := song.URI

	if isArchiveURI(uri) {
		outer, inner, ok := splitArchiveURI(uri)
		if !ok {
			return errors.Newf("malformed archive uri: %s", uri).
				Component("decoder").Category(errors.CategoryUnsupportedFormat).Build()
		}
		// The outer archive path is not used: the inner member path alone
		// goes through the bridge's Opener, with no archive-backed stream.
		_ = outer
		return b.decodeLocalOrRemote(inner)
	}

	return b.decodeLocalOrRemote(uri)
}

func (b *Bridge) decodeLocalOrRemote(uri string) error {
	if isRemoteURI(uri) {
		return b.decodeByMIME(uri)
	}
	return b.decodeBySuffix(uri)
}

// decodeByMIME implements step 1: open the stream, match by its MIME type.
func (b *Bridge) decodeByMIME(uri string) error {
	stream, err := b.opener.Open(uri)
	if err != nil {
		return err
	}
	defer stream.Close()

	mime, ok := stream.MimeType()
	if ok {
		for _, p := range b.registry.ByMIME(mime) {
			if err := b.runPlugin(p, stream); err == nil && b.readyCalled {
				return nil
			}
		}
	}
	// MIME unknown or no match: fall back to suffix (step 3).
	return b.decodeBySuffix(uri)
}

// decodeBySuffix implements step 2: try suffix-matched plugins in
// registration order, stopping at the first that calls Ready.
func (b *Bridge) decodeBySuffix(uri string) error {
	candidates := b.registry.BySuffix(uri)
	if len(candidates) == 0 {
		return errors.Newf("no decoder plugin for %s", uri).
			Component("decoder").
			Category(errors.CategoryUnsupportedFormat).
			Context("uri", uri).
			Build()
	}

	var lastErr error
	for _, p := range candidates {
		stream, err := b.opener.Open(uri)
		if err != nil {
			lastErr = err
			continue
		}
		err = b.runPlugin(p, stream)
		stream.Close()
		if b.readyCalled {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (b *Bridge) runPlugin(p Plugin, stream InputStream) error {
	b.mu.Lock()
	b.stream = stream
	b.mu.Unlock()
	return p.StreamDecode(b, stream)
}

// Stop requests the decoder terminate as soon as possible (spec §4.1
// "Stop"), interrupting any blocked read, and waits for the goroutine to
// exit.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.command = CommandStop
	stream := b.stream
	b.mu.Unlock()

	if stream != nil {
		stream.Interrupt()
	}
	select {
	case <-b.stopCh:
	default:
		close(b.stopCh)
	}
	<-b.done
}

// Seek requests a reposition to t, observed by the plugin at its next
// GetCommand poll.
func (b *Bridge) Seek(t time.Duration) {
	b.mu.Lock()
	b.command = CommandSeek
	b.seekTime = t
	b.mu.Unlock()
}

// State returns the decoder's current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Done reports when the decode goroutine has exited.
func (b *Bridge) Done() <-chan struct{} { return b.done }

// LastError returns the error the decoder exited with, if any.
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Format returns the locked-in AudioFormat once Ready has been called.
func (b *Bridge) Format() (audioformat.AudioFormat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format, b.readyCalled
}

// Duration returns the plugin-reported song duration, valid once Format
// reports ready; zero if the plugin didn't report one (e.g. a live stream).
func (b *Bridge) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

// --- Client interface, called by the plugin on the decode goroutine ---

func (b *Bridge) Ready(format audioformat.AudioFormat, seekable bool, duration time.Duration) error {
	b.mu.Lock()
	if b.readyCalled && !b.format.Equal(format) {
		b.mu.Unlock()
		return errors.Newf("audio format changed mid-stream").
			Component("decoder").
			Category(errors.CategoryUnsupportedFormat).
			Build()
	}
	b.readyCalled = true
	b.format = format
	b.seekable = seekable
	b.duration = duration
	b.mu.Unlock()
	return nil
}

func (b *Bridge) SubmitAudio(is InputStream, data []byte, kbitRate int) Command {
	for len(data) > 0 {
		c, ok := b.buf.Allocate()
		if !ok {
			if !b.buf.Wait(b.stopCh) {
				return CommandStop
			}
			continue
		}

		n := copy(c.Data[:], data)
		c.Length = n
		c.BitRate = kbitRate

		b.mu.Lock()
		c.AudioFormat = b.format
		if b.pendingTimestamp != nil {
			c.Timestamp = b.pendingTimestamp.Nanoseconds()
			b.pendingTimestamp = nil
		}
		if b.pendingTag != nil {
			c.Tag = b.pendingTag
			b.pendingTag = nil
		}
		c.ReplayGainSerial = b.replayGainSerial
		b.mu.Unlock()

		b.pipe.Push(c)
		data = data[n:]
	}
	return b.GetCommand()
}

func (b *Bridge) SubmitTimestamp(t time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingTimestamp = &t
}

func (b *Bridge) SubmitTag(tag *songref.Tag) Command {
	b.mu.Lock()
	b.pendingTag = tag
	b.mu.Unlock()
	return b.GetCommand()
}

func (b *Bridge) SubmitReplayGain(rg *songref.ReplayGain) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replayGain = rg
	b.replayGainSerial++
}

func (b *Bridge) SubmitMixRamp(mr *songref.MixRamp) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mixRamp = mr
}

func (b *Bridge) GetCommand() Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.command
}

func (b *Bridge) CommandFinished() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.command = CommandNone
}

func (b *Bridge) GetSeekTime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seekTime
}

func (b *Bridge) GetSeekFrame() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.format.Valid() {
		return 0
	}
	seconds := b.seekTime.Seconds()
	return int64(seconds * float64(b.format.SampleRate))
}

func (b *Bridge) SeekError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.command = CommandNone
}

func (b *Bridge) OpenURI(uri string) (InputStream, error) {
	return b.opener.Open(uri)
}

func (b *Bridge) Read(is InputStream, dest []byte) (int, error) {
	select {
	case <-b.stopCh:
		return 0, errors.Newf("decoder interrupted").
			Category(errors.CategoryInterrupted).
			Build()
	default:
	}
	return is.Read(dest)
}
