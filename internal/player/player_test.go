package player_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/chunk"
	"github.com/tunewave/tunewaved/internal/config"
	"github.com/tunewave/tunewaved/internal/decoder"
	decodernull "github.com/tunewave/tunewaved/internal/decoder/plugins/null"
	"github.com/tunewave/tunewaved/internal/errors"
	"github.com/tunewave/tunewaved/internal/output"
	outputnull "github.com/tunewave/tunewaved/internal/output/plugins/null"
	"github.com/tunewave/tunewaved/internal/player"
	"github.com/tunewave/tunewaved/internal/songref"
)

type memStream struct{ *bytes.Reader }

func (memStream) Close() error { return nil }

// sizedOpener maps a URI to a byte-length stream; the null decoder plugin
// reads that length as milliseconds of silence to produce (the same
// convention internal/decoder's own tests rely on).
type sizedOpener struct {
	mu    sync.Mutex
	sizes map[string]int64
}

func newSizedOpener() *sizedOpener { return &sizedOpener{sizes: make(map[string]int64)} }

func (o *sizedOpener) set(uri string, ms int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sizes[uri] = ms
}

func (o *sizedOpener) Open(uri string) (decoder.InputStream, error) {
	o.mu.Lock()
	size := o.sizes[uri]
	o.mu.Unlock()
	return decoder.NewFileInputStream(memStream{bytes.NewReader(make([]byte, size))}, size), nil
}

// recordingNotifier collects every event fired, for assertions without a
// race on ordering.
type recordingNotifier struct {
	mu      sync.Mutex
	idle    []string
	changed []*songref.SongRef
	failed  []string
}

func (n *recordingNotifier) Idle(source string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.idle = append(n.idle, source)
}

func (n *recordingNotifier) SongChanged(song *songref.SongRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, song)
}

func (n *recordingNotifier) OutputFailed(name string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, name)
}

func (n *recordingNotifier) idleEvents() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.idle...)
}

func (n *recordingNotifier) songChanges() []*songref.SongRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*songref.SongRef(nil), n.changed...)
}

func (n *recordingNotifier) outputFailures() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.failed...)
}

// harness bundles one player wired to the null decoder/output plugins, so
// tests exercise the real principal loop without any audio hardware or
// file I/O.
type harness struct {
	player   *player.Player
	opener   *sizedOpener
	notifier *recordingNotifier
	outCtrl  *output.Control
}

func newHarness(t *testing.T, crossfade time.Duration) *harness {
	t.Helper()

	registry := decoder.NewRegistry()
	registry.Register(decodernull.New())

	opener := newSizedOpener()
	buf := chunk.NewMusicBuffer(0)
	outCtrl := output.New("null", outputnull.New(), config.ReplayGainSettings{})
	notifier := &recordingNotifier{}

	p := player.New(registry, opener, buf, []*output.Control{outCtrl}, crossfade, notifier, nil)
	p.Start()
	t.Cleanup(p.Exit)

	return &harness{player: p, opener: opener, notifier: notifier, outCtrl: outCtrl}
}

// song builds a SongRef whose null-decoded duration is durationMS
// milliseconds, per the sizedOpener/null-plugin convention.
func (h *harness) song(uri string, durationMS int64) *songref.SongRef {
	h.opener.set(uri, durationMS)
	return &songref.SongRef{URI: uri + ".null"}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestPlayReachesPlayState(t *testing.T) {
	h := newHarness(t, 0)
	song := h.song("one", 200)

	require.NoError(t, h.player.Play(song))

	waitFor(t, time.Second, func() bool {
		return h.player.GetStatus().State == player.StatePlay
	})

	status := h.player.GetStatus()
	require.NotNil(t, status.Song)
	assert.Equal(t, song.URI, status.Song.URI)
	assert.Equal(t, uint32(44100), status.AudioFormat.SampleRate)
}

func TestGaplessTwoSongTransition(t *testing.T) {
	h := newHarness(t, 0)
	first := h.song("first", 150)
	second := h.song("second", 150)

	require.NoError(t, h.player.Play(first))
	waitFor(t, time.Second, func() bool { return h.player.GetStatus().State == player.StatePlay })

	require.NoError(t, h.player.EnqueueSong(second))

	waitFor(t, 2*time.Second, func() bool {
		st := h.player.GetStatus()
		return st.Song != nil && st.Song.URI == second.URI
	})

	changes := h.notifier.songChanges()
	require.Len(t, changes, 2)
	assert.Equal(t, first.URI, changes[0].URI)
	assert.Equal(t, second.URI, changes[1].URI)

	// playback must never have dropped back to STOP/idle between songs
	assert.Empty(t, h.notifier.idleEvents())
}

func TestCrossfadeEngagesBetweenMatchingFormats(t *testing.T) {
	crossfade := 100 * time.Millisecond
	h := newHarness(t, crossfade)
	first := h.song("first", 300)
	second := h.song("second", 300)

	require.NoError(t, h.player.Play(first))
	waitFor(t, time.Second, func() bool { return h.player.GetStatus().State == player.StatePlay })
	require.NoError(t, h.player.EnqueueSong(second))

	waitFor(t, 3*time.Second, func() bool {
		st := h.player.GetStatus()
		return st.Song != nil && st.Song.URI == second.URI
	})

	assert.GreaterOrEqual(t, h.outCtrl.ConsumedChunks(), int64(1))
}

func TestSeekWithinSong(t *testing.T) {
	h := newHarness(t, 0)
	song := h.song("one", 2000)

	require.NoError(t, h.player.Play(song))
	waitFor(t, time.Second, func() bool { return h.player.GetStatus().State == player.StatePlay })

	require.NoError(t, h.player.Seek(song, 1500*time.Millisecond))

	status := h.player.GetStatus()
	assert.Equal(t, 1500*time.Millisecond, status.Elapsed)
	assert.Equal(t, song.URI, status.Song.URI)
}

func TestPauseResumeTogglesState(t *testing.T) {
	h := newHarness(t, 0)
	song := h.song("one", 500)

	require.NoError(t, h.player.Play(song))
	waitFor(t, time.Second, func() bool { return h.player.GetStatus().State == player.StatePlay })

	require.NoError(t, h.player.Pause())
	assert.Equal(t, player.StatePause, h.player.GetStatus().State)

	require.NoError(t, h.player.Pause())
	assert.Equal(t, player.StatePlay, h.player.GetStatus().State)
}

func TestQueueExhaustedStopsAndFiresIdle(t *testing.T) {
	h := newHarness(t, 0)
	song := h.song("one", 100)

	require.NoError(t, h.player.Play(song))
	waitFor(t, time.Second, func() bool { return h.player.GetStatus().State == player.StatePlay })

	waitFor(t, 2*time.Second, func() bool {
		return h.player.GetStatus().State == player.StateStop
	})

	idle := h.notifier.idleEvents()
	require.NotEmpty(t, idle)
	assert.Equal(t, "queue-exhausted", idle[len(idle)-1])
}

func TestOutputOpenFailureIsNotFatal(t *testing.T) {
	registry := decoder.NewRegistry()
	registry.Register(decodernull.New())
	opener := newSizedOpener()
	buf := chunk.NewMusicBuffer(0)

	good := output.New("good", outputnull.New(), config.ReplayGainSettings{})
	bad := output.New("bad", &alwaysFailOutput{}, config.ReplayGainSettings{})
	notifier := &recordingNotifier{}

	p := player.New(registry, opener, buf, []*output.Control{good, bad}, 0, notifier, nil)
	p.Start()
	t.Cleanup(p.Exit)

	opener.set("one", 200)
	song := &songref.SongRef{URI: "one.null"}

	require.NoError(t, p.Play(song))
	waitFor(t, time.Second, func() bool { return p.GetStatus().State == player.StatePlay })

	status := p.GetStatus()
	require.Contains(t, status.OutputErrors, "bad")
	assert.NotContains(t, status.OutputErrors, "good")
	assert.Contains(t, notifier.outputFailures(), "bad")
}

// alwaysFailOutput implements output.AudioOutput, failing every Open so
// the per-output failure path can be exercised without real hardware.
type alwaysFailOutput struct{}

func (alwaysFailOutput) Enable() error  { return nil }
func (alwaysFailOutput) Disable() error { return nil }

func (alwaysFailOutput) Open(format audioformat.AudioFormat) (audioformat.AudioFormat, error) {
	return audioformat.AudioFormat{}, errors.Newf("device unavailable").
		Component("test").Category(errors.CategoryOutput).Build()
}

func (alwaysFailOutput) Close() error                  { return nil }
func (alwaysFailOutput) Delay() time.Duration          { return 0 }
func (alwaysFailOutput) SendTag(*songref.Tag) error    { return nil }
func (alwaysFailOutput) Play(data []byte) (int, error) { return len(data), nil }
func (alwaysFailOutput) Drain() error                  { return nil }
func (alwaysFailOutput) Cancel()                       {}
func (alwaysFailOutput) Pause() bool                   { return true }
func (alwaysFailOutput) Interrupt()                    {}
