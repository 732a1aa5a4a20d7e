package decoder_test

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/chunk"
	"github.com/tunewave/tunewaved/internal/decoder"
	"github.com/tunewave/tunewaved/internal/decoder/plugins/null"
	"github.com/tunewave/tunewaved/internal/pipe"
	"github.com/tunewave/tunewaved/internal/songref"
)

type memStream struct {
	*bytes.Reader
}

func (memStream) Close() error { return nil }

type literalOpener struct {
	size int64
}

func (o literalOpener) Open(uri string) (decoder.InputStream, error) {
	return decoder.NewFileInputStream(memStream{bytes.NewReader(make([]byte, o.size))}, o.size), nil
}

func newHarness(t *testing.T, seconds float64) (*decoder.Bridge, *pipe.MusicPipe, *chunk.MusicBuffer) {
	t.Helper()
	registry := decoder.NewRegistry()
	registry.Register(null.New())

	buf := chunk.NewMusicBuffer(0)
	p := pipe.NewMusicPipe()
	bridge := decoder.NewBridge(registry, buf, literalOpener{size: int64(seconds * 1000)})
	return bridge, p, buf
}

func TestBridgeDecodesNullPluginIntoPipe(t *testing.T) {
	bridge, p, buf := newHarness(t, 0.3)
	song := &songref.SongRef{URI: "silence.null"}

	bridge.Start(song, p)

	select {
	case <-bridge.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("decode did not finish in time")
	}

	require.NoError(t, bridge.LastError())
	assert.Greater(t, p.GetSize(), 0)

	format, ok := bridge.Format()
	require.True(t, ok)
	assert.Equal(t, uint32(44100), format.SampleRate)

	p.Clear(buf)
}

func TestBridgeStopInterruptsDecode(t *testing.T) {
	bridge, p, buf := newHarness(t, 60) // long enough that Stop must race it
	song := &songref.SongRef{URI: "silence.null"}

	bridge.Start(song, p)
	time.Sleep(20 * time.Millisecond)
	bridge.Stop()

	select {
	case <-bridge.Done():
	default:
		t.Fatal("expected decode goroutine to have exited after Stop")
	}
	p.Clear(buf)
}

func TestBridgeSelectionBySuffixSkipsNonMatching(t *testing.T) {
	registry := decoder.NewRegistry()
	registry.Register(null.New())

	buf := chunk.NewMusicBuffer(0)
	p := pipe.NewMusicPipe()
	bridge := decoder.NewBridge(registry, buf, literalOpener{size: 100})

	song := &songref.SongRef{URI: "track.unknownext"}
	bridge.Start(song, p)

	select {
	case <-bridge.Done():
	case <-time.After(time.Second):
		t.Fatal("decode did not finish")
	}
	assert.Error(t, bridge.LastError())
}

type pipeStream struct{ *io.PipeReader }

func (pipeStream) Seek(offset int64, whence int) (int64, error) { return 0, io.ErrClosedPipe }

func TestFileInputStreamInterruptUnblocksRead(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	stream := decoder.NewFileInputStream(pipeStream{r}, -1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]byte, 10)
		_, err := stream.Read(buf)
		assert.Error(t, err)
	}()

	time.Sleep(10 * time.Millisecond)
	stream.Interrupt()
	wg.Wait()
}
