package errors_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunewave/tunewaved/internal/errors"
)

func TestBuilderComposesComponentCategoryAndContext(t *testing.T) {
	err := errors.Newf("decode failed for %s", "song.flac").
		Component("decoder").
		Category(errors.CategoryDecoder).
		Context("uri", "song.flac").
		Build()

	require.Error(t, err)
	assert.Equal(t, "decoder", err.GetComponent())
	assert.Equal(t, string(errors.CategoryDecoder), err.GetCategory())
	assert.Equal(t, "song.flac", err.GetContext()["uri"])
	assert.Contains(t, err.Error(), "decode failed for song.flac")
}

func TestBuilderDefaultsCategoryWhenUnset(t *testing.T) {
	err := errors.Newf("output device unavailable").Component("output").Build()

	require.Error(t, err)
	assert.NotEmpty(t, err.GetCategory())
}

func TestNewWrapsAnExistingError(t *testing.T) {
	inner := errors.NewStd("stream closed")
	err := errors.New(inner).Component("decoder").Category(errors.CategoryAudio).Build()

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "stream closed")
}

func TestFileContextAndNetworkContextPopulateContext(t *testing.T) {
	err := errors.Newf("open failed").
		Component("decoder").
		FileContext("/music/song.flac", 4096).
		Build()
	assert.Equal(t, "absolute-path", err.GetContext()["file_type"])
	assert.Equal(t, "flac", err.GetContext()["file_extension"])
	assert.Equal(t, "small", err.GetContext()["file_size_category"])

	netErr := errors.Newf("dial failed").
		Component("decoder").
		NetworkContext("http://example.com/stream", 5*time.Second).
		Build()
	assert.Equal(t, "http-endpoint", netErr.GetContext()["url_category"])
	assert.Equal(t, 5.0, netErr.GetContext()["timeout_seconds"])
}

func TestIsCategoryMatchesBuiltError(t *testing.T) {
	err := errors.Newf("buffer full").
		Component("output").
		Category(errors.CategoryBufferFull).
		Build()

	assert.True(t, errors.IsCategory(err, errors.CategoryBufferFull))
	assert.False(t, errors.IsCategory(err, errors.CategoryDecoder))
}

func TestJoinCombinesMultipleErrors(t *testing.T) {
	a := errors.NewStd("first")
	b := errors.NewStd("second")

	joined := errors.Join(a, b)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
}
