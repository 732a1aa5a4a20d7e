package filter

import (
	"context"
	"math"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/config"
	"github.com/tunewave/tunewaved/internal/songref"
)

// ReplayGainFilter applies a ReplayGain scalar derived from a song's tag and
// the configured mode (track/album/auto/off) plus preamp, with optional
// peak limiting. Two instances may appear in one chain during cross-fade —
// "primary" for the outgoing song, "other" for the incoming one — each
// tracking its own tag.
type ReplayGainFilter struct {
	mode          config.ReplayGainMode
	preamp        float64
	missingPreamp float64
	limit         bool

	format audioformat.AudioFormat
	gain   float64 // linear scalar, recomputed on SetTag
	id     string
}

// NewReplayGainFilter creates a filter from the ReplayGain policy block.
func NewReplayGainFilter(id string, cfg config.ReplayGainSettings) *ReplayGainFilter {
	return &ReplayGainFilter{
		id:            id,
		mode:          cfg.Mode,
		preamp:        cfg.Preamp,
		missingPreamp: cfg.MissingPreamp,
		limit:         cfg.Limit,
		gain:          1.0,
	}
}

func (f *ReplayGainFilter) ID() string { return f.id }

// Configure fixes the sample format this filter operates on. ReplayGain
// never changes the channel count or sample rate, so in and out must match.
func (f *ReplayGainFilter) Configure(in, out audioformat.AudioFormat) error {
	f.format = in
	return nil
}

// SetTag recomputes the gain scalar for a newly started song. Off mode
// yields exactly unity gain; a nil ReplayGain, or one without a usable
// gain for the mode, yields unity gain adjusted by missing_preamp.
func (f *ReplayGainFilter) SetTag(rg *songref.ReplayGain) {
	if f.mode == config.ReplayGainOff {
		f.gain = 1.0
		return
	}

	var db float64
	var peak float64
	switch {
	case rg == nil:
		db = f.missingPreamp
		peak = 1.0
	case f.mode == config.ReplayGainAlbum && rg.AlbumGain != 0:
		db = rg.AlbumGain + f.preamp
		peak = rg.AlbumPeak
	case rg.TrackGain != 0:
		db = rg.TrackGain + f.preamp
		peak = rg.TrackPeak
	default:
		db = f.missingPreamp
		peak = 1.0
	}

	gain := math.Pow(10, db/20)
	if f.limit && peak > 0 {
		if max := 1.0 / peak; gain > max {
			gain = max
		}
	}
	f.gain = gain
}

func (f *ReplayGainFilter) Process(ctx context.Context, data []byte) ([]byte, error) {
	if f.gain == 1.0 {
		return data, nil
	}
	size := f.format.Format.SampleSize()
	for off := 0; off+size <= len(data); off += size {
		v := decodeSample(data, off, f.format.Format)
		encodeSample(data, off, f.format.Format, v*f.gain)
	}
	return data, nil
}

func (f *ReplayGainFilter) Flush() []byte { return nil }
