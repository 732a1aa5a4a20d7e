package filter

import (
	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/config"
)

// BuildResult holds the assembled chain plus the filters the player and
// control surface need direct handles to (volume, ReplayGain per song).
type BuildResult struct {
	Chain               *Chain
	Volume              *VolumeFilter
	PrimaryReplayGain   *ReplayGainFilter
	CrossfadeReplayGain *ReplayGainFilter // non-nil only when crossfade is true
}

// BuildOutputChain assembles the per-output filter chain in the order spec
// §4.4 requires: ReplayGain(primary) -> Convert -> AutoConvert ->
// ChannelRemap -> Volume -> ReplayGain(crossfade-other)?, configuring each
// filter's input/output formats coherently across the pipeline. in is the
// pipe's AudioFormat; out is the plugin's negotiated AudioFormat.
func BuildOutputChain(id string, in, out audioformat.AudioFormat, rgCfg config.ReplayGainSettings, crossfade bool) (*BuildResult, error) {
	chain := NewChain()

	rgPrimary := NewReplayGainFilter(id+":rg-primary", rgCfg)
	if err := rgPrimary.Configure(in, in); err != nil {
		return nil, err
	}
	chain.Append(rgPrimary)

	// After Convert, sample format moves to the output's, but rate and
	// channels are still the pipe's.
	postConvert := audioformat.AudioFormat{SampleRate: in.SampleRate, Format: out.Format, Channels: in.Channels}
	convert := NewConvertFilter(id + ":convert")
	if err := convert.Configure(in, postConvert); err != nil {
		return nil, err
	}
	chain.Append(convert)

	// After resampling, rate moves to the output's; channels unchanged.
	postResample := audioformat.AudioFormat{SampleRate: out.SampleRate, Format: out.Format, Channels: in.Channels}
	autoConvert := NewAutoConvertFilter(id + ":autoconvert")
	if err := autoConvert.Configure(postConvert, postResample); err != nil {
		return nil, err
	}
	chain.Append(autoConvert)

	remap := NewChannelRemapFilter(id + ":remap")
	if err := remap.Configure(postResample, out); err != nil {
		return nil, err
	}
	chain.Append(remap)

	volume := NewVolumeFilter(id + ":volume")
	if err := volume.Configure(out, out); err != nil {
		return nil, err
	}
	chain.Append(volume)

	result := &BuildResult{Chain: chain, Volume: volume, PrimaryReplayGain: rgPrimary}

	if crossfade {
		rgOther := NewReplayGainFilter(id+":rg-crossfade", rgCfg)
		if err := rgOther.Configure(out, out); err != nil {
			return nil, err
		}
		chain.Append(rgOther)
		result.CrossfadeReplayGain = rgOther
	}

	return result, nil
}
