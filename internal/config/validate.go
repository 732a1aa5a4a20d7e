package config

import "fmt"

// ValidationError collects every validation failure found in a Settings
// tree so callers see the whole picture instead of stopping at the first
// bad field.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct against the
// invariants the core requires before it starts any thread.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateAudioSettings(&settings.Audio); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateReplayGainSettings(&settings.ReplayGain); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateOutputs(settings.Outputs); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateDecoders(settings.Decoders); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAudioSettings(a *AudioSettings) error {
	var errs []string
	if a.BufferSizeKiB <= 0 {
		errs = append(errs, "audio_buffer_size must be positive")
	}
	if a.MaxOutputBufferKiB <= 0 {
		errs = append(errs, "max_output_buffer_size must be positive")
	}
	if a.MaxCommandListKiB <= 0 {
		errs = append(errs, "max_command_list_size must be positive")
	}
	if a.BufferedBeforePlay < 0 || a.BufferedBeforePlay > 100 {
		errs = append(errs, "buffered_before_play must be a percentage between 0 and 100")
	}
	if a.ConnectionTimeout < 0 {
		errs = append(errs, "connection_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("audio settings: %v", errs)
	}
	return nil
}

func validateReplayGainSettings(r *ReplayGainSettings) error {
	switch r.Mode {
	case ReplayGainOff, ReplayGainTrack, ReplayGainAlbum, ReplayGainAuto:
	default:
		return fmt.Errorf("replaygain: unknown mode %q", r.Mode)
	}
	if r.Preamp < -15 || r.Preamp > 15 {
		return fmt.Errorf("replaygain: replaygain_preamp out of range [-15,15]: %g", r.Preamp)
	}
	if r.MissingPreamp < -15 || r.MissingPreamp > 15 {
		return fmt.Errorf("replaygain: replaygain_missing_preamp out of range [-15,15]: %g", r.MissingPreamp)
	}
	return nil
}

func validateOutputs(outputs []AudioOutputConfig) error {
	seen := make(map[string]bool, len(outputs))
	var errs []string
	for _, o := range outputs {
		if o.Name == "" {
			errs = append(errs, "audio_output entry missing name")
			continue
		}
		if seen[o.Name] {
			errs = append(errs, fmt.Sprintf("duplicate audio_output name %q", o.Name))
		}
		seen[o.Name] = true
		if o.Type == "" {
			errs = append(errs, fmt.Sprintf("audio_output %q missing type", o.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audio_output: %v", errs)
	}
	return nil
}

func validateDecoders(decoders []DecoderConfig) error {
	var errs []string
	for _, d := range decoders {
		if d.Plugin == "" {
			errs = append(errs, "decoder entry missing plugin name")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("decoder: %v", errs)
	}
	return nil
}
