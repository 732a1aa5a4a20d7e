package config

import "testing"

func TestValidateAudioSettings(t *testing.T) {
	tests := []struct {
		name    string
		audio   AudioSettings
		wantErr bool
	}{
		{
			name: "valid defaults",
			audio: AudioSettings{
				BufferSizeKiB:       4096,
				MaxOutputBufferKiB:  8192,
				MaxCommandListKiB:   2048,
				BufferedBeforePlay:  0,
			},
			wantErr: false,
		},
		{
			name:    "zero buffer size",
			audio:   AudioSettings{MaxOutputBufferKiB: 8192, MaxCommandListKiB: 2048},
			wantErr: true,
		},
		{
			name: "percent out of range",
			audio: AudioSettings{
				BufferSizeKiB:      4096,
				MaxOutputBufferKiB: 8192,
				MaxCommandListKiB:  2048,
				BufferedBeforePlay: 101,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAudioSettings(&tt.audio)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateAudioSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReplayGainSettings(t *testing.T) {
	tests := []struct {
		name    string
		rg      ReplayGainSettings
		wantErr bool
	}{
		{name: "off valid", rg: ReplayGainSettings{Mode: ReplayGainOff}, wantErr: false},
		{name: "auto valid", rg: ReplayGainSettings{Mode: ReplayGainAuto, Preamp: 5, MissingPreamp: -5}, wantErr: false},
		{name: "unknown mode", rg: ReplayGainSettings{Mode: "bogus"}, wantErr: true},
		{name: "preamp out of range", rg: ReplayGainSettings{Mode: ReplayGainTrack, Preamp: 20}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReplayGainSettings(&tt.rg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateReplayGainSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputsRejectsDuplicateNames(t *testing.T) {
	outputs := []AudioOutputConfig{
		{Type: "null", Name: "default"},
		{Type: "alsa", Name: "default"},
	}
	if err := validateOutputs(outputs); err == nil {
		t.Fatal("expected error for duplicate output names")
	}
}

func TestValidateDecodersRejectsMissingPlugin(t *testing.T) {
	if err := validateDecoders([]DecoderConfig{{Enabled: true}}); err == nil {
		t.Fatal("expected error for decoder entry missing plugin name")
	}
}
