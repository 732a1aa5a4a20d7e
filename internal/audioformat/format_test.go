package audioformat

import "testing"

func TestAudioFormatValid(t *testing.T) {
	tests := []struct {
		name string
		f    AudioFormat
		want bool
	}{
		{"cd quality", AudioFormat{SampleRate: 44100, Format: S16, Channels: 2}, true},
		{"mono low rate", AudioFormat{SampleRate: MinSampleRate, Format: S8, Channels: 1}, true},
		{"rate too low", AudioFormat{SampleRate: MinSampleRate - 1, Format: S16, Channels: 2}, false},
		{"rate too high", AudioFormat{SampleRate: MaxSampleRate + 1, Format: S16, Channels: 2}, false},
		{"zero channels", AudioFormat{SampleRate: 44100, Format: S16, Channels: 0}, false},
		{"too many channels", AudioFormat{SampleRate: 44100, Format: S16, Channels: MaxChannels + 1}, false},
		{"undefined format", AudioFormat{SampleRate: 44100, Channels: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrameSize(t *testing.T) {
	f := AudioFormat{SampleRate: 44100, Format: S16, Channels: 2}
	if got := f.FrameSize(); got != 4 {
		t.Errorf("FrameSize() = %d, want 4", got)
	}

	f24 := AudioFormat{SampleRate: 96000, Format: S24P32, Channels: 6}
	if got := f24.FrameSize(); got != 24 {
		t.Errorf("FrameSize() = %d, want 24", got)
	}
}

func TestAudioFormatEqual(t *testing.T) {
	a := AudioFormat{SampleRate: 44100, Format: S16, Channels: 2}
	b := AudioFormat{SampleRate: 44100, Format: S16, Channels: 2}
	c := AudioFormat{SampleRate: 48000, Format: S16, Channels: 2}

	if !a.Equal(b) {
		t.Error("expected a.Equal(b) to be true")
	}
	if a.Equal(c) {
		t.Error("expected a.Equal(c) to be false")
	}
}
