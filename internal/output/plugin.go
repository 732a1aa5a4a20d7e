package output

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/songref"
)

// Plugin creates one AudioOutput per configured sink (spec §6.4's
// OutputPlugin). Registered at startup by name; no reflection-based
// discovery (spec §9's redesign note on macro-generated vtables).
type Plugin interface {
	Name() string

	// TestDefaultDevice reports whether this plugin's default device is
	// reachable, used at boot to decide whether to disable an output
	// permanently rather than retry forever.
	TestDefaultDevice() bool

	// Create builds one AudioOutput bound to the given plugin-specific
	// config block (config.AudioOutputConfig.Extra).
	Create(config map[string]any) (AudioOutput, error)
}

// AudioOutput is one instance of a plugin bound to one device (spec
// §6.4). All methods run on the owning OutputControl's goroutine except
// Interrupt, which is called asynchronously to unblock Play/Drain/Pause.
type AudioOutput interface {
	Enable() error
	Disable() error

	// Open negotiates the driver's actual format; the plugin may clamp
	// sample rate, sample format, or channel count, and the returned
	// format is what the filter chain must produce.
	Open(format audioformat.AudioFormat) (audioformat.AudioFormat, error)
	Close() error

	// Delay reports how long to sleep before the next Play, the
	// hard-gate back-pressure mechanism spec §4.4 chooses for plugins
	// that cannot block inside Play itself.
	Delay() time.Duration

	// SendTag delivers a tag update inline with playback, for plugins
	// that support in-band metadata (e.g. icecast/shoutcast relays).
	// Plugins that don't support it leave this a no-op.
	SendTag(tag *songref.Tag) error

	// Play writes frame-aligned bytes, returning how many were
	// accepted (>=1 guaranteed unless Interrupt fires, <=len(data)).
	Play(data []byte) (int, error)

	Drain() error
	Cancel()

	// Pause maintains device activity (typically by writing silence)
	// until Interrupt or a timeout; returns false on failure.
	Pause() bool

	// Interrupt asynchronously unblocks a goroutine parked in Play,
	// Drain, or Pause.
	Interrupt()
}
