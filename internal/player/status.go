package player

import (
	"time"

	"github.com/tunewave/tunewaved/internal/audioformat"
	"github.com/tunewave/tunewaved/internal/songref"
)

// Status is the snapshot PlayerControl.GetStatus returns (spec §4.3
// "Status publication", §6.1). Callers receive a copy; the player mutex
// is never held after this struct is returned.
type Status struct {
	State       State
	Song        *songref.SongRef
	Elapsed     time.Duration
	Duration    time.Duration
	BitRate     int
	AudioFormat audioformat.AudioFormat
	Error       error

	// OutputErrors carries the last error of each output currently
	// failed, keyed by output name, surfacing per-output last_error as
	// spec §4.4's "Failure / device loss" note requires.
	OutputErrors map[string]error
}
