package player

import "github.com/tunewave/tunewaved/internal/songref"

// Notifier publishes the idle/song-change events spec §4.3's failure
// semantics and §2's supplemented idle-event surface reference. A nil
// Notifier is valid; every call site checks before dispatching.
type Notifier interface {
	Idle(source string)
	SongChanged(song *songref.SongRef)
	OutputFailed(name string, err error)
}

// Recorder accepts metrics observations from the principal loop. A nil
// Recorder is valid; every call site checks before dispatching.
type Recorder interface {
	RecordDecoderFailure()
	RecordCrossfadeEngaged()
}
