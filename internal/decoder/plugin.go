package decoder

import (
	"github.com/tunewave/tunewaved/internal/errors"
)

// SubSong is one virtual track inside a multi-song container file, as
// produced by ContainerScan (spec §6.3).
type SubSong struct {
	Index     int
	StartTime float64
	EndTime   float64 // 0 means "to end of file"
}

// TagHandler receives metadata discovered by ScanStream/ScanFile; it is
// supplied by the database/queue collaborator, out of this core's scope
// beyond the call signature (spec §4.1).
type TagHandler interface {
	HandleTag(key, value string)
	HandleDuration(seconds float64)
}

// ErrUnsupported is returned by a Plugin method the plugin does not
// implement, per spec §6.3's "zero or more of" vtable contract.
var ErrUnsupported = errors.Newf("operation not supported by this decoder plugin").
	Category(errors.CategoryPluginUnavailable).
	Build()

// Plugin is the decoder vtable (spec §6.3). Concrete plugins embed
// BasePlugin and override only the entry points they support.
type Plugin interface {
	Name() string
	Init(config map[string]any) error
	Finish()

	StreamDecode(client Client, is InputStream) error
	FileDecode(client Client, path string) error
	URIDecode(client Client, uri string) error

	ScanStream(is InputStream, handler TagHandler) (bool, error)
	ScanFile(path string, handler TagHandler) (bool, error)
	ContainerScan(path string) ([]SubSong, error)

	Suffixes() []string
	MimeTypes() []string
}

// BasePlugin implements every Plugin method except Name with a default: the
// decode entry points return ErrUnsupported, Init/Finish and the scan
// methods do nothing, and the suffix/MIME lists are empty. A concrete plugin
// supplies Name and overrides the handful of methods it actually supports.
type BasePlugin struct{}

func (BasePlugin) Init(config map[string]any) error { return nil }
func (BasePlugin) Finish()                          {}

func (BasePlugin) StreamDecode(client Client, is InputStream) error { return ErrUnsupported }
func (BasePlugin) FileDecode(client Client, path string) error      { return ErrUnsupported }
func (BasePlugin) URIDecode(client Client, uri string) error        { return ErrUnsupported }

func (BasePlugin) ScanStream(is InputStream, handler TagHandler) (bool, error) { return false, nil }
func (BasePlugin) ScanFile(path string, handler TagHandler) (bool, error)      { return false, nil }
func (BasePlugin) ContainerScan(path string) ([]SubSong, error)                { return nil, nil }

func (BasePlugin) Suffixes() []string  { return nil }
func (BasePlugin) MimeTypes() []string { return nil }
