package decoder

import (
	"path"
	"strings"
	"sync"
)

// Registry holds the set of decoder plugins available at startup,
// registered once and treated as immutable thereafter (spec §9's redesign
// note: "an interface declared once; each plugin is a concrete
// implementation registered at startup by a central table").
type Registry struct {
	mu      sync.RWMutex
	order   []string
	plugins map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds a plugin, preserving registration order for the
// suffix-match fallback (spec §4.1 step 2: "try plugins in registration
// order").
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.plugins[name]; !exists {
		r.order = append(r.order, name)
	}
	r.plugins[name] = p
}

// Get returns the named plugin.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// ByMIME returns plugins advertising the given MIME type, in registration
// order.
func (r *Registry) ByMIME(mime string) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []Plugin
	for _, name := range r.order {
		p := r.plugins[name]
		for _, m := range p.MimeTypes() {
			if strings.EqualFold(m, mime) {
				matches = append(matches, p)
				break
			}
		}
	}
	return matches
}

// BySuffix returns plugins whose suffix list contains uri's extension
// (case-insensitive), in registration order.
func (r *Registry) BySuffix(uri string) []Plugin {
	suffix := strings.TrimPrefix(strings.ToLower(path.Ext(uri)), ".")
	if suffix == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []Plugin
	for _, name := range r.order {
		p := r.plugins[name]
		for _, s := range p.Suffixes() {
			if strings.EqualFold(s, suffix) {
				matches = append(matches, p)
				break
			}
		}
	}
	return matches
}

// isRemoteURI reports whether uri names a non-file scheme (http(s), etc.),
// per spec §4.1 step 1's "remote (non-file) scheme" test.
func isRemoteURI(uri string) bool {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return false
	}
	scheme := strings.ToLower(uri[:idx])
	return scheme != "file" && scheme != ""
}

// isArchiveURI reports whether uri names an archive-scheme wrapper
// (e.g. "archive+zip:///path/to.zip!inner/song.flac").
func isArchiveURI(uri string) bool {
	return strings.HasPrefix(strings.ToLower(uri), "archive+")
}

// splitArchiveURI splits an archive URI into the outer archive path and
// the inner member path, separated by "!".
func splitArchiveURI(uri string) (outer, inner string, ok bool) {
	rest := strings.TrimPrefix(uri, uri[:strings.Index(uri, "+")+1])
	parts := strings.SplitN(rest, "!", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
