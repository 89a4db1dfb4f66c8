package registry

import (
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// DefaultExtension is the marker between a notebook's stem and its suffix.
const DefaultExtension = "sync"

// Endpoint is an opaque handle for a live session, usually its base URL.
type Endpoint string

// Entry is one registration.
type Entry struct {
	Path     string   `json:"notebook_path"`
	Endpoint Endpoint `json:"endpoint"`
}

// Registry is safe for concurrent use. All reads and writes of the table
// happen under one mutex; concurrent registrations of the same path resolve
// last-write-wins.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Endpoint

	editSuffix string
	liveSuffix string
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithExtension sets the marker used to map name.<ext>.py to name.<ext>.ipynb.
func WithExtension(ext string) Option {
	return func(r *Registry) {
		r.editSuffix = "." + ext + ".py"
		r.liveSuffix = "." + ext + ".ipynb"
	}
}

// WithLogger sets the logger for registration events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{entries: make(map[string]Endpoint), logger: slog.Default()}
	WithExtension(DefaultExtension)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the endpoint for p.
func (r *Registry) Register(p string, endpoint Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.entries[p]
	r.entries[p] = endpoint
	if existed && prev != endpoint {
		r.logger.Info("notebook re-registered", "path", p, "endpoint", endpoint, "previous", prev)
		return
	}
	r.logger.Info("notebook registered", "path", p, "endpoint", endpoint)
}

// Unregister removes p and reports whether it was present.
func (r *Registry) Unregister(p string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[p]; !ok {
		return false
	}
	delete(r.entries, p)
	r.logger.Info("notebook unregistered", "path", p)
	return true
}

// Reset clears the table.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Endpoint)
}

// Entries returns a copy of the table sorted by path.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.entries))
	for p, ep := range r.entries {
		out = append(out, Entry{Path: p, Endpoint: ep})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Lookup resolves a requested path to the endpoint of the unique best match.
func (r *Registry) Lookup(requested string) (Endpoint, error) {
	e, err := r.Resolve(requested)
	return e.Endpoint, err
}

// Resolve is Lookup returning the matched registration as well.
func (r *Registry) Resolve(requested string) (Entry, error) {
	want := r.components(requested)

	r.mu.Lock()
	defer r.mu.Unlock()

	best := 0
	var winners []string
	for p := range r.entries {
		score := tailScore(want, r.components(p))
		switch {
		case score == 0 || score < best:
		case score > best:
			best = score
			winners = append(winners[:0], p)
		default:
			winners = append(winners, p)
		}
	}

	switch len(winners) {
	case 0:
		r.logger.Warn("no live session for notebook", "path", requested, "registered", len(r.entries))
		return Entry{}, &NotFoundError{Code: ErrCodeNotFound, Path: requested}
	case 1:
		ep := r.entries[winners[0]]
		r.logger.Debug("resolved notebook", "path", requested, "match", winners[0], "score", best, "endpoint", ep)
		return Entry{Path: winners[0], Endpoint: ep}, nil
	default:
		sort.Strings(winners)
		return Entry{}, &AmbiguousTargetError{Code: ErrCodeAmbiguous, Path: requested, Score: best, Candidates: winners}
	}
}

// Normalize rewrites the editable extension to the live one, unifies
// separators, cleans the path and composes Unicode to NFC.
func (r *Registry) Normalize(p string) string {
	p = norm.NFC.String(p)
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasSuffix(p, r.editSuffix) {
		p = strings.TrimSuffix(p, r.editSuffix) + r.liveSuffix
	}
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

func (r *Registry) components(p string) []string {
	p = r.Normalize(p)
	if p == "" || p == "." {
		return nil
	}
	var parts []string
	if strings.HasPrefix(p, "/") {
		parts = append(parts, "/")
		p = strings.TrimLeft(p, "/")
	}
	if p == "" {
		return parts
	}
	return append(parts, strings.Split(p, "/")...)
}

// tailScore counts equal components from the end of both slices.
func tailScore(a, b []string) int {
	n := 0
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if a[i] != b[j] {
			break
		}
		n++
	}
	return n
}
