package route

import (
	"fmt"
	"net/url"
	"slices"
	"sync"
)

// Location is one address bar entry.
type Location struct {
	Path     string
	RawQuery string
}

// ParseLocation parses a path with an optional query string. A missing
// leading slash is added.
func ParseLocation(s string) (Location, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", s, err)
	}
	if u.Scheme != "" || u.Host != "" {
		return Location{}, fmt.Errorf("parse location %q: must be a path", s)
	}
	path := u.Path
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return Location{Path: path, RawQuery: u.RawQuery}, nil
}

// MustLocation is ParseLocation for known-good literals.
func MustLocation(s string) Location {
	loc, err := ParseLocation(s)
	if err != nil {
		panic(err)
	}
	return loc
}

func (l Location) String() string {
	if l.RawQuery == "" {
		return l.Path
	}
	return l.Path + "?" + l.RawQuery
}

// Query returns the parsed query parameters.
func (l Location) Query() url.Values {
	v, _ := url.ParseQuery(l.RawQuery)
	return v
}

// Listener observes location changes.
type Listener func(Location)

// History is an in-process browser history: a stack of entries with a
// cursor.
//
// Navigation is synchronous; Location reflects a navigation as soon as it
// returns. Listeners run after the change on the navigating goroutine,
// outside the internal lock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type History struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	listeners map[int]Listener
	nextID    int
}

// NewHistory creates a history with a single entry.
func NewHistory(initial Location) *History {
	return &History{
		entries:   []Location{initial},
		listeners: make(map[int]Listener),
	}
}

// Location returns the current entry.
func (h *History) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Push adds an entry after the current one, discarding any forward
// entries.
func (h *History) Push(loc Location) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], loc)
	h.index++
	h.mu.Unlock()
	h.notify(loc)
}

// Replace overwrites the current entry.
func (h *History) Replace(loc Location) {
	h.mu.Lock()
	h.entries[h.index] = loc
	h.mu.Unlock()
	h.notify(loc)
}

// Back moves to the previous entry. Returns false at the first entry.
func (h *History) Back() bool {
	h.mu.Lock()
	if h.index == 0 {
		h.mu.Unlock()
		return false
	}
	h.index--
	loc := h.entries[h.index]
	h.mu.Unlock()
	h.notify(loc)
	return true
}

// CanGoBack reports whether Back would move.
func (h *History) CanGoBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// Len returns the number of entries up to and including the current one.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index + 1
}

// Entries returns the entries up to and including the current one.
func (h *History) Entries() []Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Location, h.index+1)
	copy(out, h.entries[:h.index+1])
	return out
}

// Listen registers fn for location changes and returns its removal func.
func (h *History) Listen(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *History) notify(loc Location) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	// Registration order.
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, h.listeners[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(loc)
	}
}
