// Package bus is the process-wide publish/subscribe channel between the
// command overlay and the mounted pages.
//
// Delivery is synchronous and best-effort: an event published while no page
// of its kind is subscribed is dropped, not queued.
package bus

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/papertrail/internal/model"
)

// EntitySelected carries the full entity so the receiving page can adopt
// it without a network round trip. Exactly one payload is set, matching
// Kind.
type EntitySelected struct {
	Kind       model.Kind
	Politician *model.Politician
	Donor      *model.Donor
}

// PoliticianSelected builds the politician event.
func PoliticianSelected(p model.Politician) EntitySelected {
	return EntitySelected{Kind: model.KindPolitician, Politician: &p}
}

// DonorSelected builds the donor event.
func DonorSelected(d model.Donor) EntitySelected {
	return EntitySelected{Kind: model.KindDonor, Donor: &d}
}

// Ref returns the reference of the carried entity.
func (e EntitySelected) Ref() model.EntityRef {
	switch {
	case e.Politician != nil:
		return model.RefOf(*e.Politician)
	case e.Donor != nil:
		return model.RefOf(*e.Donor)
	default:
		return model.EntityRef{Kind: e.Kind}
	}
}

// Handler receives events of one kind.
type Handler func(EntitySelected)

// Bus routes EntitySelected events to subscribers by kind.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// Handlers run on the publishing goroutine.
type Bus struct {
	mu     sync.Mutex
	subs   map[model.Kind]map[int]Handler
	nextID int
	logger *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[model.Kind]map[int]Handler),
		logger: logger,
	}
}

// Subscribe registers h for events of kind and returns the func that
// removes it.
func (b *Bus) Subscribe(kind model.Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[kind], id)
		})
	}
}

// Publish delivers e to every current subscriber of its kind, in
// subscription order, and returns how many received it.
//
// A panicking handler is logged and skipped.
func (b *Bus) Publish(e EntitySelected) int {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs[e.Kind]))
	for id := range b.subs[e.Kind] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.subs[e.Kind][id])
	}
	b.mu.Unlock()

	if len(handlers) == 0 {
		b.logger.Debug("event dropped: no subscriber", "kind", e.Kind, "id", e.Ref().ID)
		return 0
	}

	delivered := 0
	for _, h := range handlers {
		if b.deliver(h, e) {
			delivered++
		}
	}
	return delivered
}

func (b *Bus) deliver(h Handler, e EntitySelected) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "kind", e.Kind, "panic", r)
			ok = false
		}
	}()
	h(e)
	return true
}

// Subscribers returns the number of handlers for kind.
func (b *Bus) Subscribers(kind model.Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[kind])
}
