package route

import (
	"log/slog"
	"slices"

	"github.com/roach88/papertrail/internal/model"
)

// Snapshot is the projection of the current location used to drive
// hydration. It is recomputed on every read.
type Snapshot struct {
	Page Page
	Kind model.Kind

	// EntityID is the raw detail segment, empty when the location is not a
	// detail path.
	EntityID    string
	SearchQuery string

	// ComparisonIDs holds the parsed ids parameter; empty when absent.
	ComparisonIDs []int64
}

// SameComparison reports whether ids equals the snapshot's comparison ids,
// order included.
func (s Snapshot) SameComparison(ids []int64) bool {
	return slices.Equal(s.ComparisonIDs, ids)
}

// Adapter reads route snapshots from a History and writes navigation back
// to it.
type Adapter struct {
	history *History
	matcher *Matcher
	logger  *slog.Logger
}

// NewAdapter creates an adapter over h.
func NewAdapter(h *History, m *Matcher, logger *slog.Logger) *Adapter {
	if m == nil {
		m = NewMatcher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{history: h, matcher: m, logger: logger}
}

// History returns the underlying history.
func (a *Adapter) History() *History {
	return a.history
}

// Snapshot projects the current location.
func (a *Adapter) Snapshot() Snapshot {
	return a.SnapshotOf(a.history.Location())
}

// SnapshotOf projects loc.
func (a *Adapter) SnapshotOf(loc Location) Snapshot {
	m := a.matcher.Match(loc.Path)
	q := loc.Query()
	return Snapshot{
		Page:          m.Page,
		Kind:          m.Kind,
		EntityID:      m.ID,
		SearchQuery:   q.Get(ParamSearch),
		ComparisonIDs: ParseComparisonIDs(q.Get(ParamIDs)),
	}
}

// NavigateToEntity replaces the location with the entity's detail path.
func (a *Adapter) NavigateToEntity(id int64, kind model.Kind) {
	a.replace(EntityURL(kind, id))
}

// NavigateToComparison replaces the location with the comparison path.
func (a *Adapter) NavigateToComparison(ids []int64) {
	a.replace(BuildComparisonURL(ids))
}

// NavigateToSearch pushes the search path of kind.
func (a *Adapter) NavigateToSearch(kind model.Kind, query string) {
	a.push(BuildSearchURL(kind, query))
}

// NavigateBack pops one history entry. With nothing to go back to, the
// location is replaced by the current kind's search path.
func (a *Adapter) NavigateBack() {
	if a.history.Back() {
		return
	}
	kind := a.Snapshot().Kind
	if kind == "" {
		kind = model.KindPolitician
	}
	a.logger.Debug("navigate back at first entry", "fallback", SearchPath(kind))
	a.replace(SearchPath(kind))
}

// Push navigates to an arbitrary target, adding a history entry.
func (a *Adapter) Push(target string) error {
	loc, err := ParseLocation(target)
	if err != nil {
		return err
	}
	a.logger.Debug("navigate", "to", loc.String(), "mode", "push")
	a.history.Push(loc)
	return nil
}

// Replace navigates to an arbitrary target in place.
func (a *Adapter) Replace(target string) error {
	loc, err := ParseLocation(target)
	if err != nil {
		return err
	}
	a.logger.Debug("navigate", "to", loc.String(), "mode", "replace")
	a.history.Replace(loc)
	return nil
}

func (a *Adapter) push(target string) {
	a.logger.Debug("navigate", "to", target, "mode", "push")
	a.history.Push(MustLocation(target))
}

func (a *Adapter) replace(target string) {
	a.logger.Debug("navigate", "to", target, "mode", "replace")
	a.history.Replace(MustLocation(target))
}
