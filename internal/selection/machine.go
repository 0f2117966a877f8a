// Package selection holds the per-kind search and selection state machines.
//
// All methods must be called on the event loop. Network calls run through
// engine.Sequencer, so every completion is applied on the loop and only the
// most recently started call per slot is ever applied.
package selection

import (
	"context"
	"log/slog"

	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

// SearchStatus is the search-side state.
type SearchStatus string

const (
	SearchIdle   SearchStatus = "idle"
	Searching    SearchStatus = "searching"
	ResultsShown SearchStatus = "results"
	SearchFailed SearchStatus = "search_failed"
)

// SelectStatus is the selection-side state, orthogonal to SearchStatus.
type SelectStatus string

const (
	Unselected   SelectStatus = "unselected"
	Selecting    SelectStatus = "selecting"
	Selected     SelectStatus = "selected"
	SelectFailed SelectStatus = "select_failed"
)

// Searcher runs a name search off the loop.
type Searcher[E any] func(ctx context.Context, text string) ([]E, error)

// Loader prepares the dependent-data fetch for e. It is called on the loop,
// so it may capture loop-owned parameters; the returned action runs off the
// loop.
type Loader[E, D any] func(e E) func(ctx context.Context) (D, error)

type options struct {
	logger   *slog.Logger
	onChange func()
	seqOpts  []engine.SequencerOption
}

// Option configures a state machine.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOnChange registers fn to run on the loop after every state
// transition. Transitions inside Batch are reported once.
func WithOnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

// WithSequencerOptions passes options to every sequencer the machine owns.
func WithSequencerOptions(opts ...engine.SequencerOption) Option {
	return func(o *options) { o.seqOpts = append(o.seqOpts, opts...) }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// State is a copy of a machine's observable state.
type State[E, D any] struct {
	Kind         model.Kind
	Query        string
	Results      []E
	SearchStatus SearchStatus
	SearchError  *model.Failure

	Selected       *E
	SelectStatus   SelectStatus
	Dependent      D
	DependentError *model.Failure
}

// Machine is the search session and selection slot of one entity kind.
//
// Search commits through its own sequencer, so overlapping searches apply
// in the order they were issued, never in the order they completed.
type Machine[E model.Entity, D any] struct {
	kind   model.Kind
	search Searcher[E]
	load   Loader[E, D]
	logger *slog.Logger

	searchSeq *engine.Sequencer[[]E]
	loadSeq   *engine.Sequencer[D]

	onChange func()
	depth    int
	dirty    bool

	query        string
	results      []E
	searchStatus SearchStatus
	searchErr    *model.Failure

	selected   *E
	dependent  D
	depPending bool
	depErr     *model.Failure
}

// NewMachine creates a machine posting its commits to p.
func NewMachine[E model.Entity, D any](kind model.Kind, p engine.Poster, search Searcher[E], load Loader[E, D], opts ...Option) *Machine[E, D] {
	o := buildOptions(opts)
	seqOpts := append([]engine.SequencerOption{engine.WithSequencerLogger(o.logger)}, o.seqOpts...)
	return &Machine[E, D]{
		kind:         kind,
		search:       search,
		load:         load,
		logger:       o.logger,
		searchSeq:    engine.NewSequencer[[]E](string(kind)+".search", p, seqOpts...),
		loadSeq:      engine.NewSequencer[D](string(kind)+".dependent", p, seqOpts...),
		onChange:     o.onChange,
		searchStatus: SearchIdle,
	}
}

// Kind returns the entity kind.
func (m *Machine[E, D]) Kind() model.Kind { return m.kind }

// Query returns the current query text.
func (m *Machine[E, D]) Query() string { return m.query }

// SetQuery replaces the query text without searching.
func (m *Machine[E, D]) SetQuery(text string) {
	if m.query == text {
		return
	}
	m.query = text
	m.changed()
}

// Search looks up text. Text shorter than the kind's minimum clears the
// results, abandons any search in flight and makes no call.
func (m *Machine[E, D]) Search(text string) {
	if model.QueryLength(text) < m.kind.MinQueryLength() {
		m.searchSeq.Cancel()
		m.results = nil
		m.searchErr = nil
		m.searchStatus = SearchIdle
		m.changed()
		return
	}

	m.searchStatus = Searching
	m.searchErr = nil
	m.changed()

	m.searchSeq.Run(
		func(ctx context.Context) ([]E, error) {
			return m.search(ctx, text)
		},
		func(res []E, err error) {
			if err != nil {
				if gateway.Classify(err) == model.ErrCancelled {
					return
				}
				m.logger.Warn("search failed", "kind", m.kind, "query", text, "error", err)
				m.results = nil
				m.searchErr = gateway.FailureOf(err)
				m.searchStatus = SearchFailed
			} else {
				m.results = res
				m.searchStatus = ResultsShown
			}
			m.changed()
		},
	)
}

// Results returns the current result set.
func (m *Machine[E, D]) Results() []E { return m.results }

// FindResult looks id up in the current results.
func (m *Machine[E, D]) FindResult(id int64) (E, bool) {
	for _, e := range m.results {
		if e.EntityID() == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Select makes e the selection and loads its dependent data. A load still
// in flight for an earlier selection is superseded.
func (m *Machine[E, D]) Select(e E) {
	m.selected = &e
	var zero D
	m.dependent = zero
	m.depErr = nil
	m.startLoad(e)
}

// Reload re-runs the dependent load of the current selection. No-op when
// nothing is selected.
func (m *Machine[E, D]) Reload() {
	if m.selected == nil {
		return
	}
	m.depErr = nil
	m.startLoad(*m.selected)
}

func (m *Machine[E, D]) startLoad(e E) {
	m.depPending = true
	m.changed()

	id := e.EntityID()
	m.loadSeq.Run(m.load(e), func(v D, err error) {
		m.depPending = false
		if err != nil {
			if gateway.Classify(err) == model.ErrCancelled {
				m.logger.Debug("dependent load cancelled", "kind", m.kind, "id", id)
				m.changed()
				return
			}
			m.logger.Warn("dependent load failed", "kind", m.kind, "id", id, "error", err)
			var zero D
			m.dependent = zero
			m.depErr = gateway.FailureOf(err)
		} else {
			m.dependent = v
		}
		m.changed()
	})
}

// Selected returns the selection, if any.
func (m *Machine[E, D]) Selected() (E, bool) {
	if m.selected == nil {
		var zero E
		return zero, false
	}
	return *m.selected, true
}

// Dependent returns the loaded dependent data of the selection.
func (m *Machine[E, D]) Dependent() D { return m.dependent }

// Clear drops the selection and its dependent data, and abandons any load
// in flight.
func (m *Machine[E, D]) Clear() {
	m.loadSeq.Cancel()
	wasSet := m.selected != nil || m.depPending || m.depErr != nil
	m.selected = nil
	var zero D
	m.dependent = zero
	m.depPending = false
	m.depErr = nil
	if wasSet {
		m.changed()
	}
}

// Busy reports whether any call of this machine is in flight.
func (m *Machine[E, D]) Busy() bool {
	return m.searchSeq.Pending() || m.loadSeq.Pending()
}

// Close abandons every call in flight. Later completions are dropped.
func (m *Machine[E, D]) Close() {
	m.searchSeq.Close()
	m.loadSeq.Close()
}

// Batch runs fn and reports the transitions it makes as a single change.
func (m *Machine[E, D]) Batch(fn func()) {
	m.depth++
	defer func() {
		m.depth--
		if m.depth == 0 && m.dirty {
			m.dirty = false
			m.fire()
		}
	}()
	fn()
}

func (m *Machine[E, D]) changed() {
	if m.depth > 0 {
		m.dirty = true
		return
	}
	m.fire()
}

func (m *Machine[E, D]) fire() {
	if m.onChange != nil {
		m.onChange()
	}
}

// Snapshot copies the observable state.
func (m *Machine[E, D]) Snapshot() State[E, D] {
	s := State[E, D]{
		Kind:         m.kind,
		Query:        m.query,
		Results:      append([]E(nil), m.results...),
		SearchStatus: m.searchStatus,
		SearchError:  m.searchErr,
		Dependent:    m.dependent,
	}
	switch {
	case m.selected == nil:
		s.SelectStatus = Unselected
	case m.depPending:
		s.SelectStatus = Selecting
	case m.depErr != nil:
		s.SelectStatus = SelectFailed
	default:
		s.SelectStatus = Selected
	}
	if m.selected != nil {
		sel := *m.selected
		s.Selected = &sel
	}
	s.DependentError = m.depErr
	return s
}
