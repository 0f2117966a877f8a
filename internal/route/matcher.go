package route

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/papertrail/internal/model"
)

// Page identifies which page a path renders.
type Page string

const (
	PageNone       Page = ""
	PageRoot       Page = "root"
	PageSearch     Page = "search"
	PageDetail     Page = "detail"
	PageComparison Page = "comparison"
)

// Match is the result of matching a path against the URL surface.
type Match struct {
	Page Page
	Kind model.Kind
	// ID is the raw :id segment of a detail path.
	ID string
}

// Found reports whether the path belongs to the URL surface.
func (m Match) Found() bool {
	return m.Page != PageNone
}

type matchKey struct{}

// Matcher resolves paths with a chi router. The static compare route wins
// over the {id} pattern.
//
// Thread-safety: safe for concurrent use after construction.
type Matcher struct {
	mux *chi.Mux
}

// NewMatcher builds the route table of the client.
func NewMatcher() *Matcher {
	r := chi.NewRouter()
	r.Get(RootPath, record(PageRoot, ""))
	for _, kind := range []model.Kind{model.KindPolitician, model.KindDonor} {
		base := SearchPath(kind)
		r.Get(base, record(PageSearch, kind))
		r.Get(base+"/{id}", record(PageDetail, kind))
	}
	r.Get("/politician/compare", record(PageComparison, model.KindPolitician))
	return &Matcher{mux: r}
}

func record(page Page, kind model.Kind) http.HandlerFunc {
	return func(_ http.ResponseWriter, r *http.Request) {
		m, ok := r.Context().Value(matchKey{}).(*Match)
		if !ok {
			return
		}
		m.Page = page
		m.Kind = kind
		if page == PageDetail {
			m.ID = chi.URLParam(r, "id")
		}
	}
}

// Match resolves path. Unknown paths return a Match with PageNone.
func (m *Matcher) Match(path string) Match {
	var out Match
	ctx := context.WithValue(context.Background(), matchKey{}, &out)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return Match{}
	}
	req.URL.Path = path
	m.mux.ServeHTTP(discard{}, req)
	return out
}

// discard satisfies http.ResponseWriter for in-process dispatch.
type discard struct{}

func (discard) Header() http.Header         { return http.Header{} }
func (discard) Write(b []byte) (int, error) { return len(b), nil }
func (discard) WriteHeader(int)             {}
