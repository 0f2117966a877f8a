// Package dataserver serves the read-only data service over HTTP.
//
// The JSON shapes match what gateway.Client decodes: every endpoint is a
// GET, unknown ids answer 404 with {"error": "... not found"}, and failures
// answer 500 with the error text.
package dataserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

// Recorder observes responses. *metrics.Metrics implements it.
type Recorder interface {
	ObserveResponse(route string, status int)
}

// Handler wires the data service endpoints to a Gateway, normally a
// *store.Store.
type Handler struct {
	source   gateway.Gateway
	logger   *slog.Logger
	recorder Recorder
}

// New constructs a handler. recorder may be nil.
func New(source gateway.Gateway, logger *slog.Logger, recorder Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{source: source, logger: logger, recorder: recorder}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/politicians/search", h.HandleSearchPoliticians)
		r.Get("/politician/{id}", h.HandleGetPolitician)
		r.Get("/politician/{id}/votes", h.HandleGetPoliticianVotes)
		r.Get("/politician/{id}/donations/summary", h.HandleGetDonationSummary)
		r.Get("/politician/{id}/donations/summary/filtered", h.HandleGetFilteredDonationSummary)
		r.Get("/donors/search", h.HandleSearchDonors)
		r.Get("/donor/{id}", h.HandleGetDonor)
		r.Get("/donor/{id}/donations", h.HandleGetDonorDonations)
		r.Get("/bills/subjects", h.HandleGetBillSubjects)
	})
}

// Router returns a chi router with the endpoints and the standard
// middleware stack. extra handlers (such as /metrics) are mounted as-is.
func (h *Handler) Router(extra map[string]http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)
	h.Register(r)
	for pattern, handler := range extra {
		r.Handle(pattern, handler)
	}
	return r
}

// observe logs and records every response by its route pattern.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.logger.DebugContext(r.Context(), "request",
			"request_id", middleware.GetReqID(r.Context()),
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if h.recorder != nil {
			h.recorder.ObserveResponse(route, status)
		}
	})
}

// HandleSearchPoliticians handles GET /api/politicians/search?name=.
func (h *Handler) HandleSearchPoliticians(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if model.QueryLength(name) < model.KindPolitician.MinQueryLength() {
		writeJSON(w, http.StatusOK, []model.Politician{})
		return
	}
	ps, err := h.source.SearchPoliticians(r.Context(), name)
	h.respond(w, r, ps, err)
}

// HandleSearchDonors handles GET /api/donors/search?name=.
func (h *Handler) HandleSearchDonors(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if model.QueryLength(name) < model.KindDonor.MinQueryLength() {
		writeJSON(w, http.StatusOK, []model.Donor{})
		return
	}
	ds, err := h.source.SearchDonors(r.Context(), name)
	h.respond(w, r, ds, err)
}

// HandleGetPolitician handles GET /api/politician/{id}.
func (h *Handler) HandleGetPolitician(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.source.GetPolitician(r.Context(), id)
	if gateway.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Politician not found")
		return
	}
	h.respond(w, r, p, err)
}

// HandleGetDonor handles GET /api/donor/{id}.
func (h *Handler) HandleGetDonor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.source.GetDonor(r.Context(), id)
	if gateway.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Donor not found")
		return
	}
	h.respond(w, r, d, err)
}

// HandleGetDonorDonations handles GET /api/donor/{id}/donations.
func (h *Handler) HandleGetDonorDonations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ds, err := h.source.GetDonorDonations(r.Context(), id)
	h.respond(w, r, ds, err)
}

// HandleGetPoliticianVotes handles GET /api/politician/{id}/votes with
// page, sort and repeated type and subject parameters.
func (h *Handler) HandleGetPoliticianVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	vq := model.VoteQuery{
		Sort:     model.ParseSortOrder(q.Get("sort")),
		Types:    q["type"],
		Subjects: q["subject"],
	}
	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page %q", p))
			return
		}
		vq.Page = page
	}
	votes, err := h.source.GetPoliticianVotes(r.Context(), id, vq)
	h.respond(w, r, votes, err)
}

// HandleGetDonationSummary handles GET /api/politician/{id}/donations/summary.
func (h *Handler) HandleGetDonationSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.source.GetDonationSummary(r.Context(), id, "")
	h.respond(w, r, s, err)
}

// HandleGetFilteredDonationSummary handles
// GET /api/politician/{id}/donations/summary/filtered?topic=.
func (h *Handler) HandleGetFilteredDonationSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, http.StatusBadRequest, "No topic specified")
		return
	}
	s, err := h.source.GetDonationSummary(r.Context(), id, topic)
	h.respond(w, r, s, err)
}

// HandleGetBillSubjects handles GET /api/bills/subjects.
func (h *Handler) HandleGetBillSubjects(w http.ResponseWriter, r *http.Request) {
	s, err := h.source.GetBillSubjects(r.Context())
	h.respond(w, r, s, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		if r.Context().Err() == context.Canceled {
			h.logger.DebugContext(r.Context(), "client went away", "path", r.URL.Path)
			return
		}
		h.logger.ErrorContext(r.Context(), "data service query failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// pathID parses the {id} segment. Non-numeric ids answer 404, matching an
// integer route that does not match.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
