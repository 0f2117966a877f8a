// Package metrics provides Prometheus instrumentation for the client core
// and the data service.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/papertrail/internal/engine"
	"github.com/roach88/papertrail/internal/gateway"
)

// Metrics holds every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Gateway calls by operation and outcome ("ok" or a lowercased error kind)
	GatewayRequests *prometheus.CounterVec

	// Gateway call latency by operation
	GatewayLatency *prometheus.HistogramVec

	// Sequencer completions by slot and outcome ("committed" or "dropped")
	SequencerOutcomes *prometheus.CounterVec

	// Data service responses by route pattern and status code
	HTTPResponses *prometheus.CounterVec
}

var (
	_ engine.SequencerObserver = (*Metrics)(nil)
	_ gateway.Observer         = (*Metrics)(nil)
)

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		GatewayRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrail_gateway_requests_total",
			Help: "Data service calls by operation and outcome",
		}, []string{"op", "outcome"}),

		GatewayLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "papertrail_gateway_request_duration_seconds",
			Help:    "Duration of data service calls by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),

		SequencerOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrail_sequencer_completions_total",
			Help: "Sequenced action completions by slot and outcome",
		}, []string{"slot", "outcome"}),

		HTTPResponses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrail_http_responses_total",
			Help: "Data service HTTP responses by route and status",
		}, []string{"route", "status"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one gateway call.
func (m *Metrics) ObserveRequest(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(op, outcome).Inc()
	m.GatewayLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SequenceCommitted records a completion that reached state.
func (m *Metrics) SequenceCommitted(slot string) {
	if m != nil {
		m.SequencerOutcomes.WithLabelValues(slot, "committed").Inc()
	}
}

// SequenceDropped records a superseded or abandoned completion.
func (m *Metrics) SequenceDropped(slot string) {
	if m != nil {
		m.SequencerOutcomes.WithLabelValues(slot, "dropped").Inc()
	}
}

// ObserveResponse records one data service response.
func (m *Metrics) ObserveResponse(route string, status int) {
	if m != nil {
		m.HTTPResponses.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}

// WriteText writes every sample on the registry, one per line, as
// name{label="value",...} value. Histograms are summarised by their _count
// and _sum series.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	mfs, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			pairs := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				pairs = append(pairs, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			labels := ""
			if len(pairs) > 0 {
				labels = "{" + strings.Join(pairs, ",") + "}"
			}
			switch {
			case metric.GetCounter() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				h := metric.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", mf.GetName(), labels, h.GetSampleSum())
			}
		}
	}
	return nil
}
