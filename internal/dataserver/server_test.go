package dataserver_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/papertrail/internal/dataserver"
	"github.com/roach88/papertrail/internal/metrics"
	"github.com/roach88/papertrail/internal/store"
)

func newServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f, err := store.DefaultFixtures()
	require.NoError(t, err)
	_, err = s.Seed(context.Background(), f)
	require.NoError(t, err)

	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := dataserver.New(s, logger, m)
	srv := httptest.NewServer(h.Router(map[string]http.Handler{"/metrics": m.Handler()}))
	t.Cleanup(srv.Close)
	return srv, m
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSearchEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	var politicians []map[string]any
	require.Equal(t, http.StatusOK, get(t, srv, "/api/politicians/search?name=warren", &politicians))
	require.Len(t, politicians, 1)
	assert.Equal(t, 1.0, politicians[0]["politicianid"])
	assert.Equal(t, "Warren", politicians[0]["lastname"])

	var short []any
	require.Equal(t, http.StatusOK, get(t, srv, "/api/politicians/search?name=w", &short))
	assert.Empty(t, short)
	assert.NotNil(t, short, "short queries answer [] not null")

	var donors []map[string]any
	require.Equal(t, http.StatusOK, get(t, srv, "/api/donors/search?name=Boe", &donors))
	require.Len(t, donors, 1)
	assert.Equal(t, "Boeing Co", donors[0]["name"])
	assert.Nil(t, donors[0]["state"])
}

func TestGetByID(t *testing.T) {
	srv, _ := newServer(t)

	var p map[string]any
	require.Equal(t, http.StatusOK, get(t, srv, "/api/politician/5", &p))
	assert.Equal(t, "Pelosi", p["lastname"])

	var notFound map[string]string
	require.Equal(t, http.StatusNotFound, get(t, srv, "/api/politician/999", &notFound))
	assert.Equal(t, "Politician not found", notFound["error"])

	require.Equal(t, http.StatusNotFound, get(t, srv, "/api/donor/1", &notFound))
	assert.Equal(t, "Donor not found", notFound["error"])

	require.Equal(t, http.StatusNotFound, get(t, srv, "/api/donor/abc", &notFound))
}

func TestVotesEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	var votes struct {
		Pagination map[string]int   `json:"pagination"`
		Votes      []map[string]any `json:"votes"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/api/politician/1/votes?page=2&sort=desc", &votes))
	assert.Equal(t, map[string]int{"currentPage": 2, "totalPages": 2, "totalVotes": 12}, votes.Pagination)
	require.Len(t, votes.Votes, 2)
	assert.Equal(t, "hr 1", votes.Votes[0]["BillNumber"])

	require.Equal(t, http.StatusOK, get(t, srv, "/api/politician/1/votes?type=hres&type=sjres", &votes))
	assert.Equal(t, 2, votes.Pagination["totalVotes"])

	require.Equal(t, http.StatusOK, get(t, srv, "/api/politician/1/votes?subject=Health", &votes))
	assert.Equal(t, 3, votes.Pagination["totalVotes"])

	var bad map[string]string
	require.Equal(t, http.StatusBadRequest, get(t, srv, "/api/politician/1/votes?page=x", &bad))
}

func TestSummaryEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	var summary []map[string]any
	require.Equal(t, http.StatusOK, get(t, srv, "/api/politician/1/donations/summary", &summary))
	require.Len(t, summary, 5)
	assert.Equal(t, "Education", summary[0]["industry"])
	assert.Equal(t, 5000.0, summary[0]["totalamount"])

	require.Equal(t, http.StatusOK, get(t, srv, "/api/politician/1/donations/summary/filtered?topic=Health", &summary))
	require.Len(t, summary, 2)

	var bad map[string]string
	require.Equal(t, http.StatusBadRequest, get(t, srv, "/api/politician/1/donations/summary/filtered", &bad))
	assert.Equal(t, "No topic specified", bad["error"])
}

func TestSubjectsAndDonations(t *testing.T) {
	srv, _ := newServer(t)

	var subjects []string
	require.Equal(t, http.StatusOK, get(t, srv, "/api/bills/subjects", &subjects))
	assert.Contains(t, subjects, "Health")

	var donations []map[string]any
	require.Equal(t, http.StatusOK, get(t, srv, "/api/donor/101/donations", &donations))
	require.Len(t, donations, 3)
	assert.Equal(t, "2020-01-15", donations[0]["date"])
}

func TestResponsesAreRecordedByRoute(t *testing.T) {
	srv, m := newServer(t)

	get(t, srv, "/api/politician/1", nil)
	get(t, srv, "/api/politician/2", nil)
	get(t, srv, "/api/politician/999", nil)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.HTTPResponses.WithLabelValues("/api/politician/{id}", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.HTTPResponses.WithLabelValues("/api/politician/{id}", "404")))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
