package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/papertrail/internal/model"
)

// maxResponseBody caps the amount of response data read from the service.
const maxResponseBody int64 = 10 << 20

// Observer records the outcome of every HTTP call.
type Observer interface {
	ObserveRequest(op, outcome string, elapsed time.Duration)
}

// Client is a Gateway backed by the data service's JSON HTTP API.
//
// Thread-safety: Client is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	observer Observer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a Client for the service at baseURL. An empty baseURL
// issues relative requests, which only works behind a proxy.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Gateway = (*Client)(nil)

func (c *Client) SearchPoliticians(ctx context.Context, text string) ([]model.Politician, error) {
	var out []model.Politician
	err := c.fetchJSON(ctx, OpSearchPoliticians, "/api/politicians/search?name="+url.QueryEscape(text), &out)
	return out, err
}

func (c *Client) SearchDonors(ctx context.Context, text string) ([]model.Donor, error) {
	var out []model.Donor
	err := c.fetchJSON(ctx, OpSearchDonors, "/api/donors/search?name="+url.QueryEscape(text), &out)
	return out, err
}

func (c *Client) GetPolitician(ctx context.Context, id int64) (model.Politician, error) {
	var out model.Politician
	err := c.fetchJSON(ctx, OpGetPolitician, fmt.Sprintf("/api/politician/%d", id), &out)
	return out, err
}

func (c *Client) GetDonor(ctx context.Context, id int64) (model.Donor, error) {
	var out model.Donor
	err := c.fetchJSON(ctx, OpGetDonor, fmt.Sprintf("/api/donor/%d", id), &out)
	return out, err
}

func (c *Client) GetDonorDonations(ctx context.Context, id int64) ([]model.Donation, error) {
	var out []model.Donation
	err := c.fetchJSON(ctx, OpGetDonorDonations, fmt.Sprintf("/api/donor/%d/donations", id), &out)
	return out, err
}

func (c *Client) GetPoliticianVotes(ctx context.Context, id int64, q model.VoteQuery) (model.VoteResponse, error) {
	var out model.VoteResponse
	path := fmt.Sprintf("/api/politician/%d/votes", id)
	if qs := VoteQueryValues(q).Encode(); qs != "" {
		path += "?" + qs
	}
	err := c.fetchJSON(ctx, OpGetPoliticianVotes, path, &out)
	return out, err
}

func (c *Client) GetDonationSummary(ctx context.Context, id int64, topic string) ([]model.DonationSummary, error) {
	var out []model.DonationSummary
	path := fmt.Sprintf("/api/politician/%d/donations/summary", id)
	if topic != "" {
		path += "/filtered?topic=" + url.QueryEscape(topic)
	}
	err := c.fetchJSON(ctx, OpGetDonationSummary, path, &out)
	return out, err
}

func (c *Client) GetBillSubjects(ctx context.Context) ([]string, error) {
	var out []string
	err := c.fetchJSON(ctx, OpGetBillSubjects, "/api/bills/subjects", &out)
	return out, err
}

// VoteQueryValues encodes a vote query the way the votes endpoint reads it:
// page, sort, and repeated type and subject parameters.
func VoteQueryValues(q model.VoteQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}
	for _, t := range q.Types {
		v.Add("type", t)
	}
	for _, s := range q.Subjects {
		v.Add("subject", s)
	}
	return v
}

func (c *Client) fetchJSON(ctx context.Context, op, path string, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(string(Classify(err)))
		}
		if c.observer != nil {
			c.observer.ObserveRequest(op, outcome, time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Code: model.ErrNetworkFailure, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "gateway request", "op", op, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return &Error{Code: model.ErrNetworkFailure, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBody)

	if resp.StatusCode == http.StatusNotFound {
		return &Error{Code: model.ErrNotFound, Op: op, Status: resp.StatusCode, Err: errors.New(readErrorMessage(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Code:   model.ErrNetworkFailure,
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("API error: %s", resp.Status),
		}
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return &Error{Code: model.ErrNetworkFailure, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readErrorMessage extracts {"error": "..."} from an error body.
func readErrorMessage(r io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || payload.Error == "" {
		return "not found"
	}
	return payload.Error
}
