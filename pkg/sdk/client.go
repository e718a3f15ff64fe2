package searchgate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/order"
	healthuc "github.com/kailas-cloud/searchgate/internal/usecase/health"
)

// Row is one matched order document.
type Row = order.Row

// Source is the stored order document of a Row.
type Source = order.Source

// Product is a single line item of an order.
type Product = order.Product

// HealthStatus represents the gateway readiness report.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component → "ok"/"error"
}

// maxErrorMessage caps how much of an error response body is kept.
const maxErrorMessage = 64 << 10

// Client talks to a searchgate instance over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	method  string
	obs     *observer
}

// New creates a Client for the gateway at baseURL (e.g. "http://localhost:3000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("searchgate: parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("searchgate: base url must be an absolute http(s) URL, got %q", baseURL)
	}

	cfg := &clientConfig{method: http.MethodGet}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimSuffix(u.String(), "/"),
		http:    cfg.httpClient,
		timeout: cfg.timeout,
		method:  cfg.method,
		obs:     obs,
	}, nil
}

// Query sends q to the gateway and returns the matched rows. q may be a
// json.RawMessage, []byte, string or any value that marshals to a JSON document.
func (c *Client) Query(ctx context.Context, q any) (rows []Row, err error) {
	start := time.Now()
	defer func() { c.obs.observeRows("query", start, len(rows), err) }()

	body, err := encodeQuery(q)
	if err != nil {
		return nil, err
	}

	resp, cancel, err := c.do(ctx, c.method, "/query", body)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return nil, apiError(resp, ErrBadQuery)
	default:
		return nil, apiError(resp, ErrQueryFailed)
	}

	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("searchgate: decode rows: %w", err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// Ping checks gateway liveness via /health_check. It does not involve the backend.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	resp, cancel, err := c.do(ctx, http.MethodGet, "/health_check", nil)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp, nil)
	}
	return nil
}

// Health returns the gateway readiness report. A degraded report is returned
// together with an error wrapping ErrNotReady.
func (c *Client) Health(ctx context.Context) (status HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	resp, cancel, err := c.do(ctx, http.MethodGet, "/ready", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	var report healthuc.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthStatus{}, fmt.Errorf("searchgate: decode health: %w", err)
	}

	status = HealthStatus{Status: string(report.Status), Checks: make(map[string]string, len(report.Checks))}
	for k, v := range report.Checks {
		status.Checks[k] = string(v)
	}
	if resp.StatusCode != http.StatusOK {
		return status, &APIError{StatusCode: resp.StatusCode, Message: status.Status, kind: ErrNotReady}
	}
	return status, nil
}

// do sends a request; the returned cancel func must be called after the body is consumed.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("searchgate: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("searchgate: %s %s: %w", method, path, err)
	}
	return resp, cancel, nil
}

func encodeQuery(q any) ([]byte, error) {
	var data []byte
	switch v := q.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		b, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("searchgate: encode query: %w", err)
		}
		data = b
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("searchgate: %w: query is not valid JSON", ErrBadQuery)
	}
	return data, nil
}

func apiError(resp *http.Response, kind error) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorMessage))
	m := strings.TrimSpace(string(msg))
	if m == "" {
		m = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: m, kind: kind}
}

// IsAPIError reports whether err is a non-success gateway response.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
