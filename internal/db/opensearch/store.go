// Package opensearch is the search backend store: it owns the OpenSearch client,
// runs query documents against an index and decodes the hits into order rows.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v2"

	"github.com/kailas-cloud/searchgate/internal/db"
	"github.com/kailas-cloud/searchgate/internal/domain/order"
	"github.com/kailas-cloud/searchgate/internal/metrics"
)

// maxErrorBody caps how much of a failed backend response ends up in the error text.
const maxErrorBody = 64 << 10

// Config holds connection parameters for an OpenSearch store.
type Config struct {
	URL      string
	Username string
	Password string
	// InsecureSkipVerify disables TLS certificate validation (dev clusters with self-signed certs).
	InsecureSkipVerify bool
}

// Store runs search requests against a single OpenSearch node.
type Store struct {
	client    *opensearchgo.Client
	transport *http.Transport
}

// NewStore creates an OpenSearch store. The client does not retry failed requests.
func NewStore(cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse url %q: scheme must be http or https", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse url %q: missing host", cfg.URL)
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // opt-in via config

	client, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses:    []string{u.String()},
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    t,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, transport: t}, nil
}

// Close releases idle backend connections.
func (s *Store) Close() {
	s.transport.CloseIdleConnections()
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("%w: %s", db.ErrBackendStatus, res.Status())}
	}
	return nil
}

// WaitForReady polls Ping until the backend responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search backend: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// searchResponse is the part of the _search response the store reads.
// hits.hits must be present; a response without it is a shape mismatch.
type searchResponse struct {
	Hits *struct {
		Hits []json.RawMessage `json:"hits"`
	} `json:"hits"`
}

// Search sends query unmodified as the body of a _search request against index
// and returns the matched rows in backend order.
func (s *Store) Search(ctx context.Context, index string, query json.RawMessage) ([]order.Row, error) {
	start := time.Now()
	rows, status, err := s.search(ctx, index, query)

	metrics.BackendRequestsTotal.WithLabelValues(db.OpSearch, index, status).Inc()
	metrics.BackendRequestDuration.WithLabelValues(db.OpSearch, index).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	metrics.BackendHitsTotal.WithLabelValues(index).Add(float64(len(rows)))
	return rows, nil
}

func (s *Store) search(ctx context.Context, index string, query json.RawMessage) ([]order.Row, string, error) {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(query)),
	)
	if err != nil {
		return nil, "transport_error", fmt.Errorf("execute request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, "status_error", fmt.Errorf("%w: %s - %s", db.ErrBackendStatus, res.Status(), bytes.TrimSpace(body))
	}

	rows, err := decodeHits(res.Body)
	if err != nil {
		return nil, "decode_error", err
	}
	return rows, "success", nil
}

func decodeHits(r io.Reader) ([]order.Row, error) {
	var resp searchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %w", db.ErrDecode, err)
	}
	if resp.Hits == nil || resp.Hits.Hits == nil {
		return nil, fmt.Errorf("%w: missing hits.hits", db.ErrDecode)
	}

	rows := make([]order.Row, 0, len(resp.Hits.Hits))
	for i, raw := range resp.Hits.Hits {
		row, err := order.DecodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: hit %d: %w", db.ErrDecode, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

