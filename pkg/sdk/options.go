package searchgate

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	method     string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithHTTPClient sets the underlying HTTP client. Defaults to a dedicated client
// without a timeout.
func WithHTTPClient(c *http.Client) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.httpClient = c
	})
}

// WithTimeout bounds every request. The gateway itself never times out a query,
// so callers that cannot wait on a hung backend should set one.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.timeout = d
	})
}

// WithPOST sends queries as POST instead of GET, for proxies that drop GET bodies.
func WithPOST() Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.method = http.MethodPost
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.metricsReg = reg
	})
}
