package searchgate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded per client operation.
const (
	outcomeOK          = "ok"
	outcomeBadQuery    = "bad_query"
	outcomeQueryFailed = "query_failed"
	outcomeNotReady    = "not_ready"
	outcomeHTTPError   = "http_error"
	outcomeTransport   = "transport_error"
)

type clientMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     prometheus.Counter
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchgate",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Gateway calls made by the client, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "searchgate",
			Subsystem: "client",
			Name:      "operation_duration_seconds",
			Help:      "Round-trip time of gateway calls in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "searchgate",
			Subsystem: "client",
			Name:      "rows_total",
			Help:      "Rows received from successful queries.",
		}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.rows); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or swaps in the collector already registered
// under the same descriptor so several clients can share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("searchgate: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("searchgate: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records client calls. A nil *observer is valid and does nothing.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	o.observeRows(op, start, -1, err)
}

// observeRows is observe for calls that return rows; n < 0 means no row count.
func (o *observer) observeRows(op string, start time.Time, n int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	outcome := outcomeOf(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if err == nil && n > 0 {
			o.metrics.rows.Add(float64(n))
		}
	}

	if o.logger == nil {
		return
	}
	attrs := []any{"op", op, "outcome", outcome, "duration", dur}
	if n >= 0 {
		attrs = append(attrs, "rows", n)
	}
	if err != nil {
		o.logger.Warn("searchgate call failed", append(attrs, "error", err)...)
		return
	}
	o.logger.Debug("searchgate call", attrs...)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrBadQuery):
		return outcomeBadQuery
	case errors.Is(err, ErrQueryFailed):
		return outcomeQueryFailed
	case errors.Is(err, ErrNotReady):
		return outcomeNotReady
	case IsAPIError(err):
		return outcomeHTTPError
	default:
		return outcomeTransport
	}
}
