package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/searchgate/internal/domain/order"
	healthuc "github.com/kailas-cloud/searchgate/internal/usecase/health"
)

// --- Mocks ---

type mockRunner struct {
	rows  []order.Row
	err   error
	got   json.RawMessage
	calls int
	panic bool
}

func (m *mockRunner) Run(_ context.Context, q json.RawMessage) ([]order.Row, error) {
	if m.panic {
		panic("boom")
	}
	m.calls++
	m.got = q
	return m.rows, m.err
}

type mockChecker struct {
	report healthuc.Report
}

func (m *mockChecker) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(runner *mockRunner, checker *mockChecker) http.Handler {
	if checker == nil {
		checker = &mockChecker{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewRouter(NewServer(runner, checker, zap.NewNop()), zap.NewNop())
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestQuery_ReturnsRows(t *testing.T) {
	runner := &mockRunner{rows: []order.Row{
		{Source: order.Source{OrderID: 1, CustomerFullName: "Eddie Underwood"}},
		{Source: order.Source{OrderID: 2, CustomerFullName: "Mary Bailey"}},
	}}
	h := newTestRouter(runner, nil)

	query := `{"query":{"match":{"customer_first_name":"Eddie"}}}`
	rr := do(h, http.MethodGet, "/query", query)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %q)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q", ct)
	}
	if string(runner.got) != query {
		t.Errorf("query forwarded as %q, want %q", runner.got, query)
	}

	var out []struct {
		Source struct {
			OrderID          int32  `json:"order_id"`
			CustomerFullName string `json:"customer_full_name"`
		} `json:"_source"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].Source.OrderID != 1 || out[1].Source.CustomerFullName != "Mary Bailey" {
		t.Errorf("unexpected rows: %+v", out)
	}
}

func TestQuery_PostAccepted(t *testing.T) {
	runner := &mockRunner{rows: []order.Row{}}
	rr := do(newTestRouter(runner, nil), http.MethodPost, "/query", `{}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if runner.calls != 1 {
		t.Errorf("expected one backend call, got %d", runner.calls)
	}
}

func TestQuery_NoMatches_EmptyArray(t *testing.T) {
	for name, rows := range map[string][]order.Row{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			rr := do(newTestRouter(&mockRunner{rows: rows}, nil), http.MethodGet, "/query", `{"query":{"match_none":{}}}`)

			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
				t.Errorf("body: got %q, want %q", got, "[]")
			}
		})
	}
}

func TestQuery_BackendError_500(t *testing.T) {
	runner := &mockRunner{err: errors.New("query ecommerce: _search: execute request: connection refused")}
	rr := do(newTestRouter(runner, nil), http.MethodGet, "/query", `{}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content-type: got %q", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != runner.err.Error() {
		t.Errorf("body: got %q, want %q", rr.Body.String(), runner.err.Error())
	}
}

func TestQuery_BadBody_400(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "customer_first_name=Eddie"},
		{"truncated", `{"query":{"match_all":{}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &mockRunner{}
			rr := do(newTestRouter(runner, nil), http.MethodGet, "/query", tc.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if rr.Body.Len() == 0 {
				t.Error("expected non-empty error body")
			}
			if runner.calls != 0 {
				t.Error("backend must not be called for an unreadable body")
			}
		})
	}
}

func TestHealthCheck_AlwaysOK(t *testing.T) {
	down := &mockChecker{report: healthuc.Report{Status: healthuc.Degraded}}
	runner := &mockRunner{err: errors.New("backend down")}
	rr := do(newTestRouter(runner, down), http.MethodGet, "/health_check", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rr.Body.String())
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		want   int
	}{
		{
			name: "backend up",
			report: healthuc.Report{
				Status: healthuc.Healthy,
				Checks: map[string]healthuc.CheckResult{"search_backend": healthuc.CheckOK},
			},
			want: http.StatusOK,
		},
		{
			name: "backend down",
			report: healthuc.Report{
				Status: healthuc.Degraded,
				Checks: map[string]healthuc.CheckResult{"search_backend": healthuc.CheckError},
			},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(newTestRouter(&mockRunner{}, &mockChecker{report: tc.report}), http.MethodGet, "/ready", "")

			if rr.Code != tc.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tc.want)
			}
			var got healthuc.Report
			if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tc.report.Status {
				t.Errorf("status field: got %q, want %q", got.Status, tc.report.Status)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	h := newTestRouter(&mockRunner{}, nil)
	_ = do(h, http.MethodGet, "/health_check", "")

	rr := do(h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "searchgate_http_requests_total") {
		t.Error("expected searchgate_http_requests_total in exposition")
	}
}

func TestRequestIDHeader(t *testing.T) {
	rr := do(newTestRouter(&mockRunner{}, nil), http.MethodGet, "/health_check", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRecoverer_Panic500(t *testing.T) {
	rr := do(newTestRouter(&mockRunner{panic: true}, nil), http.MethodGet, "/query", `{}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if rr.Body.Len() == 0 {
		t.Error("expected non-empty error body")
	}
}

func TestFirstName_BuildsMatchQuery(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/first-names/Eddie", `{"query":{"match":{"customer_first_name":"Eddie"}}}`},
		{"/first-names/Mary%20Ann", `{"query":{"match":{"customer_first_name":"Mary Ann"}}}`},
		{"/first-names/%22quoted%22", `{"query":{"match":{"customer_first_name":"\"quoted\""}}}`},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			runner := &mockRunner{rows: []order.Row{{Source: order.Source{OrderID: 584677, CustomerFirstName: "Eddie"}}}}
			rr := do(newTestRouter(runner, nil), http.MethodGet, tc.path, "")

			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d (body %q)", rr.Code, http.StatusOK, rr.Body.String())
			}
			if string(runner.got) != tc.want {
				t.Errorf("query: got %s, want %s", runner.got, tc.want)
			}
			if !strings.Contains(rr.Body.String(), `"order_id":584677`) {
				t.Errorf("body: got %q", rr.Body.String())
			}
		})
	}
}

func TestFirstName_NoMatchesAndErrors(t *testing.T) {
	rr := do(newTestRouter(&mockRunner{}, nil), http.MethodGet, "/first-names/Nobody", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("no matches: got %d %q, want 200 []", rr.Code, rr.Body.String())
	}

	runner := &mockRunner{err: errors.New("query ecommerce: _search: decode backend response: missing hits.hits")}
	rr = do(newTestRouter(runner, nil), http.MethodGet, "/first-names/Eddie", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if rr.Body.String() != runner.err.Error() {
		t.Errorf("body: got %q, want %q", rr.Body.String(), runner.err.Error())
	}
}

func TestQuery_FailureLoggedOnceByUseCase(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	runner := &mockRunner{err: errors.New("connection refused")}
	h := NewRouter(NewServer(runner, &mockChecker{}, zap.New(core)), zap.New(core))

	_ = do(h, http.MethodGet, "/query", `{}`)

	for _, e := range logs.All() {
		if e.Level >= zapcore.WarnLevel {
			t.Errorf("handler should not log query failures, got %q at %s", e.Message, e.Level)
		}
	}
}

func TestMetrics_HandlerBuiltOnce(t *testing.T) {
	s := NewServer(&mockRunner{}, &mockChecker{}, zap.NewNop())
	if s.metrics == nil {
		t.Fatal("expected metrics handler to be built by NewServer")
	}
}

func TestUnknownRoute_404(t *testing.T) {
	rr := do(newTestRouter(&mockRunner{}, nil), http.MethodGet, "/last-names/underwood", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
