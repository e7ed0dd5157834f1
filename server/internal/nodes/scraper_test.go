package nodes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/obsidianstack/clusterstats/server/internal/config"
)

const executorMetrics = `
# HELP process_start_time_seconds Start time of the process since unix epoch in seconds.
# TYPE process_start_time_seconds gauge
process_start_time_seconds 1.7093016005e+09

# HELP node_available_cores Cores available to query execution.
# TYPE node_available_cores gauge
node_available_cores 16

# HELP machine_cpu_cores Number of logical CPU cores.
# TYPE machine_cpu_cores gauge
machine_cpu_cores 32

# HELP node_max_direct_memory_bytes Maximum direct memory.
# TYPE node_max_direct_memory_bytes gauge
node_max_direct_memory_bytes 8.589934592e+09
`

func metricsServer(t *testing.T, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(t *testing.T, cfg config.NodesConfig) *Scraper {
	t.Helper()
	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}
	return s
}

func TestScraper_Scrape(t *testing.T) {
	srv := metricsServer(t, executorMetrics, nil)
	s := newTestScraper(t, config.NodesConfig{})

	d, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL, Role: RoleExecutor})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if d.Address != "e1:9047" {
		t.Errorf("Address: got %q", d.Address)
	}
	if d.AvailableCores != 16 {
		t.Errorf("AvailableCores: got %d, want 16", d.AvailableCores)
	}
	if d.MaxDirectMemoryBytes != 8589934592 {
		t.Errorf("MaxDirectMemoryBytes: got %d, want 8589934592", d.MaxDirectMemoryBytes)
	}
	want := time.Date(2024, 3, 1, 14, 0, 0, 500*int(time.Millisecond), time.UTC)
	if !d.StartedAt.Equal(want) {
		t.Errorf("StartedAt: got %v, want %v", d.StartedAt, want)
	}
}

func TestScraper_FallsBackToMachineCores(t *testing.T) {
	body := strings.Replace(executorMetrics, "node_available_cores 16", "", 1)
	srv := metricsServer(t, body, nil)
	s := newTestScraper(t, config.NodesConfig{})

	d, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if d.AvailableCores != 32 {
		t.Errorf("AvailableCores: got %d, want 32", d.AvailableCores)
	}
}

func TestScraper_MissingStartTime(t *testing.T) {
	srv := metricsServer(t, "# TYPE machine_cpu_cores gauge\nmachine_cpu_cores 4\n", nil)
	s := newTestScraper(t, config.NodesConfig{})

	_, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL})
	if !errors.Is(err, ErrMissingStartTime) {
		t.Errorf("err: got %v, want ErrMissingStartTime", err)
	}
}

func TestScraper_RejectsInvalidSamples(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
	}{
		{"nan start time", "process_start_time_seconds 1.7093016005e+09", "process_start_time_seconds NaN"},
		{"negative start time", "process_start_time_seconds 1.7093016005e+09", "process_start_time_seconds -5"},
		{"infinite start time", "process_start_time_seconds 1.7093016005e+09", "process_start_time_seconds +Inf"},
		{"negative cores", "node_available_cores 16", "node_available_cores -2"},
		{"infinite memory", "node_max_direct_memory_bytes 8.589934592e+09", "node_max_direct_memory_bytes +Inf"},
		{"out of range memory", "node_max_direct_memory_bytes 8.589934592e+09", "node_max_direct_memory_bytes 1e300"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := metricsServer(t, strings.Replace(executorMetrics, tc.from, tc.to, 1), nil)
			s := newTestScraper(t, config.NodesConfig{})

			_, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL})
			if !errors.Is(err, ErrInvalidSample) {
				t.Errorf("err: got %v, want ErrInvalidSample", err)
			}
		})
	}
}

func TestScraper_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	s := newTestScraper(t, config.NodesConfig{})

	_, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err: got %v, want HTTP 503 error", err)
	}
}

func TestScraper_APIKeyAuth(t *testing.T) {
	t.Setenv("TEST_NODE_KEY", "node-secret")
	var got string
	srv := metricsServer(t, executorMetrics, func(r *http.Request) { got = r.Header.Get("X-Node-Key") })
	s := newTestScraper(t, config.NodesConfig{Auth: config.ScrapeAuthConfig{Mode: "apikey", Header: "X-Node-Key", KeyEnv: "TEST_NODE_KEY"}})

	if _, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL}); err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if got != "node-secret" {
		t.Errorf("X-Node-Key: got %q, want %q", got, "node-secret")
	}
}

func TestScraper_BearerAuth(t *testing.T) {
	t.Setenv("TEST_NODE_TOKEN", "tok")
	var got string
	srv := metricsServer(t, executorMetrics, func(r *http.Request) { got = r.Header.Get("Authorization") })
	s := newTestScraper(t, config.NodesConfig{Auth: config.ScrapeAuthConfig{Mode: "bearer", TokenEnv: "TEST_NODE_TOKEN"}})

	if _, err := s.Scrape(context.Background(), Target{Address: "e1:9047", MetricsURL: srv.URL}); err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if got != "Bearer tok" {
		t.Errorf("Authorization: got %q, want %q", got, "Bearer tok")
	}
}

func TestNewScraper_BadClientCert(t *testing.T) {
	_, err := NewScraper(config.NodesConfig{Auth: config.ScrapeAuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"}})
	if err == nil {
		t.Error("NewScraper: expected error for missing client certificate")
	}
}
