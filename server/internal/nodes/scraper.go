package nodes

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/obsidianstack/clusterstats/pkg/types"
	"github.com/obsidianstack/clusterstats/server/internal/config"
)

// Node metric names read from each node's exposition.
const (
	// Process start, seconds since the epoch. Required.
	metricStartTime = "process_start_time_seconds"

	// Cores the node offers to query execution.
	metricAvailableCores = "node_available_cores"

	// Fallback when the node does not publish its own core budget.
	metricMachineCores = "machine_cpu_cores"

	// Off-heap memory ceiling of the node process.
	metricMaxDirectMemory = "node_max_direct_memory_bytes"
)

// ErrMissingStartTime is returned when a node's exposition carries no
// process start time.
var ErrMissingStartTime = errors.New("nodes: exposition has no " + metricStartTime)

// ErrInvalidSample is returned when a node reports a NaN, infinite, negative
// or out-of-range value for one of the descriptor metrics.
var ErrInvalidSample = errors.New("nodes: invalid sample")

// Scraper fetches and decodes one node's metrics endpoint.
type Scraper struct {
	client *http.Client
}

// NewScraper builds the HTTP client once from the configured auth and TLS
// settings and reuses it across scrape calls.
func NewScraper(cfg config.NodesConfig) (*Scraper, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("nodes: build http client: %w", err)
	}
	return &Scraper{client: client}, nil
}

// Scrape fetches t.MetricsURL and turns the exposition into a descriptor
// addressed as t.Address.
func (s *Scraper) Scrape(ctx context.Context, t Target) (types.NodeDescriptor, error) {
	mfs, err := fetchMetrics(ctx, s.client, t.MetricsURL)
	if err != nil {
		return types.NodeDescriptor{}, fmt.Errorf("nodes: scrape %q: %w", t.Address, err)
	}
	d, err := descriptorFrom(t.Address, mfs)
	if err != nil {
		return types.NodeDescriptor{}, fmt.Errorf("nodes: scrape %q: %w", t.Address, err)
	}
	return d, nil
}

func descriptorFrom(addr string, mfs map[string]*dto.MetricFamily) (types.NodeDescriptor, error) {
	start, ok := firstValue(mfs[metricStartTime])
	if !ok {
		return types.NodeDescriptor{}, ErrMissingStartTime
	}
	cores, ok := firstValue(mfs[metricAvailableCores])
	if !ok {
		cores = sumFamily(mfs[metricMachineCores])
	}
	mem, _ := firstValue(mfs[metricMaxDirectMemory])

	for _, v := range []struct {
		name  string
		value float64
	}{
		{metricStartTime, start},
		{metricAvailableCores, cores},
		{metricMaxDirectMemory, mem},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 || v.value >= math.MaxInt64 {
			return types.NodeDescriptor{}, fmt.Errorf("%w: %s = %g", ErrInvalidSample, v.name, v.value)
		}
	}

	sec, frac := math.Modf(start)
	return types.NodeDescriptor{
		Address:              addr,
		AvailableCores:       int(cores),
		MaxDirectMemoryBytes: int64(mem),
		StartedAt:            time.Unix(int64(sec), int64(math.Round(frac*1e3))*int64(time.Millisecond)).UTC(),
	}, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.ScrapeAuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the configured auth and TLS settings.
func buildHTTPClient(cfg config.NodesConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.ScrapeTimeout
	if timeout <= 0 {
		timeout = config.DefaultScrapeTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: cfg.Auth,
		},
		Timeout: timeout,
	}, nil
}

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// firstValue returns the value of the first sample in mf.
func firstValue(mf *dto.MetricFamily) (float64, bool) {
	if mf == nil || len(mf.GetMetric()) == 0 {
		return 0, false
	}
	return sampleValue(mf.GetMetric()[0]), true
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += sampleValue(m)
	}
	return total
}

func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}
