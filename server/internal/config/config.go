package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition on the cluster snapshot.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "error_reflections > 0",
	// "executors < 1", "unavailable_sources >= 1".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultGRPCPort       = 50051
	DefaultHTTPPort       = 9047
	DefaultLogLevel       = "info"
	DefaultCatalogPath    = "data/catalog"
	DefaultGCInterval     = 5 * time.Minute
	DefaultScrapeInterval = 15 * time.Second
	DefaultScrapeTimeout  = 5 * time.Second
	DefaultNodeTTL        = time.Minute
	DefaultRoleHeader     = "x-user-role"
	DefaultUserHeader     = "x-user-name"
)

// Config holds the configuration parsed from the `server:` section of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// GRPCPort is the port the gRPC health service listens on (default 50051).
	GRPCPort int `yaml:"grpc_port"`

	// HTTPPort is the port the REST API and /metrics listen on (default 9047).
	HTTPPort int `yaml:"http_port"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// Auth configures how the server authenticates REST and gRPC clients.
	Auth AuthConfig `yaml:"auth"`

	// Catalog configures the badger-backed catalog database.
	Catalog CatalogConfig `yaml:"catalog"`

	// Nodes lists the cluster members whose metrics endpoints are scraped.
	Nodes NodesConfig `yaml:"nodes"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the gRPC metadata key (and HTTP header name) to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`

	// RoleHeader carries the caller's role, set by the authenticating proxy.
	RoleHeader string `yaml:"role_header"`

	// UserHeader carries the caller's user name, set by the authenticating proxy.
	UserHeader string `yaml:"user_header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// CatalogConfig controls the catalog database.
type CatalogConfig struct {
	// Path is the badger data directory.
	Path string `yaml:"path"`

	// InMemory keeps the catalog in memory only; Path is ignored.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every catalog write.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is how often value log GC runs; 0 disables it.
	GCInterval time.Duration `yaml:"gc_interval"`
}

// NodesConfig lists the cluster members and how they are scraped.
type NodesConfig struct {
	Coordinators []NodeTarget `yaml:"coordinators"`
	Executors    []NodeTarget `yaml:"executors"`

	// ScrapeInterval controls how often every node is polled.
	ScrapeInterval time.Duration `yaml:"scrape_interval"`

	// ScrapeTimeout bounds a single node scrape.
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`

	// TTL is how long a node stays listed after its last successful scrape.
	TTL time.Duration `yaml:"ttl"`

	// Auth configures how the server authenticates to node metrics endpoints.
	Auth ScrapeAuthConfig `yaml:"auth"`

	// TLS holds TLS dial options for node metrics endpoints.
	TLS TLSConfig `yaml:"tls"`
}

// NodeTarget is one cluster member.
type NodeTarget struct {
	// Address identifies the node in the snapshot (host:port).
	Address string `yaml:"address"`

	// MetricsURL is the node's Prometheus text endpoint.
	// Defaults to http://<address>/metrics.
	MetricsURL string `yaml:"metrics_url"`
}

// EffectiveMetricsURL returns MetricsURL, or the default derived from Address.
func (n NodeTarget) EffectiveMetricsURL() string {
	if n.MetricsURL != "" {
		return n.MetricsURL
	}
	return "http://" + n.Address + "/metrics"
}

// ScrapeAuthConfig specifies how node metrics endpoints are authenticated.
type ScrapeAuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a ScrapeAuthConfig) Key() string { return getenv(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a ScrapeAuthConfig) Token() string { return getenv(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a ScrapeAuthConfig) Password() string { return getenv(a.PasswordEnv) }

// TLSConfig holds TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (s ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCPort: DefaultGRPCPort,
			HTTPPort: DefaultHTTPPort,
			LogLevel: DefaultLogLevel,
			Auth: AuthConfig{
				RoleHeader: DefaultRoleHeader,
				UserHeader: DefaultUserHeader,
			},
			Catalog: CatalogConfig{
				Path:       DefaultCatalogPath,
				SyncWrites: true,
				GCInterval: DefaultGCInterval,
			},
			Nodes: NodesConfig{
				ScrapeInterval: DefaultScrapeInterval,
				ScrapeTimeout:  DefaultScrapeTimeout,
				TTL:            DefaultNodeTTL,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.GRPCPort <= 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [1, 65535]", s.GRPCPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if !s.Catalog.InMemory && s.Catalog.Path == "" {
		return fmt.Errorf("server.catalog.path is required unless in_memory is set")
	}
	if s.Catalog.GCInterval < 0 {
		return fmt.Errorf("server.catalog.gc_interval must not be negative")
	}
	if s.Nodes.ScrapeInterval <= 0 {
		return fmt.Errorf("server.nodes.scrape_interval must be positive")
	}
	if s.Nodes.ScrapeTimeout <= 0 {
		return fmt.Errorf("server.nodes.scrape_timeout must be positive")
	}
	if s.Nodes.TTL <= 0 {
		return fmt.Errorf("server.nodes.ttl must be positive")
	}
	switch s.Nodes.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("server.nodes.auth.mode %q unknown", s.Nodes.Auth.Mode)
	}

	seen := make(map[string]string)
	for role, targets := range map[string][]NodeTarget{"coordinators": s.Nodes.Coordinators, "executors": s.Nodes.Executors} {
		for i, n := range targets {
			if n.Address == "" {
				return fmt.Errorf("server.nodes.%s[%d]: address is required", role, i)
			}
			if prev, ok := seen[n.Address]; ok {
				return fmt.Errorf("server.nodes.%s[%d]: address %q already listed under %s", role, i, n.Address, prev)
			}
			seen[n.Address] = role
		}
	}
	return nil
}
