package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	DefaultQuery = "Geesthacht"

	// CKAN rejects rows above 1000.
	maxRows = 1000
)

// Configuration validation errors.
var (
	ErrNoEndpoints             = errors.New("at least one CKAN endpoint is required")
	ErrEndpointMissingURL      = errors.New("endpoint url is required")
	ErrInvalidEndpointURL      = errors.New("endpoint url must be an absolute http(s) url")
	ErrInvalidRows             = errors.New("endpoint rows must be between 1 and 1000")
	ErrInvalidTimeout          = errors.New("timeouts must be positive")
	ErrInvalidMaxResourceBytes = errors.New("max resource bytes must be positive")
	ErrInvalidTermConcurrency  = errors.New("term concurrency must be at least 1")
	ErrInvalidRefreshInterval  = errors.New("refresh interval must not be negative")
	ErrNoRefreshTerms          = errors.New("refresh terms are required when refresh is enabled")
	ErrInvalidPort             = errors.New("http port must be between 1 and 65535")
)

type Config struct {
	CKAN    CKANConfig
	Server  ServerConfig
	Refresh RefreshConfig
	Logging LoggingConfig
}

// CKANConfig describes the open-data portals to aggregate. Endpoint order is
// source priority.
type CKANConfig struct {
	Endpoints        []EndpointConfig
	DefaultQuery     string
	EndpointTimeout  time.Duration
	ResourceTimeout  time.Duration
	MaxResourceBytes int64
	TermConcurrency  int
}

type EndpointConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"` // CKAN action API base, e.g. https://host/api/3/action
	Rows int    `yaml:"rows"`
}

type endpointsFile struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RefreshConfig drives the periodic dashboard refresh. A zero interval
// disables it.
type RefreshConfig struct {
	Interval time.Duration
	Terms    []string
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	DiscordURL string
}

var defaultEndpoints = []EndpointConfig{
	{Name: "govdata", URL: "https://www.govdata.de/ckan/api/3/action", Rows: 50},
	{Name: "schleswig-holstein", URL: "https://opendata.schleswig-holstein.de/api/3/action", Rows: 100},
}

// Load reads configuration from the environment and the local filesystem.
func Load() (*Config, error) {
	return LoadWithFs(afero.NewOsFs())
}

// LoadWithFs reads configuration from the environment. CKAN_ENDPOINTS_FILE,
// when set, is read from fs and takes precedence over CKAN_ENDPOINTS.
func LoadWithFs(fs afero.Fs) (*Config, error) {
	rows := getIntEnv("CKAN_ROWS", 50)

	cfg := &Config{
		CKAN: CKANConfig{
			DefaultQuery:     getEnv("CKAN_DEFAULT_QUERY", DefaultQuery),
			EndpointTimeout:  getDurationEnv("CKAN_ENDPOINT_TIMEOUT", 10*time.Second),
			ResourceTimeout:  getDurationEnv("CKAN_RESOURCE_TIMEOUT", 30*time.Second),
			MaxResourceBytes: int64(getIntEnv("CKAN_MAX_RESOURCE_BYTES", 32<<20)),
			TermConcurrency:  getIntEnv("CKAN_TERM_CONCURRENCY", 4),
		},
		Server: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getIntEnv("HTTP_PORT", 8080),
		},
		Refresh: RefreshConfig{
			Interval: getDurationEnv("REFRESH_INTERVAL", 5*time.Minute),
			Terms:    splitList(getEnv("REFRESH_TERMS", "Geesthacht,Lauenburg")),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", "opendata.log"),
			DiscordURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
	}

	switch {
	case os.Getenv("CKAN_ENDPOINTS_FILE") != "":
		endpoints, err := loadEndpointsFile(fs, os.Getenv("CKAN_ENDPOINTS_FILE"))
		if err != nil {
			return nil, err
		}
		cfg.CKAN.Endpoints = endpoints
	case os.Getenv("CKAN_ENDPOINTS") != "":
		cfg.CKAN.Endpoints = parseEndpoints(os.Getenv("CKAN_ENDPOINTS"))
	default:
		cfg.CKAN.Endpoints = append([]EndpointConfig(nil), defaultEndpoints...)
	}

	for i := range cfg.CKAN.Endpoints {
		ep := &cfg.CKAN.Endpoints[i]
		if ep.Rows == 0 {
			ep.Rows = rows
		}
		if ep.Name == "" {
			ep.Name = hostOf(ep.URL)
		}
		ep.URL = strings.TrimRight(ep.URL, "/")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.CKAN.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	for _, ep := range c.CKAN.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("endpoint %q: %w", ep.Name, ErrEndpointMissingURL)
		}
		u, err := url.Parse(ep.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint %q: %w", ep.Name, ErrInvalidEndpointURL)
		}
		if ep.Rows < 1 || ep.Rows > maxRows {
			return fmt.Errorf("endpoint %q: %w", ep.Name, ErrInvalidRows)
		}
	}
	if c.CKAN.EndpointTimeout <= 0 || c.CKAN.ResourceTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CKAN.MaxResourceBytes <= 0 {
		return ErrInvalidMaxResourceBytes
	}
	if c.CKAN.TermConcurrency < 1 {
		return ErrInvalidTermConcurrency
	}
	if c.Refresh.Interval < 0 {
		return ErrInvalidRefreshInterval
	}
	if c.Refresh.Interval > 0 && len(c.Refresh.Terms) == 0 {
		return ErrNoRefreshTerms
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

func loadEndpointsFile(fs afero.Fs, path string) ([]EndpointConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading endpoints file: %w", err)
	}

	var f endpointsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing endpoints file %s: %w", path, err)
	}
	return f.Endpoints, nil
}

// parseEndpoints accepts a comma separated list of "name=url" or bare "url"
// entries.
func parseEndpoints(value string) []EndpointConfig {
	var endpoints []EndpointConfig
	for _, entry := range splitList(value) {
		name, rawURL, found := strings.Cut(entry, "=")
		if !found || strings.Contains(name, "/") || strings.Contains(name, ":") {
			name, rawURL = "", entry
		}
		endpoints = append(endpoints, EndpointConfig{
			Name: strings.TrimSpace(name),
			URL:  strings.TrimSpace(rawURL),
		})
	}
	return endpoints
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
