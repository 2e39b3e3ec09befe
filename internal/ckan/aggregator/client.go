package aggregator

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/geesthacht-opendata/internal/common/logger"
	"github.com/geesthacht-opendata/pkg/ckan/models"
	"golang.org/x/sync/errgroup"
)

const (
	UserAgent = "geesthacht-opendata/1.0"

	defaultQuery            = "Geesthacht"
	defaultEndpointTimeout  = 10 * time.Second
	defaultResourceTimeout  = 30 * time.Second
	defaultMaxResourceBytes = 32 << 20
	defaultTermConcurrency  = 4
)

// Endpoint is one CKAN action API, e.g. https://www.govdata.de/ckan/api/3/action.
// Rows caps how many packages a single search may take from it.
type Endpoint struct {
	Name    string
	BaseURL string
	Rows    int
}

type Config struct {
	// Endpoints in priority order. The first one also serves package_show.
	Endpoints        []Endpoint
	DefaultQuery     string
	EndpointTimeout  time.Duration
	ResourceTimeout  time.Duration
	MaxResourceBytes int64
	TermConcurrency  int
	UserAgent        string
}

type Client struct {
	config     Config
	httpClient *http.Client
	logger     logger.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default transport, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

func New(cfg Config, log logger.Logger, opts ...Option) *Client {
	if cfg.DefaultQuery == "" {
		cfg.DefaultQuery = defaultQuery
	}
	if cfg.EndpointTimeout <= 0 {
		cfg.EndpointTimeout = defaultEndpointTimeout
	}
	if cfg.ResourceTimeout <= 0 {
		cfg.ResourceTimeout = defaultResourceTimeout
	}
	if cfg.MaxResourceBytes <= 0 {
		cfg.MaxResourceBytes = defaultMaxResourceBytes
	}
	if cfg.TermConcurrency < 1 {
		cfg.TermConcurrency = defaultTermConcurrency
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}
	cfg.Endpoints = append([]Endpoint(nil), cfg.Endpoints...)
	for i := range cfg.Endpoints {
		cfg.Endpoints[i].BaseURL = strings.TrimRight(cfg.Endpoints[i].BaseURL, "/")
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		config: cfg,
		// Deadlines come from the per-call contexts.
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries every endpoint concurrently and merges the results in
// endpoint order, first occurrence of an ID winning. A failing endpoint
// contributes nothing; if all fail the result is empty. Search never fails.
func (c *Client) Search(ctx context.Context, query string) []models.Package {
	query = c.normalizeQuery(query)

	perEndpoint := make([][]models.Package, len(c.config.Endpoints))
	var wg sync.WaitGroup
	for i, ep := range c.config.Endpoints {
		wg.Add(1)
		go func() {
			defer wg.Done()

			packages, err := c.searchEndpoint(ctx, ep, query)
			if err != nil {
				c.logger.Warn("Endpoint search failed, continuing without it",
					"endpoint", ep.Name,
					"query", query,
					"error", err)
				return
			}
			perEndpoint[i] = packages
		}()
	}
	wg.Wait()

	var all []models.Package
	for _, packages := range perEndpoint {
		all = append(all, packages...)
	}
	merged := Dedup(all)

	c.logger.Debug("Search completed",
		"query", query,
		"endpoints", len(c.config.Endpoints),
		"raw_results", len(all),
		"results", len(merged))

	return merged
}

// SearchMultiTerm runs Search once per term, merges all results in term
// order, deduplicates, and only then drops packages that match none of the
// terms. Filtering last keeps a package reached through an unrelated term as
// long as some term matches it.
func (c *Client) SearchMultiTerm(ctx context.Context, terms []string) []models.Package {
	var cleaned []string
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			cleaned = append(cleaned, term)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{c.config.DefaultQuery}
	}

	perTerm := make([][]models.Package, len(cleaned))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.TermConcurrency)
	for i, term := range cleaned {
		g.Go(func() error {
			perTerm[i] = c.Search(gctx, term)
			return nil
		})
	}
	_ = g.Wait() // Search does not fail

	var all []models.Package
	for _, packages := range perTerm {
		all = append(all, packages...)
	}
	relevant := FilterRelevant(Dedup(all), cleaned)

	c.logger.Debug("Multi-term search completed",
		"terms", cleaned,
		"raw_results", len(all),
		"results", len(relevant))

	return relevant
}

func (c *Client) normalizeQuery(query string) string {
	if q := strings.TrimSpace(query); q != "" {
		return q
	}
	return c.config.DefaultQuery
}
