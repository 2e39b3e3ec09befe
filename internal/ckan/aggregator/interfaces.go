package aggregator

import (
	"context"

	"github.com/geesthacht-opendata/pkg/ckan/models"
)

// Searcher merges package_search results from every configured endpoint.
type Searcher interface {
	Search(ctx context.Context, query string) []models.Package
}

type MultiTermSearcher interface {
	SearchMultiTerm(ctx context.Context, terms []string) []models.Package
}

// PackageFetcher looks a package up on the primary endpoint.
type PackageFetcher interface {
	GetPackageDetails(ctx context.Context, id string) (*models.Package, error)
}

type ResourceFetcher interface {
	FetchResourceContent(ctx context.Context, resourceURL string) (*ResourceContent, error)
}

// Aggregator is everything the HTTP layer needs from the client.
type Aggregator interface {
	Searcher
	MultiTermSearcher
	PackageFetcher
	ResourceFetcher
}

var _ Aggregator = (*Client)(nil)
