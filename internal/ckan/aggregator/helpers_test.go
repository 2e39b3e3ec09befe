package aggregator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geesthacht-opendata/internal/common/logger"
	"github.com/geesthacht-opendata/pkg/ckan/models"
)

// fakeCKAN serves package_search and package_show from a fixed package list.
type fakeCKAN struct {
	*httptest.Server
	packages []models.Package
	hits     atomic.Int32
	lastRows atomic.Value
	lastQ    atomic.Value
}

func newFakeCKAN(t *testing.T, packages ...models.Package) *fakeCKAN {
	t.Helper()
	f := &fakeCKAN{packages: packages}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/3/action/package_search", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.lastQ.Store(r.URL.Query().Get("q"))
		f.lastRows.Store(r.URL.Query().Get("rows"))
		writeJSON(w, http.StatusOK, models.SearchResponse{
			Success: true,
			Result:  models.SearchResult{Count: len(f.packages), Results: f.packages},
		})
	})
	mux.HandleFunc("/api/3/action/package_show", func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		id := r.URL.Query().Get("id")
		for _, pkg := range f.packages {
			if pkg.ID == id || pkg.Name == id {
				writeJSON(w, http.StatusOK, models.PackageResponse{Success: true, Result: pkg})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, models.PackageResponse{
			Success: false,
			Error:   &models.APIError{Type: "Not Found Error", Message: "Not found"},
		})
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCKAN) endpoint(name string, rows int) Endpoint {
	return Endpoint{Name: name, BaseURL: f.URL + "/api/3/action", Rows: rows}
}

func newStatusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func endpointFor(srv *httptest.Server, name string) Endpoint {
	return Endpoint{Name: name, BaseURL: srv.URL + "/api/3/action", Rows: 50}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(endpoints ...Endpoint) *Client {
	return New(Config{
		Endpoints:       endpoints,
		EndpointTimeout: 2 * time.Second,
		ResourceTimeout: 2 * time.Second,
	}, logger.Nop())
}

func pkg(id, title string) models.Package {
	return models.Package{ID: id, Title: title, Resources: []models.Resource{}}
}

func ids(packages []models.Package) []string {
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		out = append(out, p.ID)
	}
	return out
}
