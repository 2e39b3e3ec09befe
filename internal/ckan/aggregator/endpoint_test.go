package aggregator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geesthacht-opendata/pkg/ckan/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPackageDetails(t *testing.T) {
	primary := newFakeCKAN(t, models.Package{
		ID:        "x1",
		Name:      "parkplan",
		Title:     "Park Plan",
		Tags:      []models.Tag{{Name: "umwelt", DisplayName: "Umwelt"}},
		Resources: []models.Resource{{ID: "r1", Name: "Plan", URL: "https://example.org/plan.json", Format: "JSON"}},
	})
	secondary := newFakeCKAN(t, pkg("x1", "Park Plan (SH)"))

	client := newTestClient(primary.endpoint("primary", 50), secondary.endpoint("secondary", 50))
	got, err := client.GetPackageDetails(context.Background(), "x1")

	require.NoError(t, err)
	assert.Equal(t, "Park Plan", got.Title)
	require.Len(t, got.Resources, 1)
	assert.Equal(t, "https://example.org/plan.json", got.Resources[0].URL)
	assert.Equal(t, int32(0), secondary.hits.Load())
}

func TestGetPackageDetails_NotFound(t *testing.T) {
	primary := newFakeCKAN(t, pkg("x1", "Park Plan"))
	secondary := newFakeCKAN(t, pkg("missing", "Only on secondary"))

	client := newTestClient(primary.endpoint("primary", 50), secondary.endpoint("secondary", 50))
	got, err := client.GetPackageDetails(context.Background(), "missing")

	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFoundOrUpstream)
	assert.ErrorIs(t, err, ErrUpstreamReportedFailure)
	assert.Contains(t, err.Error(), "Not Found Error")

	var nf *NotFoundOrUpstreamError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing", nf.ID)
	assert.Equal(t, int32(0), secondary.hits.Load())
}

func TestGetPackageDetails_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		cause  error
	}{
		{"server error", http.StatusInternalServerError, "oops", ErrEndpointUnavailable},
		{"html 404", http.StatusNotFound, "<html>not here</html>", ErrEndpointUnavailable},
		{"malformed", http.StatusOK, "{", ErrEndpointUnavailable},
		{"success false", http.StatusOK, `{"success": false}`, ErrUpstreamReportedFailure},
		{"empty result", http.StatusOK, `{"success": true, "result": {}}`, ErrNotFoundOrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStatusServer(t, tt.status, tt.body)
			client := newTestClient(endpointFor(srv, "primary"))

			_, err := client.GetPackageDetails(context.Background(), "x1")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFoundOrUpstream)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestGetPackageDetails_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	ep := endpointFor(srv, "primary")
	srv.Close()

	_, err := newTestClient(ep).GetPackageDetails(context.Background(), "x1")
	assert.ErrorIs(t, err, ErrNotFoundOrUpstream)
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
}

func TestGetPackageDetails_EmptyIDAndNoEndpoints(t *testing.T) {
	a := newFakeCKAN(t)
	_, err := newTestClient(a.endpoint("a", 50)).GetPackageDetails(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFoundOrUpstream)
	assert.Equal(t, int32(0), a.hits.Load())

	_, err = newTestClient().GetPackageDetails(context.Background(), "x1")
	assert.ErrorIs(t, err, ErrNotFoundOrUpstream)
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
}

func TestGetPackageDetails_LongNotFoundEnvelope(t *testing.T) {
	message := strings.Repeat("Datensatz nicht gefunden. ", 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.PackageResponse{
			Success: false,
			Error:   &models.APIError{Type: "Not Found Error", Message: message},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(endpointFor(srv, "primary")).GetPackageDetails(context.Background(), "x1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFoundOrUpstream)
	assert.ErrorIs(t, err, ErrUpstreamReportedFailure)
	assert.NotErrorIs(t, err, ErrEndpointUnavailable)
}

func TestGetPackageDetails_ErrorBodyTruncated(t *testing.T) {
	srv := newStatusServer(t, http.StatusInternalServerError, strings.Repeat("x", 4096))

	_, err := newTestClient(endpointFor(srv, "primary")).GetPackageDetails(context.Background(), "x1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEndpointUnavailable)
	assert.Less(t, len(err.Error()), 1024)
}
