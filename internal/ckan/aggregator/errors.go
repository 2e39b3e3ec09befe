package aggregator

import (
	"errors"
	"fmt"
)

var (
	// ErrEndpointUnavailable covers transport failures, non-2xx statuses and
	// bodies that are not a CKAN envelope.
	ErrEndpointUnavailable = errors.New("ckan endpoint unavailable")
	// ErrUpstreamReportedFailure is a well-formed envelope with success=false.
	ErrUpstreamReportedFailure = errors.New("ckan endpoint reported failure")
	ErrNotFoundOrUpstream      = errors.New("package not found or upstream error")
	ErrResourceFetch           = errors.New("resource fetch failed")
)

// EndpointError records why one endpoint contributed nothing to a search.
// Search logs these; it never returns them.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// NotFoundOrUpstreamError is returned by GetPackageDetails.
type NotFoundOrUpstreamError struct {
	ID  string
	Err error
}

func (e *NotFoundOrUpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("package %q: %v", e.ID, ErrNotFoundOrUpstream)
	}
	return fmt.Sprintf("package %q: %v: %v", e.ID, ErrNotFoundOrUpstream, e.Err)
}

func (e *NotFoundOrUpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFoundOrUpstream}
	}
	return []error{ErrNotFoundOrUpstream, e.Err}
}

// ResourceFetchError is returned by FetchResourceContent. StatusCode is zero
// when no response was received.
type ResourceFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ResourceFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching resource %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching resource %s: %v", e.URL, e.Err)
}

func (e *ResourceFetchError) Unwrap() []error {
	return []error{ErrResourceFetch, e.Err}
}
