package models

// SearchResponse is the package_search envelope.
type SearchResponse struct {
	Help    string       `json:"help"`
	Success bool         `json:"success"`
	Result  SearchResult `json:"result"`
	Error   *APIError    `json:"error,omitempty"`
}

type SearchResult struct {
	Count   int       `json:"count"`
	Results []Package `json:"results"`
}

// PackageResponse is the package_show envelope.
type PackageResponse struct {
	Help    string    `json:"help"`
	Success bool      `json:"success"`
	Result  Package   `json:"result"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the error object CKAN attaches to success=false responses.
type APIError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

func (e *APIError) String() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}
