package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

type ContentKind int

const (
	// KindText is returned verbatim in Raw.
	KindText ContentKind = iota
	// KindStructured has Data set to a tree of maps, slices and scalars.
	KindStructured
)

func (k ContentKind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	default:
		return "text"
	}
}

// ResourceContent is the body of a fetched resource. Raw always holds the
// bytes as received.
type ResourceContent struct {
	Kind        ContentKind
	ContentType string
	Raw         []byte
	Data        interface{}
}

type structuredFormat int

const (
	formatNone structuredFormat = iota
	formatJSON
	formatYAML
)

var (
	errResourceTooLarge = errors.New("resource exceeds size limit")
	errTrailingData     = errors.New("decoding json: unexpected data after top-level value")
)

// FetchResourceContent downloads a resource URL as-is. The declared
// Content-Type alone decides whether the body is parsed; bodies are never
// sniffed.
func (c *Client) FetchResourceContent(ctx context.Context, resourceURL string) (*ResourceContent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ResourceTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, &ResourceFetchError{URL: resourceURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug("Fetching resource", "url", resourceURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ResourceFetchError{URL: resourceURL, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ResourceFetchError{
			URL:        resourceURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	raw, err := readLimited(resp.Body, c.config.MaxResourceBytes)
	if err != nil {
		return nil, &ResourceFetchError{URL: resourceURL, StatusCode: resp.StatusCode, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	content := &ResourceContent{
		Kind:        KindText,
		ContentType: contentType,
		Raw:         raw,
	}

	switch classify(contentType) {
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&content.Data); err != nil {
			return nil, &ResourceFetchError{URL: resourceURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding json: %w", err)}
		}
		if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
			return nil, &ResourceFetchError{URL: resourceURL, StatusCode: resp.StatusCode, Err: errTrailingData}
		}
		content.Kind = KindStructured
	case formatYAML:
		if err := yaml.Unmarshal(raw, &content.Data); err != nil {
			return nil, &ResourceFetchError{URL: resourceURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding yaml: %w", err)}
		}
		content.Kind = KindStructured
	}

	c.logger.Debug("Resource fetched",
		"url", resourceURL,
		"content_type", contentType,
		"kind", content.Kind.String(),
		"size_bytes", len(raw))

	return content, nil
}

// classify maps a declared media type to a structured format. Missing or
// malformed values are treated as text.
func classify(contentType string) structuredFormat {
	if contentType == "" {
		return formatNone
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return formatNone
	}

	switch {
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"):
		return formatJSON
	case mediaType == "application/yaml", mediaType == "application/x-yaml",
		mediaType == "text/yaml", mediaType == "text/x-yaml", strings.HasSuffix(mediaType, "+yaml"):
		return formatYAML
	default:
		return formatNone
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", errResourceTooLarge, limit)
	}
	return raw, nil
}
