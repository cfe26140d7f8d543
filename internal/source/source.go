// Package source defines the remote read-only seed source contract and its
// implementations. The remote source provides JSON documents without ids;
// standcore never writes back to it.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher retrieves one raw collection document by identifier. Fetches must be
// idempotent per identifier; failures are surfaced so the local store can fall
// back to its persisted file.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (any, error)
}

// HTTPSource fetches raw JSON files from a base URL (for example a raw
// repository content endpoint). Identifier "ingredients" resolves to
// <base>/ingredients.json.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPSource builds a source rooted at baseURL. A nil client uses a default
// with a conservative timeout.
func NewHTTPSource(baseURL string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse source base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSource{base: u, client: client}, nil
}

// Fetch retrieves and decodes <base>/<identifier>.json.
func (s *HTTPSource) Fetch(ctx context.Context, identifier string) (any, error) {
	ref, err := url.Parse(identifier + ".json")
	if err != nil {
		return nil, fmt.Errorf("source identifier %q: %w", identifier, err)
	}
	target := s.base.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build source request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, err)
	}
	return raw, nil
}

// Static serves fixed raw documents from memory. Used in tests and for
// collections with no remote counterpart.
type Static struct {
	docs map[string]string
}

// NewStatic builds a static source from identifier -> JSON document text.
func NewStatic(docs map[string]string) *Static {
	return &Static{docs: docs}
}

// Fetch decodes the stored document for identifier.
func (s *Static) Fetch(_ context.Context, identifier string) (any, error) {
	doc, ok := s.docs[identifier]
	if !ok {
		return nil, fmt.Errorf("static source: no document %q", identifier)
	}
	var raw any
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("static source: decode %q: %w", identifier, err)
	}
	return raw, nil
}
