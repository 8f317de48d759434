package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront/internal/model"
)

// DefaultCatalogURL is the public catalog document the storefront is built on.
const DefaultCatalogURL = "https://muhammaddiazgirgani.github.io/api-json/guitars.json"

// DefaultFetchTimeout is the timeout for fetching the catalog document.
const DefaultFetchTimeout = 10 * time.Second

// maxDocumentSize caps the catalog body read into memory.
const maxDocumentSize = 8 << 20

// Source supplies raw remote catalog records.
// Interface allows mocking in tests.
type Source interface {
	Fetch(ctx context.Context) ([]model.RawProduct, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]model.RawProduct, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]model.RawProduct, error) {
	return f(ctx)
}

// HTTPSourceConfig contains configuration for the HTTP catalog source.
type HTTPSourceConfig struct {
	URL          string
	FetchTimeout time.Duration     // Ignored when Transport already sets a client timeout
	FreshFor     time.Duration     // Default freshness when the response sets no max-age (0 = always revalidate)
	Transport    http.RoundTripper // nil = http.DefaultTransport
}

// HTTPSource fetches the catalog document over HTTP.
// It revalidates with ETag/If-None-Match the way a browser cache would,
// but a failed fetch is always reported: stale data is never served in its place.
type HTTPSource struct {
	client *http.Client
	config HTTPSourceConfig

	mu    sync.RWMutex
	entry *sourceEntry
}

type sourceEntry struct {
	records   []model.RawProduct
	etag      string
	expiresAt time.Time
}

// NewHTTPSource creates an HTTP catalog source.
func NewHTTPSource(config HTTPSourceConfig) *HTTPSource {
	if config.URL == "" {
		config.URL = DefaultCatalogURL
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	return &HTTPSource{
		client: &http.Client{
			Timeout:   config.FetchTimeout,
			Transport: config.Transport,
		},
		config: config,
	}
}

// Fetch returns the raw catalog records.
// A fresh cached copy is returned without a request. Otherwise the document is
// fetched, conditionally if an ETag is known. Any failure yields a
// SourceUnavailable error.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.RawProduct, error) {
	s.mu.RLock()
	entry := s.entry
	s.mu.RUnlock()

	if entry != nil && entry.expiresAt.After(time.Now()) {
		return entry.records, nil
	}

	records, err := s.fetchFromNetwork(ctx, entry)
	if err != nil {
		return nil, model.NewSourceUnavailableError(err)
	}
	return records, nil
}

func (s *HTTPSource) fetchFromNetwork(ctx context.Context, stale *sourceEntry) ([]model.RawProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if stale != nil && stale.etag != "" {
		req.Header.Set("If-None-Match", stale.etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	// 304 Not Modified - cached document is still current
	if resp.StatusCode == http.StatusNotModified && stale != nil {
		s.store(stale.records, resp)
		return stale.records, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, s.config.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	records, err := DecodeDocument(body)
	if err != nil {
		return nil, err
	}

	s.store(records, resp)
	return records, nil
}

func (s *HTTPSource) store(records []model.RawProduct, resp *http.Response) {
	entry := &sourceEntry{
		records:   records,
		etag:      resp.Header.Get("ETag"),
		expiresAt: time.Now().Add(s.freshness(resp)),
	}
	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()
}

// freshness extracts max-age from Cache-Control, honoring no-cache and no-store.
func (s *HTTPSource) freshness(resp *http.Response) time.Duration {
	ttl := s.config.FreshFor
	cc := resp.Header.Get("Cache-Control")
	for _, directive := range strings.Split(cc, ",") {
		directive = strings.TrimSpace(directive)
		switch {
		case directive == "no-cache", directive == "no-store":
			return 0
		case strings.HasPrefix(directive, "max-age="):
			if seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age=")); err == nil && seconds >= 0 {
				ttl = time.Duration(seconds) * time.Second
			}
		}
	}
	return ttl
}

// Invalidate forgets the cached document so the next Fetch goes to the network.
func (s *HTTPSource) Invalidate() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
}
