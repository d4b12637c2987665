// Package ingest downloads source documents referenced by URL.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"financial_underwriting/pkg/core/apperr"
)

// UserAgent identifies the worker to document hosts.
const UserAgent = "financial-underwriting-worker/1.0"

// maxDocumentBytes caps a single download.
const maxDocumentBytes = 64 << 20

// Document is a fetched source file.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// HTTPFetcher downloads documents over HTTP(S).
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch downloads url. Transport errors, timeouts, non-2xx statuses and
// empty bodies are all Fetch errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperr.Fetch(nil, "empty document URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Fetch(err, "build request for %s", url)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Fetch(err, "timed out fetching %s", url)
		}
		return nil, apperr.Fetch(err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Fetch(fmt.Errorf("status %d", resp.StatusCode), "fetch %s", url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, apperr.Fetch(err, "read body of %s", url)
	}
	if len(body) == 0 {
		return nil, apperr.Fetch(nil, "empty body from %s", url)
	}
	if len(body) > maxDocumentBytes {
		return nil, apperr.Fetch(nil, "document %s exceeds %d bytes", url, maxDocumentBytes)
	}

	return &Document{
		URL:         url,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
