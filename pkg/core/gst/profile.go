package gst

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/ingest"

	"github.com/PuerkitoBio/goquery"
)

const profileHost = "indiamart.com"

// ProfileFinder looks up a company's IndiaMART page through a web search
// results page.
type ProfileFinder struct {
	searchURL string
	http      *http.Client
}

// NewProfileFinder searches searchURL (for example https://www.bing.com/search).
// An empty searchURL disables the lookup.
func NewProfileFinder(searchURL string, timeout time.Duration) *ProfileFinder {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ProfileFinder{searchURL: searchURL, http: &http.Client{Timeout: timeout}}
}

// Find returns the first IndiaMART link in the results for the GSTIN, or
// "" when there is none.
func (f *ProfileFinder) Find(ctx context.Context, gstNumber string) (string, error) {
	if f == nil || f.searchURL == "" {
		return "", nil
	}
	u, err := url.Parse(f.searchURL)
	if err != nil {
		return "", apperr.Fetch(err, "parse search URL")
	}
	q := u.Query()
	q.Set("q", gstNumber+" indiamart")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", apperr.Fetch(err, "build search request")
	}
	req.Header.Set("User-Agent", ingest.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.http.Do(req)
	if err != nil {
		return "", apperr.Fetch(err, "search for %s", gstNumber)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Fetch(nil, "search for %s: status %d", gstNumber, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", apperr.Fetch(err, "parse search results")
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if isProfileLink(href) {
			found = href
			return false
		}
		return true
	})
	return found, nil
}

func isProfileLink(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == profileHost || strings.HasSuffix(host, "."+profileHost)
}
