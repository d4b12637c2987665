// Package gst runs the GST_SUMMARY flow: look up a company's GST
// registration, optionally find its IndiaMART profile, and write a short
// company profile onto the application tracker.
package gst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"financial_underwriting/pkg/core/apperr"
	"financial_underwriting/pkg/core/ingest"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const detailsPath = "/master-india/get-gst-details"

// Details is the registration record returned by the GST details API.
type Details struct {
	GstNumber         string          `json:"gstNumber"`
	TradeName         string          `json:"tradeNameOfBusiness"`
	LegalName         string          `json:"legalNameOfBusiness"`
	Constitution      string          `json:"constitutionOfBusiness"`
	StateJurisdiction string          `json:"stateJurisdiction"`
	Status            string          `json:"status"`
	RegistrationDate  string          `json:"registrationDate"`
	NatureOfBusiness  stringList      `json:"natureOfBusinessActivities"`
	PrincipalPlace    json.RawMessage `json:"principalPlaceOfBusiness,omitempty"`
}

// Address renders the principal place of business, which the API sends
// either as a string or as an object of address parts.
func (d *Details) Address() string {
	if len(d.PrincipalPlace) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.PrincipalPlace, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts map[string]interface{}
	if err := json.Unmarshal(d.PrincipalPlace, &parts); err != nil {
		return ""
	}
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		if v, ok := parts[k].(string); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return strings.Join(out, ", ")
}

func (d *Details) empty() bool {
	return d.TradeName == "" && d.LegalName == "" && d.Status == ""
}

// stringList accepts a JSON string or array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*l = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s != "" {
		*l = stringList{s}
	} else {
		*l = nil
	}
	return nil
}

func (l stringList) String() string { return strings.Join(l, ", ") }

type ClientConfig struct {
	BaseURL    string
	AuthKey    string
	SourceName string
	// CreatedBy is recorded by the API against each lookup.
	CreatedBy  string
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client calls the GST details API. Successful lookups are cached per
// GSTIN.
type Client struct {
	cfg   ClientConfig
	http  *http.Client
	cache *cache.Cache
	log   *zap.Logger
}

func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.CreatedBy == "" {
		cfg.CreatedBy = cfg.SourceName
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:   cfg,
		http:  httpClient,
		cache: cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		log:   log,
	}
}

// Details returns the registration details for gstNumber.
func (c *Client) Details(ctx context.Context, gstNumber string) (*Details, error) {
	if c.cfg.BaseURL == "" {
		return nil, apperr.Validation("GST details API base URL is not configured")
	}
	if cached, found := c.cache.Get(gstNumber); found {
		return cached.(*Details), nil
	}

	payload, err := json.Marshal(map[string]string{"gstNumber": gstNumber, "createdBy": c.cfg.CreatedBy})
	if err != nil {
		return nil, apperr.Fetch(err, "encode GST details request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+detailsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Fetch(err, "build GST details request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ingest.UserAgent)
	req.Header.Set("x_source_name", c.cfg.SourceName)
	req.Header.Set("x_bizcon_auth", c.cfg.AuthKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Fetch(err, "GST details for %s", gstNumber)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Fetch(err, "read GST details for %s", gstNumber)
	}
	c.log.Debug("gst: details response", zap.String("gst", gstNumber), zap.Int("status", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Fetch(fmt.Errorf("status %d: %s", resp.StatusCode, apperr.Truncate(string(body), 200)), "GST details for %s", gstNumber)
	}

	var envelope struct {
		GstData *Details `json:"gstData"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperr.MalformedResponse(string(body), err)
	}
	if envelope.GstData == nil || envelope.GstData.empty() {
		return nil, apperr.NotFound("no GST registration data for %s", gstNumber)
	}
	d := envelope.GstData
	if d.GstNumber == "" {
		d.GstNumber = gstNumber
	}

	c.cache.Set(gstNumber, d, cache.DefaultExpiration)
	return d, nil
}
