package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PolygonOptions configures a PolygonFetcher.
type PolygonOptions struct {
	BaseURL    string
	APIKey     string
	Unadjusted bool
	Sort       string
	Timeout    time.Duration // zero keeps the transport defaults
	Proxy      string
}

// PolygonFetcher implements Fetcher using the Polygon.io aggregates API.
type PolygonFetcher struct {
	BaseURL    string
	APIKey     string
	Unadjusted bool
	Sort       string
	Client     *http.Client
}

// NewPolygonFetcher creates a new fetcher with optional proxy support.
func NewPolygonFetcher(opts PolygonOptions) *PolygonFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &PolygonFetcher{
		BaseURL:    opts.BaseURL,
		APIKey:     opts.APIKey,
		Unadjusted: opts.Unadjusted,
		Sort:       opts.Sort,
		Client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
}

func (f *PolygonFetcher) Name() string { return "polygon" }

// AggregatesURL assembles {base}/{ticker}/range/{multiplier}/{timespan}/{from}/{to} with query parameters.
func (f *PolygonFetcher) AggregatesURL(req AggregatesRequest) (string, error) {
	base, err := url.Parse(strings.TrimRight(f.BaseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	rel := &url.URL{Path: fmt.Sprintf("%s/range/%d/%s/%s/%s",
		req.Ticker, req.Multiplier, req.Timespan,
		req.From.Format(DateLayout), req.To.Format(DateLayout))}
	u := base.ResolveReference(rel)

	q := u.Query()
	q.Set("apiKey", f.APIKey)
	q.Set("unadjusted", strconv.FormatBool(f.Unadjusted))
	q.Set("sort", f.Sort)
	q.Set("limit", strconv.Itoa(req.Limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchAggregates performs one GET and returns the status and body untouched.
func (f *PolygonFetcher) FetchAggregates(ctx context.Context, req AggregatesRequest) (*Response, error) {
	endpoint, err := f.AggregatesURL(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch aggregates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read aggregates body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
