package yahoo

import (
	"net/http"
	"net/url"
)

const baseURL = "https://query1.finance.yahoo.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChartClient is a client for the Yahoo Finance chart API.
type ChartClient struct {
	baseURL    string
	httpClient HTTPClient
	header     http.Header
	interval   string
	rng        string
}

// ChartClientOption is a configuration option for the chart client.
type ChartClientOption func(*ChartClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ChartClientOption {
	return func(c *ChartClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ChartClientOption {
	return func(c *ChartClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ChartClientOption {
	return func(c *ChartClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithWindow sets the bar interval (e.g. 1d) and range (e.g. 1mo).
func WithWindow(interval, rng string) ChartClientOption {
	return func(c *ChartClient) {
		if interval != "" {
			c.interval = interval
		}
		if rng != "" {
			c.rng = rng
		}
	}
}

// NewChartClient creates a new chart client. Yahoo rejects requests without a
// browser-like User-Agent, so callers should pass one via WithHeader or an
// httpx.Client.
func NewChartClient(options ...ChartClientOption) *ChartClient {
	var client = &ChartClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		interval:   "1d",
		rng:        "1mo",
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Name identifies the upstream in logs and cache keys.
func (c *ChartClient) Name() string { return "Yahoo" }

func (c *ChartClient) chartURL(symbol string) string {
	q := url.Values{}
	q.Set("interval", c.interval)
	q.Set("range", c.rng)
	return c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()
}
