package fred

import (
	"errors"
	"net/http"
	"net/url"
)

const baseURL = "https://api.stlouisfed.org/fred"

// ErrMissingAPIKey is returned by NewFREDClient when no key is given.
var ErrMissingAPIKey = errors.New("fred: missing api key")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=fred_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FREDClient is a client for the FRED series observations API.
type FREDClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// FREDClientOption is a configuration option for the FRED client.
type FREDClientOption func(*FREDClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) FREDClientOption {
	return func(c *FREDClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) FREDClientOption {
	return func(c *FREDClient) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) FREDClientOption {
	return func(c *FREDClient) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithQuery sets additional query parameters, e.g. limit or sort_order.
func WithQuery(query url.Values) FREDClientOption {
	return func(c *FREDClient) {
		for key, values := range query {
			for _, value := range values {
				if value != "" {
					c.query.Add(key, value)
				}
			}
		}
	}
}

// NewFREDClient creates a new FRED client.
func NewFREDClient(key string, options ...FREDClientOption) (*FREDClient, error) {
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	var client = &FREDClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	// https://fred.stlouisfed.org/docs/api/api_key.html
	client.query.Set("api_key", key)
	client.query.Set("file_type", "json")
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Name identifies the upstream in logs and cache keys.
func (c *FREDClient) Name() string { return "FRED" }
