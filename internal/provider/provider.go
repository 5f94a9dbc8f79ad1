package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Fetcher retrieves the upstream JSON document for a single symbol or series.
// Implementations relay the upstream body verbatim on success.
//
//go:generate mockgen -package=batch_test -destination=../batch/mock_fetcher_test.go -source=provider.go Fetcher
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (json.RawMessage, error)
}

var (
	// ErrNotFound reports an unknown symbol or series.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited reports an upstream 429.
	ErrRateLimited = errors.New("rate limited")
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

// ReadStatusError captures a short excerpt of a failed response body.
func ReadStatusError(res *http.Response) *StatusError {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
	return &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(b))}
}
