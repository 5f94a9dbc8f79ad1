package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"econdash/internal/provider"
)

const maxBody = 8 << 20

// chartEnvelope is the part of a chart response validated before relaying.
type chartEnvelope struct {
	Chart struct {
		Result []json.RawMessage `json:"result"`
		Error  *chartError       `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch retrieves the chart document for symbol and returns it verbatim.
func (c *ChartClient) Fetch(ctx context.Context, symbol string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.chartURL(symbol), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusNotFound:
		return nil, fmt.Errorf("symbol %s: %w", symbol, provider.ErrNotFound)

	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited

	default:
		return nil, provider.ReadStatusError(res)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading chart response: %w", err)
	}

	var env chartEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if e := env.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("symbol %s: %w: %s", symbol, provider.ErrNotFound, e.Description)
		}
		return nil, fmt.Errorf("symbol %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(env.Chart.Result) == 0 {
		return nil, errors.New("decoding chart response: empty result")
	}

	return json.RawMessage(body), nil
}
