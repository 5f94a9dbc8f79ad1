package fred

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"

	"econdash/internal/provider"
)

// maxBody bounds how much of an observations document is read.
const maxBody = 8 << 20

// observationsEnvelope is the part of the response validated before relaying.
type observationsEnvelope struct {
	Observations json.RawMessage `json:"observations"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

// Fetch retrieves the observations document for seriesID and returns it verbatim.
func (c *FREDClient) Fetch(ctx context.Context, seriesID string) (json.RawMessage, error) {
	query := maps.Clone(c.query)
	query.Set("series_id", seriesID)

	url := fmt.Sprintf("%s/series/observations?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
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

	case http.StatusBadRequest, http.StatusNotFound:
		// FRED reports unknown series as 400 with a JSON error message.
		var env observationsEnvelope
		if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&env); err == nil && env.ErrorMessage != "" {
			return nil, fmt.Errorf("series %s: %w: %s", seriesID, provider.ErrNotFound, env.ErrorMessage)
		}
		return nil, fmt.Errorf("series %s: %w", seriesID, provider.ErrNotFound)

	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited

	default:
		return nil, provider.ReadStatusError(res)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading observations response: %w", err)
	}

	var env observationsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding observations response: %w", err)
	}
	if env.ErrorMessage != "" {
		return nil, fmt.Errorf("series %s: %s", seriesID, env.ErrorMessage)
	}
	if len(env.Observations) == 0 || string(env.Observations) == "null" {
		return nil, errors.New("decoding observations response: missing observations")
	}

	return json.RawMessage(body), nil
}
