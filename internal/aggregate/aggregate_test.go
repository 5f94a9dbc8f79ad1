package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"econdash/internal/batch"
)

func TestFREDLatest_SkipsMissingAndSortsByDate(t *testing.T) {
	// Descending order as returned with sort_order=desc, with a missing value.
	raw := json.RawMessage(`{"observations":[
		{"date":"2024-12-01","value":"."},
		{"date":"2024-11-01","value":"4.2"},
		{"date":"2024-09-01","value":"4.1"},
		{"date":"2024-10-01","value":"4.1"}
	]}`)

	got, err := FREDLatest("UNRATE", raw)
	require.NoError(t, err)
	require.Equal(t, "UNRATE", got.Symbol)
	require.Equal(t, "FRED", got.Source)
	require.InDelta(t, 4.2, got.Value, 1e-9)
	require.NotNil(t, got.Previous)
	require.InDelta(t, 4.1, *got.Previous, 1e-9)
	require.InDelta(t, 0.1, *got.Change, 1e-9)
	require.InDelta(t, 0.1/4.1*100, *got.ChangePct, 1e-9)
	require.Equal(t, 3, got.Points)
	require.InDelta(t, (4.1+4.1+4.2)/3, got.Mean, 1e-9)
	require.Greater(t, got.StdDev, 0.0)
	require.Equal(t, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), got.AsOf)
}

func TestFREDLatest_SinglePoint(t *testing.T) {
	got, err := FREDLatest("GDP", json.RawMessage(`{"observations":[{"date":"2024-10-01","value":"29374.914"}]}`))
	require.NoError(t, err)
	require.Nil(t, got.Previous)
	require.Nil(t, got.Change)
	require.Zero(t, got.StdDev)
	require.InDelta(t, 29374.914, got.Mean, 1e-9)

	// Must encode without NaN.
	_, err = json.Marshal(got)
	require.NoError(t, err)
}

func TestFREDLatest_NoData(t *testing.T) {
	_, err := FREDLatest("GDP", json.RawMessage(`{"observations":[{"date":"2024-10-01","value":"."}]}`))
	require.ErrorIs(t, err, ErrNoData)

	_, err = FREDLatest("GDP", json.RawMessage(`not json`))
	require.ErrorContains(t, err, "decode observations")
}

func TestYahooLatest_MarketPriceAndPreviousClose(t *testing.T) {
	raw := json.RawMessage(`{"chart":{"result":[{
		"meta":{"currency":"USD","regularMarketPrice":230,"chartPreviousClose":220,"regularMarketTime":1735914600},
		"timestamp":[1735655400,1735741800,1735828200,1735914600],
		"indicators":{"quote":[{"close":[225,null,227.5,229.87]}]}
	}],"error":null}}`)

	got, err := YahooLatest("AAPL", raw)
	require.NoError(t, err)
	require.Equal(t, "Yahoo", got.Source)
	require.Equal(t, "USD", got.Currency)
	require.InDelta(t, 230, got.Value, 1e-9)
	require.InDelta(t, 227.5, *got.Previous, 1e-9)
	require.InDelta(t, 2.5, *got.Change, 1e-9)
	require.Equal(t, 3, got.Points)
	require.InDelta(t, (225+227.5+229.87)/3, got.Mean, 1e-9)
	require.Equal(t, time.Unix(1735914600, 0).UTC(), got.AsOf)
}

func TestYahooLatest_FallsBackToChartPreviousClose(t *testing.T) {
	raw := json.RawMessage(`{"chart":{"result":[{
		"meta":{"currency":"EUR","regularMarketPrice":0,"chartPreviousClose":100},
		"timestamp":[1735914600],
		"indicators":{"quote":[{"close":[110]}]}
	}]}}`)

	got, err := YahooLatest("SAP.DE", raw)
	require.NoError(t, err)
	require.InDelta(t, 110, got.Value, 1e-9)
	require.InDelta(t, 100, *got.Previous, 1e-9)
	require.InDelta(t, 10, *got.ChangePct, 1e-9)
	require.Equal(t, time.Unix(1735914600, 0).UTC(), got.AsOf)
}

func TestYahooLatest_NoData(t *testing.T) {
	_, err := YahooLatest("X", json.RawMessage(`{"chart":{"result":[]}}`))
	require.ErrorIs(t, err, ErrNoData)

	_, err = YahooLatest("X", json.RawMessage(`{"chart":{"result":[{"meta":{},"indicators":{"quote":[{"close":[null]}]}}]}}`))
	require.ErrorIs(t, err, ErrNoData)
}

func TestSummarize_IsolatesFailures(t *testing.T) {
	results := map[string]batch.Result{
		"UNRATE": {Symbol: "UNRATE", Data: json.RawMessage(`{"observations":[{"date":"2024-11-01","value":"4.2"}]}`)},
		"EMPTY":  {Symbol: "EMPTY", Data: json.RawMessage(`{"observations":[]}`)},
		"NOPE":   {Symbol: "NOPE", Err: "series NOPE: not found"},
	}

	cards := Summarize(results, FREDLatest)
	require.Len(t, cards, 3)
	require.NotNil(t, cards["UNRATE"].Latest)
	require.Equal(t, ErrNoData.Error(), cards["EMPTY"].Err)
	require.Equal(t, "series NOPE: not found", cards["NOPE"].Err)

	b, err := json.Marshal(map[string]Card{"NOPE": cards["NOPE"]})
	require.NoError(t, err)
	require.JSONEq(t, `{"NOPE":{"error":"series NOPE: not found"}}`, string(b))
}
