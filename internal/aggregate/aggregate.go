package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"econdash/internal/batch"
)

// Latest is the newest value of one series with its change against the prior
// point and simple statistics over the returned window.
type Latest struct {
	Symbol    string    `json:"symbol"`
	Source    string    `json:"source"`
	Value     float64   `json:"value"`
	Previous  *float64  `json:"previous,omitempty"`
	Change    *float64  `json:"change,omitempty"`
	ChangePct *float64  `json:"change_pct,omitempty"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"stddev"`
	Points    int       `json:"points"`
	Currency  string    `json:"currency,omitempty"`
	AsOf      time.Time `json:"as_of"`
}

// Parser turns one upstream document into a Latest.
type Parser func(symbol string, raw json.RawMessage) (Latest, error)

// ErrNoData is returned when a document holds no usable numeric points.
var ErrNoData = errors.New("no numeric observations")

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// FREDLatest parses a series observations document. FRED encodes missing
// values as "."; those points are skipped. Order of observations in the
// document does not matter.
func FREDLatest(symbol string, raw json.RawMessage) (Latest, error) {
	var doc fredObservations
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Latest{}, fmt.Errorf("decode observations: %w", err)
	}

	type point struct {
		date  time.Time
		value float64
	}
	points := make([]point, 0, len(doc.Observations))
	for _, o := range doc.Observations {
		v := strings.TrimSpace(o.Value)
		if v == "" || v == "." {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		d, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			continue
		}
		points = append(points, point{date: d, value: f})
	}
	if len(points) == 0 {
		return Latest{}, ErrNoData
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.value
	}
	out := build(symbol, "FRED", values)
	out.AsOf = points[len(points)-1].date
	return out, nil
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// YahooLatest parses a chart document. The market price in meta wins over the
// last close; null closes are skipped.
func YahooLatest(symbol string, raw json.RawMessage) (Latest, error) {
	var doc yahooChart
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Latest{}, fmt.Errorf("decode chart: %w", err)
	}
	if len(doc.Chart.Result) == 0 {
		return Latest{}, ErrNoData
	}
	r := doc.Chart.Result[0]

	var closes []float64
	var lastTS int64
	if len(r.Indicators.Quote) > 0 {
		for i, c := range r.Indicators.Quote[0].Close {
			if c == nil || math.IsNaN(*c) {
				continue
			}
			closes = append(closes, *c)
			if i < len(r.Timestamp) {
				lastTS = r.Timestamp[i]
			}
		}
	}

	price := r.Meta.RegularMarketPrice
	if price <= 0 {
		if len(closes) == 0 {
			return Latest{}, ErrNoData
		}
		price = closes[len(closes)-1]
	}

	// Previous: the close before the latest bar, else the close before the window.
	var values []float64
	switch {
	case len(closes) >= 2:
		values = append(closes[:len(closes)-1:len(closes)-1], price)
	case r.Meta.ChartPreviousClose > 0:
		values = []float64{r.Meta.ChartPreviousClose, price}
	default:
		values = []float64{price}
	}

	out := build(symbol, "Yahoo", values)
	out.Currency = r.Meta.Currency
	if len(closes) > 0 {
		out.Mean, out.StdDev = meanStd(closes)
		out.Points = len(closes)
	}
	ts := r.Meta.RegularMarketTime
	if ts == 0 {
		ts = lastTS
	}
	if ts > 0 {
		out.AsOf = time.Unix(ts, 0).UTC()
	}
	return out, nil
}

// build fills value, change, and statistics from ascending values.
func build(symbol, source string, values []float64) Latest {
	out := Latest{Symbol: symbol, Source: source, Value: values[len(values)-1], Points: len(values)}
	if len(values) >= 2 {
		prev := values[len(values)-2]
		change := out.Value - prev
		out.Previous = &prev
		out.Change = &change
		if prev != 0 {
			pct := change / math.Abs(prev) * 100
			out.ChangePct = &pct
		}
	}
	out.Mean, out.StdDev = meanStd(values)
	return out
}

func meanStd(values []float64) (float64, float64) {
	if len(values) < 2 {
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Card is the summary outcome for one symbol: Latest or an error.
type Card struct {
	Latest *Latest
	Err    string
}

func (c Card) MarshalJSON() ([]byte, error) {
	if c.Latest != nil {
		return json.Marshal(c.Latest)
	}
	return json.Marshal(struct {
		Error string `json:"error"`
	}{c.Err})
}

// Summarize parses every successful result; a failed fetch or a parse error
// becomes that symbol's error without affecting the others.
func Summarize(results map[string]batch.Result, parse Parser) map[string]Card {
	out := make(map[string]Card, len(results))
	for sym, r := range results {
		if !r.Success() {
			out[sym] = Card{Err: r.Err}
			continue
		}
		l, err := parse(sym, r.Data)
		if err != nil {
			out[sym] = Card{Err: err.Error()}
			continue
		}
		out[sym] = Card{Latest: &l}
	}
	return out
}
