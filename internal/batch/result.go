package batch

import "encoding/json"

// Result is the outcome for one symbol: either Data or Err is set.
type Result struct {
	Symbol string
	Data   json.RawMessage
	Err    string
	// Cached is set when Data came from the cache rather than this batch's fetch.
	Cached bool
	// Stale is set when Data is an expired entry served in corporate network mode.
	Stale bool
}

// Success reports whether the symbol resolved to data.
func (r Result) Success() bool { return r.Err == "" }

// MarshalJSON renders the upstream document on success and {"error": msg} otherwise.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Success() && len(r.Data) > 0 {
		return r.Data, nil
	}
	msg := r.Err
	if msg == "" {
		msg = "no data"
	}
	return json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
}

// AnyStale reports whether any result was served from an expired entry.
func AnyStale(results map[string]Result) bool {
	for _, r := range results {
		if r.Stale {
			return true
		}
	}
	return false
}
