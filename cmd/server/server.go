package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"econdash/internal/aggregate"
	"econdash/internal/batch"
	"econdash/internal/calendar"
	"econdash/internal/config"
	"econdash/internal/network"
)

const (
	defaultCalendarDays = 30
	maxCalendarDays     = 365
)

type server struct {
	fred    *batch.Coordinator
	yahoo   *batch.Coordinator
	mode    *network.Mode
	cal     *calendar.Calendar
	log     zerolog.Logger
	maxBody int64
	now     func() time.Time
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logRequests(s.log))
	r.Use(withCORS)
	r.Use(recoverPanic(s.log))
	r.Use(limitBody(s.maxBody))
	r.Use(middleware.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/fred", func(r chi.Router) {
			r.Get("/batch", s.handleBatch(s.fred, "FRED"))
			r.Post("/batch", s.handleBatch(s.fred, "FRED"))
			r.Get("/series/{id}", s.handleSingle(s.fred, "FRED", "id"))
		})
		r.Route("/yahoo", func(r chi.Router) {
			r.Get("/batch", s.handleBatch(s.yahoo, "Yahoo"))
			r.Post("/batch", s.handleBatch(s.yahoo, "Yahoo"))
			r.Get("/quote/{symbol}", s.handleSingle(s.yahoo, "Yahoo", "symbol"))
		})
		r.Get("/summary", s.handleSummary)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/network", s.handleGetNetwork)
		r.Post("/network", s.handleSetNetwork)
	})
	return r
}

type symbolsBody struct {
	Symbols []string `json:"symbols"`
}

func (s *server) handleBatch(co *batch.Coordinator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if co == nil {
			writeError(w, http.StatusServiceUnavailable, name+" upstream is disabled")
			return
		}

		var symbols []string
		if r.Method == http.MethodPost {
			var b symbolsBody
			if !decodeBody(w, r, &b) {
				return
			}
			symbols = b.Symbols
		} else {
			symbols = config.SplitCSV(r.URL.Query().Get("symbols"))
		}

		res, err := co.FetchAll(r.Context(), symbols)
		if err != nil {
			writeFetchError(w, err)
			return
		}
		if s.mode.Degraded() {
			w.Header().Set("X-Network-Mode", network.Corporate)
		}
		if batch.AnyStale(res) {
			w.Header().Set("X-Cache-Stale", "true")
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *server) handleSingle(co *batch.Coordinator, name, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if co == nil {
			writeError(w, http.StatusServiceUnavailable, name+" upstream is disabled")
			return
		}

		res, err := co.Fetch(r.Context(), chi.URLParam(r, param))
		if err != nil {
			writeFetchError(w, err)
			return
		}
		if !res.Success() {
			writeError(w, http.StatusBadGateway, res.Err)
			return
		}
		cacheState := "MISS"
		switch {
		case res.Stale:
			cacheState = "STALE"
		case res.Cached:
			cacheState = "HIT"
		}
		w.Header().Set("X-Cache", cacheState)
		writeJSON(w, http.StatusOK, res)
	}
}

type summaryResponse struct {
	FRED  map[string]aggregate.Card `json:"fred,omitempty"`
	Yahoo map[string]aggregate.Card `json:"yahoo,omitempty"`
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	fredSyms := config.SplitCSV(r.URL.Query().Get("fred"))
	yahooSyms := config.SplitCSV(r.URL.Query().Get("yahoo"))
	if len(fredSyms) == 0 && len(yahooSyms) == 0 {
		writeError(w, http.StatusBadRequest, "fred or yahoo symbols are required")
		return
	}
	if len(fredSyms) > 0 && s.fred == nil {
		writeError(w, http.StatusServiceUnavailable, "FRED upstream is disabled")
		return
	}
	if len(yahooSyms) > 0 && s.yahoo == nil {
		writeError(w, http.StatusServiceUnavailable, "Yahoo upstream is disabled")
		return
	}

	var resp summaryResponse
	var g errgroup.Group
	if len(fredSyms) > 0 {
		g.Go(func() error {
			res, err := s.fred.FetchAll(r.Context(), fredSyms)
			if err != nil {
				return err
			}
			resp.FRED = aggregate.Summarize(res, aggregate.FREDLatest)
			return nil
		})
	}
	if len(yahooSyms) > 0 {
		g.Go(func() error {
			res, err := s.yahoo.FetchAll(r.Context(), yahooSyms)
			if err != nil {
				return err
			}
			resp.Yahoo = aggregate.Summarize(res, aggregate.YahooLatest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type calendarResponse struct {
	From   string           `json:"from"`
	Days   int              `json:"days"`
	Events []calendar.Event `json:"events"`
}

func (s *server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	days := defaultCalendarDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCalendarDays {
			writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		days = n
	}
	from := s.now().UTC()
	events := s.cal.Upcoming(from, days)
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, calendarResponse{
		From:   from.Format(time.DateOnly),
		Days:   days,
		Events: events,
	})
}

type networkBody struct {
	Mode string `json:"mode"`
}

func (s *server) handleGetNetwork(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, networkBody{Mode: s.mode.String()})
}

func (s *server) handleSetNetwork(w http.ResponseWriter, r *http.Request) {
	var b networkBody
	if !decodeBody(w, r, &b) {
		return
	}
	prev := s.mode.String()
	if err := s.mode.Set(b.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cur := s.mode.String(); cur != prev {
		s.log.Info().Str("from", prev).Str("to", cur).Msg("network mode changed")
	}
	writeJSON(w, http.StatusOK, networkBody{Mode: s.mode.String()})
}

type healthResponse struct {
	Status  string `json:"status"`
	FRED    bool   `json:"fred"`
	Yahoo   bool   `json:"yahoo"`
	Network string `json:"network"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		FRED:    s.fred != nil,
		Yahoo:   s.yahoo != nil,
		Network: s.mode.String(),
	})
}

// decodeBody decodes a JSON POST body into v, writing a 4xx on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeFetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, batch.ErrNoSymbols) || errors.Is(err, batch.ErrTooManySymbols) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeInternal(w, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeInternal(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "internal server error",
		"details": err.Error(),
	})
}
