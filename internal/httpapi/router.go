package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"campaign-alerts/internal/ads"
	"campaign-alerts/internal/alerting"
	"campaign-alerts/internal/service"
	"campaign-alerts/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	maxBodyBytes        = 1 << 20
)

// AlertService is the part of the service the API consumes.
type AlertService interface {
	GenerateAlerts(ctx context.Context, f ads.Filters) ([]alerting.Alert, error)
	Analytics(ctx context.Context, f ads.Filters) (service.Bundle, error)
	Resolve(ctx context.Context, ids ...string) error
	Reopen(ctx context.Context, ids ...string) error
	History(ctx context.Context, limit int) ([]storage.AlertRecord, error)
}

// Options configure the router.
type Options struct {
	Service AlertService
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger zerolog.Logger
}

type handler struct {
	svc    AlertService
	ready  func(ctx context.Context) error
	logger zerolog.Logger
}

// NewRouter builds the JSON API.
func NewRouter(opts Options) http.Handler {
	h := &handler{
		svc:    opts.Service,
		ready:  opts.Ready,
		logger: opts.Logger.With().Str("component", "http").Logger(),
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(accessLog(h.logger))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	mux.Get("/readyz", h.readyz)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	mux.Route("/api", func(r chi.Router) {
		r.Get("/alerts", h.alerts)
		r.Post("/alerts", h.alerts)
		r.Get("/alerts/history", h.history)
		r.Post("/alerts/resolve", h.resolveMany)
		r.Post("/alerts/{id}/resolve", h.resolve)
		r.Delete("/alerts/{id}/resolve", h.reopen)
		r.Get("/analytics", h.analytics)
		r.Post("/analytics", h.analytics)
	})

	return mux
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

type alertsResponse struct {
	Alerts  []alerting.Alert `json:"alerts"`
	Summary alerting.Summary `json:"summary"`
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	f, err := filtersFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	alerts, err := h.svc.GenerateAlerts(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts, Summary: alerting.Summarize(alerts)})
}

func (h *handler) analytics(w http.ResponseWriter, r *http.Request) {
	f, err := filtersFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bundle, err := h.svc.Analytics(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	records, err := h.svc.History(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if records == nil {
		records = []storage.AlertRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": records})
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Resolve(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": []string{id}})
}

func (h *handler) reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Reopen(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) resolveMany(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(body.IDs) == 0 {
		http.Error(w, "ids required", http.StatusBadRequest)
		return
	}
	if err := h.svc.Resolve(r.Context(), body.IDs...); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": body.IDs})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	h.logger.Error().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
	http.Error(w, err.Error(), status)
}

func alertID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || strings.TrimSpace(id) == "" {
		http.Error(w, "alert id required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// filtersFromRequest reads the FilterState from a JSON body on POST and from
// query parameters otherwise. List parameters accept repeats or commas.
func filtersFromRequest(r *http.Request) (ads.Filters, error) {
	var f ads.Filters
	if r.Method == http.MethodPost && r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&f); err != nil {
			return ads.Filters{}, errors.New("invalid json body")
		}
		return f, nil
	}

	q := r.URL.Query()
	f.StartDate = q.Get("startDate")
	f.EndDate = q.Get("endDate")
	f.Hotels = listParam(q, "hotel")
	f.Cities = listParam(q, "city")
	f.States = listParam(q, "state")
	f.Objectives = listParam(q, "objective")
	f.ResultTypes = listParam(q, "resultType")
	if raw := q.Get("compareYearAgo"); raw != "" {
		yoy, err := strconv.ParseBool(raw)
		if err != nil {
			return ads.Filters{}, errors.New("compareYearAgo must be a boolean")
		}
		f.CompareYearAgo = yoy
	}
	return f, nil
}

func listParam(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
