package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"carbonaware/internal/database"
	"carbonaware/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Store is the read side of the database used by the handlers
type Store interface {
	GetRatings(ctx context.Context, location string, since time.Time) ([]models.StoredRating, error)
	GetAnomalies(ctx context.Context, location string, limit int) ([]models.Anomaly, error)
	GetAlarmSuggestions(ctx context.Context, location string, limit int) ([]models.AlarmSuggestion, error)
	GetAllLocations(ctx context.Context) ([]database.Location, error)
}

// Server represents the HTTP server
type Server struct {
	store  Store
	logger zerolog.Logger
	router chi.Router
	now    func() time.Time
}

// NewServer creates a new HTTP server
func NewServer(store Store, logger zerolog.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
		router: chi.NewRouter(),
		now:    time.Now,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(&s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	s.router.Get("/emissions", s.handleEmissions)
	s.router.Get("/anomalies", s.handleAnomalies)
	s.router.Get("/alarm-suggestions", s.handleAlarmSuggestions)
	s.router.Get("/locations", s.handleLocations)

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// handleEmissions returns stored ratings for a location
func (s *Server) handleEmissions(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		respondError(w, r, http.StatusBadRequest, "location is required")
		return
	}
	hours := intParam(r, "hours", 24)

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	ratings, err := s.store.GetRatings(r.Context(), location, since)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if ratings == nil {
		ratings = []models.StoredRating{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"location": location,
		"hours":    hours,
		"count":    len(ratings),
		"data":     ratings,
	})
}

// handleAnomalies returns detected anomalies
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		respondError(w, r, http.StatusBadRequest, "location is required")
		return
	}
	limit := intParam(r, "limit", 100)

	anomalies, err := s.store.GetAnomalies(r.Context(), location, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(anomalies),
		"anomalies": anomalies,
	})
}

// handleAlarmSuggestions returns alarm suggestions, optionally for one location
func (s *Server) handleAlarmSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 50)

	suggestions, err := s.store.GetAlarmSuggestions(r.Context(), r.URL.Query().Get("location"), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if suggestions == nil {
		suggestions = []models.AlarmSuggestion{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(suggestions),
		"suggestions": suggestions,
	})
}

// handleLocations returns the seeded locations
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.store.GetAllLocations(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if locations == nil {
		locations = []database.Location{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(locations),
		"locations": locations,
	})
}

// intParam reads a positive integer query parameter, falling back to def
func intParam(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if status >= 500 {
		event = logger.Error()
	}
	event.Int("status", status).Str("error_message", message).Msg("Request failed")

	respondJSON(w, status, map[string]string{
		"error":      message,
		"request_id": middleware.GetReqID(r.Context()),
	})
}
