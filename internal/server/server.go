// Package server exposes the classifier over an HTML form and a JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/NewsSort/internal/classifier"
	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/observability"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// EmptyHeadlineMessage is shown when the form is submitted blank.
const EmptyHeadlineMessage = "Please enter a valid news headline."

// maxBodySize bounds request bodies on the predict endpoints.
const maxBodySize = 64 * 1024

// Server serves predictions from a trained model.
type Server struct {
	mux     *http.ServeMux
	port    int
	model   classifier.Model
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewServer creates a server for model. The metrics endpoint is mounted
// when cfg.Metrics.Enabled is set.
func NewServer(cfg *config.Config, model classifier.Model, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	s := &Server{
		mux:     http.NewServeMux(),
		port:    cfg.Server.Port,
		model:   model,
		metrics: metrics,
		logger:  logger.With("component", "server"),
	}
	s.registerRoutes(cfg.Metrics)
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr, "model", s.model.Kind())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mc config.MetricsConfig) {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /classify", s.handleClassify)

	s.mux.HandleFunc("POST /api/predict", s.handlePredict)
	s.mux.HandleFunc("GET /api/labels", s.handleLabels)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if mc.Enabled {
		path := mc.Path
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, s.metrics)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, formView{})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		s.renderForm(w, http.StatusBadRequest, formView{Error: "Could not read the form."})
		return
	}

	view := formView{Headline: r.PostFormValue("headline")}
	p, err := s.predict(r.Context(), view.Headline)
	switch {
	case errors.Is(err, types.ErrEmptyHeadline):
		view.Error = EmptyHeadlineMessage
	case err != nil:
		view.Error = "Prediction failed: " + err.Error()
	default:
		view.Prediction = &p
	}
	s.renderForm(w, http.StatusOK, view)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	p, err := s.predict(r.Context(), body.Text)
	switch {
	case errors.Is(err, types.ErrEmptyHeadline):
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": EmptyHeadlineMessage})
	case errors.Is(err, types.ErrUnknownLabel):
		s.jsonResponse(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case err != nil:
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		s.jsonResponse(w, http.StatusOK, p)
	}
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"kind":   s.model.Kind(),
		"labels": s.model.Labels(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
		"model":   s.model.Kind(),
	})
}

func (s *Server) predict(ctx context.Context, text string) (classifier.Prediction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.PredictionErrors.Add(1)
		return classifier.Prediction{}, types.ErrEmptyHeadline
	}

	p, err := s.model.Predict(ctx, text)
	if err != nil {
		s.metrics.PredictionErrors.Add(1)
		s.logger.Warn("prediction failed", "error", err)
		return classifier.Prediction{}, err
	}
	s.metrics.Predictions.Add(1)
	s.logger.Debug("prediction", "label", p.Label, "confidence", p.Confidence)
	return p, nil
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
