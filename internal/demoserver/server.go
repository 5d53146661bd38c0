// Package demoserver is an in-memory job backend that serves the status API
// mokuwatch polls. Jobs advance one stage per tick of a clock, so demos are
// lifelike and tests are deterministic.
package demoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/moku-watch/internal/demoserver/docs" // registers the Swagger doc
	"github.com/raysh454/moku-watch/internal/logging"
)

// @title Moku demo job backend
// @version 0.1
// @description In-memory scan jobs that advance on a timer, for exercising mokuwatch.
// @BasePath /

// Server is the HTTP + WebSocket surface of the demo backend.
type Server struct {
	cfg      Config
	store    *jobStore
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewDemoServer creates a demo server. Jobs do not advance until Run is
// called (or Step, in tests).
func NewDemoServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	r := chi.NewRouter()
	s := &Server{
		cfg:    cfg,
		store:  newJobStore(cfg.Clock.Now),
		router: r,
		logger: cfg.Logger.With(logging.Field{Key: "component", Value: "demoserver"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/jobs", s.optionsHandler("GET, POST"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET, DELETE"))

	r.Post("/jobs", s.handleCreateJob)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)

	r.Get("/ws/jobs/{jobID}", s.handleJobWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}
	s.logger.Debug("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Step advances every unfinished job by one stage.
func (s *Server) Step() int {
	moved := s.store.step()
	if moved > 0 {
		s.logger.Debug("advanced jobs", logging.Field{Key: "count", Value: moved})
	}
	return moved
}

// Run advances jobs once per StepInterval until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := s.cfg.Clock.NewTicker(s.cfg.StepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Step()
		}
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays 0 to allow WebSocket streaming.
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"job not found"`
}

// --- HTTP handlers ---

// handleCreateJob godoc
// @Summary Create a scan job
// @Tags jobs
// @Accept json
// @Produce json
// @Param body body CreateJobRequest true "Job definition"
// @Success 202 {object} jobstatus.Snapshot
// @Failure 400 {object} ErrorResponse
// @Router /jobs [post]
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var body CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding create job body", logging.Err(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}
	if body.FailAt < 0 {
		writeError(w, http.StatusBadRequest, "fail_at must not be negative")
		return
	}

	snap := s.store.create(body, s.cfg.DefaultTools)
	s.logger.Info("created job",
		logging.Field{Key: "job_id", Value: snap.JobID},
		logging.Field{Key: "target", Value: snap.Target},
		logging.Field{Key: "tools", Value: len(snap.Tools)})
	writeJSON(w, http.StatusAccepted, snap)
}

// handleListJobs godoc
// @Summary List scan jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} jobstatus.Snapshot
// @Router /jobs [get]
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.list())
}

// handleGetJob godoc
// @Summary Get job status
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job ID"
// @Success 200 {object} jobstatus.Snapshot
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap, err := s.store.get(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCancelJob godoc
// @Summary Cancel a job
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job ID"
// @Success 200 {object} jobstatus.Snapshot
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /jobs/{jobID} [delete]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap, err := s.store.cancel(jobID)
	switch {
	case errors.Is(err, ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, ErrJobFinished):
		writeError(w, http.StatusConflict, fmt.Sprintf("%s: %s", err, snap.Status))
		return
	}
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusOK, snap)
}

// handleJobWS streams every snapshot of one job until it is terminal.
func (s *Server) handleJobWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	updates, release, err := s.store.subscribe(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	defer release()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer conn.Close()

	// Detect client disconnects; reads are otherwise ignored.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("websocket write failed", logging.Field{Key: "job_id", Value: jobID}, logging.Err(err))
				return
			}
		}
	}
}

var _ http.Handler = (*Server)(nil)
