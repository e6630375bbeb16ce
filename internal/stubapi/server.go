// Package stubapi serves the estimate HTTP contract from memory. It stands in
// for the real backend in local demos and tests.
package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/isajjim/estimator/internal/storage"
)

// Options configure the simulated analysis job.
type Options struct {
	// PublicURL is the base URL presigned slots point at. When empty the
	// request's Host is used.
	PublicURL string
	// Steps are the progress statuses emitted before completion.
	Steps []string
	// StepDelay is the pause before each event.
	StepDelay time.Duration
	// EventName names the status events.
	EventName string
	// CompletionToken is the final status.
	CompletionToken string
}

// DefaultSteps is the progress sequence reported by the analysis job.
var DefaultSteps = []string{"QUEUED", "DETECTING", "COUNTING"}

type Server struct {
	store *storage.Store
	opts  Options
}

func New(opts Options) *Server {
	if opts.Steps == nil {
		opts.Steps = DefaultSteps
	}
	if opts.EventName == "" {
		opts.EventName = "sse"
	}
	if opts.CompletionToken == "" {
		opts.CompletionToken = "COMPLETED"
	}
	return &Server{store: storage.New(), opts: opts}
}

// Store exposes the backing store so callers can inspect uploaded objects and
// estimates.
func (s *Server) Store() *storage.Store {
	return s.store
}

// Router returns the handler for every endpoint of the contract.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/gcs/presigned", s.handlePresign)
	mux.HandleFunc("PUT /objects/{key...}", s.handlePutObject)
	mux.HandleFunc("GET /objects/{key...}", s.handleGetObject)
	mux.HandleFunc("POST /api/v1/estimates", s.handleCreateEstimate)
	mux.HandleFunc("GET /api/v1/estimates/{id}", s.handleGetEstimate)
	mux.HandleFunc("PATCH /api/v1/estimates/{id}", s.handleSubmitDetails)
	mux.HandleFunc("GET /api/v1/estimates/{id}/sse", s.handleEvents)
	mux.HandleFunc("PATCH /api/v1/estimates/{id}/furniture", s.handleUpdateFurniture)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

type envelope struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Response helpers
func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	slog.Warn("Request rejected", "status", status, "code", code, "message", message)
	writeJSON(w, status, envelope{Code: code, Message: message})
}

// Estimate helpers
func (s *Server) estimateOrError(w http.ResponseWriter, r *http.Request) (*storage.Estimate, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "estimate id must be an integer")
		return nil, false
	}
	estimate, exists := s.store.Get(id)
	if !exists {
		writeError(w, http.StatusNotFound, "ESTIMATE_NOT_FOUND", "estimate not found")
		return nil, false
	}
	return estimate, true
}
