package stubapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/isajjim/estimator/internal/storage"
)

// handleEvents streams the analysis job's progress. The job runs while the
// subscriber is connected; the result is stored before the completion event is
// written, so a GET issued after it always sees the analysed estimate.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	estimate, ok := s.estimateOrError(w, r)
	if !ok {
		return
	}
	if estimate.Status == storage.StatusCreated {
		writeError(w, http.StatusConflict, "DETAILS_MISSING", "submit details before subscribing")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	send := func(seq int, status string) bool {
		if s.opts.StepDelay > 0 {
			select {
			case <-r.Context().Done():
				return false
			case <-time.After(s.opts.StepDelay):
			}
		}
		if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, s.opts.EventName, status); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if estimate.Status == storage.StatusAnalyzing {
		for i, step := range s.opts.Steps {
			if !send(i+1, step) {
				slog.Info("Subscriber left before completion", "estimate_id", estimate.ID)
				return
			}
		}
		if _, err := s.store.Update(estimate.ID, func(e *storage.Estimate) error {
			if e.Status == storage.StatusAnalyzing {
				result := analyze(e.ImageURLs)
				e.Result = &result
				e.Status = storage.StatusAnalyzed
			}
			return nil
		}); err != nil {
			slog.Error("Failed to store analysis", "estimate_id", estimate.ID, "err", err)
			return
		}
	}

	send(len(s.opts.Steps)+1, s.opts.CompletionToken)
	slog.Info("Analysis completed", "estimate_id", estimate.ID)
}
