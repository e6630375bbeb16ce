package stubapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/isajjim/estimator/internal/models"
	"github.com/isajjim/estimator/internal/storage"
)

var (
	errNotAnalyzed      = errors.New("estimate has not been analyzed")
	errUnknownFurniture = errors.New("furniture not found")
)

func (s *Server) handleCreateEstimate(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURLs []string `json:"imageUrls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}
	if len(request.ImageURLs) == 0 {
		writeError(w, http.StatusBadRequest, "NO_IMAGES", "imageUrls is required")
		return
	}
	for _, u := range request.ImageURLs {
		if u == "" {
			writeError(w, http.StatusBadRequest, "INVALID_IMAGE_URL", "imageUrls must not contain empty values")
			return
		}
	}

	estimate := s.store.CreateEstimate(request.ImageURLs)
	slog.Info("Estimate created", "estimate_id", estimate.ID, "images", len(estimate.ImageURLs))
	writeData(w, map[string]int64{"estimateId": estimate.ID})
}

func (s *Server) handleSubmitDetails(w http.ResponseWriter, r *http.Request) {
	estimate, ok := s.estimateOrError(w, r)
	if !ok {
		return
	}

	var answers models.DetailAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}
	if err := answers.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DETAILS", err.Error())
		return
	}

	if _, err := s.store.Update(estimate.ID, func(e *storage.Estimate) error {
		e.Answers = &answers
		e.Status = storage.StatusAnalyzing
		e.Result = nil
		return nil
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "UPDATE_FAILED", err.Error())
		return
	}
	slog.Info("Details submitted", "estimate_id", estimate.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	estimate, ok := s.estimateOrError(w, r)
	if !ok {
		return
	}
	if estimate.Status != storage.StatusAnalyzed || estimate.Result == nil {
		writeError(w, http.StatusConflict, "NOT_ANALYZED", errNotAnalyzed.Error())
		return
	}
	writeData(w, estimate.Result)
}

func (s *Server) handleUpdateFurniture(w http.ResponseWriter, r *http.Request) {
	estimate, ok := s.estimateOrError(w, r)
	if !ok {
		return
	}

	var request struct {
		FurnitureID int64 `json:"furnitureId"`
		Quantity    *int  `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}
	if request.Quantity == nil || *request.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_QUANTITY", "quantity must be a non-negative integer")
		return
	}

	updated, err := s.store.Update(estimate.ID, func(e *storage.Estimate) error {
		if e.Status != storage.StatusAnalyzed || e.Result == nil {
			return errNotAnalyzed
		}
		if !e.Result.SetQuantity(request.FurnitureID, *request.Quantity) {
			return errUnknownFurniture
		}
		e.Result.Items = lineItems(e.Result.Images)
		return nil
	})
	switch {
	case errors.Is(err, errNotAnalyzed):
		writeError(w, http.StatusConflict, "NOT_ANALYZED", err.Error())
		return
	case errors.Is(err, errUnknownFurniture):
		writeError(w, http.StatusNotFound, "FURNITURE_NOT_FOUND", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "UPDATE_FAILED", err.Error())
		return
	}

	slog.Info("Furniture updated", "estimate_id", estimate.ID, "furniture_id", request.FurnitureID, "quantity", *request.Quantity)
	writeJSON(w, http.StatusOK, envelope{
		Code: "OK",
		Data: map[string][]models.LineItem{"items": updated.Result.Items},
	})
}
