package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/isajjim/estimator/internal/models"
)

// SubmitDetails validates and sends the property details, waits for the
// analysis to report completion and fetches the finished result.
//
// Incomplete answers fail locally and leave the phase at COLLECTING_DETAILS.
// Any later failure moves the session to FAILED; calling SubmitDetails again
// restarts the sub-flow.
func (c *Controller) SubmitDetails(ctx context.Context, answers models.DetailAnswers) (models.AnalysisResult, error) {
	c.mu.Lock()
	estimateID := c.state.EstimateID
	if estimateID == 0 {
		c.mu.Unlock()
		return models.AnalysisResult{}, validation("create an estimate before submitting details")
	}
	switch c.state.Phase {
	case models.PhaseSubmitting, models.PhaseWaitingForAnalysis:
		c.mu.Unlock()
		return models.AnalysisResult{}, validation("details for estimate %d are already being analysed", estimateID)
	case models.PhaseReady:
		c.mu.Unlock()
		return models.AnalysisResult{}, validation("estimate %d has already been analysed", estimateID)
	case models.PhaseFailed:
		c.state.Phase = models.PhaseCollectingDetails
		c.state.LastError = nil
	}
	stored := answers
	c.state.Answers = &stored
	if err := answers.Validate(); err != nil {
		c.mu.Unlock()
		return models.AnalysisResult{}, &Failure{Kind: KindValidation, EstimateID: estimateID, Err: err}
	}
	c.state.Phase = models.PhaseSubmitting
	c.state.LastStatus = ""
	gen := c.state.Generation
	c.mu.Unlock()

	if err := c.backend.SubmitDetails(ctx, estimateID, answers); err != nil {
		return models.AnalysisResult{}, c.fail(gen, estimateID, KindSubmit, err)
	}
	slog.Info("Submitted details", "estimate_id", estimateID)

	if err := c.awaitCompletion(ctx, gen, estimateID); err != nil {
		return models.AnalysisResult{}, err
	}

	result, err := c.backend.GetEstimate(ctx, estimateID)
	if err != nil {
		return models.AnalysisResult{}, c.fail(gen, estimateID, KindStream, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, estimateID) {
		return models.AnalysisResult{}, ErrSuperseded
	}
	c.state.Result = &result
	c.state.Phase = models.PhaseReady
	c.state.Update = models.UpdatePrev
	slog.Info("Analysis ready", "estimate_id", estimateID, "images", len(result.Images), "items", len(result.Items))
	return result.Clone(), nil
}

// awaitCompletion holds one subscription open until the completion token
// arrives. Only the token ends the wait; every other status is informational.
func (c *Controller) awaitCompletion(ctx context.Context, gen uint64, estimateID int64) error {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel}
	defer c.release(sub)

	c.mu.Lock()
	if !c.currentLocked(gen, estimateID) {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.sub = sub
	c.mu.Unlock()

	stream, err := c.backend.OpenEvents(subCtx, estimateID)
	if err != nil {
		return c.fail(gen, estimateID, KindStream, err)
	}
	defer stream.Close()

	c.mu.Lock()
	if !c.currentLocked(gen, estimateID) {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state.Phase = models.PhaseWaitingForAnalysis
	c.mu.Unlock()
	slog.Info("Waiting for analysis", "estimate_id", estimateID)

	for ev, err := range stream.All() {
		if err != nil {
			return c.fail(gen, estimateID, KindStream, err)
		}
		if ev.Name != c.opts.EventName {
			continue
		}
		status := normalizeStatus(ev.Data)
		if status == c.opts.CompletionToken {
			slog.Info("Analysis completed", "estimate_id", estimateID)
			return nil
		}
		c.noteStatus(gen, estimateID, status)
	}
	return c.fail(gen, estimateID, KindStream, fmt.Errorf("event stream ended before %s", c.opts.CompletionToken))
}

func (c *Controller) noteStatus(gen uint64, estimateID int64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, estimateID) {
		return
	}
	c.state.LastStatus = status
	slog.Info("Analysis progress", "estimate_id", estimateID, "status", status)
}

// release closes the subscription and forgets it unless Reset already did.
func (c *Controller) release(sub *subscription) {
	sub.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == sub {
		c.sub = nil
	}
}

// fail records a failure on the live session. Failures of a superseded
// session are dropped.
func (c *Controller) fail(gen uint64, estimateID int64, kind Kind, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, estimateID) {
		slog.Debug("Dropping failure of superseded session", "estimate_id", estimateID, "error", err)
		return ErrSuperseded
	}
	failure := &Failure{Kind: kind, EstimateID: estimateID, Err: err}
	c.state.Phase = models.PhaseFailed
	c.state.LastError = failure
	slog.Error("Analysis failed", "estimate_id", estimateID, "kind", kind, "error", err)
	return failure
}

// normalizeStatus strips the whitespace and quotes some servers wrap event
// payloads in.
func normalizeStatus(data string) string {
	return strings.Trim(strings.TrimSpace(data), `"`)
}
