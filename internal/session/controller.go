package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/isajjim/estimator/internal/api"
	"github.com/isajjim/estimator/internal/models"
	"github.com/isajjim/estimator/internal/upload"
)

// Backend is the subset of the estimate API the controller drives.
type Backend interface {
	CreateEstimate(ctx context.Context, imageURLs []string) (int64, error)
	SubmitDetails(ctx context.Context, estimateID int64, answers models.DetailAnswers) error
	OpenEvents(ctx context.Context, estimateID int64) (*api.EventStream, error)
	GetEstimate(ctx context.Context, estimateID int64) (models.AnalysisResult, error)
	UpdateFurniture(ctx context.Context, estimateID, furnitureID int64, quantity int) ([]models.LineItem, error)
}

// Uploader turns picked images into uploaded ones.
type Uploader interface {
	Upload(ctx context.Context, picked []models.PickedImage) ([]models.UploadedImage, error)
}

// Options tune how analysis progress is read.
type Options struct {
	// EventName is the server-sent event name carrying analysis status.
	EventName string
	// CompletionToken is the status that marks the analysis as finished.
	CompletionToken string
}

const (
	DefaultEventName       = "sse"
	DefaultCompletionToken = "COMPLETED"
)

// Controller owns the single live estimate session. All state changes go
// through its methods; network calls run without holding the lock.
type Controller struct {
	backend  Backend
	uploader Uploader
	opts     Options

	mu    sync.Mutex
	state State
	// sub is the open analysis subscription, if any.
	sub *subscription
	// inFlight counts quantity updates awaiting a response; burstPrev is the
	// update status held before the first of them started.
	inFlight  int
	burstPrev models.UpdateStatus
}

type subscription struct {
	cancel context.CancelFunc
}

// NewController creates a controller with an empty session.
func NewController(backend Backend, uploader Uploader, opts Options) *Controller {
	if opts.EventName == "" {
		opts.EventName = DefaultEventName
	}
	if opts.CompletionToken == "" {
		opts.CompletionToken = DefaultCompletionToken
	}
	return &Controller{
		backend:  backend,
		uploader: uploader,
		opts:     opts,
		state:    newState(1),
	}
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Reset discards the session. Any open subscription is closed and every
// response still in flight will be dropped when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	slog.Debug("Session reset", "generation", c.state.Generation)
}

func (c *Controller) resetLocked() {
	if c.sub != nil {
		c.sub.cancel()
		c.sub = nil
	}
	c.inFlight = 0
	c.burstPrev = ""
	c.state = newState(c.state.Generation + 1)
}

// currentLocked reports whether a response tagged with gen and estimateID
// still belongs to the live session.
func (c *Controller) currentLocked(gen uint64, estimateID int64) bool {
	return c.state.Generation == gen && c.state.EstimateID == estimateID
}

// Upload uploads the picked images and records them on the session. It must
// run before the estimate is created.
func (c *Controller) Upload(ctx context.Context, picked []models.PickedImage) ([]models.UploadedImage, error) {
	c.mu.Lock()
	if c.state.EstimateID != 0 {
		c.mu.Unlock()
		return nil, validation("estimate %d already exists; reset the session to upload new photos", c.state.EstimateID)
	}
	gen := c.state.Generation
	c.mu.Unlock()

	uploaded, err := c.uploader.Upload(ctx, picked)
	if err != nil {
		if errors.Is(err, upload.ErrNoImages) {
			return nil, &Failure{Kind: KindValidation, Err: err}
		}
		slog.Error("Image upload failed", "count", len(picked), "error", err)
		return nil, &Failure{Kind: KindUpload, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, 0) {
		return nil, ErrSuperseded
	}
	c.state.Images = uploaded
	return append([]models.UploadedImage(nil), uploaded...), nil
}

// CreateEstimate registers the uploaded images with the backend. A session
// creates at most one estimate.
func (c *Controller) CreateEstimate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.state.EstimateID != 0 {
		id := c.state.EstimateID
		c.mu.Unlock()
		return 0, validation("estimate %d already exists for this session", id)
	}
	if len(c.state.Images) == 0 {
		c.mu.Unlock()
		return 0, validation("upload at least one photo before creating an estimate")
	}
	urls := make([]string, len(c.state.Images))
	for i, img := range c.state.Images {
		if img.RemoteURI == "" {
			c.mu.Unlock()
			return 0, validation("photo %d has not been uploaded", i)
		}
		urls[i] = img.RemoteURI
	}
	gen := c.state.Generation
	c.mu.Unlock()

	id, err := c.backend.CreateEstimate(ctx, urls)
	if err != nil {
		slog.Error("Estimate creation failed", "images", len(urls), "error", err)
		return 0, &Failure{Kind: KindCreate, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, 0) {
		return 0, ErrSuperseded
	}
	c.state.EstimateID = id
	slog.Info("Created estimate", "estimate_id", id, "images", len(urls))
	return id, nil
}

// Start uploads the picked images and creates the estimate for them.
func (c *Controller) Start(ctx context.Context, picked []models.PickedImage) (int64, error) {
	if _, err := c.Upload(ctx, picked); err != nil {
		return 0, err
	}
	return c.CreateEstimate(ctx)
}

// Resume replaces the session with one for an estimate that was already
// analysed, so its quantities can be reviewed again.
func (c *Controller) Resume(ctx context.Context, estimateID int64) (models.AnalysisResult, error) {
	if estimateID <= 0 {
		return models.AnalysisResult{}, validation("estimate id must be positive, got %d", estimateID)
	}

	c.mu.Lock()
	c.resetLocked()
	gen := c.state.Generation
	c.mu.Unlock()

	result, err := c.backend.GetEstimate(ctx, estimateID)
	if err != nil {
		return models.AnalysisResult{}, &Failure{Kind: KindStream, EstimateID: estimateID, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(gen, 0) {
		return models.AnalysisResult{}, ErrSuperseded
	}
	c.state.EstimateID = estimateID
	c.state.Result = &result
	c.state.Phase = models.PhaseReady
	slog.Info("Resumed estimate", "estimate_id", estimateID)
	return result.Clone(), nil
}
