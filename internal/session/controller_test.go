package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/isajjim/estimator/internal/api"
	"github.com/isajjim/estimator/internal/models"
	"github.com/isajjim/estimator/internal/upload"
)

const testEstimateID = 77

func ptr[T any](v T) *T { return &v }

func completeAnswers() models.DetailAnswers {
	return models.DetailAnswers{
		BuildingType:      ptr(models.BuildingApartment),
		RoomType:          ptr(models.RoomTwo),
		RoomSize:          ptr(models.Size20To25),
		Floor:             ptr(models.FloorFifth),
		HasElevator:       ptr(true),
		IsDuplex:          ptr(false),
		HasSeparateStairs: ptr(false),
		HasParking:        ptr(true),
		NeedsLadderTruck:  ptr(models.LadderNotRequired),
	}
}

func analysedResult() models.AnalysisResult {
	return models.AnalysisResult{
		Images: []models.ImageAnalysis{
			{ImageURL: "https://cdn/0", FurnitureList: []models.FurnitureItem{
				{FurnitureID: 101, Label: "BED", Type: "QUEEN_SIZE_BED", Quantity: 1},
				{FurnitureID: 102, Label: "DESK", Quantity: 2},
			}},
		},
		Items: []models.LineItem{
			{Category: models.CategoryTruck, ItemType: "1톤", Quantity: 1},
		},
	}
}

// fakeAPI is an httptest backend whose behaviour each test tunes.
type fakeAPI struct {
	createBody   string
	submitStatus int
	getStatus    int
	events       string
	holdStream   bool
	result       models.AnalysisResult
	furniture    func(furnitureID int64, quantity int) (int, string)
	gate         chan struct{}

	release chan struct{}

	creates, submits, subscribes, gets, furnitureCalls atomic.Int32

	mu          sync.Mutex
	createdWith []string
	calls       []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		createBody: fmt.Sprintf(`{"data":{"estimateId":%d}}`, testEstimateID),
		events:     sseEvents("sse", "analyzing", "analyzing", "COMPLETED"),
		result:     analysedResult(),
		furniture: func(int64, int) (int, string) {
			return http.StatusOK, `{"code":"OK","data":{"items":[{"category":"TRUCK","itemType":"1톤","quantity":2}]}}`
		},
		release: make(chan struct{}),
	}
}

func sseEvents(name string, statuses ...string) string {
	var b strings.Builder
	for _, s := range statuses {
		fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", name, s)
	}
	return b.String()
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callLog() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, ",")
}

func (f *fakeAPI) start(t *testing.T) *api.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/estimates", func(w http.ResponseWriter, r *http.Request) {
		f.creates.Add(1)
		f.record("create")
		var body struct {
			ImageURLs []string `json:"imageUrls"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.createdWith = body.ImageURLs
		f.mu.Unlock()
		io.WriteString(w, f.createBody)
	})
	mux.HandleFunc("PATCH /api/v1/estimates/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.submits.Add(1)
		f.record("submit")
		if f.submitStatus != 0 {
			w.WriteHeader(f.submitStatus)
		}
	})
	mux.HandleFunc("GET /api/v1/estimates/{id}/sse", func(w http.ResponseWriter, r *http.Request) {
		f.subscribes.Add(1)
		f.record("subscribe")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		if f.holdStream {
			select {
			case <-r.Context().Done():
			case <-f.release:
			}
			return
		}
		io.WriteString(w, f.events)
	})
	mux.HandleFunc("GET /api/v1/estimates/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.gets.Add(1)
		f.record("get")
		if f.getStatus != 0 {
			w.WriteHeader(f.getStatus)
			io.WriteString(w, `{"code":"ERROR","message":"estimate unavailable"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": f.result})
	})
	mux.HandleFunc("PATCH /api/v1/estimates/{id}/furniture", func(w http.ResponseWriter, r *http.Request) {
		f.furnitureCalls.Add(1)
		var body struct {
			FurnitureID int64 `json:"furnitureId"`
			Quantity    int   `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.gate != nil {
			select {
			case <-f.gate:
			case <-r.Context().Done():
				return
			case <-f.release:
			}
		}
		status, resp := f.furniture(body.FurnitureID, body.Quantity)
		w.WriteHeader(status)
		io.WriteString(w, resp)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(f.release) })
	return api.NewClient(ts.URL, 5*time.Second)
}

type fakeUploader struct {
	calls atomic.Int32
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, picked []models.PickedImage) ([]models.UploadedImage, error) {
	u.calls.Add(1)
	if len(picked) == 0 {
		return nil, upload.ErrNoImages
	}
	if u.err != nil {
		return nil, u.err
	}
	out := make([]models.UploadedImage, len(picked))
	for i, p := range picked {
		out[i] = models.UploadedImage{PickedImage: p, RemoteURI: fmt.Sprintf("https://cdn/%d", i)}
	}
	return out, nil
}

func pickedImages(n int) []models.PickedImage {
	out := make([]models.PickedImage, n)
	for i := range out {
		out[i] = models.PickedImage{Source: fmt.Sprintf("photo-%d.jpg", i), FileName: fmt.Sprintf("photo-%d.jpg", i), MimeType: "image/jpeg"}
	}
	return out
}

func newTestController(t *testing.T, f *fakeAPI) *Controller {
	t.Helper()
	return NewController(f.start(t), &fakeUploader{}, Options{})
}

// readyController drives a controller to READY with the default fake.
func readyController(t *testing.T, f *fakeAPI) *Controller {
	t.Helper()
	c := newTestController(t, f)
	ctx := context.Background()
	if _, err := c.Start(ctx, pickedImages(1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := c.SubmitDetails(ctx, completeAnswers()); err != nil {
		t.Fatalf("SubmitDetails failed: %v", err)
	}
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func quantityOf(t *testing.T, c *Controller, furnitureID int64) int {
	t.Helper()
	snap := c.Snapshot()
	if snap.Result == nil {
		t.Fatal("Expected an analysis result")
	}
	item, ok := snap.Result.Furniture(furnitureID)
	if !ok {
		t.Fatalf("Furniture %d not found", furnitureID)
	}
	return item.Quantity
}

func truckQuantity(t *testing.T, c *Controller) int {
	t.Helper()
	truck, ok := c.Snapshot().Result.Truck()
	if !ok {
		t.Fatal("Expected a truck line item")
	}
	return truck.Quantity
}

func TestStartCreatesEstimateFromUploadedURIs(t *testing.T) {
	f := newFakeAPI()
	c := newTestController(t, f)

	id, err := c.Start(context.Background(), pickedImages(2))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if id != testEstimateID {
		t.Errorf("Expected estimate %d, got %d", testEstimateID, id)
	}
	if got := strings.Join(f.createdWith, ","); got != "https://cdn/0,https://cdn/1" {
		t.Errorf("Estimate created with %s", got)
	}

	snap := c.Snapshot()
	if snap.EstimateID != testEstimateID || len(snap.Images) != 2 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if snap.Phase != models.PhaseCollectingDetails {
		t.Errorf("Expected phase %s, got %s", models.PhaseCollectingDetails, snap.Phase)
	}

	if _, err := c.CreateEstimate(context.Background()); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected recreating the estimate to be rejected, got %v", err)
	}
	if _, err := c.Upload(context.Background(), pickedImages(1)); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected uploading after creation to be rejected, got %v", err)
	}
	if got := f.creates.Load(); got != 1 {
		t.Errorf("Expected exactly one create call, got %d", got)
	}
}

func TestStartValidationAndFailures(t *testing.T) {
	tests := []struct {
		name        string
		images      int
		uploadErr   error
		createBody  string
		wantKind    Kind
		wantCreates int32
	}{
		{name: "no images", images: 0, wantKind: KindValidation},
		{name: "upload fails", images: 2, uploadErr: errors.New("PUT failed"), wantKind: KindUpload},
		{name: "create response without id", images: 1, createBody: `{"data":{}}`, wantKind: KindCreate, wantCreates: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI()
			if tt.createBody != "" {
				f.createBody = tt.createBody
			}
			c := NewController(f.start(t), &fakeUploader{err: tt.uploadErr}, Options{})

			_, err := c.Start(context.Background(), pickedImages(tt.images))
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("Expected a Failure, got %v", err)
			}
			if failure.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, failure.Kind)
			}
			if got := f.creates.Load(); got != tt.wantCreates {
				t.Errorf("Expected %d create calls, got %d", tt.wantCreates, got)
			}
			if c.Snapshot().EstimateID != 0 {
				t.Error("A failed start must not record an estimate")
			}
		})
	}
}

func TestCreateEstimateMissingIDWrapsSentinel(t *testing.T) {
	f := newFakeAPI()
	f.createBody = `{"data":{"estimateId":null}}`
	c := newTestController(t, f)

	_, err := c.Start(context.Background(), pickedImages(1))
	if !errors.Is(err, api.ErrMissingEstimateID) {
		t.Errorf("Expected ErrMissingEstimateID, got %v", err)
	}
}

func TestSubmitDetailsIncompleteMakesNoRequest(t *testing.T) {
	f := newFakeAPI()
	c := newTestController(t, f)
	if _, err := c.Start(context.Background(), pickedImages(1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	answers := completeAnswers()
	answers.HasParking = nil
	_, err := c.SubmitDetails(context.Background(), answers)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected a validation failure, got %v", err)
	}
	if !errors.Is(err, models.ErrIncompleteAnswers) {
		t.Errorf("Expected ErrIncompleteAnswers in the chain, got %v", err)
	}
	if got := f.submits.Load(); got != 0 {
		t.Errorf("Expected no network call, got %d submits", got)
	}
	if phase := c.Snapshot().Phase; phase != models.PhaseCollectingDetails {
		t.Errorf("Expected phase to stay %s, got %s", models.PhaseCollectingDetails, phase)
	}
}

func TestSubmitDetailsRequiresEstimate(t *testing.T) {
	f := newFakeAPI()
	c := newTestController(t, f)

	if _, err := c.SubmitDetails(context.Background(), completeAnswers()); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected a validation failure, got %v", err)
	}
	if got := f.submits.Load(); got != 0 {
		t.Errorf("Expected no submit call, got %d", got)
	}
}

func TestSubmitDetailsWaitsForCompletion(t *testing.T) {
	f := newFakeAPI()
	c := readyController(t, f)

	if got := f.gets.Load(); got != 1 {
		t.Errorf("Expected exactly one follow-up GET, got %d", got)
	}
	if got := f.callLog(); got != "create,submit,subscribe,get" {
		t.Errorf("Unexpected call order %s", got)
	}

	snap := c.Snapshot()
	if snap.Phase != models.PhaseReady {
		t.Errorf("Expected phase %s, got %s", models.PhaseReady, snap.Phase)
	}
	if snap.LastStatus != "analyzing" {
		t.Errorf("Expected last status 'analyzing', got %q", snap.LastStatus)
	}
	if snap.Answers == nil || *snap.Answers.Floor != models.FloorFifth {
		t.Errorf("Expected answers to be recorded, got %+v", snap.Answers)
	}
	if _, ok := snap.Result.Furniture(101); !ok {
		t.Error("Expected the fetched result in the snapshot")
	}

	if _, err := c.SubmitDetails(context.Background(), completeAnswers()); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected resubmitting a ready estimate to be rejected, got %v", err)
	}
}

func TestSubmitDetailsOnlyCompletesOnToken(t *testing.T) {
	f := newFakeAPI()
	f.events = sseEvents("progress", "COMPLETED") +
		"data: COMPLETED\n\n" +
		sseEvents("sse", "COMPLETED_PARTIALLY", ` "COMPLETED" `)
	c := readyController(t, f)

	snap := c.Snapshot()
	if snap.Phase != models.PhaseReady {
		t.Fatalf("Expected phase %s, got %s", models.PhaseReady, snap.Phase)
	}
	if snap.LastStatus != "COMPLETED_PARTIALLY" {
		t.Errorf("Expected only same-named events to be read, last status %q", snap.LastStatus)
	}
}

func TestSubmitDetailsCustomEventName(t *testing.T) {
	f := newFakeAPI()
	f.events = sseEvents("sse", "DONE") + sseEvents("analysis", "working", "DONE")
	c := NewController(f.start(t), &fakeUploader{}, Options{EventName: "analysis", CompletionToken: "DONE"})

	if _, err := c.Start(context.Background(), pickedImages(1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := c.SubmitDetails(context.Background(), completeAnswers()); err != nil {
		t.Fatalf("SubmitDetails failed: %v", err)
	}
	if got := c.Snapshot().LastStatus; got != "working" {
		t.Errorf("Expected last status 'working', got %q", got)
	}
}

func TestSubmitDetailsFailures(t *testing.T) {
	tests := []struct {
		name           string
		submitStatus   int
		getStatus      int
		events         string
		wantKind       Kind
		wantSubscribes int32
		wantGets       int32
	}{
		{name: "detail PATCH rejected", submitStatus: http.StatusInternalServerError, wantKind: KindSubmit},
		{name: "stream ends without completion", events: sseEvents("sse", "analyzing"), wantKind: KindStream, wantSubscribes: 1},
		{name: "stream closes immediately", events: "", wantKind: KindStream, wantSubscribes: 1},
		{name: "follow-up GET fails", getStatus: http.StatusInternalServerError, events: sseEvents("sse", "analyzing", "COMPLETED"), wantKind: KindStream, wantSubscribes: 1, wantGets: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI()
			f.submitStatus = tt.submitStatus
			f.getStatus = tt.getStatus
			f.events = tt.events
			c := newTestController(t, f)
			if _, err := c.Start(context.Background(), pickedImages(1)); err != nil {
				t.Fatalf("Start failed: %v", err)
			}

			_, err := c.SubmitDetails(context.Background(), completeAnswers())
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("Expected a Failure, got %v", err)
			}
			if failure.Kind != tt.wantKind || failure.EstimateID != testEstimateID {
				t.Errorf("Unexpected failure %+v", failure)
			}

			snap := c.Snapshot()
			if snap.Phase != models.PhaseFailed {
				t.Errorf("Expected phase %s, got %s", models.PhaseFailed, snap.Phase)
			}
			if snap.Result != nil {
				t.Error("A failed analysis must not carry a result")
			}
			if got := f.subscribes.Load(); got != tt.wantSubscribes {
				t.Errorf("Expected %d subscriptions, got %d", tt.wantSubscribes, got)
			}
			if got := f.gets.Load(); got != tt.wantGets {
				t.Errorf("Expected %d GETs, got %d", tt.wantGets, got)
			}
		})
	}
}

func TestSubmitDetailsRetriesAfterFailure(t *testing.T) {
	f := newFakeAPI()
	f.events = sseEvents("sse", "analyzing")
	c := newTestController(t, f)
	ctx := context.Background()
	if _, err := c.Start(ctx, pickedImages(1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := c.SubmitDetails(ctx, completeAnswers()); err == nil {
		t.Fatal("Expected the first attempt to fail")
	}

	f.events = sseEvents("sse", "COMPLETED")
	if _, err := c.SubmitDetails(ctx, completeAnswers()); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if got := f.submits.Load(); got != 2 {
		t.Errorf("Expected the details to be sent twice, got %d", got)
	}
	snap := c.Snapshot()
	if snap.Phase != models.PhaseReady || snap.LastError != nil {
		t.Errorf("Expected a clean READY session, got phase %s error %v", snap.Phase, snap.LastError)
	}
}

func TestResetDiscardsLateAnalysis(t *testing.T) {
	f := newFakeAPI()
	f.holdStream = true
	c := newTestController(t, f)
	if _, err := c.Start(context.Background(), pickedImages(1)); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.SubmitDetails(context.Background(), completeAnswers())
		done <- err
	}()
	waitFor(t, "the subscription", func() bool { return f.subscribes.Load() == 1 })

	c.Reset()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("Expected ErrSuperseded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Reset did not close the subscription")
	}

	snap := c.Snapshot()
	if snap.EstimateID != 0 || snap.Result != nil || snap.Phase != models.PhaseCollectingDetails {
		t.Errorf("Expected a fresh session, got %+v", snap)
	}
	if got := f.gets.Load(); got != 0 {
		t.Errorf("Expected no GET for a superseded session, got %d", got)
	}
}

func TestAdjustAppliesOptimisticallyThenReconciles(t *testing.T) {
	f := newFakeAPI()
	f.gate = make(chan struct{})
	c := readyController(t, f)

	done := make(chan error, 1)
	go func() { done <- c.Adjust(context.Background(), 101, 3) }()
	waitFor(t, "the furniture PATCH", func() bool { return f.furnitureCalls.Load() == 1 })

	if got := quantityOf(t, c, 101); got != 3 {
		t.Errorf("Expected optimistic quantity 3 before the response, got %d", got)
	}
	if got := c.Snapshot().Update; got != models.UpdateUpdating {
		t.Errorf("Expected status %s while in flight, got %s", models.UpdateUpdating, got)
	}
	if got := truckQuantity(t, c); got != 1 {
		t.Errorf("Aggregates must not change before the response, got truck quantity %d", got)
	}

	f.gate <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	if got := quantityOf(t, c, 101); got != 3 {
		t.Errorf("Expected quantity 3 after reconciling, got %d", got)
	}
	if got := quantityOf(t, c, 102); got != 2 {
		t.Errorf("Other items must be untouched, got %d", got)
	}
	if got := truckQuantity(t, c); got != 2 {
		t.Errorf("Expected truck quantity 2 from the server, got %d", got)
	}
	if got := c.Snapshot().Update; got != models.UpdateDone {
		t.Errorf("Expected status %s, got %s", models.UpdateDone, got)
	}
}

func TestAdjustFailureKeepsOptimisticQuantity(t *testing.T) {
	f := newFakeAPI()
	f.furniture = func(int64, int) (int, string) {
		return http.StatusOK, `{"code":"FAIL","message":"recalculation failed"}`
	}
	c := readyController(t, f)

	err := c.Adjust(context.Background(), 101, 3)
	var failure *Failure
	if !errors.As(err, &failure) || failure.Kind != KindAdjustment {
		t.Fatalf("Expected an adjustment failure, got %v", err)
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "FAIL" {
		t.Errorf("Expected the server code in the chain, got %v", err)
	}

	snap := c.Snapshot()
	if snap.Update != models.UpdatePrev {
		t.Errorf("Expected status to revert to %s, got %s", models.UpdatePrev, snap.Update)
	}
	if got := quantityOf(t, c, 101); got != 3 {
		t.Errorf("Expected the optimistic quantity 3 to stay, got %d", got)
	}
	if got := truckQuantity(t, c); got != 1 {
		t.Errorf("Expected aggregates untouched, got truck quantity %d", got)
	}
}

func TestAdjustFailureAfterSuccessRevertsToDone(t *testing.T) {
	f := newFakeAPI()
	c := readyController(t, f)
	if err := c.Adjust(context.Background(), 101, 2); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	f.furniture = func(int64, int) (int, string) {
		return http.StatusInternalServerError, `{}`
	}
	if err := c.Adjust(context.Background(), 102, 5); err == nil {
		t.Fatal("Expected the second adjustment to fail")
	}
	if got := c.Snapshot().Update; got != models.UpdateDone {
		t.Errorf("Expected status to revert to %s, got %s", models.UpdateDone, got)
	}
}

func TestAdjustIsIdempotent(t *testing.T) {
	f := newFakeAPI()
	c := readyController(t, f)

	for range 2 {
		if err := c.Adjust(context.Background(), 102, 4); err != nil {
			t.Fatalf("Adjust failed: %v", err)
		}
	}
	if got := quantityOf(t, c, 102); got != 4 {
		t.Errorf("Expected quantity 4, got %d", got)
	}
	if got := f.furnitureCalls.Load(); got != 2 {
		t.Errorf("Expected each adjustment to reach the server, got %d", got)
	}
}

func TestAdjustValidation(t *testing.T) {
	f := newFakeAPI()
	c := newTestController(t, f)
	if err := c.Adjust(context.Background(), 101, 1); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected adjusting before analysis to be rejected, got %v", err)
	}

	ready := newFakeAPI()
	c = readyController(t, ready)
	tests := []struct {
		name        string
		furnitureID int64
		quantity    int
	}{
		{name: "negative quantity", furnitureID: 101, quantity: -1},
		{name: "unknown furniture", furnitureID: 999, quantity: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Adjust(context.Background(), tt.furnitureID, tt.quantity); !errors.Is(err, ErrValidation) {
				t.Errorf("Expected a validation failure, got %v", err)
			}
			if got := c.Snapshot().Update; got != models.UpdatePrev {
				t.Errorf("Rejected input must not touch the status, got %s", got)
			}
		})
	}
	if got := f.furnitureCalls.Load() + ready.furnitureCalls.Load(); got != 0 {
		t.Errorf("Expected no furniture calls, got %d", got)
	}
}

func TestOverlappingAdjustments(t *testing.T) {
	f := newFakeAPI()
	f.gate = make(chan struct{})
	c := readyController(t, f)

	done := make(chan error, 2)
	go func() { done <- c.Adjust(context.Background(), 101, 3) }()
	go func() { done <- c.Adjust(context.Background(), 102, 1) }()
	waitFor(t, "both PATCHes", func() bool { return f.furnitureCalls.Load() == 2 })

	f.gate <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("First adjustment failed: %v", err)
	}
	if got := c.Snapshot().Update; got != models.UpdateUpdating {
		t.Errorf("Expected %s while one adjustment is still pending, got %s", models.UpdateUpdating, got)
	}

	f.gate <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("Second adjustment failed: %v", err)
	}
	if got := c.Snapshot().Update; got != models.UpdateDone {
		t.Errorf("Expected %s once both settled, got %s", models.UpdateDone, got)
	}
	if quantityOf(t, c, 101) != 3 || quantityOf(t, c, 102) != 1 {
		t.Error("Expected both optimistic quantities to be kept")
	}
}

func TestResetDiscardsLateAdjustment(t *testing.T) {
	f := newFakeAPI()
	f.gate = make(chan struct{})
	c := readyController(t, f)

	done := make(chan error, 1)
	go func() { done <- c.Adjust(context.Background(), 101, 3) }()
	waitFor(t, "the furniture PATCH", func() bool { return f.furnitureCalls.Load() == 1 })

	c.Reset()
	f.gate <- struct{}{}

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("Expected ErrSuperseded, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Result != nil || snap.Update != models.UpdatePrev {
		t.Errorf("Late response leaked into the new session: %+v", snap)
	}
}

func TestResume(t *testing.T) {
	f := newFakeAPI()
	c := newTestController(t, f)

	result, err := c.Resume(context.Background(), 12)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if len(result.Images) != 1 {
		t.Errorf("Expected the fetched result, got %+v", result)
	}
	snap := c.Snapshot()
	if snap.EstimateID != 12 || snap.Phase != models.PhaseReady {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if err := c.Adjust(context.Background(), 101, 2); err != nil {
		t.Errorf("Adjust after resume failed: %v", err)
	}

	if _, err := c.Resume(context.Background(), 0); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected a validation failure for id 0, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := readyController(t, newFakeAPI())

	snap := c.Snapshot()
	snap.Result.SetQuantity(101, 50)
	snap.Images[0].RemoteURI = "changed"

	if got := quantityOf(t, c, 101); got != 1 {
		t.Errorf("Snapshot shares furniture with the session, got %d", got)
	}
	if got := c.Snapshot().Images[0].RemoteURI; got == "changed" {
		t.Error("Snapshot shares images with the session")
	}
}

func TestFailureUserMessage(t *testing.T) {
	tests := []struct {
		failure *Failure
		want    string
	}{
		{&Failure{Kind: KindValidation, Err: errors.New("pick a floor")}, "pick a floor"},
		{&Failure{Kind: KindUpload, Err: errors.New("x")}, "Uploading the photos failed"},
		{&Failure{Kind: KindAdjustment, Err: errors.New("x")}, "could not be saved"},
	}

	for _, tt := range tests {
		t.Run(string(tt.failure.Kind), func(t *testing.T) {
			if got := tt.failure.UserMessage(); !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}

	err := error(&Failure{Kind: KindSubmit, EstimateID: 5, Err: errors.New("boom")})
	if errors.Is(err, ErrValidation) {
		t.Error("Only validation failures match ErrValidation")
	}
	if !strings.Contains(err.Error(), "estimate 5") {
		t.Errorf("Expected the estimate id in %q", err.Error())
	}
}
