package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/isajjim/estimator/internal/models"
)

// CodeOK is the envelope code the furniture endpoint returns on success.
const CodeOK = "OK"

// ErrMissingEstimateID is returned when estimate creation succeeds at the HTTP
// level but the response carries no usable id.
var ErrMissingEstimateID = errors.New("estimate id missing from response")

// Client calls the estimate backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; the analysis job may run for minutes.
	streamClient *http.Client
}

// APIError represents a non-success backend response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// NewClient constructs a backend client. A zero timeout falls back to 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// UploadSlot is one presigned upload target plus the URI the object will be
// readable at once written.
type UploadSlot struct {
	PresignedURL string `json:"presignedUrl"`
	FileURL      string `json:"fileUrl"`
	Key          string `json:"key"`
}

type envelope struct {
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// RequestUploadSlots asks for one presigned slot per file name, in order.
func (c *Client) RequestUploadSlots(ctx context.Context, fileNames []string) ([]UploadSlot, error) {
	var data struct {
		URLs []UploadSlot `json:"urls"`
	}
	body := map[string][]string{"fileNames": fileNames}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/v1/gcs/presigned", body, &data); err != nil {
		return nil, fmt.Errorf("failed to request upload slots: %w", err)
	}
	if len(data.URLs) != len(fileNames) {
		return nil, fmt.Errorf("requested %d upload slots, got %d", len(fileNames), len(data.URLs))
	}
	return data.URLs, nil
}

// PutObject writes raw bytes to a presigned upload target.
func (c *Client) PutObject(ctx context.Context, presignedURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	return nil
}

// CreateEstimate registers the uploaded image URLs and returns the new estimate id.
func (c *Client) CreateEstimate(ctx context.Context, imageURLs []string) (int64, error) {
	var data struct {
		EstimateID *int64 `json:"estimateId"`
	}
	body := map[string][]string{"imageUrls": imageURLs}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/v1/estimates", body, &data); err != nil {
		return 0, fmt.Errorf("failed to create estimate: %w", err)
	}
	if data.EstimateID == nil || *data.EstimateID <= 0 {
		return 0, ErrMissingEstimateID
	}
	return *data.EstimateID, nil
}

// SubmitDetails sends the full set of property-detail answers.
func (c *Client) SubmitDetails(ctx context.Context, estimateID int64, answers models.DetailAnswers) error {
	path := fmt.Sprintf("/api/v1/estimates/%d", estimateID)
	if _, err := c.doJSON(ctx, http.MethodPatch, path, answers, nil); err != nil {
		return fmt.Errorf("failed to submit details: %w", err)
	}
	return nil
}

// GetEstimate fetches the analysed estimate.
func (c *Client) GetEstimate(ctx context.Context, estimateID int64) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	path := fmt.Sprintf("/api/v1/estimates/%d", estimateID)
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to fetch estimate: %w", err)
	}
	return result, nil
}

// UpdateFurniture changes one item's quantity and returns the recomputed
// aggregate line items.
func (c *Client) UpdateFurniture(ctx context.Context, estimateID, furnitureID int64, quantity int) ([]models.LineItem, error) {
	var data struct {
		Items []models.LineItem `json:"items"`
	}
	body := map[string]any{"furnitureId": furnitureID, "quantity": quantity}
	path := fmt.Sprintf("/api/v1/estimates/%d/furniture", estimateID)
	env, err := c.doJSON(ctx, http.MethodPatch, path, body, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to update furniture: %w", err)
	}
	if env.Code != CodeOK {
		return nil, fmt.Errorf("failed to update furniture: %w", &APIError{Status: http.StatusOK, Code: env.Code, Message: env.Message})
	}
	return data.Items, nil
}

// doJSON sends body as JSON and decodes the envelope's data field into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		return env, &APIError{Status: resp.StatusCode, Code: strings.TrimSpace(env.Code), Message: msg}
	}

	var env envelope
	if out == nil {
		// Callers that pass no target only care about the status; the body is optional.
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return env, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return env, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return env, fmt.Errorf("failed to decode response data: %w", err)
	}
	return env, nil
}
