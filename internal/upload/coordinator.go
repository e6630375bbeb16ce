package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/isajjim/estimator/internal/api"
	"github.com/isajjim/estimator/internal/models"
)

// ErrNoImages is returned when an upload is attempted with an empty batch.
var ErrNoImages = errors.New("at least one image is required")

// Backend is the part of the API client the coordinator needs.
type Backend interface {
	RequestUploadSlots(ctx context.Context, fileNames []string) ([]api.UploadSlot, error)
	PutObject(ctx context.Context, presignedURL, contentType string, body io.Reader, size int64) error
}

// ByteSource opens the bytes behind a picked image.
type ByteSource interface {
	Open(ctx context.Context, img models.PickedImage) (io.ReadCloser, int64, error)
}

// ImageError names the image whose upload failed.
type ImageError struct {
	Index    int
	FileName string
	Err      error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("failed to upload image %d (%s): %v", e.Index, e.FileName, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Coordinator uploads a batch of images through presigned slots.
type Coordinator struct {
	backend Backend
	source  ByteSource
	// Concurrency caps parallel PUTs; zero means every image at once.
	Concurrency int
}

// NewCoordinator creates a new upload coordinator
func NewCoordinator(backend Backend, source ByteSource) *Coordinator {
	return &Coordinator{backend: backend, source: source}
}

// Upload returns one UploadedImage per input, in input order, or an error. No
// partially uploaded batch is ever returned.
func (c *Coordinator) Upload(ctx context.Context, picked []models.PickedImage) ([]models.UploadedImage, error) {
	if len(picked) == 0 {
		return nil, ErrNoImages
	}

	fileNames := make([]string, len(picked))
	for i, img := range picked {
		fileNames[i] = img.FileName
		if fileNames[i] == "" {
			fileNames[i] = uuid.NewString() + ".jpg"
		}
	}

	slots, err := c.backend.RequestUploadSlots(ctx, fileNames)
	if err != nil {
		return nil, err
	}
	if len(slots) != len(picked) {
		return nil, fmt.Errorf("failed to acquire upload slots: got %d for %d images", len(slots), len(picked))
	}
	slog.Debug("Acquired upload slots", "count", len(slots))

	uploaded := make([]models.UploadedImage, len(picked))
	g, gctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	}
	for i := range picked {
		g.Go(func() error {
			img := picked[i]
			img.FileName = fileNames[i]
			if err := c.put(gctx, img, slots[i]); err != nil {
				return &ImageError{Index: i, FileName: img.FileName, Err: err}
			}
			uploaded[i] = models.UploadedImage{PickedImage: img, RemoteURI: slots[i].FileURL}
			slog.Info("Uploaded image", "index", i, "file_name", img.FileName, "uri", slots[i].FileURL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploaded, nil
}

func (c *Coordinator) put(ctx context.Context, img models.PickedImage, slot api.UploadSlot) error {
	if slot.PresignedURL == "" || slot.FileURL == "" {
		return errors.New("upload slot is missing its target or read URL")
	}
	body, size, err := c.source.Open(ctx, img)
	if err != nil {
		return err
	}
	defer body.Close()

	contentType := img.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.backend.PutObject(ctx, slot.PresignedURL, contentType, body, size)
}
