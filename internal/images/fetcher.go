package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/isajjim/estimator/internal/models"
)

// Loader resolves picked image references (local paths or http(s) URLs).
type Loader struct {
	HTTPClient *http.Client
}

// NewLoader creates a new image loader
func NewLoader() *Loader {
	return &Loader{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads the referenced image once to determine its dimensions and MIME type.
func (l *Loader) Load(ctx context.Context, ref string) (models.PickedImage, error) {
	rc, _, err := l.open(ctx, ref)
	if err != nil {
		return models.PickedImage{}, err
	}
	defer rc.Close()

	imageData, err := io.ReadAll(rc)
	if err != nil {
		return models.PickedImage{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) == 0 {
		return models.PickedImage{}, fmt.Errorf("image %s is empty", ref)
	}

	picked := models.PickedImage{
		Source:   ref,
		FileName: fileNameOf(ref),
		MimeType: mimeTypeOf(ref, imageData),
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		slog.Warn("Failed to get image dimensions", "source", ref, "error", err)
	} else {
		picked.Width, picked.Height = cfg.Width, cfg.Height
	}

	slog.Debug("Loaded image", "source", ref, "mime_type", picked.MimeType, "width", picked.Width, "height", picked.Height)
	return picked, nil
}

// LoadAll loads every reference in order and fails on the first bad one.
func (l *Loader) LoadAll(ctx context.Context, refs []string) ([]models.PickedImage, error) {
	picked := make([]models.PickedImage, 0, len(refs))
	for _, ref := range refs {
		img, err := l.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		picked = append(picked, img)
	}
	return picked, nil
}

// Open returns the bytes of a picked image and their length, or -1 when the
// length is unknown.
func (l *Loader) Open(ctx context.Context, img models.PickedImage) (io.ReadCloser, int64, error) {
	return l.open(ctx, img.Source)
}

func (l *Loader) open(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	if isRemote(ref) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create image request: %w", err)
		}
		resp, err := l.HTTPClient.Do(req)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch image: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, 0, fmt.Errorf("image URL returned status %d", resp.StatusCode)
		}
		return resp.Body, resp.ContentLength, nil
	}

	file, err := os.Open(ref)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open image: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat image: %w", err)
	}
	return file, info.Size(), nil
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func fileNameOf(ref string) string {
	if isRemote(ref) {
		u, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		name := path.Base(u.Path)
		if name == "/" || name == "." {
			return ""
		}
		return name
	}
	return filepath.Base(ref)
}

// mimeTypeOf prefers the file extension and falls back to content sniffing.
func mimeTypeOf(ref string, data []byte) string {
	if ext := strings.ToLower(path.Ext(fileNameOf(ref))); ext != "" {
		if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
			t, _, _ = strings.Cut(t, ";")
			return t
		}
	}
	return http.DetectContentType(data)
}
