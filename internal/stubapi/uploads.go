package stubapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/isajjim/estimator/internal/utils"
)

// maxObjectSize caps a single uploaded image.
const maxObjectSize = 10 * 1024 * 1024

const signatureParam = "X-Stub-Signature"

type uploadSlot struct {
	PresignedURL string `json:"presignedUrl"`
	FileURL      string `json:"fileUrl"`
	Key          string `json:"key"`
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FileNames []string `json:"fileNames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON: "+err.Error())
		return
	}
	if len(request.FileNames) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FILES", "fileNames is required")
		return
	}

	base := s.baseURL(r)
	slots := make([]uploadSlot, len(request.FileNames))
	for i, name := range request.FileNames {
		name = path.Base(strings.ReplaceAll(name, "\\", "/"))
		if name == "." || name == "/" {
			name = uuid.NewString() + ".jpg"
		}
		key := uuid.NewString() + "/" + name
		objectURL := base + "/objects/" + escapeKey(key)
		slots[i] = uploadSlot{
			PresignedURL: objectURL + "?" + signatureParam + "=" + sign(key),
			FileURL:      objectURL,
			Key:          key,
		}
	}
	writeData(w, map[string]any{"urls": slots})
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if r.URL.Query().Get(signatureParam) != sign(key) {
		writeError(w, http.StatusForbidden, "SIGNATURE_MISMATCH", "upload URL is not valid for this object")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxObjectSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "READ_FAILED", "Failed to read object: "+err.Error())
		return
	}
	if len(data) > maxObjectSize {
		writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", fmt.Sprintf("object exceeds %d bytes", maxObjectSize))
		return
	}

	obj := s.store.PutObject(key, r.Header.Get("Content-Type"), data)
	w.Header().Set("ETag", `"`+obj.ETag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	obj, exists := s.store.GetObject(r.PathValue("key"))
	if !exists {
		http.NotFound(w, r)
		return
	}
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("ETag", `"`+obj.ETag+`"`)
	_, _ = w.Write(obj.Data)
}

func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return strings.TrimRight(s.opts.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// sign is a stand-in for a storage signature; it only binds the URL to its key.
func sign(key string) string {
	return utils.CalculateDataMD5([]byte("stub:" + key))
}
