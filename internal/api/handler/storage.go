package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/gotube/internal/usecase"
)

// StorageHandler serves stored assets so that view locators resolve.
type StorageHandler struct {
	assets usecase.AssetService
}

// NewStorageHandler creates a new StorageHandler.
func NewStorageHandler(assets usecase.AssetService) *StorageHandler {
	return &StorageHandler{assets: assets}
}

// View handles GET /v1/storage/buckets/{bucket}/files/{fileID}/view
func (h *StorageHandler) View(w http.ResponseWriter, r *http.Request) {
	body, info, err := h.assets.Open(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "fileID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer body.Close()

	fileID := chi.URLParam(r, "fileID")
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", contentDisposition(info.ContentType, fileID))
	if info.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		// Headers are gone; the client sees a truncated body.
		slog.Warn("asset stream interrupted",
			"path", r.URL.Path,
			"error", err,
		)
	}
}

// contentDisposition renders media inline and forces everything else, scriptable
// SVG included, to download so uploaded markup never runs on this origin.
func contentDisposition(contentType, fileID string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	disposition := "attachment"
	if mediaType != "image/svg+xml" &&
		(strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "video/") || strings.HasPrefix(mediaType, "audio/")) {
		disposition = "inline"
	}
	return mime.FormatMediaType(disposition, map[string]string{"filename": fileID})
}
