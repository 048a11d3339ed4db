package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/usecase"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// parseMultipart reads a multipart body of at most maxBytes and writes the
// error response itself when it fails.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid multipart body")
		return false
	}
	return true
}

// formFile returns the named file part, or nil if the part is absent.
// The caller closes the returned closer.
func formFile(r *http.Request, field string) (*usecase.Upload, io.Closer, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable %s file: %w", repository.ErrValidation, field, err)
	}

	return &usecase.Upload{
		Reader:      file,
		Size:        header.Size,
		ContentType: contentTypeOf(header),
		FileName:    header.Filename,
	}, file, nil
}

// formValue returns the named field if the form carries it, even when empty.
func formValue(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func contentTypeOf(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// progressLogger logs upload progress at quarter steps.
func progressLogger(r *http.Request, asset string) repository.ProgressFunc {
	next := 25.0
	return func(percent float64) {
		for percent >= next {
			slog.Debug("upload progress",
				"path", r.URL.Path,
				"asset", asset,
				"percent", next,
			)
			next += 25
		}
	}
}

// closers collects form files for a single deferred Close. The pointer
// receiver lets a defer registered before the appends see every file.
type closers []io.Closer

func (c *closers) Close() {
	for _, closer := range *c {
		if closer != nil {
			_ = closer.Close()
		}
	}
}
