package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/recipeapp/apiserver/internal/logging"
	"github.com/recipeapp/apiserver/internal/storage"
)

// ObjectReader reads stored objects by key.
type ObjectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// MediaHandler streams stored objects for the local storage backend.
type MediaHandler struct {
	objects ObjectReader
}

func NewMediaHandler(objects ObjectReader) *MediaHandler {
	return &MediaHandler{objects: objects}
}

// MediaRouter registers the media route on the given router.
func MediaRouter(r chi.Router, objects ObjectReader) {
	handler := NewMediaHandler(objects)
	r.Get("/*", handler.Serve)
}

func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	reader, err := h.objects.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		respondError(w, r, err, "failed to read object")
		return
	}
	defer reader.Close()

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("stream object failed")
	}
}
