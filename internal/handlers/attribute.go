package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/recipeapp/apiserver/internal/services"
	"github.com/recipeapp/apiserver/types"
)

// AttributeHandler serves list and create for one attribute kind. Tags and
// ingredients mount the same handler.
type AttributeHandler struct {
	service *services.AttributeService
}

func NewAttributeHandler(service *services.AttributeService) *AttributeHandler {
	return &AttributeHandler{service: service}
}

// AttributeRouter registers attribute routes on the given router.
func AttributeRouter(r chi.Router, service *services.AttributeService) {
	handler := NewAttributeHandler(service)

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
}

type CreateAttributeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// List returns the caller's attributes, optionally only those assigned to
// one of their recipes.
func (h *AttributeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	assignedOnly, err := parseFlag(r.URL.Query().Get("assigned_only"))
	if err != nil {
		writeFieldErrors(w, map[string]string{"assigned_only": "must be 0 or 1"})
		return
	}

	items, err := h.service.List(r.Context(), userID, assignedOnly)
	if err != nil {
		respondError(w, r, err, "failed to list "+string(h.service.Kind())+"s")
		return
	}
	if items == nil {
		items = []types.Attribute{}
	}

	writeJSON(w, http.StatusOK, items)
}

// Create adds an attribute owned by the caller.
func (h *AttributeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateAttributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = sanitizeText(req.Name)
	if fields := validate.Struct(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	attr, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		respondError(w, r, err, "failed to create "+string(h.service.Kind()))
		return
	}

	writeJSON(w, http.StatusCreated, attr)
}

// parseFlag reads an integer query flag where any non-zero value is true.
func parseFlag(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}
