package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/recipeapp/apiserver/internal/services"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/types"
)

const (
	maxMultipartMemory = 1 << 20
	multipartOverhead  = 1 << 20
)

// RecipeHandler serves the owner-scoped recipe endpoints.
type RecipeHandler struct {
	service       *services.RecipeService
	maxImageBytes int64
}

// NewRecipeHandler constructs a RecipeHandler. maxImageBytes <= 0 selects
// services.DefaultMaxImageBytes.
func NewRecipeHandler(service *services.RecipeService, maxImageBytes int64) *RecipeHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = services.DefaultMaxImageBytes
	}
	return &RecipeHandler{service: service, maxImageBytes: maxImageBytes}
}

// RecipeRouter registers recipe routes on the given router.
func RecipeRouter(r chi.Router, handler *RecipeHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{recipeID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Replace)
		r.Patch("/", handler.Patch)
		r.Delete("/", handler.Delete)
		r.Post("/upload-image", handler.UploadImage)
	})
}

// RecipeRequest is the body of create and full update. Absent tags or
// ingredients mean an empty set.
type RecipeRequest struct {
	Title       *string      `json:"title" validate:"required,min=1,max=255"`
	TimeMinutes *int         `json:"time_minutes" validate:"required,gte=0,lte=2147483647"`
	Price       *types.Price `json:"price" validate:"required,price"`
	Link        *string      `json:"link" validate:"omitnil,max=255,link"`
	Tags        []int        `json:"tags"`
	Ingredients []int        `json:"ingredients"`
}

// PatchRecipeRequest is the body of a partial update.
type PatchRecipeRequest struct {
	Title       *string      `json:"title" validate:"omitnil,min=1,max=255"`
	TimeMinutes *int         `json:"time_minutes" validate:"omitnil,gte=0,lte=2147483647"`
	Price       *types.Price `json:"price" validate:"omitnil,price"`
	Link        *string      `json:"link" validate:"omitnil,max=255,link"`
	Tags        *[]int       `json:"tags"`
	Ingredients *[]int       `json:"ingredients"`
}

type RecipeResponse struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	TimeMinutes int         `json:"time_minutes"`
	Price       types.Price `json:"price"`
	Link        string      `json:"link"`
	Tags        []int       `json:"tags"`
	Ingredients []int       `json:"ingredients"`
}

type RecipeDetailResponse struct {
	ID          int                `json:"id"`
	Title       string             `json:"title"`
	TimeMinutes int                `json:"time_minutes"`
	Price       types.Price        `json:"price"`
	Link        string             `json:"link"`
	Image       *string            `json:"image"`
	Tags        []types.Tag        `json:"tags"`
	Ingredients []types.Ingredient `json:"ingredients"`
}

type RecipeImageResponse struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

func newRecipeResponse(recipe types.Recipe) RecipeResponse {
	resp := RecipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price,
		Link:        recipe.Link,
		Tags:        recipe.TagIDs,
		Ingredients: recipe.IngredientIDs,
	}
	if resp.Tags == nil {
		resp.Tags = []int{}
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []int{}
	}
	return resp
}

func (h *RecipeHandler) newDetailResponse(detail types.RecipeDetail) RecipeDetailResponse {
	resp := RecipeDetailResponse{
		ID:          detail.ID,
		Title:       detail.Title,
		TimeMinutes: detail.TimeMinutes,
		Price:       detail.Price,
		Link:        detail.Link,
		Tags:        detail.Tags,
		Ingredients: detail.Ingredients,
	}
	if detail.Image != "" {
		url := h.service.ImageURL(detail.Image)
		resp.Image = &url
	}
	if resp.Tags == nil {
		resp.Tags = []types.Tag{}
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []types.Ingredient{}
	}
	return resp
}

// List returns the caller's recipes filtered by ?tags= and ?ingredients=.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query()
	tagIDs, err := parseIDList(query.Get("tags"))
	if err != nil {
		writeFieldErrors(w, map[string]string{"tags": "must be a comma separated list of ids"})
		return
	}
	ingredientIDs, err := parseIDList(query.Get("ingredients"))
	if err != nil {
		writeFieldErrors(w, map[string]string{"ingredients": "must be a comma separated list of ids"})
		return
	}

	recipes, err := h.service.List(r.Context(), userID, store.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		respondError(w, r, err, "failed to list recipes")
		return
	}

	items := make([]RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		items = append(items, newRecipeResponse(recipe))
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns one recipe with nested tags and ingredients.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, recipeID, ok := recipeParams(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), userID, recipeID)
	if err != nil {
		respondError(w, r, err, "failed to load recipe")
		return
	}

	writeJSON(w, http.StatusOK, h.newDetailResponse(detail))
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	input, ok := decodeRecipeInput(w, r)
	if !ok {
		return
	}

	recipe, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		respondError(w, r, err, "failed to create recipe")
		return
	}

	writeJSON(w, http.StatusCreated, newRecipeResponse(recipe))
}

// Replace performs a full update.
func (h *RecipeHandler) Replace(w http.ResponseWriter, r *http.Request) {
	userID, recipeID, ok := recipeParams(w, r)
	if !ok {
		return
	}

	input, ok := decodeRecipeInput(w, r)
	if !ok {
		return
	}

	recipe, err := h.service.Replace(r.Context(), userID, recipeID, input)
	if err != nil {
		respondError(w, r, err, "failed to update recipe")
		return
	}

	writeJSON(w, http.StatusOK, newRecipeResponse(recipe))
}

// Patch performs a partial update.
func (h *RecipeHandler) Patch(w http.ResponseWriter, r *http.Request) {
	userID, recipeID, ok := recipeParams(w, r)
	if !ok {
		return
	}

	var req PatchRecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sanitizeTextPtr(req.Title)
	if fields := validate.Struct(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	recipe, err := h.service.Patch(r.Context(), userID, recipeID, services.RecipePatch{
		Title:         req.Title,
		TimeMinutes:   req.TimeMinutes,
		Price:         req.Price,
		Link:          req.Link,
		TagIDs:        req.Tags,
		IngredientIDs: req.Ingredients,
	})
	if err != nil {
		respondError(w, r, err, "failed to update recipe")
		return
	}

	writeJSON(w, http.StatusOK, newRecipeResponse(recipe))
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, recipeID, ok := recipeParams(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, recipeID); err != nil {
		respondError(w, r, err, "failed to delete recipe")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage accepts a multipart "image" file and attaches it to the recipe.
func (h *RecipeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, recipeID, ok := recipeParams(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeFieldErrors(w, map[string]string{"image": services.ErrImageTooLarge.Error()})
			return
		}
		writeFieldErrors(w, map[string]string{"image": "no file was submitted"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["image"]
	if len(files) != 1 {
		writeFieldErrors(w, map[string]string{"image": "exactly one file must be submitted"})
		return
	}

	data, err := readFileLimited(files[0], h.maxImageBytes)
	if err != nil {
		if errors.Is(err, services.ErrImageTooLarge) {
			writeFieldErrors(w, map[string]string{"image": err.Error()})
			return
		}
		respondError(w, r, err, "failed to read image")
		return
	}

	recipe, err := h.service.UploadImage(r.Context(), userID, recipeID, files[0].Filename, data)
	if err != nil {
		respondError(w, r, err, "failed to upload image")
		return
	}

	writeJSON(w, http.StatusOK, RecipeImageResponse{
		ID:    recipe.ID,
		Image: h.service.ImageURL(recipe.Image),
	})
}

func recipeParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}
	recipeID, err := parseID(r, "recipeID")
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return 0, 0, false
	}
	return userID, recipeID, true
}

func decodeRecipeInput(w http.ResponseWriter, r *http.Request) (services.RecipeInput, bool) {
	var req RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return services.RecipeInput{}, false
	}
	sanitizeTextPtr(req.Title)
	if fields := validate.Struct(req); fields != nil {
		writeFieldErrors(w, fields)
		return services.RecipeInput{}, false
	}

	input := services.RecipeInput{
		Title:         *req.Title,
		TimeMinutes:   *req.TimeMinutes,
		Price:         *req.Price,
		TagIDs:        req.Tags,
		IngredientIDs: req.Ingredients,
	}
	if req.Link != nil {
		input.Link = *req.Link
	}
	return input, true
}

func readFileLimited(header *multipart.FileHeader, limit int64) ([]byte, error) {
	if header.Size > limit {
		return nil, services.ErrImageTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n > limit {
		return nil, services.ErrImageTooLarge
	}
	return buf.Bytes(), nil
}
