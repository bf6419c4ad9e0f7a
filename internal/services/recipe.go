package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"slices"

	"github.com/recipeapp/apiserver/internal/logging"
	"github.com/recipeapp/apiserver/internal/metrics"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/types"
)

// DefaultMaxImageBytes is the largest accepted recipe image.
const DefaultMaxImageBytes = 10 << 20

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	List(ctx context.Context, userID int, filter store.RecipeFilter) ([]types.Recipe, error)
	Get(ctx context.Context, userID, id int) (types.Recipe, error)
	Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Update(ctx context.Context, recipe types.Recipe, links store.ReplaceLinks) (types.Recipe, error)
	Delete(ctx context.Context, userID, id int) error
	SetImage(ctx context.Context, userID, id int, image string) error
}

// ImageStore keeps uploaded recipe images.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// RecipeInput is a full set of writable recipe fields.
type RecipeInput struct {
	Title         string
	TimeMinutes   int
	Price         types.Price
	Link          string
	TagIDs        []int
	IngredientIDs []int
}

// RecipePatch is a partial recipe update. Nil fields are left unchanged.
type RecipePatch struct {
	Title         *string
	TimeMinutes   *int
	Price         *types.Price
	Link          *string
	TagIDs        *[]int
	IngredientIDs *[]int
}

// RecipeService encapsulates recipe use-cases. Every operation is scoped to
// the calling user.
type RecipeService struct {
	repo          RecipeRepository
	attrs         AttributeRepository
	images        ImageStore
	events        *Events
	ids           IDGenerator
	maxImageBytes int64
}

// RecipeOption configures a RecipeService.
type RecipeOption func(*RecipeService)

func WithIDGenerator(gen IDGenerator) RecipeOption {
	return func(s *RecipeService) {
		s.ids = gen
	}
}

func WithEvents(events *Events) RecipeOption {
	return func(s *RecipeService) {
		s.events = events
	}
}

func WithMaxImageBytes(n int64) RecipeOption {
	return func(s *RecipeService) {
		s.maxImageBytes = n
	}
}

func NewRecipeService(repo RecipeRepository, attrs AttributeRepository, images ImageStore, opts ...RecipeOption) *RecipeService {
	s := &RecipeService{
		repo:          repo,
		attrs:         attrs,
		images:        images,
		ids:           UUIDGenerator{},
		maxImageBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RecipeService) List(ctx context.Context, userID int, filter store.RecipeFilter) ([]types.Recipe, error) {
	return s.repo.List(ctx, userID, filter)
}

// Get returns the recipe with its tags and ingredients resolved.
func (s *RecipeService) Get(ctx context.Context, userID, id int) (types.RecipeDetail, error) {
	recipe, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.RecipeDetail{}, err
	}
	tags, err := s.attrs.ListByRecipe(ctx, types.AttributeTag, userID, id)
	if err != nil {
		return types.RecipeDetail{}, fmt.Errorf("load tags: %w", err)
	}
	ingredients, err := s.attrs.ListByRecipe(ctx, types.AttributeIngredient, userID, id)
	if err != nil {
		return types.RecipeDetail{}, fmt.Errorf("load ingredients: %w", err)
	}
	return types.RecipeDetail{Recipe: recipe, Tags: tags, Ingredients: ingredients}, nil
}

func (s *RecipeService) Create(ctx context.Context, userID int, in RecipeInput) (types.Recipe, error) {
	tagIDs, ingredientIDs, err := s.checkReferences(ctx, userID, in.TagIDs, in.IngredientIDs)
	if err != nil {
		return types.Recipe{}, err
	}

	created, err := s.repo.Create(ctx, types.Recipe{
		UserID:        userID,
		Title:         in.Title,
		TimeMinutes:   in.TimeMinutes,
		Price:         in.Price,
		Link:          in.Link,
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		return types.Recipe{}, err
	}
	s.events.RecipeCreated(ctx, created)
	return created, nil
}

// Replace overwrites every writable field. Tags and ingredients become
// exactly the given sets.
func (s *RecipeService) Replace(ctx context.Context, userID, id int, in RecipeInput) (types.Recipe, error) {
	tagIDs, ingredientIDs, err := s.checkReferences(ctx, userID, in.TagIDs, in.IngredientIDs)
	if err != nil {
		return types.Recipe{}, err
	}

	return s.repo.Update(ctx, types.Recipe{
		ID:            id,
		UserID:        userID,
		Title:         in.Title,
		TimeMinutes:   in.TimeMinutes,
		Price:         in.Price,
		Link:          in.Link,
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	}, store.ReplaceLinks{Tags: true, Ingredients: true})
}

// Patch applies the provided fields only. Associations are rewritten only
// when present in the patch.
func (s *RecipeService) Patch(ctx context.Context, userID, id int, p RecipePatch) (types.Recipe, error) {
	recipe, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Recipe{}, err
	}

	if p.Title != nil {
		recipe.Title = *p.Title
	}
	if p.TimeMinutes != nil {
		recipe.TimeMinutes = *p.TimeMinutes
	}
	if p.Price != nil {
		recipe.Price = *p.Price
	}
	if p.Link != nil {
		recipe.Link = *p.Link
	}

	var tagIDs, ingredientIDs []int
	if p.TagIDs != nil {
		tagIDs = *p.TagIDs
	}
	if p.IngredientIDs != nil {
		ingredientIDs = *p.IngredientIDs
	}
	tagIDs, ingredientIDs, err = s.checkReferences(ctx, userID, tagIDs, ingredientIDs)
	if err != nil {
		return types.Recipe{}, err
	}
	if p.TagIDs != nil {
		recipe.TagIDs = tagIDs
	}
	if p.IngredientIDs != nil {
		recipe.IngredientIDs = ingredientIDs
	}

	return s.repo.Update(ctx, recipe, store.ReplaceLinks{
		Tags:        p.TagIDs != nil,
		Ingredients: p.IngredientIDs != nil,
	})
}

// Delete removes the recipe and, best effort, its stored image.
func (s *RecipeService) Delete(ctx context.Context, userID, id int) error {
	recipe, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.removeImage(ctx, recipe.Image)
	s.events.RecipeDeleted(ctx, userID, id)
	return nil
}

// UploadImage validates data as a JPEG, PNG or GIF image, stores it under a
// fresh key and points the recipe at it. The previous image is removed best
// effort. Nothing is stored when validation fails.
func (s *RecipeService) UploadImage(ctx context.Context, userID, id int, filename string, data []byte) (types.Recipe, error) {
	recipe, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return types.Recipe{}, err
	}

	if int64(len(data)) > s.maxImageBytes {
		return types.Recipe{}, ErrImageTooLarge
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return types.Recipe{}, ErrInvalidImage
	}

	if imageExt(filename) == "" {
		filename = "image." + format
	}
	key := RecipeImagePath(s.ids, filename)
	if err := s.images.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "image/"+format); err != nil {
		return types.Recipe{}, fmt.Errorf("store image: %w", err)
	}
	if err := s.repo.SetImage(ctx, userID, id, key); err != nil {
		s.removeImage(ctx, key)
		return types.Recipe{}, err
	}

	previous := recipe.Image
	recipe.Image = key
	if previous != "" && previous != key {
		s.removeImage(ctx, previous)
	}

	metrics.RecipeImagesUploadedTotal.Inc()
	s.events.RecipeImageUploaded(ctx, recipe)
	return recipe, nil
}

// ImageURL returns the public URL of an image key.
func (s *RecipeService) ImageURL(key string) string {
	return s.images.URL(key)
}

func (s *RecipeService) removeImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("remove recipe image failed")
	}
}

// checkReferences de-duplicates the ids and verifies every one belongs to
// userID.
func (s *RecipeService) checkReferences(ctx context.Context, userID int, tagIDs, ingredientIDs []int) ([]int, []int, error) {
	tagIDs = uniqueIDs(tagIDs)
	ingredientIDs = uniqueIDs(ingredientIDs)

	if err := s.checkOwned(ctx, types.AttributeTag, "tags", userID, tagIDs); err != nil {
		return nil, nil, err
	}
	if err := s.checkOwned(ctx, types.AttributeIngredient, "ingredients", userID, ingredientIDs); err != nil {
		return nil, nil, err
	}
	return tagIDs, ingredientIDs, nil
}

func (s *RecipeService) checkOwned(ctx context.Context, kind types.AttributeKind, field string, userID int, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := s.attrs.CountOwned(ctx, kind, userID, ids)
	if err != nil {
		return fmt.Errorf("check %s: %w", field, err)
	}
	if count != len(ids) {
		return &UnknownReferenceError{Field: field}
	}
	return nil
}

func uniqueIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
