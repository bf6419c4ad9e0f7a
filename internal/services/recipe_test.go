package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/recipeapp/apiserver/internal/storage"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/internal/testutil"
	"github.com/recipeapp/apiserver/types"
	"github.com/stretchr/testify/require"
)

type recipeFixture struct {
	svc     *RecipeService
	mem     *testutil.MemoryStore
	objects *testutil.MemoryObjects
	pub     *testutil.RecordingPublisher
}

func newRecipeFixture(t *testing.T, ids ...string) recipeFixture {
	t.Helper()
	mem := testutil.NewMemoryStore()
	objects := testutil.NewMemoryObjects()
	pub := &testutil.RecordingPublisher{}
	svc := NewRecipeService(
		mem.Recipes(),
		mem.Attributes(),
		storage.NewStorage(objects, "/media/"),
		WithIDGenerator(&testutil.FixedIDs{IDs: ids}),
		WithEvents(NewEvents(pub, "recipe-events")),
	)
	return recipeFixture{svc: svc, mem: mem, objects: objects, pub: pub}
}

func (f recipeFixture) attr(t *testing.T, kind types.AttributeKind, userID int, name string) types.Attribute {
	t.Helper()
	attr, err := f.mem.Attributes().Create(context.Background(), kind, types.Attribute{Name: name, UserID: userID})
	require.NoError(t, err)
	return attr
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRecipeCreateWithTagsAndIngredients(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	vegan := f.attr(t, types.AttributeTag, 1, "Vegan")
	salt := f.attr(t, types.AttributeIngredient, 1, "Salt")

	created, err := f.svc.Create(ctx, 1, RecipeInput{
		Title:         "Soup",
		TimeMinutes:   10,
		Price:         500,
		TagIDs:        []int{vegan.ID, vegan.ID},
		IngredientIDs: []int{salt.ID},
	})
	require.NoError(t, err)
	require.Equal(t, []int{vegan.ID}, created.TagIDs)
	require.Equal(t, []int{salt.ID}, created.IngredientIDs)
	require.Equal(t, []string{EventRecipeCreated}, f.pub.Types())

	detail, err := f.svc.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	require.Equal(t, []types.Tag{vegan}, detail.Tags)
	require.Equal(t, []types.Ingredient{salt}, detail.Ingredients)
}

func TestRecipeCreateRejectsForeignTags(t *testing.T) {
	f := newRecipeFixture(t)
	foreign := f.attr(t, types.AttributeTag, 2, "Theirs")

	_, err := f.svc.Create(context.Background(), 1, RecipeInput{Title: "Soup", TagIDs: []int{foreign.ID}})
	var refErr *UnknownReferenceError
	require.ErrorAs(t, err, &refErr)
	require.Equal(t, "tags", refErr.Field)
	require.ErrorIs(t, err, ErrUnknownReference)
}

func TestRecipeReplaceResetsAssociations(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	tag := f.attr(t, types.AttributeTag, 1, "Dinner")

	created, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Pie", TimeMinutes: 5, Price: 100, Link: "https://example.com", TagIDs: []int{tag.ID}})
	require.NoError(t, err)

	replaced, err := f.svc.Replace(ctx, 1, created.ID, RecipeInput{Title: "Spaghetti", TimeMinutes: 25, Price: 500})
	require.NoError(t, err)
	require.Equal(t, "Spaghetti", replaced.Title)
	require.Empty(t, replaced.TagIDs)
	require.Empty(t, replaced.Link)
}

func TestRecipePatchKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	tag := f.attr(t, types.AttributeTag, 1, "Dinner")
	other := f.attr(t, types.AttributeTag, 1, "Lunch")

	created, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Pie", TimeMinutes: 5, Price: 100, TagIDs: []int{tag.ID}})
	require.NoError(t, err)

	title := "Chicken tikka"
	patched, err := f.svc.Patch(ctx, 1, created.ID, RecipePatch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Chicken tikka", patched.Title)
	require.Equal(t, 5, patched.TimeMinutes)
	require.Equal(t, []int{tag.ID}, patched.TagIDs)

	tags := []int{other.ID}
	patched, err = f.svc.Patch(ctx, 1, created.ID, RecipePatch{TagIDs: &tags})
	require.NoError(t, err)
	require.Equal(t, []int{other.ID}, patched.TagIDs)

	_, err = f.svc.Patch(ctx, 2, created.ID, RecipePatch{Title: &title})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecipeUploadImage(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t, "first", "second")

	created, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)

	updated, err := f.svc.UploadImage(ctx, 1, created.ID, "photo.png", pngBytes(t))
	require.NoError(t, err)
	require.Equal(t, "uploads/recipe/first.png", updated.Image)
	require.Equal(t, "/media/uploads/recipe/first.png", f.svc.ImageURL(updated.Image))
	require.Equal(t, []string{"uploads/recipe/first.png"}, f.objects.Keys())
	require.Equal(t, "image/png", f.objects.ContentType("uploads/recipe/first.png"))

	// a second upload replaces the first object
	updated, err = f.svc.UploadImage(ctx, 1, created.ID, "noext", pngBytes(t))
	require.NoError(t, err)
	require.Equal(t, "uploads/recipe/second.png", updated.Image)
	require.Equal(t, []string{"uploads/recipe/second.png"}, f.objects.Keys())

	require.Equal(t, []string{EventRecipeCreated, EventRecipeImageUploaded, EventRecipeImageUploaded}, f.pub.Types())
}

func TestRecipeUploadInvalidImage(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)

	created, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)

	_, err = f.svc.UploadImage(ctx, 1, created.ID, "notimage.jpg", []byte("notimage"))
	require.ErrorIs(t, err, ErrInvalidImage)
	require.Empty(t, f.objects.Keys())

	_, err = f.svc.UploadImage(ctx, 2, created.ID, "photo.png", pngBytes(t))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecipeUploadTooLarge(t *testing.T) {
	ctx := context.Background()
	mem := testutil.NewMemoryStore()
	objects := testutil.NewMemoryObjects()
	svc := NewRecipeService(mem.Recipes(), mem.Attributes(), storage.NewStorage(objects, ""), WithMaxImageBytes(16))

	created, err := svc.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)

	_, err = svc.UploadImage(ctx, 1, created.ID, "photo.png", pngBytes(t))
	require.ErrorIs(t, err, ErrImageTooLarge)
	require.Empty(t, objects.Keys())
}

func TestRecipeDeleteRemovesImage(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t, "img")

	created, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Pie"})
	require.NoError(t, err)
	_, err = f.svc.UploadImage(ctx, 1, created.ID, "a.png", pngBytes(t))
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, 2, created.ID), store.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, 1, created.ID))
	require.Empty(t, f.objects.Keys())

	_, err = f.svc.Get(ctx, 1, created.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecipeListFilters(t *testing.T) {
	ctx := context.Background()
	f := newRecipeFixture(t)
	vegan := f.attr(t, types.AttributeTag, 1, "Vegan")
	veggie := f.attr(t, types.AttributeTag, 1, "Vegetarian")
	feta := f.attr(t, types.AttributeIngredient, 1, "Feta")

	r1, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Thai curry", TagIDs: []int{vegan.ID}})
	require.NoError(t, err)
	r2, err := f.svc.Create(ctx, 1, RecipeInput{Title: "Aubergine", TagIDs: []int{veggie.ID}, IngredientIDs: []int{feta.ID}})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 1, RecipeInput{Title: "Fish and chips"})
	require.NoError(t, err)

	got, err := f.svc.List(ctx, 1, store.RecipeFilter{TagIDs: []int{vegan.ID, veggie.ID}})
	require.NoError(t, err)
	require.Equal(t, []int{r2.ID, r1.ID}, recipeIDs(got))

	got, err = f.svc.List(ctx, 1, store.RecipeFilter{TagIDs: []int{vegan.ID, veggie.ID}, IngredientIDs: []int{feta.ID}})
	require.NoError(t, err)
	require.Equal(t, []int{r2.ID}, recipeIDs(got))

	got, err = f.svc.List(ctx, 2, store.RecipeFilter{})
	require.NoError(t, err)
	require.Empty(t, got)
}

func recipeIDs(recipes []types.Recipe) []int {
	ids := make([]int, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
	}
	return ids
}
