// Package testutil provides in-memory implementations of the repositories,
// object storage and event publisher for handler and service tests.
package testutil

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/types"
)

// MemoryStore holds every table in memory. Its repositories follow the same
// owner scoping and ordering rules as the SQL repositories.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int
	users   map[int]types.User
	attrs   map[types.AttributeKind]map[int]types.Attribute
	recipes map[int]types.Recipe
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int]types.User),
		attrs: map[types.AttributeKind]map[int]types.Attribute{
			types.AttributeTag:        {},
			types.AttributeIngredient: {},
		},
		recipes: make(map[int]types.Recipe),
	}
}

func (m *MemoryStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) Users() *UserRepo           { return &UserRepo{m: m} }
func (m *MemoryStore) Attributes() *AttributeRepo { return &AttributeRepo{m: m} }
func (m *MemoryStore) Recipes() *RecipeRepo       { return &RecipeRepo{m: m} }

// UserRepo is an in-memory services.UserRepository.
type UserRepo struct{ m *MemoryStore }

func (r *UserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user, ok := r.m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, user := range r.m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = r.m.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.m.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	r.m.users[user.ID] = user
	return user, nil
}

// AttributeRepo is an in-memory services.AttributeRepository.
type AttributeRepo struct{ m *MemoryStore }

func (r *AttributeRepo) List(ctx context.Context, kind types.AttributeKind, userID int, assignedOnly bool) ([]types.Attribute, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	items := make([]types.Attribute, 0)
	for _, attr := range r.m.attrs[kind] {
		if attr.UserID != userID {
			continue
		}
		if assignedOnly && !r.m.assigned(kind, userID, attr.ID) {
			continue
		}
		items = append(items, attr)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name > items[j].Name
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (r *AttributeRepo) Create(ctx context.Context, kind types.AttributeKind, attr types.Attribute) (types.Attribute, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	attr.ID = r.m.id()
	r.m.attrs[kind][attr.ID] = attr
	return attr, nil
}

func (r *AttributeRepo) ListByRecipe(ctx context.Context, kind types.AttributeKind, userID, recipeID int) ([]types.Attribute, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	recipe, ok := r.m.recipes[recipeID]
	if !ok || recipe.UserID != userID {
		return []types.Attribute{}, nil
	}
	items := make([]types.Attribute, 0)
	for _, id := range linkIDs(recipe, kind) {
		if attr, ok := r.m.attrs[kind][id]; ok {
			items = append(items, attr)
		}
	}
	return items, nil
}

func (r *AttributeRepo) CountOwned(ctx context.Context, kind types.AttributeKind, userID int, ids []int) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	count := 0
	for _, id := range ids {
		if attr, ok := r.m.attrs[kind][id]; ok && attr.UserID == userID {
			count++
		}
	}
	return count, nil
}

// RecipeRepo is an in-memory services.RecipeRepository.
type RecipeRepo struct{ m *MemoryStore }

func (r *RecipeRepo) List(ctx context.Context, userID int, filter store.RecipeFilter) ([]types.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	items := make([]types.Recipe, 0)
	for _, recipe := range r.m.recipes {
		if recipe.UserID != userID {
			continue
		}
		if len(filter.TagIDs) > 0 && !intersects(recipe.TagIDs, filter.TagIDs) {
			continue
		}
		if len(filter.IngredientIDs) > 0 && !intersects(recipe.IngredientIDs, filter.IngredientIDs) {
			continue
		}
		items = append(items, cloneRecipe(recipe))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *RecipeRepo) Get(ctx context.Context, userID, id int) (types.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	recipe, ok := r.m.recipes[id]
	if !ok || recipe.UserID != userID {
		return types.Recipe{}, store.ErrNotFound
	}
	return cloneRecipe(recipe), nil
}

func (r *RecipeRepo) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	recipe.ID = r.m.id()
	recipe.CreatedAt = time.Now()
	recipe.UpdatedAt = recipe.CreatedAt
	recipe.TagIDs = sortedIDs(recipe.TagIDs)
	recipe.IngredientIDs = sortedIDs(recipe.IngredientIDs)
	r.m.recipes[recipe.ID] = recipe
	return cloneRecipe(recipe), nil
}

func (r *RecipeRepo) Update(ctx context.Context, recipe types.Recipe, links store.ReplaceLinks) (types.Recipe, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	current, ok := r.m.recipes[recipe.ID]
	if !ok || current.UserID != recipe.UserID {
		return types.Recipe{}, store.ErrNotFound
	}
	current.Title = recipe.Title
	current.TimeMinutes = recipe.TimeMinutes
	current.Price = recipe.Price
	current.Link = recipe.Link
	current.UpdatedAt = time.Now()
	if links.Tags {
		current.TagIDs = sortedIDs(recipe.TagIDs)
	}
	if links.Ingredients {
		current.IngredientIDs = sortedIDs(recipe.IngredientIDs)
	}
	r.m.recipes[current.ID] = current
	return cloneRecipe(current), nil
}

func (r *RecipeRepo) Delete(ctx context.Context, userID, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	recipe, ok := r.m.recipes[id]
	if !ok || recipe.UserID != userID {
		return store.ErrNotFound
	}
	delete(r.m.recipes, id)
	return nil
}

func (r *RecipeRepo) SetImage(ctx context.Context, userID, id int, image string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	recipe, ok := r.m.recipes[id]
	if !ok || recipe.UserID != userID {
		return store.ErrNotFound
	}
	recipe.Image = image
	r.m.recipes[id] = recipe
	return nil
}

func (m *MemoryStore) assigned(kind types.AttributeKind, userID, attrID int) bool {
	for _, recipe := range m.recipes {
		if recipe.UserID == userID && slices.Contains(linkIDs(recipe, kind), attrID) {
			return true
		}
	}
	return false
}

func linkIDs(recipe types.Recipe, kind types.AttributeKind) []int {
	if kind == types.AttributeTag {
		return recipe.TagIDs
	}
	return recipe.IngredientIDs
}

func intersects(have, want []int) bool {
	for _, id := range want {
		if slices.Contains(have, id) {
			return true
		}
	}
	return false
}

func sortedIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func cloneRecipe(recipe types.Recipe) types.Recipe {
	recipe.TagIDs = append([]int{}, recipe.TagIDs...)
	recipe.IngredientIDs = append([]int{}, recipe.IngredientIDs...)
	return recipe
}
