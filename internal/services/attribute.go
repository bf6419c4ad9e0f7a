package services

import (
	"context"

	"github.com/recipeapp/apiserver/types"
)

// AttributeRepository defines persistence operations for tags and
// ingredients.
type AttributeRepository interface {
	List(ctx context.Context, kind types.AttributeKind, userID int, assignedOnly bool) ([]types.Attribute, error)
	Create(ctx context.Context, kind types.AttributeKind, attr types.Attribute) (types.Attribute, error)
	ListByRecipe(ctx context.Context, kind types.AttributeKind, userID, recipeID int) ([]types.Attribute, error)
	CountOwned(ctx context.Context, kind types.AttributeKind, userID int, ids []int) (int, error)
}

// AttributeService serves one attribute kind for the calling user.
type AttributeService struct {
	kind types.AttributeKind
	repo AttributeRepository
}

func NewAttributeService(kind types.AttributeKind, repo AttributeRepository) *AttributeService {
	return &AttributeService{kind: kind, repo: repo}
}

func (s *AttributeService) Kind() types.AttributeKind {
	return s.kind
}

// List returns the caller's attributes, optionally only those used by at
// least one of the caller's recipes.
func (s *AttributeService) List(ctx context.Context, userID int, assignedOnly bool) ([]types.Attribute, error) {
	return s.repo.List(ctx, s.kind, userID, assignedOnly)
}

// Create stores a new attribute owned by userID.
func (s *AttributeService) Create(ctx context.Context, userID int, name string) (types.Attribute, error) {
	return s.repo.Create(ctx, s.kind, types.Attribute{Name: name, UserID: userID})
}
