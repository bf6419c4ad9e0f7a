package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/recipeapp/apiserver/types"
)

// attributeTable names the tables backing one attribute kind.
type attributeTable struct {
	table      string
	linkTable  string
	linkColumn string
}

var attributeTables = map[types.AttributeKind]attributeTable{
	types.AttributeTag:        {table: "tags", linkTable: "recipe_tags", linkColumn: "tag_id"},
	types.AttributeIngredient: {table: "ingredients", linkTable: "recipe_ingredients", linkColumn: "ingredient_id"},
}

func tableFor(kind types.AttributeKind) (attributeTable, error) {
	t, ok := attributeTables[kind]
	if !ok {
		return attributeTable{}, fmt.Errorf("unknown attribute kind %q", kind)
	}
	return t, nil
}

// AttributeRepository handles persistence for tags and ingredients. Every
// query is scoped to the owning user.
type AttributeRepository struct {
	db *sql.DB
}

func NewAttributeRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

// List returns the user's attributes of the given kind ordered by name
// descending. With assignedOnly set, only attributes attached to at least one
// of the user's recipes are returned, each once.
func (r *AttributeRepository) List(ctx context.Context, kind types.AttributeKind, userID int, assignedOnly bool) ([]types.Attribute, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT a.id, a.name, a.user_id
		FROM ` + t.table + ` a
		WHERE a.user_id = $1`
	if assignedOnly {
		query += `
			AND EXISTS (
				SELECT 1
				FROM ` + t.linkTable + ` l
				JOIN recipes r ON r.id = l.recipe_id
				WHERE l.` + t.linkColumn + ` = a.id AND r.user_id = $1
			)`
	}
	query += `
		ORDER BY a.name DESC, a.id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return scanAttributes(rows)
}

// Create inserts an attribute owned by attr.UserID.
func (r *AttributeRepository) Create(ctx context.Context, kind types.AttributeKind, attr types.Attribute) (types.Attribute, error) {
	t, err := tableFor(kind)
	if err != nil {
		return types.Attribute{}, err
	}

	query := `
		INSERT INTO ` + t.table + ` (name, user_id)
		VALUES ($1, $2)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, attr.Name, attr.UserID).Scan(&attr.ID); err != nil {
		return types.Attribute{}, err
	}
	return attr, nil
}

// ListByRecipe returns the attributes attached to a recipe owned by userID,
// ordered by id.
func (r *AttributeRepository) ListByRecipe(ctx context.Context, kind types.AttributeKind, userID, recipeID int) ([]types.Attribute, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT a.id, a.name, a.user_id
		FROM ` + t.table + ` a
		JOIN ` + t.linkTable + ` l ON l.` + t.linkColumn + ` = a.id
		JOIN recipes r ON r.id = l.recipe_id
		WHERE l.recipe_id = $1 AND r.user_id = $2
		ORDER BY a.id`
	rows, err := r.db.QueryContext(ctx, query, recipeID, userID)
	if err != nil {
		return nil, err
	}
	return scanAttributes(rows)
}

// CountOwned reports how many of ids belong to userID. Callers pass
// de-duplicated ids.
func (r *AttributeRepository) CountOwned(ctx context.Context, kind types.AttributeKind, userID int, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	query := `
		SELECT COUNT(*)
		FROM ` + t.table + `
		WHERE user_id = $1 AND id = ANY($2)`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, pq.Array(toInt64s(ids))).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanAttributes(rows *sql.Rows) ([]types.Attribute, error) {
	defer rows.Close()

	items := make([]types.Attribute, 0)
	for rows.Next() {
		var attr types.Attribute
		if err := rows.Scan(&attr.ID, &attr.Name, &attr.UserID); err != nil {
			return nil, err
		}
		items = append(items, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
