package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/recipeapp/apiserver/types"
)

const recipeColumns = `r.id, r.user_id, r.title, r.time_minutes, r.price, r.link, r.image, r.created_at, r.updated_at`

// RecipeFilter narrows a recipe listing. Ids within one list match any-of;
// the two lists combine with AND. Empty lists do not filter.
type RecipeFilter struct {
	TagIDs        []int
	IngredientIDs []int
}

// ReplaceLinks selects which associations an update rewrites.
type ReplaceLinks struct {
	Tags        bool
	Ingredients bool
}

// RecipeRepository handles persistence for recipes and their tag and
// ingredient links. Every query is scoped to the owning user.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// List returns the user's recipes, newest id first.
func (r *RecipeRepository) List(ctx context.Context, userID int, filter RecipeFilter) ([]types.Recipe, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + recipeColumns + `
		FROM recipes r
		WHERE r.user_id = $1`)
	args := []any{userID}

	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(toInt64s(filter.TagIDs)))
		sb.WriteString(`
			AND EXISTS (
				SELECT 1 FROM recipe_tags rt
				WHERE rt.recipe_id = r.id AND rt.tag_id = ANY($` + strconv.Itoa(len(args)) + `)
			)`)
	}
	if len(filter.IngredientIDs) > 0 {
		args = append(args, pq.Array(toInt64s(filter.IngredientIDs)))
		sb.WriteString(`
			AND EXISTS (
				SELECT 1 FROM recipe_ingredients ri
				WHERE ri.recipe_id = r.id AND ri.ingredient_id = ANY($` + strconv.Itoa(len(args)) + `)
			)`)
	}
	sb.WriteString(`
		ORDER BY r.id DESC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	recipes, err := scanRecipes(rows)
	if err != nil {
		return nil, err
	}
	if err := loadLinks(ctx, r.db, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Get returns one recipe owned by userID.
func (r *RecipeRepository) Get(ctx context.Context, userID, id int) (types.Recipe, error) {
	return getRecipe(ctx, r.db, userID, id)
}

// Create inserts a recipe together with its tag and ingredient links.
func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	now := time.Now()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		const query = `
			INSERT INTO recipes (user_id, title, time_minutes, price, link, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			query,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price,
			recipe.Link,
			recipe.Image,
			recipe.CreatedAt,
			recipe.UpdatedAt,
		).Scan(&recipe.ID); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, attributeTables[types.AttributeTag], recipe.ID, recipe.TagIDs); err != nil {
			return err
		}
		return insertLinks(ctx, tx, attributeTables[types.AttributeIngredient], recipe.ID, recipe.IngredientIDs)
	})
	if err != nil {
		return types.Recipe{}, err
	}
	recipe.TagIDs = normalizeIDs(recipe.TagIDs)
	recipe.IngredientIDs = normalizeIDs(recipe.IngredientIDs)
	return recipe, nil
}

// Update overwrites the scalar fields of a recipe owned by recipe.UserID and
// rewrites the associations selected by links. The stored recipe is returned.
func (r *RecipeRepository) Update(ctx context.Context, recipe types.Recipe, links ReplaceLinks) (types.Recipe, error) {
	var updated types.Recipe
	err := WithTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		const query = `
			UPDATE recipes
			SET title = $1,
				time_minutes = $2,
				price = $3,
				link = $4,
				updated_at = $5
			WHERE id = $6 AND user_id = $7`
		result, err := tx.ExecContext(
			ctx,
			query,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price,
			recipe.Link,
			time.Now(),
			recipe.ID,
			recipe.UserID,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}

		if links.Tags {
			if err := replaceLinks(ctx, tx, attributeTables[types.AttributeTag], recipe.ID, recipe.TagIDs); err != nil {
				return err
			}
		}
		if links.Ingredients {
			if err := replaceLinks(ctx, tx, attributeTables[types.AttributeIngredient], recipe.ID, recipe.IngredientIDs); err != nil {
				return err
			}
		}

		updated, err = getRecipe(ctx, tx, recipe.UserID, recipe.ID)
		return err
	})
	if err != nil {
		return types.Recipe{}, err
	}
	return updated, nil
}

// SetImage records the storage key of the recipe image.
func (r *RecipeRepository) SetImage(ctx context.Context, userID, id int, image string) error {
	const query = `
		UPDATE recipes
		SET image = $1,
			updated_at = $2
		WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, image, time.Now(), id, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a recipe owned by userID. Links cascade.
func (r *RecipeRepository) Delete(ctx context.Context, userID, id int) error {
	const query = `DELETE FROM recipes WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func getRecipe(ctx context.Context, db DBTX, userID, id int) (types.Recipe, error) {
	const query = `
		SELECT ` + recipeColumns + `
		FROM recipes r
		WHERE r.id = $1 AND r.user_id = $2`
	var recipe types.Recipe
	err := db.QueryRowContext(ctx, query, id, userID).Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&recipe.Price,
		&recipe.Link,
		&recipe.Image,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}

	recipes := []types.Recipe{recipe}
	if err := loadLinks(ctx, db, recipes); err != nil {
		return types.Recipe{}, err
	}
	return recipes[0], nil
}

func scanRecipes(rows *sql.Rows) ([]types.Recipe, error) {
	defer rows.Close()

	items := make([]types.Recipe, 0)
	for rows.Next() {
		var recipe types.Recipe
		if err := rows.Scan(
			&recipe.ID,
			&recipe.UserID,
			&recipe.Title,
			&recipe.TimeMinutes,
			&recipe.Price,
			&recipe.Link,
			&recipe.Image,
			&recipe.CreatedAt,
			&recipe.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// loadLinks fills TagIDs and IngredientIDs of recipes in place.
func loadLinks(ctx context.Context, db DBTX, recipes []types.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	index := make(map[int]int, len(recipes))
	ids := make([]int64, len(recipes))
	for i := range recipes {
		index[recipes[i].ID] = i
		ids[i] = int64(recipes[i].ID)
		recipes[i].TagIDs = []int{}
		recipes[i].IngredientIDs = []int{}
	}

	for _, kind := range []types.AttributeKind{types.AttributeTag, types.AttributeIngredient} {
		t := attributeTables[kind]
		query := `
			SELECT recipe_id, ` + t.linkColumn + `
			FROM ` + t.linkTable + `
			WHERE recipe_id = ANY($1)
			ORDER BY recipe_id, ` + t.linkColumn
		rows, err := db.QueryContext(ctx, query, pq.Array(ids))
		if err != nil {
			return err
		}
		err = func() error {
			defer rows.Close()
			for rows.Next() {
				var recipeID, attrID int
				if err := rows.Scan(&recipeID, &attrID); err != nil {
					return err
				}
				i, ok := index[recipeID]
				if !ok {
					continue
				}
				if kind == types.AttributeTag {
					recipes[i].TagIDs = append(recipes[i].TagIDs, attrID)
				} else {
					recipes[i].IngredientIDs = append(recipes[i].IngredientIDs, attrID)
				}
			}
			return rows.Err()
		}()
		if err != nil {
			return err
		}
	}
	return nil
}

func replaceLinks(ctx context.Context, tx DBTX, t attributeTable, recipeID int, ids []int) error {
	query := `DELETE FROM ` + t.linkTable + ` WHERE recipe_id = $1`
	if _, err := tx.ExecContext(ctx, query, recipeID); err != nil {
		return err
	}
	return insertLinks(ctx, tx, t, recipeID, ids)
}

func insertLinks(ctx context.Context, tx DBTX, t attributeTable, recipeID int, ids []int) error {
	ids = normalizeIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	query := `
		INSERT INTO ` + t.linkTable + ` (recipe_id, ` + t.linkColumn + `)
		SELECT $1, unnest($2::int[])
		ON CONFLICT DO NOTHING`
	_, err := tx.ExecContext(ctx, query, recipeID, pq.Array(toInt64s(ids)))
	return err
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeIDs returns ids sorted ascending without duplicates.
func normalizeIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
