package types

import "time"

// AttributeKind distinguishes the two kinds of recipe attributes.
type AttributeKind string

// Supported attribute kinds.
const (
	AttributeTag        AttributeKind = "tag"
	AttributeIngredient AttributeKind = "ingredient"
)

// Attribute is a named label owned by a single user and attached to
// recipes. Tags and ingredients share this shape.
type Attribute struct {
	// ID is the unique identifier of the attribute.
	ID int `json:"id" db:"id"`

	// Name is the human-readable label.
	Name string `json:"name" db:"name"`

	// UserID identifies the owner. It is set on creation and never changes.
	UserID int `json:"-" db:"user_id"`
}

// String returns the attribute name.
func (a Attribute) String() string {
	return a.Name
}

// Tag labels a recipe for categorization, e.g. "Vegan" or "Dessert".
type Tag = Attribute

// Ingredient names something a recipe is made from.
type Ingredient = Attribute

// Recipe is a user's recipe with its scalar attributes and the ids of the
// tags and ingredients attached to it.
type Recipe struct {
	// ID is the unique identifier of the recipe.
	ID int `json:"id" db:"id"`

	// UserID identifies the owner. It is set on creation and never changes.
	UserID int `json:"-" db:"user_id"`

	// Title is the human-readable name of the recipe.
	Title string `json:"title" db:"title"`

	// TimeMinutes is the preparation time in minutes.
	TimeMinutes int `json:"time_minutes" db:"time_minutes"`

	// Price is the estimated cost of the recipe.
	Price Price `json:"price" db:"price"`

	// Link is an optional external URL with the full instructions.
	Link string `json:"link" db:"link"`

	// Image is the object storage key of the recipe image, empty when no
	// image has been uploaded.
	Image string `json:"image" db:"image"`

	// TagIDs lists the ids of the attached tags in ascending order.
	TagIDs []int `json:"tags"`

	// IngredientIDs lists the ids of the attached ingredients in ascending order.
	IngredientIDs []int `json:"ingredients"`

	// CreatedAt is the timestamp at which the recipe was created.
	CreatedAt time.Time `json:"-" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the recipe.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// String returns the recipe title.
func (r Recipe) String() string {
	return r.Title
}

// RecipeDetail is a recipe with its tags and ingredients resolved.
type RecipeDetail struct {
	Recipe
	Tags        []Tag
	Ingredients []Ingredient
}
