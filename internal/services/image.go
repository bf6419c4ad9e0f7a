package services

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const recipeImageDir = "uploads/recipe"

// IDGenerator produces unique object names.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// RecipeImagePath returns the storage key for an uploaded recipe image:
// uploads/recipe/<id>.<ext>, where ext is the part of the original filename
// after its last dot. A filename without an extension yields a key without
// one.
func RecipeImagePath(gen IDGenerator, filename string) string {
	name := gen.NewID()
	if ext := imageExt(filename); ext != "" {
		name += "." + ext
	}
	return recipeImageDir + "/" + name
}

func imageExt(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}
