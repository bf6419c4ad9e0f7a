package services

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/recipeapp/apiserver/internal/logging"
	"github.com/recipeapp/apiserver/types"
)

// Recipe event types.
const (
	EventRecipeCreated       = "recipe.created"
	EventRecipeDeleted       = "recipe.deleted"
	EventRecipeImageUploaded = "recipe.image_uploaded"
)

// EventPublisher sends an encoded event to a broker channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// RecipeEvent is the JSON payload published for recipe changes.
type RecipeEvent struct {
	Type       string    `json:"type"`
	RecipeID   int       `json:"recipe_id"`
	UserID     int       `json:"user_id"`
	Image      string    `json:"image,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Events publishes recipe events. A nil *Events drops every event, and
// publish failures are logged without being returned.
type Events struct {
	pub     EventPublisher
	channel string
	now     func() time.Time
}

// NewEvents returns nil when pub is nil.
func NewEvents(pub EventPublisher, channel string) *Events {
	if pub == nil {
		return nil
	}
	return &Events{pub: pub, channel: channel, now: time.Now}
}

func (e *Events) RecipeCreated(ctx context.Context, recipe types.Recipe) {
	e.publish(ctx, RecipeEvent{Type: EventRecipeCreated, RecipeID: recipe.ID, UserID: recipe.UserID})
}

func (e *Events) RecipeDeleted(ctx context.Context, userID, recipeID int) {
	e.publish(ctx, RecipeEvent{Type: EventRecipeDeleted, RecipeID: recipeID, UserID: userID})
}

func (e *Events) RecipeImageUploaded(ctx context.Context, recipe types.Recipe) {
	e.publish(ctx, RecipeEvent{Type: EventRecipeImageUploaded, RecipeID: recipe.ID, UserID: recipe.UserID, Image: recipe.Image})
}

func (e *Events) publish(ctx context.Context, event RecipeEvent) {
	if e == nil {
		return
	}
	event.OccurredAt = e.now().UTC()

	logger := logging.Ctx(ctx)
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("event", event.Type).Msg("encode recipe event")
		return
	}

	id, err := e.pub.Publish(ctx, e.channel, data, map[string]string{"type": event.Type})
	if err != nil {
		logger.Warn().Err(err).Str("event", event.Type).Int("recipe_id", event.RecipeID).Msg("publish recipe event failed")
		return
	}
	logger.Debug().Str("event", event.Type).Str("message_id", id).Msg("published recipe event")
}
