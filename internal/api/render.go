package api

import (
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/storage"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// Renderer turns models into response bodies. Image keys become URLs of
// the configured media backend.
type Renderer struct {
	media storage.Storage
}

func NewRenderer(media storage.Storage) Renderer {
	return Renderer{media: media}
}

func (r Renderer) user(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func (r Renderer) tag(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func (r Renderer) ingredient(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func (r Renderer) recipe(rec *models.Recipe, state *service.ViewerState) types.RecipeResponse {
	tags := make([]types.TagResponse, 0, len(rec.Tags))
	for i := range rec.Tags {
		tags = append(tags, r.tag(&rec.Tags[i]))
	}
	lines := make([]types.RecipeIngredientResponse, 0, len(rec.Ingredients))
	for _, line := range rec.Ingredients {
		lines = append(lines, types.RecipeIngredientResponse{
			ID:              line.IngredientID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		})
	}

	return types.RecipeResponse{
		ID:               rec.ID,
		Tags:             tags,
		Author:           r.user(&rec.Author, state.Subscribed[rec.AuthorID]),
		Ingredients:      lines,
		IsFavorited:      state.Favorited[rec.ID],
		IsInShoppingCart: state.InCart[rec.ID],
		Name:             rec.Name,
		Image:            r.media.URL(rec.Image),
		Text:             rec.Text,
		CookingTime:      rec.CookingTime,
	}
}

func (r Renderer) recipeShort(rec *models.Recipe) types.RecipeShort {
	return types.RecipeShort{
		ID:          rec.ID,
		Name:        rec.Name,
		Image:       r.media.URL(rec.Image),
		CookingTime: rec.CookingTime,
	}
}

// subscription renders a followed author. The caller always follows them.
func (r Renderer) subscription(s *service.AuthorSummary) types.SubscriptionResponse {
	recipes := make([]types.RecipeShort, 0, len(s.Recipes))
	for i := range s.Recipes {
		recipes = append(recipes, r.recipeShort(&s.Recipes[i]))
	}
	return types.SubscriptionResponse{
		UserResponse: r.user(&s.Author, true),
		Recipes:      recipes,
		RecipesCount: s.RecipesCount,
	}
}
