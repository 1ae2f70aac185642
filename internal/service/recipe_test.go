package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/mocks"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/storage"
	"github.com/foodgram/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/foodgram/backend/internal/types"
)

type recipeFixture struct {
	db     *gorm.DB
	svc    *service.RecipeService
	media  *storage.LocalStorage
	author *models.User
	tag    *models.Tag
	salt   *models.Ingredient
	eggs   *models.Ingredient
}

func setupRecipeFixture(t *testing.T) (*recipeFixture, func() int64) {
	db := testhelpers.SetupTestDB(t)
	media := testhelpers.NewMediaStorage(t)
	f := &recipeFixture{
		db:     db,
		svc:    service.NewRecipeService(db, media),
		media:  media,
		author: testhelpers.CreateUser(t, db, "cook"),
		tag:    testhelpers.CreateTag(t, db, "Lunch", "lunch", "#abc"),
		salt:   testhelpers.CreateIngredient(t, db, "Salt", "g"),
		eggs:   testhelpers.CreateIngredient(t, db, "Eggs", "pcs"),
	}
	countRecipes := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.Recipe{}).Count(&n).Error)
		return n
	}
	return f, countRecipes
}

func (f *recipeFixture) request() *types.RecipeCreateRequest {
	return &types.RecipeCreateRequest{
		Tags:        []uint{f.tag.ID},
		Ingredients: []types.IngredientAmount{{ID: f.salt.ID, Amount: 3}, {ID: f.eggs.ID, Amount: 2}},
		Name:        "Omelette",
		Image:       testhelpers.PNGDataURI,
		Text:        "Whisk and fry.",
		CookingTime: 7,
	}
}

func (f *recipeFixture) mediaExists(key string) bool {
	_, err := os.Stat(filepath.Join(f.media.Root(), key))
	return err == nil
}

func TestCreateRecipe(t *testing.T) {
	f, _ := setupRecipeFixture(t)

	recipe, err := f.svc.Create(context.Background(), testhelpers.Caller(f.author), f.request())
	require.NoError(t, err)
	assert.Equal(t, "Omelette", recipe.Name)
	assert.Equal(t, f.author.ID, recipe.Author.ID)
	require.Len(t, recipe.Tags, 1)
	assert.Equal(t, "lunch", recipe.Tags[0].Slug)
	require.Len(t, recipe.Ingredients, 2)
	assert.Equal(t, "Salt", recipe.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 3, recipe.Ingredients[0].Amount)
	assert.True(t, f.mediaExists(recipe.Image))
}

func TestCreateRecipeValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *recipeFixture, req *types.RecipeCreateRequest)
		field  string
	}{
		{"zero cooking time", func(_ *recipeFixture, req *types.RecipeCreateRequest) { req.CookingTime = 0 }, "cooking_time"},
		{"cooking time above a day", func(_ *recipeFixture, req *types.RecipeCreateRequest) { req.CookingTime = 1441 }, "cooking_time"},
		{"no tags", func(_ *recipeFixture, req *types.RecipeCreateRequest) { req.Tags = nil }, "tags"},
		{"repeated tags", func(f *recipeFixture, req *types.RecipeCreateRequest) { req.Tags = []uint{f.tag.ID, f.tag.ID} }, "tags"},
		{"no ingredients", func(_ *recipeFixture, req *types.RecipeCreateRequest) { req.Ingredients = nil }, "ingredients"},
		{"repeated ingredient", func(f *recipeFixture, req *types.RecipeCreateRequest) {
			req.Ingredients = []types.IngredientAmount{{ID: f.salt.ID, Amount: 1}, {ID: f.salt.ID, Amount: 2}}
		}, "ingredients"},
		{"zero amount", func(f *recipeFixture, req *types.RecipeCreateRequest) {
			req.Ingredients = []types.IngredientAmount{{ID: f.salt.ID, Amount: 0}}
		}, "ingredients"},
		{"bad image", func(_ *recipeFixture, req *types.RecipeCreateRequest) { req.Image = "not an image" }, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, countRecipes := setupRecipeFixture(t)
			req := f.request()
			tt.mutate(f, req)

			_, err := f.svc.Create(context.Background(), testhelpers.Caller(f.author), req)
			var verr *service.ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Zero(t, countRecipes())
		})
	}
}

func TestCreateRecipeUnknownReferences(t *testing.T) {
	f, countRecipes := setupRecipeFixture(t)

	req := f.request()
	req.Tags = []uint{f.tag.ID, 999}
	_, err := f.svc.Create(context.Background(), testhelpers.Caller(f.author), req)
	assert.True(t, errors.Is(err, service.ErrNotFound))

	req = f.request()
	req.Ingredients = []types.IngredientAmount{{ID: 999, Amount: 1}}
	_, err = f.svc.Create(context.Background(), testhelpers.Caller(f.author), req)
	assert.True(t, errors.Is(err, service.ErrNotFound))

	// the transaction rolled back every partial write
	assert.Zero(t, countRecipes())
}

func TestUpdateRecipe(t *testing.T) {
	f, _ := setupRecipeFixture(t)
	ctx := context.Background()
	caller := testhelpers.Caller(f.author)

	recipe, err := f.svc.Create(ctx, caller, f.request())
	require.NoError(t, err)
	oldImage := recipe.Image

	name := "Scrambled eggs"
	image := testhelpers.PNGDataURI
	ingredients := []types.IngredientAmount{{ID: f.eggs.ID, Amount: 4}}
	updated, err := f.svc.Update(ctx, caller, recipe.ID, &types.RecipeUpdateRequest{
		Name:        &name,
		Image:       &image,
		Ingredients: &ingredients,
	})
	require.NoError(t, err)
	assert.Equal(t, "Scrambled eggs", updated.Name)
	assert.Equal(t, 7, updated.CookingTime)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, "Eggs", updated.Ingredients[0].Ingredient.Name)
	require.Len(t, updated.Tags, 1, "tags untouched when absent")

	assert.NotEqual(t, oldImage, updated.Image)
	assert.False(t, f.mediaExists(oldImage))
	assert.True(t, f.mediaExists(updated.Image))

	bad := 0
	_, err = f.svc.Update(ctx, caller, recipe.ID, &types.RecipeUpdateRequest{CookingTime: &bad})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "cooking_time")
}

func TestRecipeOwnership(t *testing.T) {
	f, countRecipes := setupRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, testhelpers.Caller(f.author), f.request())
	require.NoError(t, err)

	stranger := middleware.Caller{UserID: f.author.ID + 100, Role: models.RoleUser}
	name := "Hijacked"
	_, err = f.svc.Update(ctx, stranger, recipe.ID, &types.RecipeUpdateRequest{Name: &name})
	assert.True(t, errors.Is(err, service.ErrForbidden))
	assert.True(t, errors.Is(f.svc.Delete(ctx, stranger, recipe.ID), service.ErrForbidden))

	_, err = f.svc.Update(ctx, testhelpers.Caller(f.author), 999, &types.RecipeUpdateRequest{Name: &name})
	assert.True(t, errors.Is(err, service.ErrNotFound))

	admin := middleware.Caller{UserID: f.author.ID + 200, Role: models.RoleAdmin}
	require.NoError(t, f.svc.Delete(ctx, admin, recipe.ID))
	assert.Zero(t, countRecipes())
	assert.False(t, f.mediaExists(recipe.Image))

	_, err = f.svc.Get(ctx, recipe.ID)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestViewerState(t *testing.T) {
	f, _ := setupRecipeFixture(t)
	ctx := context.Background()

	recipe, err := f.svc.Create(ctx, testhelpers.Caller(f.author), f.request())
	require.NoError(t, err)

	state, err := f.svc.ViewerState(ctx, middleware.Anonymous(), []models.Recipe{*recipe})
	require.NoError(t, err)
	assert.False(t, state.Favorited[recipe.ID])

	caller := testhelpers.Caller(f.author)
	_, err = service.NewRelationService(f.db).Add(ctx, caller, service.RelationFavorite, recipe.ID)
	require.NoError(t, err)

	state, err = f.svc.ViewerState(ctx, caller, []models.Recipe{*recipe})
	require.NoError(t, err)
	assert.True(t, state.Favorited[recipe.ID])
	assert.False(t, state.InCart[recipe.ID])
	assert.False(t, state.Subscribed[f.author.ID])
}

func TestCreateRecipeMediaFailures(t *testing.T) {
	f, countRecipes := setupRecipeFixture(t)
	ctx := context.Background()

	media := new(mocks.MockStorage)
	media.On("Save", mock.Anything, mock.Anything, mock.Anything, "image/png").Return(errors.New("bucket unavailable")).Once()
	svc := service.NewRecipeService(f.db, media)

	_, err := svc.Create(ctx, testhelpers.Caller(f.author), f.request())
	assert.ErrorContains(t, err, "bucket unavailable")
	assert.Zero(t, countRecipes())
	media.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	// an image stored before the transaction fails is removed again
	media.On("Save", mock.Anything, mock.Anything, mock.Anything, "image/png").Return(nil).Once()
	media.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "recipes/")
	})).Return(nil).Once()

	req := f.request()
	req.Tags = []uint{999}
	_, err = svc.Create(ctx, testhelpers.Caller(f.author), req)
	assert.True(t, errors.Is(err, service.ErrNotFound))
	assert.Zero(t, countRecipes())
	media.AssertExpectations(t)
}
