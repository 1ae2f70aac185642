package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/testhelpers"
)

type filterFixture struct {
	db        *gorm.DB
	svc       *service.RecipeService
	alice     *models.User
	bob       *models.User
	carol     *models.User
	breakfast *models.Tag
	dinner    *models.Tag
	pancakes  *models.Recipe
	omelette  *models.Recipe
	stew      *models.Recipe
	porridge  *models.Recipe
}

func setupFilterFixture(t *testing.T) *filterFixture {
	db := testhelpers.SetupTestDB(t)
	f := &filterFixture{db: db, svc: service.NewRecipeService(db, testhelpers.NewMediaStorage(t))}

	f.alice = testhelpers.CreateUser(t, db, "alice")
	f.bob = testhelpers.CreateUser(t, db, "bob")
	f.carol = testhelpers.CreateUser(t, db, "carol")
	f.breakfast = testhelpers.CreateTag(t, db, "Breakfast", "breakfast", "#E26C2D")
	f.dinner = testhelpers.CreateTag(t, db, "Dinner", "dinner", "#49B64E")

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	f.pancakes = testhelpers.CreateRecipe(t, db, f.carol, "pancakes", []*models.Tag{f.breakfast}, nil, testhelpers.CreatedAt(base))
	f.omelette = testhelpers.CreateRecipe(t, db, f.carol, "omelette", []*models.Tag{f.breakfast, f.dinner}, nil, testhelpers.CreatedAt(base.Add(time.Hour)))
	f.stew = testhelpers.CreateRecipe(t, db, f.carol, "stew", []*models.Tag{f.dinner}, nil, testhelpers.CreatedAt(base.Add(2*time.Hour)))
	f.porridge = testhelpers.CreateRecipe(t, db, f.bob, "porridge", []*models.Tag{f.breakfast}, nil, testhelpers.CreatedAt(base.Add(3*time.Hour)))
	return f
}

func recipeNames(recipes []models.Recipe) []string {
	names := make([]string, 0, len(recipes))
	for _, r := range recipes {
		names = append(names, r.Name)
	}
	return names
}

func uintPtr(v uint) *uint { return &v }

var firstPage = service.Pagination{Page: 1, Limit: 10}

func TestListAllNewestFirst(t *testing.T) {
	f := setupFilterFixture(t)

	recipes, total, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"porridge", "stew", "omelette", "pancakes"}, recipeNames(recipes))

	// details are preloaded for rendering
	assert.Equal(t, "bob", recipes[0].Author.Username)
	assert.Len(t, recipes[1].Tags, 1)
}

func TestListByTagAndAuthor(t *testing.T) {
	f := setupFilterFixture(t)
	require.Equal(t, uint(3), f.carol.ID)

	recipes, total, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{
		Tags:     []string{"breakfast"},
		AuthorID: uintPtr(3),
	}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"omelette", "pancakes"}, recipeNames(recipes))
}

func TestListTagsAreDistinct(t *testing.T) {
	f := setupFilterFixture(t)

	recipes, total, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{
		Tags: []string{"breakfast", "dinner"},
	}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"porridge", "stew", "omelette", "pancakes"}, recipeNames(recipes))
}

func TestListFavoritesTakePrecedence(t *testing.T) {
	f := setupFilterFixture(t)
	ctx := context.Background()
	relations := service.NewRelationService(f.db)

	_, err := relations.Add(ctx, testhelpers.Caller(f.alice), service.RelationFavorite, f.stew.ID)
	require.NoError(t, err)
	_, err = relations.Add(ctx, testhelpers.Caller(f.alice), service.RelationFavorite, f.porridge.ID)
	require.NoError(t, err)
	_, err = relations.Add(ctx, testhelpers.Caller(f.alice), service.RelationShoppingCart, f.pancakes.ID)
	require.NoError(t, err)

	// favorites win over cart and author
	recipes, _, err := f.svc.List(ctx, testhelpers.Caller(f.alice), service.RecipeFilter{
		IsFavorited:      true,
		IsInShoppingCart: true,
		AuthorID:         uintPtr(f.carol.ID),
	}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"porridge", "stew"}, recipeNames(recipes))

	// tags still narrow the chosen branch
	recipes, _, err = f.svc.List(ctx, testhelpers.Caller(f.alice), service.RecipeFilter{
		IsFavorited: true,
		Tags:        []string{"dinner"},
	}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"stew"}, recipeNames(recipes))

	recipes, _, err = f.svc.List(ctx, testhelpers.Caller(f.alice), service.RecipeFilter{IsInShoppingCart: true}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"pancakes"}, recipeNames(recipes))
}

func TestListAnonymousFallsThrough(t *testing.T) {
	f := setupFilterFixture(t)

	recipes, _, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{
		IsFavorited: true,
		AuthorID:    uintPtr(f.bob.ID),
	}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"porridge"}, recipeNames(recipes))

	recipes, total, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{IsInShoppingCart: true}, firstPage)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, recipes, 4)
}

func TestListUnknownAuthor(t *testing.T) {
	f := setupFilterFixture(t)

	_, _, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{AuthorID: uintPtr(999)}, firstPage)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestListPagination(t *testing.T) {
	f := setupFilterFixture(t)

	recipes, total, err := f.svc.List(context.Background(), middleware.Anonymous(), service.RecipeFilter{}, service.Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"pancakes"}, recipeNames(recipes))
}
