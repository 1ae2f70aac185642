// Package integration runs the HTTP API against real postgres and redis
// containers. The tests skip when docker is unavailable or with -short.
package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/api"
	"github.com/foodgram/foodgram/backend/internal/database"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/router"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/foodgram/backend/internal/types"
)

func request(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := testhelpers.SetupPostgres(t)

	require.NoError(t, database.RunMigrations(db))

	migrations, err := database.Migrations()
	require.NoError(t, err)
	var applied int64
	require.NoError(t, db.Table("migrations").Count(&applied).Error)
	assert.EqualValues(t, len(migrations), applied)
}

func TestRecipeFlowOnPostgresAndRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupPostgres(t)
	rdb := testhelpers.SetupRedis(t)
	media := testhelpers.NewMediaStorage(t)

	cfg := config.Default()
	cfg.Auth.JWTSecret = "integration-secret"
	services := api.NewServices(db, media, cfg, service.NewRedisRevocationStore(rdb))
	h := router.SetupRouter(router.Deps{
		Config:        cfg,
		DB:            db,
		Media:         media,
		Services:      services,
		RecipeLimiter: middleware.NewRecipeCreationRateLimiter(rdb, 1),
	})

	chef := testhelpers.CreateUser(t, db, "chef")
	tag := testhelpers.CreateTag(t, db, "Breakfast", "breakfast", "#E26C2D")
	flour := testhelpers.CreateIngredient(t, db, "Flour", "g")
	milk := testhelpers.CreateIngredient(t, db, "Milk", "ml")
	testhelpers.CreateRecipe(t, db, chef, "Porridge", []*models.Tag{tag},
		[]testhelpers.Line{{Ingredient: milk, Amount: 250}})

	w := request(t, h, http.MethodPost, "/api/auth/token/login/", gin.H{"email": chef.Email, "password": testhelpers.Password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login types.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	token := login.AuthToken

	body := gin.H{
		"tags":         []uint{tag.ID},
		"ingredients":  []gin.H{{"id": flour.ID, "amount": 100}, {"id": milk.ID, "amount": 50}},
		"name":         "Pancakes",
		"image":        testhelpers.PNGDataURI,
		"text":         "Mix and fry.",
		"cooking_time": 20,
	}
	w = request(t, h, http.MethodPost, "/api/recipes/", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	var created types.RecipeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	body["name"] = "Waffles"
	w = request(t, h, http.MethodPost, "/api/recipes/", body, token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var porridge models.Recipe
	require.NoError(t, db.Where("name = ?", "Porridge").First(&porridge).Error)
	for _, id := range []uint{created.ID, porridge.ID} {
		path := "/api/recipes/" + strconv.FormatUint(uint64(id), 10) + "/shopping_cart/"
		require.Equal(t, http.StatusOK, request(t, h, http.MethodPost, path, nil, token).Code)
	}
	w = request(t, h, http.MethodGet, "/api/recipes/download_shopping_cart/", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Flour,g,100\nMilk,ml,300\n", w.Body.String())

	w = request(t, h, http.MethodGet, "/api/recipes/?tags=breakfast&is_in_shopping_cart=1", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var page types.Page[types.RecipeResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.EqualValues(t, 2, page.Count)

	require.Equal(t, http.StatusNoContent, request(t, h, http.MethodPost, "/api/auth/token/logout/", nil, token).Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, http.MethodGet, "/api/users/me/", nil, token).Code)

	keys, err := rdb.Keys(context.Background(), "revoked_token:*").Result()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	ttl, err := rdb.TTL(context.Background(), keys[0]).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
