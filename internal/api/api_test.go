package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/api"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/router"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/testhelpers"
	"github.com/foodgram/foodgram/backend/internal/types"
)

type testServer struct {
	t        *testing.T
	db       *gorm.DB
	services api.Services
	handler  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	media := testhelpers.NewMediaStorage(t)
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"

	services := api.NewServices(db, media, cfg, service.NewDBRevocationStore(db))
	handler := router.SetupRouter(router.Deps{
		Config:   cfg,
		DB:       db,
		Media:    media,
		Services: services,
	})
	return &testServer{t: t, db: db, services: services, handler: handler}
}

// token signs an access token for user without going through login
func (s *testServer) token(user *models.User) string {
	s.t.Helper()
	token, err := s.services.Auth.GenerateToken(user)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/users/", gin.H{
		"email":      "vasya@example.com",
		"username":   "vasya.pupkin",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "Qwerty123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]interface{}](t, w)
	assert.Equal(t, "vasya.pupkin", created["username"])
	assert.Equal(t, false, created["is_subscribed"])
	assert.NotContains(t, created, "password")
	assert.NotContains(t, created, "role")

	w = s.do(http.MethodPost, "/api/auth/token/login/", gin.H{"email": "vasya@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/token/login/", gin.H{"email": "vasya@example.com", "password": "Qwerty123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[types.TokenResponse](t, w).AuthToken
	require.NotEmpty(t, token)

	w = s.do(http.MethodGet, "/api/users/me/", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[types.UserResponse](t, w)
	assert.Equal(t, "vasya@example.com", me.Email)
	assert.Equal(t, "user", me.Role)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/users/me/", nil, "").Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/auth/token/logout/", nil, token).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/users/me/", nil, token).Code)
}

func TestRegisterValidationFields(t *testing.T) {
	s := newTestServer(t)
	testhelpers.CreateUser(t, s.db, "taken")

	w := s.do(http.MethodPost, "/api/users/", gin.H{
		"username":   "me",
		"first_name": "A",
		"last_name":  "B",
		"password":   "Qwerty123",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[types.ErrorResponse](t, w)
	assert.Contains(t, resp.Fields, "email")
	assert.Contains(t, resp.Fields, "username")

	w = s.do(http.MethodPost, "/api/users/", gin.H{
		"email":      "other@example.com",
		"username":   "taken",
		"first_name": "A",
		"last_name":  "B",
		"password":   "Qwerty123",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[types.ErrorResponse](t, w).Fields, "username")

	w = s.do(http.MethodPost, "/api/users/", `{"email": 5}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[types.ErrorResponse](t, w).Fields, "email")

	w = s.do(http.MethodPost, "/api/users/", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPassword(t *testing.T) {
	s := newTestServer(t)
	user := testhelpers.CreateUser(t, s.db, "changer")
	token := s.token(user)

	w := s.do(http.MethodPost, "/api/users/set_password/", gin.H{"current_password": testhelpers.Password}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[types.ErrorResponse](t, w).Fields, "new_password")

	w = s.do(http.MethodPost, "/api/users/set_password/", gin.H{"current_password": "nope", "new_password": "n3w-pass"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/users/set_password/", gin.H{"current_password": testhelpers.Password, "new_password": "n3w-pass"}, token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodPost, "/api/auth/token/login/", gin.H{"email": user.Email, "password": "n3w-pass"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateMeRejectsBlankValues(t *testing.T) {
	s := newTestServer(t)
	user := testhelpers.CreateUser(t, s.db, "blanker")
	token := s.token(user)

	for _, field := range []string{"password", "first_name", "last_name"} {
		w := s.do(http.MethodPatch, "/api/users/me/", gin.H{field: ""}, token)
		require.Equal(t, http.StatusBadRequest, w.Code, field)
		assert.Equal(t, []string{"This field may not be blank."}, decode[types.ErrorResponse](t, w).Fields[field])
	}

	w := s.do(http.MethodPost, "/api/auth/token/login/", gin.H{"email": user.Email, "password": testhelpers.Password}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPatch, "/api/users/me/", gin.H{"first_name": "Renamed"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", decode[types.UserResponse](t, w).FirstName)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice := testhelpers.CreateUser(t, s.db, "alice")
	bob := testhelpers.CreateUser(t, s.db, "bob")

	w := s.do(http.MethodGet, "/api/users/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[types.Page[types.UserResponse]](t, w)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "alice", page.Results[0].Username)
	assert.Empty(t, page.Results[0].Role)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/999/", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/abc/", nil, "").Code)

	// only the user or an admin may delete an account
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/users/"+itoa(bob.ID)+"/", nil, s.token(alice)).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/users/"+itoa(bob.ID)+"/", nil, s.token(bob)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/users/"+itoa(bob.ID)+"/", nil, "").Code)
}

func TestSubscriptions(t *testing.T) {
	s := newTestServer(t)
	fan := testhelpers.CreateUser(t, s.db, "fan")
	chef := testhelpers.CreateUser(t, s.db, "chef")
	tag := testhelpers.CreateTag(t, s.db, "Soup", "soup", "#123456")
	salt := testhelpers.CreateIngredient(t, s.db, "Salt", "g")
	lines := []testhelpers.Line{{Ingredient: salt, Amount: 1}}
	testhelpers.CreateRecipe(t, s.db, chef, "Borscht", []*models.Tag{tag}, lines)
	testhelpers.CreateRecipe(t, s.db, chef, "Shchi", []*models.Tag{tag}, lines)
	token := s.token(fan)
	path := "/api/users/" + itoa(chef.ID) + "/subscribe/"

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, path, nil, "").Code)

	w := s.do(http.MethodPost, path+"?recipes_limit=1", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub := decode[types.SubscriptionResponse](t, w)
	assert.Equal(t, "chef", sub.Username)
	assert.True(t, sub.IsSubscribed)
	assert.EqualValues(t, 2, sub.RecipesCount)
	assert.Len(t, sub.Recipes, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, path, nil, token).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/users/"+itoa(fan.ID)+"/subscribe/", nil, token).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/users/999/subscribe/", nil, token).Code)

	w = s.do(http.MethodGet, "/api/users/"+itoa(chef.ID)+"/", nil, token)
	assert.True(t, decode[types.UserResponse](t, w).IsSubscribed)

	w = s.do(http.MethodGet, "/api/users/subscriptions/", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[types.Page[types.SubscriptionResponse]](t, w)
	require.Len(t, list.Results, 1)
	assert.Len(t, list.Results[0].Recipes, 2)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=-1", nil, token).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=abc", nil, token).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, path, nil, token).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, path, nil, token).Code)
}

func TestTagsAndIngredients(t *testing.T) {
	s := newTestServer(t)
	admin := testhelpers.CreateAdmin(t, s.db, "boss")
	user := testhelpers.CreateUser(t, s.db, "plain")
	testhelpers.CreateIngredient(t, s.db, "Salt", "g")
	testhelpers.CreateIngredient(t, s.db, "Sugar", "g")
	testhelpers.CreateIngredient(t, s.db, "Basil", "g")

	body := gin.H{"name": "Breakfast", "slug": "breakfast", "color": "#E26C2D"}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/tags/", body, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/tags/", body, s.token(user)).Code)

	w := s.do(http.MethodPost, "/api/tags/", body, s.token(admin))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tag := decode[types.TagResponse](t, w)
	assert.Equal(t, "breakfast", tag.Slug)

	w = s.do(http.MethodPost, "/api/tags/", gin.H{"name": "Bad", "slug": "bad slug", "color": "red"}, s.token(admin))
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[types.ErrorResponse](t, w).Fields
	assert.Contains(t, fields, "color")
	assert.Contains(t, fields, "slug")

	w = s.do(http.MethodGet, "/api/tags/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.TagResponse](t, w), 1)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/tags/"+itoa(tag.ID)+"/", nil, "").Code)

	w = s.do(http.MethodGet, "/api/ingredients/?name=s", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	ingredients := decode[[]types.IngredientResponse](t, w)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "Salt", ingredients[0].Name)
	assert.Equal(t, "Sugar", ingredients[1].Name)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/ingredients/999/", nil, "").Code)
}
