package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/foodgram/backend/config"
	"github.com/foodgram/foodgram/backend/internal/api"
	"github.com/foodgram/foodgram/backend/internal/metrics"
	"github.com/foodgram/foodgram/backend/internal/router"
	"github.com/foodgram/foodgram/backend/internal/service"
	"github.com/foodgram/foodgram/backend/internal/testhelpers"
)

func setup(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.Init()

	db := testhelpers.SetupTestDB(t)
	media := testhelpers.NewMediaStorage(t)
	require.NoError(t, media.Save(context.Background(), "recipes/soup.png", []byte("png-bytes"), "image/png"))

	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	return router.SetupRouter(router.Deps{
		Config:   cfg,
		DB:       db,
		Media:    media,
		Services: api.NewServices(db, media, cfg, service.NewDBRevocationStore(db)),
	})
}

func get(h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	h := setup(t)

	w := get(h, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(h, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `foodgram_http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestServesLocalMedia(t *testing.T) {
	h := setup(t)

	w := get(h, "/media/recipes/soup.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())

	assert.Equal(t, http.StatusNotFound, get(h, "/media/recipes/missing.png", nil).Code)
}

func TestCORS(t *testing.T) {
	h := setup(t)

	w := get(h, "/api/tags/", map[string]string{"Origin": "http://localhost:3000"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(h, "/api/tags/", map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	h := setup(t)

	w := get(h, "/api/recipes/", map[string]string{"Authorization": "Token not-a-jwt"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(h, "/api/recipes/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
