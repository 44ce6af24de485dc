package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.RedisConfig{
		Addr:         mr.Addr(),
		DialTimeout:  5,
		ReadTimeout:  3,
		WriteTimeout: 3,
	}

	client := cache.NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// asUser injects an authenticated identity ahead of the middleware under test.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func doGet(router *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	client, _ := newTestCache(t)

	router := gin.New()
	router.GET("/private", RequireAuth(client), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doGet(router, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(router, "/private", map[string]string{"Authorization": "Bearer unknown-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ResolvesSessionFromCache(t *testing.T) {
	client, _ := newTestCache(t)
	ctx := context.Background()

	session := models.Session{Token: "tok-1", UserID: "u1", CreatedAt: time.Now()}
	require.NoError(t, client.Set(ctx, cache.SessionKey("tok-1"), session, time.Hour))

	var gotUserID string
	router := gin.New()
	router.GET("/private", RequireAuth(client), func(c *gin.Context) {
		gotUserID = c.GetString(ContextUserIDKey)
		c.Status(http.StatusOK)
	})

	w := doGet(router, "/private", map[string]string{"Authorization": "Bearer tok-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", gotUserID)
}

func TestOptionalAuth_NeverRejects(t *testing.T) {
	client, _ := newTestCache(t)

	router := gin.New()
	router.GET("/public", OptionalAuth(client), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := doGet(router, "/public", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doGet(router, "/public", map[string]string{"Authorization": "Bearer unknown"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCallerIdentity(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.1.2.3:4444"

	assert.Equal(t, "10.1.2.3", CallerIdentity(c))

	c.Set(ContextUserIDKey, "u1")
	assert.Equal(t, "user:u1", CallerIdentity(c))
}
