package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResponseCache_SecondReadServedFromCache(t *testing.T) {
	client, _ := newTestCache(t)

	var handlerCalls int32
	router := gin.New()
	router.GET("/items", ResponseCache(client, time.Minute), func(c *gin.Context) {
		atomic.AddInt32(&handlerCalls, 1)
		c.JSON(http.StatusOK, gin.H{"items": []string{"a", "b"}})
	})

	first := doGet(router, "/items", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doGet(router, "/items", nil)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, int32(1), atomic.LoadInt32(&handlerCalls))
}

func TestResponseCache_QueryStringIsPartOfTheKey(t *testing.T) {
	client, _ := newTestCache(t)

	router := gin.New()
	router.GET("/items", ResponseCache(client, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": c.Query("page")})
	})

	page1 := doGet(router, "/items?page=1", nil)
	page2 := doGet(router, "/items?page=2", nil)
	assert.NotEqual(t, page1.Body.String(), page2.Body.String())
}

func TestResponseCache_ErrorsAreNeverCached(t *testing.T) {
	client, _ := newTestCache(t)

	var handlerCalls int32
	router := gin.New()
	router.GET("/flaky", ResponseCache(client, time.Minute), func(c *gin.Context) {
		calls := atomic.AddInt32(&handlerCalls, 1)
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusInternalServerError, doGet(router, "/flaky", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/flaky", nil).Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&handlerCalls))
}

func TestResponseCache_NonGETBypasses(t *testing.T) {
	client, mr := newTestCache(t)

	router := gin.New()
	router.POST("/items", ResponseCache(client, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"created": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/items", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mr.Keys())
}

func TestResponseCache_ScopedByCallerIdentity(t *testing.T) {
	client, _ := newTestCache(t)

	router := gin.New()
	router.GET("/profile", func(c *gin.Context) {
		if user := c.Query("as"); user != "" {
			c.Set(ContextUserIDKey, user)
		}
		c.Next()
	}, ResponseCache(client, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUserIDKey)})
	})

	u1 := doGet(router, "/profile?as=u1", nil)
	u2 := doGet(router, "/profile?as=u2", nil)

	assert.NotEqual(t, u1.Body.String(), u2.Body.String())
	assert.JSONEq(t, u1.Body.String(), doGet(router, "/profile?as=u1", nil).Body.String())
}

func TestResponseCache_StoreOutageDegradesToPassThrough(t *testing.T) {
	client, mr := newTestCache(t)
	mr.Close()

	var handlerCalls int32
	router := gin.New()
	router.GET("/items", ResponseCache(client, time.Minute), func(c *gin.Context) {
		atomic.AddInt32(&handlerCalls, 1)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	assert.Equal(t, http.StatusOK, doGet(router, "/items", nil).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/items", nil).Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&handlerCalls))
}
