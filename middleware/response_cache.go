package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"ghostlore.app/cache"
)

// cachedResponse is the persisted shape of one HTTP response.
type cachedResponse struct {
	Status      int             `json:"status"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// ResponseCache is a read-through cache for GET responses. The key scopes
// the full path and query by caller identity, so personalized bodies never
// leak across users. Only 2xx outcomes are persisted; cache-layer errors
// never block request execution. This middleware has no entity awareness:
// invalidation happens by path pattern from the services' invalidation sets.
func ResponseCache(client *cache.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		identity := c.GetString(ContextUserIDKey)
		key := cache.ResponseKey(identity, c.Request.URL.RequestURI())

		var cached cachedResponse
		if found, _ := client.Get(ctx, key, &cached); found {
			contentType := cached.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Data(cached.Status, contentType, cached.Body)
			c.Abort()
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < 200 || status >= 300 || writer.body.Len() == 0 {
			return
		}

		entry := cachedResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        json.RawMessage(writer.body.Bytes()),
		}
		// Soft policy: a failed store is a lost optimization, nothing more.
		_ = client.Set(ctx, key, entry, ttl)
	}
}

// captureWriter tees the response body so a successful outcome can be
// persisted after the handler runs.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
