package cache

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// PerView wraps a handler so its whole response is cached for ttl, keyed by
// route + normalized query params. The first caller in a window pays full
// cost; later callers get the stored response verbatim, stale timestamps
// included. Only 2xx responses are stored.
func PerView(store Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "view:" + RequestKey(c.FullPath(), c.Request.URL.Query())

		b, ok, err := store.Get(c.Request.Context(), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cache store unavailable"})
			return
		}
		if ok {
			var res cachedResponse
			if json.Unmarshal(b, &res) == nil {
				c.Header("X-Cache", string(StatusHit))
				c.Data(res.Status, res.ContentType, res.Body)
				c.Abort()
				return
			}
			// undecodable entry: fall through and overwrite it
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Header("X-Cache", string(StatusMiss))
		c.Next()

		status := w.Status()
		if status < 200 || status > 299 {
			return
		}
		stored, err := json.Marshal(cachedResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
		})
		if err != nil {
			return
		}
		_ = store.Set(c.Request.Context(), key, stored, ttl)
	}
}

// captureWriter tees the response body so it can be stored after the handler
// has written it to the client.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
