package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// PageViewStore records one view of a path.
type PageViewStore interface {
	Record(ctx context.Context, path string, at time.Time) error
}

// PageViewRecorder records page views per day and path for public content.
func PageViewRecorder(store PageViewStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only record successful page views (2xx) for GET requests.
		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		path := c.Request.URL.Path
		if !countable(path) {
			return
		}
		if err := store.Record(c.Request.Context(), path, time.Now()); err != nil {
			_ = c.Error(err)
		}
	}
}

// countable keeps feeds, uploads and admin traffic out of the statistics.
func countable(path string) bool {
	switch {
	case strings.HasPrefix(path, "/api/v1/posts/"):
		return true
	case path == "/api/v1/posts":
		return true
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/uploads/"):
		return false
	case strings.HasSuffix(path, ".xml"):
		return false
	}
	return true
}
