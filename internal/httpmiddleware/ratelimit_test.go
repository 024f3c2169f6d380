package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"facetrack/internal/clock"
)

func TestTokenBucketRefills(t *testing.T) {
	fake := clock.NewFake(time.Time{})
	l := NewTokenBucket(2, 60, fake.Now)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	fake.Advance(500 * time.Millisecond)
	assert.False(t, l.Allow("a"))
	fake.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow("a"))

	fake.Advance(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := clock.NewFake(time.Time{})
	r := gin.New()
	r.Use(NewTokenBucket(1, 1, fake.Now).GinMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
