package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facetrack/internal/httpmiddleware"
)

// RouterOptions configures the shared middleware stack.
type RouterOptions struct {
	RateLimitPerMin int
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	// AccessLog enables gin's request logger.
	AccessLog bool
}

// NewRouter builds the gin engine with middleware, /metrics and every route
// of s.
func NewRouter(s *Server, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.AccessLog {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			SkipPaths: []string{"/healthz", "/metrics"},
		}))
	}
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	if opts.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin, nil).GinMiddleware())
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	s.Register(r)
	return r
}
