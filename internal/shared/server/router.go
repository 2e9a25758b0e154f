package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ballot-backend/internal/ballots"
	"ballot-backend/internal/services/health"
	"ballot-backend/internal/shared/config"
	"ballot-backend/internal/shared/metrics"
	"ballot-backend/internal/shared/server/middleware"
	"ballot-backend/internal/shared/server/respond"
	"ballot-backend/internal/tokens"
)

// RouterDeps carries the handlers NewRouter mounts.
type RouterDeps struct {
	Config        config.Config
	Health        *health.Service
	BallotHandler *ballots.Handler
	TokenHandler  *tokens.Handler
	RateLimiter   *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	cfg := deps.Config

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				middleware.UploadRateLimitGroup: middleware.PerMinute(cfg.UploadsPerMinute),
			},
			GroupFor: uploadGroup,
			Limiter:  deps.RateLimiter,
		}),
	)
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}

	api := r.Group(apiPrefix(cfg.APIPrefix))
	api.GET("/health", func(c *gin.Context) {
		st := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !st.Healthy() {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	api.GET("/metrics", metrics.Handler())
	if deps.TokenHandler != nil {
		deps.TokenHandler.RegisterRoutes(api)
	}
	if deps.BallotHandler != nil {
		deps.BallotHandler.RegisterRoutes(api)
	}

	return r
}

func uploadGroup(c *gin.Context) string {
	path := c.FullPath()
	if strings.HasSuffix(path, "/validate") || strings.HasSuffix(path, "/verify-identity") {
		return middleware.UploadRateLimitGroup
	}
	return ""
}

func apiPrefix(prefix string) string {
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "/" {
		return ""
	}
	return prefix
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8001"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
