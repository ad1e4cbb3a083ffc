package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, apiToken string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, apiToken)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiToken string) {
	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.GetStats)

	if apiToken != "" {
		api := r.Group("/api")
		api.Use(tokenAuthMiddleware(apiToken))
		{
			api.POST("/run", handler.Run)
		}
		slog.Info("Trigger endpoint enabled with authentication")
	} else {
		slog.Info("Trigger endpoint disabled (API_TOKEN not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health": "/health",
			"stats":  "/stats",
		}
		if apiToken != "" {
			endpoints["run"] = "/api/run?action=rss|scrape|summary|all (POST, requires X-API-Token header or token query parameter)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "MarketPulse",
			"description": "Korean marketing industry content aggregation pipeline",
			"endpoints":   endpoints,
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// tokenAuthMiddleware gates the trigger endpoints behind the shared token.
// The token is accepted in the X-API-Token header or the token query
// parameter; external cron services often cannot set custom headers.
func tokenAuthMiddleware(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedToken := c.GetHeader("X-API-Token")
		if providedToken == "" {
			providedToken = c.Query("token")
		}

		if providedToken == "" || providedToken != apiToken {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or missing API token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
