package http

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sea-rag/internal/logger"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func newRouter(cfg Config, h *handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger())
	r.Use(corsMiddleware(cfg.CORSOrigins))

	api := r.Group(APIPrefix)
	{
		api.GET("/health", h.health)

		// Chat
		api.POST("/chat", h.requireChat, h.chat)
		api.POST("/chat/clear", h.requireChat, h.clearChat)
		api.POST("/query", h.requireChat, h.query)

		// PDF
		api.POST("/pdf/upload", h.requireIngest, h.upload)
		api.POST("/pdf/parse", h.requireIngest, h.parse)
		api.GET("/pdf/status", h.requireIngest, h.status)
		api.GET("/pdf/page", h.requireFiles, h.page)
		api.GET("/pdf/page-images", h.requireFiles, h.pageImages)
		api.GET("/pdf/images", h.requireFiles, h.image)

		// Index
		api.POST("/index/build", h.requireIngest, h.buildIndex)
		api.POST("/index/search", h.requireSearch, h.search)

		// Files
		api.GET("/files/list", h.requireFiles, h.listFiles)
		api.DELETE("/files/:fileId", h.requireFiles, h.deleteFile)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestId"
)

// requestID assigns every request an id echoed in error envelopes.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		log := logger.With(
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
		)
		switch {
		case status >= 500:
			log.Error("HTTP request")
		case status >= 400:
			log.Warn("HTTP request")
		default:
			log.Debug("HTTP request")
		}
	}
}
