package sessions

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Desarso/courserag"
	"github.com/Desarso/courserag/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	StaticDir       string
	EnableWebSocket bool
}

// NewRouter builds the gin engine serving the REST API, metrics, the WebSocket
// endpoint and optionally a static frontend.
func NewRouter(service QueryService, logger logrus.FieldLogger, opts RouterOptions) *gin.Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := NewHTTPSession(service, logger, opts.StaticDir)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), requestLogger(s.Logger))

	api := router.Group("/api")
	api.POST("/query", s.handleQuery)
	api.GET("/courses", s.handleCourses)
	api.GET("/sessions/:id/traces", s.handleTraces)

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.EnableWebSocket {
		router.GET("/ws", HandleWebSocket(service, logger))
	}

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})
	router.NoRoute(s.serveStatic)
	return router
}

func (s *HTTPSession) handleQuery(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	ctx := c.Request.Context()
	sessionID := req.Session_ID
	if sessionID == "" {
		id, err := s.Service.CreateSession(ctx)
		if err != nil {
			s.Logger.WithError(err).Error("Failed to create session")
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		sessionID = id
	}

	answer, sources, err := s.Service.Query(ctx, req.Query, sessionID)
	if err != nil {
		if errors.Is(err, courserag.ErrQueryRequired) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
		s.Logger.WithError(err).WithField("session_id", sessionID).Error("Query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if sources == nil {
		sources = []models.Source{}
	}

	c.JSON(http.StatusOK, models.QueryResponse{
		Answer:     answer,
		Sources:    sources,
		Session_ID: sessionID,
	})
}

func (s *HTTPSession) handleCourses(c *gin.Context) {
	stats, err := s.Service.CourseAnalytics(c.Request.Context())
	if err != nil {
		s.Logger.WithError(err).Error("Course analytics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if stats.Course_Titles == nil {
		stats.Course_Titles = []string{}
	}
	c.JSON(http.StatusOK, stats)
}

func (s *HTTPSession) handleTraces(c *gin.Context) {
	traces, err := s.Service.SessionTraces(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, courserag.ErrTracesDisabled) {
			c.JSON(http.StatusNotImplemented, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "traces": traces})
}

func (s *HTTPSession) handleHealth(c *gin.Context) {
	if err := s.Service.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// serveStatic serves the frontend for GET requests outside /api, with
// index.html for directories. Everything else is a 404.
func (s *HTTPSession) serveStatic(c *gin.Context) {
	method := c.Request.Method
	reqPath := c.Request.URL.Path
	if s.StaticDir == "" || (method != http.MethodGet && method != http.MethodHead) || strings.HasPrefix(reqPath, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}

	// path.Clean on a rooted path cannot climb above the static root.
	file := filepath.Join(s.StaticDir, filepath.FromSlash(path.Clean("/"+reqPath)))
	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.File(file)
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}
