package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sternrassler/content-cache/pkg/logging"
	"github.com/Sternrassler/content-cache/pkg/metrics"
	"github.com/Sternrassler/content-cache/pkg/query"
	"github.com/Sternrassler/content-cache/pkg/repository"
	"github.com/Sternrassler/content-cache/pkg/session"
	"github.com/Sternrassler/content-cache/pkg/webhook"
)

const requestTimeout = 30 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type server struct {
	repo     *repository.Repository
	sessions *session.Manager
	webhook  *webhook.Consumer

	// ready is nil for backends without a remote dependency.
	ready pinger
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", healthHandler)
	r.GET("/ready", s.readyHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/stories", s.listHandler)
	r.GET("/stories/by-id/:id", s.byIDHandler)
	r.GET("/stories/by-uuid/:uuid", s.byUUIDHandler)
	r.GET("/stories/slug/*slug", s.bySlugHandler)

	r.POST("/webhook", s.webhook.Handler())
	return r
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *server) readyHandler(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *server) listHandler(c *gin.Context) {
	sc, err := parseCriteria(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()
	mode := s.sessions.FromRequest(c.Request)

	var page *repository.Page
	switch {
	case c.Query("content_type") != "":
		page, err = s.repo.GetListByContentType(ctx, mode, c.Query("content_type"), sc)
	case c.Query("by_uuids") != "":
		keepOrder, _ := strconv.ParseBool(c.Query("keep_order"))
		page, err = s.repo.GetListByUUIDs(ctx, mode, splitCSV(c.Query("by_uuids")), keepOrder, sc)
	default:
		page, err = s.repo.GetList(ctx, mode, sc)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stories":  page.Items,
		"total":    page.TotalCount,
		"page":     page.Criteria.Page,
		"per_page": page.Criteria.PageSize,
		"cv":       page.CV,
	})
}

func (s *server) byIDHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be numeric"})
		return
	}
	s.item(c, func(ctx context.Context, mode session.Mode, opts []repository.ItemOption) (any, error) {
		return s.repo.GetByID(ctx, mode, id, opts...)
	})
}

func (s *server) byUUIDHandler(c *gin.Context) {
	id := c.Param("uuid")
	s.item(c, func(ctx context.Context, mode session.Mode, opts []repository.ItemOption) (any, error) {
		return s.repo.GetByUUID(ctx, mode, id, opts...)
	})
}

func (s *server) bySlugHandler(c *gin.Context) {
	slug := strings.Trim(c.Param("slug"), "/")
	s.item(c, func(ctx context.Context, mode session.Mode, opts []repository.ItemOption) (any, error) {
		return s.repo.GetBySlug(ctx, mode, slug, opts...)
	})
}

type itemLookup func(ctx context.Context, mode session.Mode, opts []repository.ItemOption) (any, error)

func (s *server) item(c *gin.Context, lookup itemLookup) {
	opts, err := parseItemOptions(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	st, err := lookup(ctx, s.sessions.FromRequest(c.Request), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"story": st})
}

func writeError(c *gin.Context, err error) {
	var ve *query.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

func requestLogger() gin.HandlerFunc {
	logger := logging.NewLogger("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	}
}
