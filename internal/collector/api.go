// api.go serves stored reports over HTTP.

package collector

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strongdm/deskerr/pkg/deskerr"
)

// API is the collector's HTTP surface.
type API struct {
	service *Service
	issue   deskerr.IssueConfig
	logger  *slog.Logger
	started time.Time
}

// NewAPI creates the HTTP API for service. Issue URLs use issue.
func NewAPI(service *Service, issue deskerr.IssueConfig) *API {
	return &API{
		service: service,
		issue:   issue,
		logger:  service.logger,
		started: time.Now(),
	}
}

// Router builds the gin engine.
func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLogger())

	r.GET("/healthz", a.health)
	r.GET("/metrics", gin.WrapH(a.service.Metrics().Handler()))

	reports := r.Group("/reports")
	{
		reports.GET("", a.listReports)
		reports.GET("/:id", a.getReport)
		reports.GET("/:id/issue-url", a.issueURL)
	}
	return r
}

// Serve runs the API on addr until ctx is done.
func (a *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("collector API listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *API) health(c *gin.Context) {
	count, err := a.service.Store().Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"reports": count,
		"uptime":  time.Since(a.started).Round(time.Second).String(),
	})
}

func (a *API) listReports(c *gin.Context) {
	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	reports, err := a.service.Store().List(c.Request.Context(), limit)
	if err != nil {
		a.internalError(c, err)
		return
	}
	if reports == nil {
		reports = []*StoredReport{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (a *API) getReport(c *gin.Context) {
	report, ok := a.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) issueURL(c *gin.Context) {
	report, ok := a.lookup(c)
	if !ok {
		return
	}
	info := deskerr.IssueInfo{
		Version:     report.Payload.Version,
		Platform:    report.Payload.Platform,
		Path:        c.Query("path"),
		Language:    report.Payload.Language,
		CountryCode: report.Payload.CountryCode,
	}
	c.JSON(http.StatusOK, gin.H{"url": deskerr.ComposeIssueURL(a.issue, report.Entry(), info)})
}

func (a *API) lookup(c *gin.Context) (*StoredReport, bool) {
	report, err := a.service.Store().Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return nil, false
	}
	if err != nil {
		a.internalError(c, err)
		return nil, false
	}
	return report, true
}

func (a *API) internalError(c *gin.Context, err error) {
	a.logger.Error("collector API error",
		slog.String("path", c.FullPath()),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
