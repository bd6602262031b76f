package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/devsha256/anypoint-automation-utils/internal/batch"
	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// AppLister fetches the application inventory
type AppLister interface {
	ListApplications(ctx context.Context) ([]api.Application, error)
}

// BatchRunner executes one batch lifecycle run
type BatchRunner interface {
	Run(ctx context.Context, kind api.OperationKind, pattern string) (*api.BatchSummary, error)
}

// HistoryStore lists recorded runs
type HistoryStore interface {
	ListRuns(limit int) ([]*api.RunRecord, error)
}

// WebServer exposes the batch orchestrator over a JSON HTTP API
type WebServer struct {
	port         uint16
	router       *gin.Engine
	orchestrator BatchRunner
	lister       AppLister
	history      HistoryStore
	logger       *logrus.Logger
	server       *http.Server
	mu           sync.RWMutex
}

// NewWebServer creates a new web server instance
func NewWebServer(orchestrator BatchRunner, lister AppLister, history HistoryStore, logger *logrus.Logger, port uint16) *WebServer {
	router := gin.New()

	ws := &WebServer{
		port:         port,
		router:       router,
		orchestrator: orchestrator,
		lister:       lister,
		history:      history,
		logger:       logger,
	}

	ws.setupMiddleware()
	ws.setupRoutes()

	return ws
}

// setupMiddleware sets up the middleware
func (ws *WebServer) setupMiddleware() {
	// Add recovery middleware
	ws.router.Use(RecoveryHandler(ws.logger))

	// Add logging middleware
	ws.router.Use(LoggingMiddleware(ws.logger))

	// Add response time middleware
	ws.router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		c.Header("X-Response-Time", duration.String())
	})
}

// setupRoutes sets up the HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.GET("/health", ws.healthHandler)

	api := ws.router.Group("/api")
	{
		api.GET("/applications", ws.apiApplicationsHandler)
		api.POST("/operations/:kind", ws.apiOperationHandler)
		api.GET("/history", ws.apiHistoryHandler)
	}
}

// healthHandler reports server liveness
func (ws *WebServer) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// apiApplicationsHandler returns the raw fetched inventory
func (ws *WebServer) apiApplicationsHandler(c *gin.Context) {
	apps, err := ws.lister.ListApplications(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "fetch_failed",
			Code:    http.StatusBadGateway,
			Message: err.Error(),
		})
		return
	}

	if apps == nil {
		apps = []api.Application{}
	}
	c.JSON(http.StatusOK, apps)
}

// operationRequest is the body of a batch operation request
type operationRequest struct {
	Pattern string `json:"pattern"`
}

// apiOperationHandler runs one batch lifecycle operation. A completed run
// returns 200 with the summary even when individual commands failed; only an
// aborted run maps to an error status.
func (ws *WebServer) apiOperationHandler(c *gin.Context) {
	kind := api.OperationKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_operation",
			Code:    http.StatusBadRequest,
			Message: fmt.Sprintf("unsupported operation kind: %q", c.Param("kind")),
		})
		return
	}

	// An absent or empty body means "match everything".
	var req operationRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Code:    http.StatusBadRequest,
				Message: err.Error(),
			})
			return
		}
	}

	summary, err := ws.orchestrator.Run(c.Request.Context(), kind, req.Pattern)
	if err != nil {
		status := http.StatusBadGateway
		errCode := "fetch_failed"

		var compileErr *batch.CompileError
		if errors.As(err, &compileErr) {
			status = http.StatusBadRequest
			errCode = "invalid_pattern"
		}

		c.JSON(status, ErrorResponse{
			Error:   errCode,
			Code:    status,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// apiHistoryHandler returns recent run records, newest first
func (ws *WebServer) apiHistoryHandler(c *gin.Context) {
	if ws.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "history_unavailable",
			Code:    http.StatusServiceUnavailable,
			Message: "run history is not enabled",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := ws.history.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "history_failed",
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})
		return
	}

	if records == nil {
		records = []*api.RunRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	addr := fmt.Sprintf("0.0.0.0:%d", ws.port)
	ws.logger.Infof("Starting web server on %s", addr)

	ws.server = &http.Server{
		Addr:    addr,
		Handler: ws.router,
	}

	// Start the server in a goroutine
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Errorf("Failed to start web server: %v", err)
		}
	}()

	return nil
}

// Stop stops the web server
func (ws *WebServer) Stop(ctx context.Context) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.server == nil {
		return nil
	}

	ws.logger.Info("Stopping web server")

	// Shutdown the server with a timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown web server: %w", err)
	}

	ws.server = nil
	return nil
}
