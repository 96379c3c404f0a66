// Package ui is the HTTP layer over the engine. It adapts requests into
// engine calls and engine errors into status codes; no statistics live here.
package ui

import (
	"fmt"
	"net/http"

	"statlab/internal"
	"statlab/internal/config"
	"statlab/internal/engine"
	"statlab/internal/errors"
	"statlab/ports"

	"github.com/gin-gonic/gin"
)

// Server represents the web server for the analysis engine.
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	reader  ports.DatasetReader
	plots   ports.PlotRenderer
	history ports.HistoryStore
	logger  *internal.Logger
}

// NewServer wires the engine and its collaborators behind a gin router.
// history may be nil when no durable log is configured.
func NewServer(cfg *config.Config, eng *engine.Engine, reader ports.DatasetReader, plots ports.PlotRenderer, history ports.HistoryStore, logger *internal.Logger) *Server {
	gin.SetMode(cfg.Server.GinMode)
	s := &Server{
		router:  gin.New(),
		engine:  eng,
		reader:  reader,
		plots:   plots,
		history: history,
		logger:  logger,
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	data := api.Group("/data")
	data.POST("/load", s.handleLoad)
	data.GET("/columns", s.handleColumns)
	data.POST("/columns/delete", s.handleDeleteColumns)
	data.GET("/flags/:column", s.handleColumnFlags)
	data.GET("/quality/:column", s.handleColumnQuality)
	data.GET("/flag", s.handlePointFlag)
	data.POST("/range", s.handleApplyRange)
	data.GET("/plot/:column", s.handlePlot)

	analysis := api.Group("/analysis")
	analysis.POST("/start", s.handleStartAnalysis)
	analysis.POST("/cancel", s.handleCancelAnalysis)
	analysis.GET("/progress", s.handleProgress)
	analysis.GET("/descriptive", s.handleDescriptive)

	api.POST("/validation/rules", s.handleAddRule)
	api.GET("/history", s.handleHistory)

	s.router.GET("/report", s.handleReport)
}

// Run starts the HTTP server on the configured port.
func (s *Server) Run(port string) error {
	s.logger.Info("listening on :%s", port)
	return s.router.Run(fmt.Sprintf(":%s", port))
}

// writeError maps engine error codes to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeValidationError, errors.CodeLoadError, errors.CodeDeletionError:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeAlreadyRunning:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}
