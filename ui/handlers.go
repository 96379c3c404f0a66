package ui

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"statlab/domain/dataset"
	"statlab/internal/errors"
	"statlab/internal/statscache"
	"statlab/ports"

	"github.com/gin-gonic/gin"
)

type loadRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleLoad(c *gin.Context) {
	var req loadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ValidationError("path is required"))
		return
	}
	ds, err := s.reader.Read(req.Path)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.engine.Load(ds); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file_name": ds.FileName,
		"rows":      ds.Rows(),
		"columns":   ds.Cols(),
	})
}

func (s *Server) handleColumns(c *gin.Context) {
	names, err := s.engine.Columns()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": names})
}

type deleteRequest struct {
	Columns []string `json:"columns" binding:"required"`
}

func (s *Server) handleDeleteColumns(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ValidationError("columns list is required"))
		return
	}
	preview, err := s.engine.DeleteColumns(req.Columns)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handleColumnFlags(c *gin.Context) {
	flags, err := s.engine.ColumnFlags(c.Param("column"))
	if err != nil {
		writeError(c, err)
		return
	}
	labels := make([]string, len(flags))
	for i, f := range flags {
		labels[i] = f.String()
	}
	c.JSON(http.StatusOK, gin.H{"flags": labels})
}

func (s *Server) handlePointFlag(c *gin.Context) {
	row, err1 := strconv.Atoi(c.Query("row"))
	col, err2 := strconv.Atoi(c.Query("col"))
	if err1 != nil || err2 != nil {
		writeError(c, errors.ValidationError("row and col query params are required"))
		return
	}
	flag, err := s.engine.PointFlag(row, col)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flag": flag.String()})
}

type rangeRequest struct {
	Column string  `json:"column" binding:"required"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func (s *Server) handleColumnQuality(c *gin.Context) {
	quality, err := s.engine.ColumnQuality(c.Param("column"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quality)
}

func (s *Server) handleApplyRange(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ValidationError("column, min, and max are required"))
		return
	}
	result, err := s.engine.ApplyRange(req.Column, req.Min, req.Max)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePlot(c *gin.Context) {
	name := c.Param("column")
	column, flags, err := s.engine.ColumnValues(name)
	if err != nil {
		writeError(c, err)
		return
	}
	values, rows := column.NumericValues()
	valueFlags := make([]dataset.Flag, len(values))
	for i, row := range rows {
		valueFlags[i] = flags[row]
	}
	var handle ports.PlotHandle
	switch kind := c.DefaultQuery("kind", "histogram"); kind {
	case "histogram":
		handle, err = s.plots.Histogram(name, values, valueFlags)
	case "box":
		handle, err = s.plots.Box(name, values, valueFlags)
	default:
		writeError(c, errors.ValidationError(fmt.Sprintf("unknown plot kind %q", kind)))
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Plot-ID", handle.ID)
	c.Data(http.StatusOK, "image/png", handle.PNG)
}

func (s *Server) handleStartAnalysis(c *gin.Context) {
	// The run outlives this request; its lifetime is managed by the engine
	// (Load and Reset cancel it), not by the request context.
	if err := s.engine.StartPipeline(context.Background()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) handleCancelAnalysis(c *gin.Context) {
	s.engine.CancelPipeline()
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Progress())
}

func (s *Server) handleDescriptive(c *gin.Context) {
	snap := s.engine.Snapshot()
	if snap == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

type ruleRequest struct {
	Column        string   `json:"column" binding:"required"`
	MinValue      *float64 `json:"min_value"`
	MaxValue      *float64 `json:"max_value"`
	AllowedValues []string `json:"allowed_values"`
}

func (s *Server) handleAddRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.ValidationError("column is required"))
		return
	}
	rule := statscache.Rule{
		Column:        req.Column,
		MinValue:      req.MinValue,
		MaxValue:      req.MaxValue,
		AllowedValues: req.AllowedValues,
	}
	if err := s.engine.AddValidationRule(rule); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"records": []ports.AnalysisRecord{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
