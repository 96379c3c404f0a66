package ui

import (
	"fmt"
	"net/http"
	"strings"

	"statlab/domain/stats"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
)

// handleReport renders the current snapshot as an HTML report. Returns 202
// while no completed run exists.
func (s *Server) handleReport(c *gin.Context) {
	snap := s.engine.Snapshot()
	if snap == nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
		return
	}
	html := markdown.ToHTML([]byte(buildReportMarkdown(snap)), nil, nil)
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func buildReportMarkdown(snap *stats.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Descriptive Statistics: %s\n\n", snap.FileStats.FileName)
	fmt.Fprintf(&b, "%d rows, %d columns. Built %s.\n\n",
		snap.FileStats.Rows, snap.FileStats.Columns, snap.BuiltAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Data Quality\n\n")
	fmt.Fprintf(&b, "- Completeness: %.1f%%\n", snap.Quality.Completeness*100)
	fmt.Fprintf(&b, "- Duplicate rows: %d\n", snap.Quality.DuplicateRows)
	fmt.Fprintf(&b, "- Numeric-as-text columns: %d\n", snap.Quality.NumericAsText)
	fmt.Fprintf(&b, "- Suspicious cells (beyond 3x IQR): %d\n\n", snap.Quality.SuspiciousCells)

	b.WriteString("## Columns\n\n")
	b.WriteString("| Column | Type | Missing | Unique | Outliers |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, col := range snap.Columns {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d |\n",
			col.Name, col.Type, col.MissingCount, col.UniqueCount, col.OutlierCount)
	}
	b.WriteString("\n")

	for _, col := range snap.Columns {
		if col.Distribution == nil {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", col.Name)
		fmt.Fprintf(&b, "Distribution: **%s** (confidence %.2f, n=%d, skew %.2f, kurtosis %.2f)\n\n",
			col.Distribution.Type, col.Distribution.Confidence, col.Distribution.SampleSize,
			col.Distribution.Skewness, col.Distribution.Kurtosis)
		if col.Summary != nil {
			fmt.Fprintf(&b, "Mean %.3f, median %.3f, std %.3f, range [%.3f, %.3f]\n\n",
				col.Summary.Mean, col.Summary.Median, col.Summary.StdDev, col.Summary.Min, col.Summary.Max)
		}
	}

	if len(snap.ValidationResults) > 0 {
		b.WriteString("## Validation\n\n")
		for _, result := range snap.ValidationResults {
			status := "passed"
			if !result.Passed {
				status = "FAILED"
			}
			fmt.Fprintf(&b, "- %s / %s: %s %s\n", result.Column, result.Rule, status, result.Message)
		}
	}
	return b.String()
}
