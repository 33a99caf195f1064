package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-sh/inkwell/app/database"
)

// RunPipeline triggers a full pipeline run. Returns 409 when another
// run already holds the lock.
func (h *Handler) RunPipeline(c *gin.Context) {
	result, err := h.pipeline.Run(c.Request.Context())
	if err != nil {
		slog.Error("Manual pipeline run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Pipeline run failed", "details": err.Error()})
		return
	}

	if result.Skipped {
		c.JSON(http.StatusConflict, gin.H{"error": "Pipeline already running", "reason": result.Reason})
		return
	}

	c.JSON(http.StatusOK, result)
}

// StreamPipeline runs the pipeline and streams progress as SSE.
func (h *Handler) StreamPipeline(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := h.pipeline.RunWithProgress(c.Request.Context())

	for event := range events {
		c.SSEvent("progress", event)
		c.Writer.Flush()
	}
}

func (h *Handler) RunScrape(c *gin.Context) {
	result := h.pipeline.RunScrapeStage(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RunEvaluate(c *gin.Context) {
	result := h.pipeline.RunEvaluateStage(c.Request.Context())
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RunGenerate(c *gin.Context) {
	edition := database.Edition(c.Query("edition"))
	switch edition {
	case "", database.EditionMorning, database.EditionEvening:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid edition", "edition": string(edition)})
		return
	}

	result := h.pipeline.RunGenerateStage(c.Request.Context(), edition)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListPipelineState(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	states, err := h.stateRepo.GetRecent(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_pipeline_state", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(states))
	for i := range states {
		out = append(out, stateJSON(&states[i]))
	}

	c.JSON(http.StatusOK, gin.H{"states": out, "total": len(out)})
}

func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"morning_hour": h.opts.MorningHour,
		"evening_hour": h.opts.EveningHour,
		"timezone":     h.opts.Timezone,
	})
}

type validateReferencesRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

func (h *Handler) ValidateReferences(c *gin.Context) {
	var req validateReferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	results := h.validator.ValidateAll(c.Request.Context(), req.URLs)

	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
		"valid":   valid,
	})
}
