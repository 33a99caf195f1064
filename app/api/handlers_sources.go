package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
)

func (h *Handler) ListSources(c *gin.Context) {
	filter := database.SourceFilter{
		Status: database.SourceStatus(c.Query("status")),
		Type:   database.SourceType(c.Query("type")),
	}
	page, pageSize := pagination(c)

	sources, total, err := h.sourceRepo.GetFiltered(filter, page, pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources":   sourceListJSON(sources),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) ListUnreviewedSources(c *gin.Context) {
	page, pageSize := pagination(c)

	sources, total, err := h.sourceRepo.GetUnreviewed(page, pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "list_unreviewed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources":   sourceListJSON(sources),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) ListSelectedSources(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	sources, err := h.sourceRepo.GetSelectedForGeneration(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_selected", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sourceListJSON(sources),
		"total":   len(sources),
	})
}

func (h *Handler) GetSource(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sourceDetailJSON(source))
}

type createSourceRequest struct {
	URL      string `json:"url" binding:"required"`
	Priority int    `json:"priority"`
}

// CreateSource ingests a single URL: it is scraped immediately and
// stored as a pending source.
func (h *Handler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Priority < 0 || req.Priority > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be between 0 and 5"})
		return
	}

	if existing, err := h.sourceRepo.GetByURL(req.URL); err == nil && existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Source with this URL already exists", "id": existing.ID})
		return
	}

	sc, err := h.registry.ForURL(req.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported URL", "details": err.Error()})
		return
	}

	content, err := sc.Scrape(c.Request.Context(), req.URL)
	if err != nil {
		slog.Error("Manual source scrape failed", "url", req.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to scrape URL", "details": err.Error()})
		return
	}

	now := time.Now().UTC()
	source := &database.Source{
		Type:      content.Type,
		Title:     content.Title,
		URL:       content.URL,
		Content:   content.Content,
		Summary:   content.Summary,
		Metadata:  content.Metadata,
		Status:    database.SourceStatusPending,
		Priority:  req.Priority,
		ScrapedAt: &now,
	}

	created, err := h.sourceRepo.Create(source)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateURL) {
			c.JSON(http.StatusConflict, gin.H{"error": "Source with this URL already exists"})
			return
		}
		slog.Error("Database error", "operation", "create_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, sourceDetailJSON(created))
}

func (h *Handler) DeleteSource(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	if err := h.sourceRepo.Delete(source.ID); err != nil {
		slog.Error("Database error", "operation", "delete_source", "id", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type selectSourceRequest struct {
	Selected bool   `json:"selected"`
	Note     string `json:"note"`
}

func (h *Handler) SelectSource(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	var req selectSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.sourceRepo.UpdateSelection(source.ID, req.Selected, req.Note); err != nil {
		slog.Error("Database error", "operation", "select_source", "id", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": source.ID, "selected": req.Selected})
}

type bulkSelectRequest struct {
	IDs      []string `json:"ids" binding:"required"`
	Selected bool     `json:"selected"`
	Note     string   `json:"note"`
}

func (h *Handler) BulkSelectSources(c *gin.Context) {
	var req bulkSelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	updated := 0
	var failed []string
	for _, id := range req.IDs {
		if err := h.sourceRepo.UpdateSelection(id, req.Selected, req.Note); err != nil {
			slog.Warn("Bulk selection update failed", "id", id, "error", err)
			failed = append(failed, id)
			continue
		}
		updated++
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated, "failed": failed})
}

type priorityRequest struct {
	Priority int `json:"priority"`
}

func (h *Handler) SetSourcePriority(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Priority < 0 || req.Priority > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Priority must be between 0 and 5"})
		return
	}

	if err := h.sourceRepo.UpdatePriority(source.ID, req.Priority); err != nil {
		slog.Error("Database error", "operation", "set_priority", "id", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": source.ID, "priority": req.Priority})
}

type sourceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) SetSourceStatus(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	var req sourceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	status := database.SourceStatus(req.Status)
	switch status {
	case database.SourceStatusPending, database.SourceStatusSelected,
		database.SourceStatusProcessed, database.SourceStatusSkipped,
		database.SourceStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source status", "status": req.Status})
		return
	}

	if err := h.sourceRepo.UpdateStatus(source.ID, status, ""); err != nil {
		slog.Error("Database error", "operation", "set_source_status", "id", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": source.ID, "status": status})
}

func (h *Handler) RescrapeSource(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	sc, err := h.registry.ForURL(source.URL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported URL", "details": err.Error()})
		return
	}

	content, err := sc.Scrape(c.Request.Context(), source.URL)
	if err != nil {
		slog.Error("Rescrape failed", "id", source.ID, "url", source.URL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to scrape URL", "details": err.Error()})
		return
	}

	now := time.Now().UTC()
	if err := h.sourceRepo.UpdateContent(source.ID, content.Title, content.Content, content.Summary, now); err != nil {
		slog.Error("Database error", "operation", "rescrape_source", "id", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": source.ID, "scraped_at": now})
}

func (h *Handler) EvaluateSource(c *gin.Context) {
	source, ok := h.loadSource(c)
	if !ok {
		return
	}

	eval, err := h.evaluator.EvaluateSource(c.Request.Context(), source.Type, source.Title, source.URL, source.Content, source.Summary)
	if err != nil {
		slog.Error("Source evaluation failed", "id", source.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Evaluation failed", "details": err.Error()})
		return
	}

	if err := h.applyEvaluation(source.ID, eval.RelevanceScore, eval.SuggestedTopic, eval.Reason); err != nil {
		slog.Error("Database error", "operation", "evaluate_source", "id", source.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              source.ID,
		"relevance_score": eval.RelevanceScore,
		"suggested_topic": eval.SuggestedTopic,
		"reason":          eval.Reason,
		"is_recommended":  eval.IsRecommended,
		"auto_selected":   eval.RelevanceScore >= h.opts.MinScore,
	})
}

type evaluateBatchRequest struct {
	SourceIDs []string `json:"source_ids"`
}

// EvaluateSourcesBatch scores several sources in a single LLM call.
// Without explicit IDs it evaluates the next page of unreviewed sources.
func (h *Handler) EvaluateSourcesBatch(c *gin.Context) {
	// An empty body means "evaluate the next unreviewed page".
	var req evaluateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sources, err := h.resolveBatchSources(req.SourceIDs)
	if err != nil {
		slog.Error("Database error", "operation", "evaluate_batch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(sources) == 0 {
		c.JSON(http.StatusOK, gin.H{"evaluated": 0, "results": []gin.H{}})
		return
	}

	batch := make([]generator.BatchSource, 0, len(sources))
	for i := range sources {
		batch = append(batch, generator.BatchSource{
			ID:      sources[i].ID,
			Type:    sources[i].Type,
			Title:   sources[i].Title,
			URL:     sources[i].URL,
			Summary: sources[i].Summary,
		})
	}

	results, err := h.evaluator.EvaluateBatch(c.Request.Context(), batch)
	if err != nil {
		slog.Error("Batch evaluation failed", "count", len(batch), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Evaluation failed", "details": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(results))
	for _, result := range results {
		if err := h.applyEvaluation(result.SourceID, result.RelevanceScore, result.SuggestedTopic, result.Reason); err != nil {
			slog.Warn("Failed to persist evaluation", "id", result.SourceID, "error", err)
			continue
		}
		out = append(out, gin.H{
			"id":              result.SourceID,
			"relevance_score": result.RelevanceScore,
			"suggested_topic": result.SuggestedTopic,
			"auto_selected":   result.RelevanceScore >= h.opts.MinScore,
		})
	}

	c.JSON(http.StatusOK, gin.H{"evaluated": len(out), "results": out})
}

// EvaluatePendingSources streams per-source evaluation results as SSE,
// one LLM call at a time with a fixed delay between calls.
func (h *Handler) EvaluatePendingSources(c *gin.Context) {
	sources, _, err := h.sourceRepo.GetUnreviewed(1, 50)
	if err != nil {
		slog.Error("Database error", "operation", "evaluate_pending", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	evaluated := 0
	for i := range sources {
		source := &sources[i]

		eval, err := h.evaluator.EvaluateSource(c.Request.Context(), source.Type, source.Title, source.URL, source.Content, source.Summary)
		if err != nil {
			c.SSEvent("error", gin.H{"id": source.ID, "error": err.Error()})
			c.Writer.Flush()
			continue
		}

		if err := h.applyEvaluation(source.ID, eval.RelevanceScore, eval.SuggestedTopic, eval.Reason); err != nil {
			c.SSEvent("error", gin.H{"id": source.ID, "error": err.Error()})
			c.Writer.Flush()
			continue
		}

		evaluated++
		c.SSEvent("result", gin.H{
			"id":              source.ID,
			"title":           source.Title,
			"relevance_score": eval.RelevanceScore,
			"auto_selected":   eval.RelevanceScore >= h.opts.MinScore,
		})
		c.Writer.Flush()

		if i < len(sources)-1 && h.opts.EvaluateDelay > 0 {
			select {
			case <-c.Request.Context().Done():
				return
			case <-time.After(h.opts.EvaluateDelay):
			}
		}
	}

	c.SSEvent("done", gin.H{"evaluated": evaluated, "total": len(sources)})
	c.Writer.Flush()
}

func (h *Handler) loadSource(c *gin.Context) (*database.Source, bool) {
	id := c.Param("id")

	source, err := h.sourceRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return nil, false
	}
	return source, true
}

// applyEvaluation persists a score and auto-selects the source when it
// clears the configured threshold.
func (h *Handler) applyEvaluation(id string, score int, topic, reason string) error {
	if err := h.sourceRepo.UpdateEvaluation(id, score, topic, time.Now().UTC()); err != nil {
		return err
	}
	if score >= h.opts.MinScore {
		return h.sourceRepo.UpdateSelection(id, true, "Auto-selected: "+reason)
	}
	return nil
}

func (h *Handler) resolveBatchSources(ids []string) ([]database.Source, error) {
	if len(ids) == 0 {
		sources, _, err := h.sourceRepo.GetUnreviewed(1, 20)
		return sources, err
	}

	var out []database.Source
	for _, id := range ids {
		source, err := h.sourceRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if source == nil {
			continue
		}
		out = append(out, *source)
	}
	return out, nil
}

func sourceListJSON(sources []database.Source) []gin.H {
	out := make([]gin.H, 0, len(sources))
	for i := range sources {
		out = append(out, sourceJSON(&sources[i]))
	}
	return out
}
