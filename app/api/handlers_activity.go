package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-sh/inkwell/app/database"
)

const defaultCleanupDays = 30

func (h *Handler) ListActivity(c *gin.Context) {
	filter := database.ActivityFilter{
		Type:   database.ActivityType(c.Query("type")),
		Status: database.ActivityStatus(c.Query("status")),
	}
	page, pageSize := pagination(c)

	entries, total, err := h.activityRepo.GetPaginated(filter, page, pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "list_activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity":  activityListJSON(entries),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) ListRecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := database.ActivityFilter{
		Type: database.ActivityType(c.Query("type")),
	}

	entries, err := h.activityRepo.GetRecent(filter, limit)
	if err != nil {
		slog.Error("Database error", "operation", "recent_activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activityListJSON(entries), "total": len(entries)})
}

func (h *Handler) ListRunningActivity(c *gin.Context) {
	activityType := database.ActivityType(c.DefaultQuery("type", string(database.ActivityPipeline)))

	entries, err := h.activityRepo.GetRunningJobs(activityType)
	if err != nil {
		slog.Error("Database error", "operation", "running_activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activityListJSON(entries), "total": len(entries)})
}

type cleanupRequest struct {
	Days int `json:"days"`
}

// CleanupActivity prunes old activity entries and pipeline states.
func (h *Handler) CleanupActivity(c *gin.Context) {
	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if req.Days <= 0 {
		req.Days = defaultCleanupDays
	}

	deletedActivity, err := h.activityRepo.DeleteOld(req.Days)
	if err != nil {
		slog.Error("Database error", "operation", "cleanup_activity", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	deletedStates, err := h.stateRepo.CleanupOld(req.Days)
	if err != nil {
		slog.Error("Database error", "operation", "cleanup_states", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted_activity": deletedActivity,
		"deleted_states":   deletedStates,
		"days":             req.Days,
	})
}

func activityListJSON(entries []database.ActivityLog) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for i := range entries {
		out = append(out, activityJSON(&entries[i]))
	}
	return out
}
