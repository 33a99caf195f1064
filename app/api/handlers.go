package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultPageSize = 20

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.opts.Version,
	}

	if stats, err := h.sourceRepo.Stats(); err == nil {
		total := 0
		for _, n := range stats {
			total += n
		}
		health["sources"] = total
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{}

	if sourceStats, err := h.sourceRepo.Stats(); err == nil {
		stats["sources"] = sourceStats
	}
	if articleStats, err := h.articleRepo.Stats(); err == nil {
		stats["articles"] = articleStats
	}
	if states, err := h.stateRepo.GetRecent(5); err == nil {
		recent := make([]gin.H, 0, len(states))
		for i := range states {
			recent = append(recent, stateJSON(&states[i]))
		}
		stats["recent_runs"] = recent
	}

	c.JSON(http.StatusOK, stats)
}

// pagination reads page/page_size query parameters with sane bounds.
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}
