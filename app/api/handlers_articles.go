package api

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
)

func (h *Handler) ListArticles(c *gin.Context) {
	filter := database.ArticleFilter{
		Status:  database.ArticleStatus(c.Query("status")),
		Edition: database.Edition(c.Query("edition")),
		Tag:     c.Query("tag"),
	}
	page, pageSize := pagination(c)

	articles, total, err := h.articleRepo.GetFiltered(filter, page, pageSize)
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(articles))
	for i := range articles {
		out = append(out, articleJSON(&articles[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"articles":  out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, articleDetailJSON(article))
}

func (h *Handler) GetArticleBySlug(c *gin.Context) {
	slug := c.Param("slug")

	article, err := h.articleRepo.GetBySlug(slug)
	if err != nil {
		slog.Error("Database error", "operation", "get_article_by_slug", "slug", slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	c.JSON(http.StatusOK, articleDetailJSON(article))
}

type createArticleRequest struct {
	Title           string   `json:"title" binding:"required"`
	Subtitle        string   `json:"subtitle"`
	Content         string   `json:"content" binding:"required"`
	Tags            []string `json:"tags"`
	MetaDescription string   `json:"meta_description"`
	Edition         string   `json:"edition"`
}

func (h *Handler) CreateArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	edition := database.Edition(req.Edition)
	switch edition {
	case "", database.EditionMorning, database.EditionEvening:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid edition", "edition": req.Edition})
		return
	}

	slug, err := generator.UniqueSlug(req.Title, h.articleRepo.SlugExists)
	if err != nil {
		slog.Error("Slug generation failed", "title", req.Title, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate slug"})
		return
	}

	article := &database.Article{
		Title:           req.Title,
		Subtitle:        req.Subtitle,
		Slug:            slug,
		Content:         req.Content,
		Tags:            req.Tags,
		WordCount:       len(strings.Fields(req.Content)),
		CharCount:       utf8.RuneCountInString(req.Content),
		Status:          database.ArticleStatusDraft,
		Edition:         edition,
		MetaDescription: req.MetaDescription,
		HeroImageStatus: database.HeroImageNone,
	}

	created, err := h.articleRepo.Create(article)
	if err != nil {
		slog.Error("Database error", "operation", "create_article", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusCreated, articleDetailJSON(created))
}

type updateArticleRequest struct {
	Title           string   `json:"title" binding:"required"`
	Subtitle        string   `json:"subtitle"`
	Content         string   `json:"content" binding:"required"`
	Tags            []string `json:"tags"`
	MetaDescription string   `json:"meta_description"`
}

// UpdateArticle replaces the editable fields. The repository snapshots
// the previous content into the version log before applying the change.
func (h *Handler) UpdateArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	updated, err := h.articleRepo.Update(article.ID, req.Title, req.Subtitle, req.Content, req.MetaDescription, req.Tags)
	if err != nil {
		slog.Error("Database error", "operation", "update_article", "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, articleDetailJSON(updated))
}

func (h *Handler) DeleteArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	if err := h.articleRepo.Delete(article.ID); err != nil {
		slog.Error("Database error", "operation", "delete_article", "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type articleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) SetArticleStatus(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	var req articleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	status := database.ArticleStatus(req.Status)
	switch status {
	case database.ArticleStatusDraft, database.ArticleStatusReview,
		database.ArticleStatusPublished, database.ArticleStatusArchived:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article status", "status": req.Status})
		return
	}

	if err := h.articleRepo.UpdateStatus(article.ID, status); err != nil {
		slog.Error("Database error", "operation", "set_article_status", "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": article.ID, "status": status})
}

type improveArticleRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

// ImproveArticle regenerates the article content from reviewer feedback
// and stores the result as a new version.
func (h *Handler) ImproveArticle(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	var req improveArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	improved, err := h.writer.ImproveArticle(c.Request.Context(), article.Content, req.Feedback)
	if err != nil {
		slog.Error("Article improvement failed", "id", article.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Improvement failed", "details": err.Error()})
		return
	}

	title := improved.Title
	if title == "" {
		title = article.Title
	}
	subtitle := improved.Subtitle
	if subtitle == "" {
		subtitle = article.Subtitle
	}
	tags := improved.Tags
	if len(tags) == 0 {
		tags = article.Tags
	}
	metaDescription := improved.MetaDescription
	if metaDescription == "" {
		metaDescription = article.MetaDescription
	}

	updated, err := h.articleRepo.Update(article.ID, title, subtitle, improved.Content, metaDescription, tags)
	if err != nil {
		slog.Error("Database error", "operation", "improve_article", "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, articleDetailJSON(updated))
}

// RequeueHeroImage puts a failed or missing hero image back into the
// pending queue for the next pipeline run.
func (h *Handler) RequeueHeroImage(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	if article.HeroImageStatus == database.HeroImageGenerating {
		c.JSON(http.StatusConflict, gin.H{"error": "Hero image generation already in progress"})
		return
	}

	if err := h.articleRepo.UpdateHeroImage(article.ID, database.HeroImagePending, ""); err != nil {
		slog.Error("Database error", "operation", "requeue_hero_image", "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "id": article.ID, "hero_image_status": database.HeroImagePending})
}

func (h *Handler) ListArticleVersions(c *gin.Context) {
	article, ok := h.loadArticle(c)
	if !ok {
		return
	}

	versions, err := h.articleRepo.GetVersions(article.ID)
	if err != nil {
		slog.Error("Database error", "operation", "list_versions", "id", article.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(versions))
	for _, v := range versions {
		out = append(out, gin.H{
			"id":             v.ID,
			"article_id":     v.ArticleID,
			"version_number": v.VersionNumber,
			"title":          v.Title,
			"content":        v.Content,
			"created_at":     v.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"versions": out, "total": len(out)})
}

func (h *Handler) loadArticle(c *gin.Context) (*database.Article, bool) {
	id := c.Param("id")

	article, err := h.articleRepo.GetByID(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return nil, false
	}
	return article, true
}
