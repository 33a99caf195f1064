package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-sh/inkwell/app/database"
)

func NewHandler(sourceRepo database.SourceRepository, articleRepo database.ArticleRepository,
	stateRepo database.PipelineStateRepository, activityRepo database.ActivityLogRepository,
	pipelineRunner PipelineRunnerInterface, registry ScraperRegistryInterface,
	evaluator EvaluatorInterface, writer WriterInterface, validator ValidatorInterface,
	opts HandlerOptions) *Handler {
	return &Handler{
		sourceRepo:   sourceRepo,
		articleRepo:  articleRepo,
		stateRepo:    stateRepo,
		activityRepo: activityRepo,
		pipeline:     pipelineRunner,
		registry:     registry,
		evaluator:    evaluator,
		writer:       writer,
		validator:    validator,
		opts:         opts,
	}
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/sources", handler.ListSources)
			api.POST("/sources", handler.CreateSource)
			api.GET("/sources/unreviewed", handler.ListUnreviewedSources)
			api.GET("/sources/selected", handler.ListSelectedSources)
			api.POST("/sources/bulk-select", handler.BulkSelectSources)
			api.POST("/sources/evaluate-batch", handler.EvaluateSourcesBatch)
			api.POST("/sources/evaluate-pending", handler.EvaluatePendingSources)
			api.GET("/sources/:id", handler.GetSource)
			api.DELETE("/sources/:id", handler.DeleteSource)
			api.POST("/sources/:id/select", handler.SelectSource)
			api.POST("/sources/:id/priority", handler.SetSourcePriority)
			api.POST("/sources/:id/status", handler.SetSourceStatus)
			api.POST("/sources/:id/rescrape", handler.RescrapeSource)
			api.POST("/sources/:id/evaluate", handler.EvaluateSource)

			api.GET("/articles", handler.ListArticles)
			api.POST("/articles", handler.CreateArticle)
			api.GET("/articles/slug/:slug", handler.GetArticleBySlug)
			api.GET("/articles/:id", handler.GetArticle)
			api.PUT("/articles/:id", handler.UpdateArticle)
			api.DELETE("/articles/:id", handler.DeleteArticle)
			api.POST("/articles/:id/status", handler.SetArticleStatus)
			api.POST("/articles/:id/improve", handler.ImproveArticle)
			api.POST("/articles/:id/hero-image", handler.RequeueHeroImage)
			api.GET("/articles/:id/versions", handler.ListArticleVersions)

			api.GET("/activity", handler.ListActivity)
			api.GET("/activity/recent", handler.ListRecentActivity)
			api.GET("/activity/running", handler.ListRunningActivity)
			api.POST("/activity/cleanup", handler.CleanupActivity)

			api.POST("/pipeline/run", handler.RunPipeline)
			api.GET("/pipeline/stream", handler.StreamPipeline)
			api.POST("/pipeline/scrape", handler.RunScrape)
			api.POST("/pipeline/evaluate", handler.RunEvaluate)
			api.POST("/pipeline/generate", handler.RunGenerate)
			api.GET("/pipeline/state", handler.ListPipelineState)
			api.GET("/pipeline/status", handler.GetSchedulerStatus)

			api.POST("/validate-references", handler.ValidateReferences)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Inkwell",
			"version":     handler.opts.Version,
			"description": "Scheduled AI blog pipeline: scrape, evaluate, and publish articles from RSS, arXiv, and the web",
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
