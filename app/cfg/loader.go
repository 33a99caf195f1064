package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./inkwell.db" description:"Path to the SQLite database file"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// LLM configuration
	GeminiAPIKey string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key (required for evaluation and generation)"`
	GeminiModel  string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" description:"Gemini model for text generation"`
	LLMTimeout   int    `long:"llm-timeout" env:"LLM_TIMEOUT" default:"120" description:"Hard timeout per LLM call in seconds"`

	// Pipeline configuration
	SourcesFile            string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file listing RSS feeds and arXiv categories to scrape"`
	AutoGenerateMinScore   int    `long:"auto-generate-min-score" env:"AUTO_GENERATE_MIN_SCORE" default:"70" description:"Relevance score threshold (0-100) for auto-selecting sources"`
	MaxArticlesPerEdition  int    `long:"max-articles-per-edition" env:"MAX_ARTICLES_PER_EDITION" default:"3" description:"Maximum articles generated per edition per day"`
	MorningHour            int    `long:"morning-hour" env:"MORNING_HOUR" default:"8" description:"Local hour for the morning edition pipeline run"`
	EveningHour            int    `long:"evening-hour" env:"EVENING_HOUR" default:"20" description:"Local hour for the evening edition pipeline run"`
	CatchUpWindowHours     int    `long:"catchup-window" env:"CATCHUP_WINDOW_HOURS" default:"2" description:"Hours after a scheduled run during which a missed run is caught up"`
	StaleRunTimeoutMinutes int    `long:"stale-run-timeout" env:"STALE_RUN_TIMEOUT_MINUTES" default:"30" description:"Minutes after which a running pipeline record is considered interrupted"`

	// Hero images
	GenerateHeroImages bool   `long:"hero-images" env:"GENERATE_HERO_IMAGES" description:"Enable asynchronous hero image generation for articles"`
	ImageStorageDir    string `long:"image-dir" env:"IMAGE_STORAGE_DIR" default:"./images" description:"Directory for generated hero images"`
	ImageBaseURL       string `long:"image-base-url" env:"IMAGE_BASE_URL" description:"Public base URL under which stored images are served"`

	// Notifications
	SlackWebhookURL string `long:"slack-webhook" env:"SLACK_WEBHOOK_URL" description:"Slack incoming webhook URL for pipeline notifications (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Inkwell/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Seoul" description:"Timezone for edition scheduling (e.g., Asia/Seoul, UTC)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	loc, err := time.LoadLocation(raw.Timezone)
	if err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using UTC: %v\n", raw.Timezone, err)
		loc = time.UTC
	}

	cfg := &Cfg{
		DBPath:                 raw.DBPath,
		Port:                   raw.Port,
		APIAccessKey:           raw.APIAccessKey,
		GeminiAPIKey:           raw.GeminiAPIKey,
		GeminiModel:            raw.GeminiModel,
		LLMTimeout:             time.Duration(raw.LLMTimeout) * time.Second,
		SourcesFile:            raw.SourcesFile,
		AutoGenerateMinScore:   raw.AutoGenerateMinScore,
		MaxArticlesPerEdition:  raw.MaxArticlesPerEdition,
		MorningHour:            raw.MorningHour,
		EveningHour:            raw.EveningHour,
		CatchUpWindowHours:     raw.CatchUpWindowHours,
		StaleRunTimeoutMinutes: raw.StaleRunTimeoutMinutes,
		GenerateHeroImages:     raw.GenerateHeroImages,
		ImageStorageDir:        raw.ImageStorageDir,
		ImageBaseURL:           raw.ImageBaseURL,
		SlackWebhookURL:        raw.SlackWebhookURL,
		UserAgent:              raw.UserAgent,
		Timezone:               raw.Timezone,
		Location:               loc,
		Debug:                  raw.Debug,
		Version:                GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
