package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBPath string

	// HTTP server
	Port         string
	APIAccessKey string

	// LLM configuration
	GeminiAPIKey string
	GeminiModel  string
	LLMTimeout   time.Duration

	// Pipeline configuration
	SourcesFile            string
	AutoGenerateMinScore   int
	MaxArticlesPerEdition  int
	MorningHour            int
	EveningHour            int
	CatchUpWindowHours     int
	StaleRunTimeoutMinutes int

	// Hero images
	GenerateHeroImages bool
	ImageStorageDir    string
	ImageBaseURL       string

	// Notifications
	SlackWebhookURL string

	// Application metadata
	UserAgent string
	Timezone  string
	Location  *time.Location
	Debug     bool
	Version   string
}
