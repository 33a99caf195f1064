package scraper

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SourcesConfig lists what the scrape stage pulls: RSS feeds and arXiv
// categories, loaded from a YAML file.
type SourcesConfig struct {
	RSSFeeds        []FeedConfig `yaml:"rss_feeds"`
	ArxivCategories []string     `yaml:"arxiv_categories"`
}

type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	MaxItems int    `yaml:"max_items"`
}

const defaultMaxItemsPerFeed = 10

// DefaultSourcesConfig covers the common AI/tech feeds and the core
// arXiv ML categories, used when no sources file is configured.
func DefaultSourcesConfig() *SourcesConfig {
	return &SourcesConfig{
		RSSFeeds: []FeedConfig{
			{Name: "techcrunch_ai", URL: "https://techcrunch.com/category/artificial-intelligence/feed/"},
			{Name: "wired_ai", URL: "https://www.wired.com/feed/tag/ai/latest/rss"},
			{Name: "mit_tech_review", URL: "https://www.technologyreview.com/feed/"},
			{Name: "venturebeat_ai", URL: "https://venturebeat.com/category/ai/feed/"},
			{Name: "the_verge_ai", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml"},
		},
		ArxivCategories: []string{"cs.AI", "cs.LG", "cs.CL"},
	}
}

// LoadSourcesConfig reads the sources file, falling back to the default
// set when the path is empty or the file does not exist.
func LoadSourcesConfig(path string) (*SourcesConfig, error) {
	if path == "" {
		return DefaultSourcesConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Sources file not found, using defaults", "path", path)
			return DefaultSourcesConfig(), nil
		}
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var config SourcesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	if err := validateSourcesConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	for i := range config.RSSFeeds {
		if config.RSSFeeds[i].MaxItems <= 0 {
			config.RSSFeeds[i].MaxItems = defaultMaxItemsPerFeed
		}
	}

	slog.Debug("Sources configuration loaded",
		"path", path,
		"rss_feeds", len(config.RSSFeeds),
		"arxiv_categories", len(config.ArxivCategories))

	return &config, nil
}

func validateSourcesConfig(config *SourcesConfig) error {
	seen := make(map[string]bool)
	for _, feed := range config.RSSFeeds {
		if feed.Name == "" {
			return fmt.Errorf("feed with URL %q has no name", feed.URL)
		}
		if feed.URL == "" {
			return fmt.Errorf("feed %q has no URL", feed.Name)
		}
		if seen[feed.Name] {
			return fmt.Errorf("duplicate feed name %q", feed.Name)
		}
		seen[feed.Name] = true
	}
	return nil
}
