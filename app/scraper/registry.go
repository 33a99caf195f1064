package scraper

import "fmt"

// Registry routes URLs to the scraper that claims them. Order matters:
// the first match wins, so specialized scrapers go before the generic
// fallback.
type Registry struct {
	scrapers []Scraper
}

// NewRegistry builds the standard routing order: arXiv, RSS feeds,
// generic article fallback.
func NewRegistry(fetcher *Fetcher) *Registry {
	return &Registry{
		scrapers: []Scraper{
			NewArxivScraper(fetcher),
			NewRSSScraper(fetcher),
			NewArticleScraper(fetcher),
		},
	}
}

// ForURL returns the first scraper that can handle the URL.
func (r *Registry) ForURL(url string) (Scraper, error) {
	for _, s := range r.scrapers {
		if s.CanHandle(url) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no scraper can handle %s", url)
}
