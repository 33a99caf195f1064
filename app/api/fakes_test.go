package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
	"github.com/inkwell-sh/inkwell/app/pipeline"
	"github.com/inkwell-sh/inkwell/app/scraper"
)

type fakeSourceRepo struct {
	mu      sync.Mutex
	seq     int
	sources map[string]*database.Source
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{sources: make(map[string]*database.Source)}
}

func (r *fakeSourceRepo) add(s *database.Source) *database.Source {
	created, _ := r.Create(s)
	return created
}

func (r *fakeSourceRepo) Create(source *database.Source) (*database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sources {
		if existing.URL == source.URL {
			return nil, database.ErrDuplicateURL
		}
	}
	r.seq++
	source.ID = fmt.Sprintf("src-%d", r.seq)
	if source.Status == "" {
		source.Status = database.SourceStatusPending
	}
	r.sources[source.ID] = source
	return source, nil
}

func (r *fakeSourceRepo) GetByID(id string) (*database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[id], nil
}

func (r *fakeSourceRepo) GetByURL(url string) (*database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sources {
		if s.URL == url {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSourceRepo) GetFiltered(filter database.SourceFilter, page, pageSize int) ([]database.Source, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Source
	for _, s := range r.sources {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *fakeSourceRepo) GetUnreviewed(page, pageSize int) ([]database.Source, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Source
	for _, s := range r.sources {
		if s.ReviewedAt == nil && s.Status == database.SourceStatusPending {
			out = append(out, *s)
		}
	}
	return out, len(out), nil
}

func (r *fakeSourceRepo) GetSelectedForGeneration(limit int) ([]database.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Source
	for _, s := range r.sources {
		if s.IsSelected {
			out = append(out, *s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) UpdateContent(id string, title, content, summary string, scrapedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	s.Title = title
	s.Content = content
	s.Summary = summary
	s.ScrapedAt = &scrapedAt
	return nil
}

func (r *fakeSourceRepo) UpdateEvaluation(id string, score int, topic string, reviewedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	s.RelevanceScore = &score
	s.SuggestedTopic = topic
	s.ReviewedAt = &reviewedAt
	return nil
}

func (r *fakeSourceRepo) UpdateSelection(id string, selected bool, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	s.IsSelected = selected
	s.SelectionNote = note
	if selected {
		s.Status = database.SourceStatusSelected
	}
	return nil
}

func (r *fakeSourceRepo) UpdatePriority(id string, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	s.Priority = priority
	return nil
}

func (r *fakeSourceRepo) UpdateStatus(id string, status database.SourceStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	s.Status = status
	s.ErrorMessage = errorMessage
	return nil
}

func (r *fakeSourceRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
	return nil
}

func (r *fakeSourceRepo) Stats() (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make(map[string]int)
	for _, s := range r.sources {
		stats[string(s.Status)]++
	}
	return stats, nil
}

var _ database.SourceRepository = (*fakeSourceRepo)(nil)

type fakeArticleRepo struct {
	mu       sync.Mutex
	seq      int
	articles map[string]*database.Article
	versions map[string][]database.ArticleVersion
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		articles: make(map[string]*database.Article),
		versions: make(map[string][]database.ArticleVersion),
	}
}

func (r *fakeArticleRepo) add(a *database.Article) *database.Article {
	created, _ := r.Create(a)
	return created
}

func (r *fakeArticleRepo) Create(article *database.Article) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	article.ID = fmt.Sprintf("art-%d", r.seq)
	r.articles[article.ID] = article
	return article, nil
}

func (r *fakeArticleRepo) GetByID(id string) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.articles[id], nil
}

func (r *fakeArticleRepo) GetBySlug(slug string) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeArticleRepo) GetBySourceID(sourceID string) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.articles {
		if a.SourceID == sourceID {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeArticleRepo) GetFiltered(filter database.ArticleFilter, page, pageSize int) ([]database.Article, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Article
	for _, a := range r.articles {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Edition != "" && a.Edition != filter.Edition {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *fakeArticleRepo) Update(id, title, subtitle, content, metaDescription string, tags []string) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return nil, fmt.Errorf("article %s not found", id)
	}
	r.versions[id] = append(r.versions[id], database.ArticleVersion{
		ID:            fmt.Sprintf("ver-%d", len(r.versions[id])+1),
		ArticleID:     id,
		VersionNumber: len(r.versions[id]) + 1,
		Title:         a.Title,
		Content:       a.Content,
		CreatedAt:     time.Now().UTC(),
	})
	a.Title = title
	a.Subtitle = subtitle
	a.Content = content
	a.MetaDescription = metaDescription
	a.Tags = tags
	return a, nil
}

func (r *fakeArticleRepo) UpdateStatus(id string, status database.ArticleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return fmt.Errorf("article %s not found", id)
	}
	a.Status = status
	if status == database.ArticleStatusPublished {
		now := time.Now().UTC()
		a.PublishedAt = &now
	}
	return nil
}

func (r *fakeArticleRepo) UpdateHeroImage(id string, status database.HeroImageStatus, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return fmt.Errorf("article %s not found", id)
	}
	a.HeroImageStatus = status
	a.HeroImageURL = url
	return nil
}

func (r *fakeArticleRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.articles, id)
	return nil
}

func (r *fakeArticleRepo) SlugExists(slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.articles {
		if a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeArticleRepo) CountByEditionSince(since time.Time, edition database.Edition) (int, error) {
	return 0, nil
}

func (r *fakeArticleRepo) GetByHeroImageStatus(status database.HeroImageStatus, limit int) ([]database.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) GetVersions(articleID string) ([]database.ArticleVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.versions[articleID], nil
}

func (r *fakeArticleRepo) Stats() (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make(map[string]int)
	for _, a := range r.articles {
		stats[string(a.Status)]++
	}
	return stats, nil
}

var _ database.ArticleRepository = (*fakeArticleRepo)(nil)

type fakeStateRepo struct {
	states []database.PipelineState
}

func (r *fakeStateRepo) Create(edition database.Edition) (*database.PipelineState, error) {
	return &database.PipelineState{ID: "state-1", Edition: edition}, nil
}

func (r *fakeStateRepo) GetByID(id string) (*database.PipelineState, error) { return nil, nil }

func (r *fakeStateRepo) MarkStepCompleted(id string, step database.PipelineStep, result map[string]any) error {
	return nil
}

func (r *fakeStateRepo) MarkCompleted(id string) error                   { return nil }
func (r *fakeStateRepo) MarkFailed(id string, errorMessage string) error { return nil }
func (r *fakeStateRepo) MarkInterrupted(id string) error                 { return nil }

func (r *fakeStateRepo) MarkStaleAsInterrupted(timeout time.Duration) (int, error) { return 0, nil }

func (r *fakeStateRepo) GetIncomplete(maxAge time.Duration) (*database.PipelineState, error) {
	return nil, nil
}

func (r *fakeStateRepo) GetRecent(limit int) ([]database.PipelineState, error) {
	if limit > len(r.states) {
		limit = len(r.states)
	}
	return r.states[:limit], nil
}

func (r *fakeStateRepo) CleanupOld(days int) (int, error) { return 2, nil }

var _ database.PipelineStateRepository = (*fakeStateRepo)(nil)

type fakeActivityRepo struct {
	entries []database.ActivityLog
}

func (r *fakeActivityRepo) Create(activityType database.ActivityType, status database.ActivityStatus, message string, details map[string]any) (*database.ActivityLog, error) {
	entry := database.ActivityLog{
		ID:        fmt.Sprintf("act-%d", len(r.entries)+1),
		Type:      activityType,
		Status:    status,
		Message:   message,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	r.entries = append(r.entries, entry)
	return &entry, nil
}

func (r *fakeActivityRepo) GetRecent(filter database.ActivityFilter, limit int) ([]database.ActivityLog, error) {
	var out []database.ActivityLog
	for _, e := range r.entries {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) GetPaginated(filter database.ActivityFilter, page, pageSize int) ([]database.ActivityLog, int, error) {
	out, err := r.GetRecent(filter, pageSize)
	return out, len(r.entries), err
}

func (r *fakeActivityRepo) GetRunningJobs(activityType database.ActivityType) ([]database.ActivityLog, error) {
	var out []database.ActivityLog
	for _, e := range r.entries {
		if e.Type == activityType && e.Status == database.ActivityRunning {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) MarkStaleRunningAsInterrupted(timeout time.Duration) (int, error) {
	return 0, nil
}

func (r *fakeActivityRepo) DeleteOld(days int) (int, error) { return 7, nil }

var _ database.ActivityLogRepository = (*fakeActivityRepo)(nil)

type fakePipeline struct {
	skipped bool
	result  *pipeline.RunResult
	events  []pipeline.Event
}

func (f *fakePipeline) Run(ctx context.Context) (*pipeline.RunResult, error) {
	if f.skipped {
		return &pipeline.RunResult{Skipped: true, Reason: "Pipeline already running"}, nil
	}
	if f.result != nil {
		return f.result, nil
	}
	return &pipeline.RunResult{Edition: database.EditionMorning}, nil
}

func (f *fakePipeline) RunWithProgress(ctx context.Context) <-chan pipeline.Event {
	events := make(chan pipeline.Event, len(f.events))
	for _, e := range f.events {
		events <- e
	}
	close(events)
	return events
}

func (f *fakePipeline) RunScrapeStage(ctx context.Context) pipeline.ScrapeResult {
	return pipeline.ScrapeResult{RSSScraped: 3, ArxivScraped: 2}
}

func (f *fakePipeline) RunEvaluateStage(ctx context.Context) pipeline.EvaluateResult {
	return pipeline.EvaluateResult{Evaluated: 4, AutoSelected: 1}
}

func (f *fakePipeline) RunGenerateStage(ctx context.Context, edition database.Edition) pipeline.GenerateResult {
	return pipeline.GenerateResult{Generated: 1, Edition: edition}
}

var _ PipelineRunnerInterface = (*fakePipeline)(nil)

type fakeScraper struct {
	content *scraper.ScrapedContent
	err     error
}

func (f *fakeScraper) CanHandle(url string) bool { return true }

func (f *fakeScraper) Scrape(ctx context.Context, url string) (*scraper.ScrapedContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.content != nil {
		return f.content, nil
	}
	return &scraper.ScrapedContent{
		Title:   "Scraped Title",
		URL:     url,
		Content: "Scraped content body",
		Summary: "Scraped summary",
		Type:    database.SourceTypeArticle,
	}, nil
}

type fakeRegistry struct {
	scraper *fakeScraper
	err     error
}

func (f *fakeRegistry) ForURL(url string) (scraper.Scraper, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scraper, nil
}

var _ ScraperRegistryInterface = (*fakeRegistry)(nil)

type fakeEvaluator struct {
	score int
	err   error
}

func (f *fakeEvaluator) EvaluateSource(ctx context.Context, sourceType database.SourceType, title, url, content, summary string) (*generator.SourceEvaluation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &generator.SourceEvaluation{
		RelevanceScore: f.score,
		SuggestedTopic: "Suggested topic for " + title,
		Reason:         "relevant to the blog",
		IsRecommended:  f.score >= 70,
	}, nil
}

func (f *fakeEvaluator) EvaluateBatch(ctx context.Context, sources []generator.BatchSource) ([]generator.BatchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []generator.BatchResult
	for _, s := range sources {
		out = append(out, generator.BatchResult{
			SourceID:       s.ID,
			RelevanceScore: f.score,
			SuggestedTopic: "Topic: " + s.Title,
			Reason:         "batch evaluated",
		})
	}
	return out, nil
}

var _ EvaluatorInterface = (*fakeEvaluator)(nil)

type fakeWriter struct {
	err error
}

func (f *fakeWriter) ImproveArticle(ctx context.Context, content, feedback string) (*generator.ParsedArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &generator.ParsedArticle{
		Title:   "Improved Title",
		Content: content + "\n\nImproved per feedback: " + feedback,
	}, nil
}

var _ WriterInterface = (*fakeWriter)(nil)

type fakeValidator struct{}

func (f *fakeValidator) ValidateAll(ctx context.Context, urls []string) []generator.ValidationResult {
	out := make([]generator.ValidationResult, 0, len(urls))
	for _, u := range urls {
		out = append(out, generator.ValidationResult{
			URL:        u,
			Valid:      !strings.Contains(u, "broken"),
			StatusCode: 200,
		})
	}
	return out
}

var _ ValidatorInterface = (*fakeValidator)(nil)
