package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
	"github.com/inkwell-sh/inkwell/app/scraper"
)

// In-memory fakes for the repository interfaces. Only the behavior the
// pipeline exercises is modeled.

type fakeSourceRepo struct {
	mu      sync.Mutex
	seq     int
	sources map[string]*database.Source
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{sources: make(map[string]*database.Source)}
}

func (r *fakeSourceRepo) add(source *database.Source) *database.Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if source.ID == "" {
		source.ID = fmt.Sprintf("src-%d", r.seq)
	}
	r.sources[source.ID] = source
	return source
}

func (r *fakeSourceRepo) Create(source *database.Source) (*database.Source, error) {
	r.mu.Lock()
	for _, existing := range r.sources {
		if existing.URL == source.URL {
			r.mu.Unlock()
			return nil, database.ErrDuplicateURL
		}
	}
	r.mu.Unlock()
	return r.add(source), nil
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
	return nil, 0, nil
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
		if s.IsSelected && s.Status == database.SourceStatusSelected {
			out = append(out, *s)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) UpdateContent(id, title, content, summary string, scrapedAt time.Time) error {
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
	} else {
		s.Status = database.SourceStatusPending
	}
	return nil
}

func (r *fakeSourceRepo) UpdatePriority(id string, priority int) error { return nil }

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

func (r *fakeSourceRepo) Delete(id string) error { return nil }

func (r *fakeSourceRepo) Stats() (map[string]int, error) { return nil, nil }

var _ database.SourceRepository = (*fakeSourceRepo)(nil)

type fakeArticleRepo struct {
	mu            sync.Mutex
	seq           int
	articles      map[string]*database.Article
	editionCounts map[database.Edition]int
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{
		articles:      make(map[string]*database.Article),
		editionCounts: make(map[database.Edition]int),
	}
}

func (r *fakeArticleRepo) Create(article *database.Article) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	article.ID = fmt.Sprintf("art-%d", r.seq)
	r.articles[article.ID] = article
	r.editionCounts[article.Edition]++
	return article, nil
}

func (r *fakeArticleRepo) GetByID(id string) (*database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.articles[id], nil
}

func (r *fakeArticleRepo) GetBySlug(slug string) (*database.Article, error) { return nil, nil }

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
	return nil, 0, nil
}

func (r *fakeArticleRepo) Update(id, title, subtitle, content, metaDescription string, tags []string) (*database.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) UpdateStatus(id string, status database.ArticleStatus) error { return nil }

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

func (r *fakeArticleRepo) Delete(id string) error { return nil }

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
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.editionCounts[edition], nil
}

func (r *fakeArticleRepo) GetByHeroImageStatus(status database.HeroImageStatus, limit int) ([]database.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.Article
	for _, a := range r.articles {
		if a.HeroImageStatus == status {
			out = append(out, *a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeArticleRepo) GetVersions(articleID string) ([]database.ArticleVersion, error) {
	return nil, nil
}

func (r *fakeArticleRepo) Stats() (map[string]int, error) { return nil, nil }

var _ database.ArticleRepository = (*fakeArticleRepo)(nil)

type fakeStateRepo struct {
	mu         sync.Mutex
	seq        int
	states     map[string]*database.PipelineState
	incomplete *database.PipelineState
	staleCount int
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[string]*database.PipelineState)}
}

func (r *fakeStateRepo) Create(edition database.Edition) (*database.PipelineState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	state := &database.PipelineState{
		ID:        fmt.Sprintf("state-%d", r.seq),
		Edition:   edition,
		Status:    database.PipelineStatusRunning,
		StartedAt: time.Now(),
	}
	r.states[state.ID] = state
	return state, nil
}

func (r *fakeStateRepo) GetByID(id string) (*database.PipelineState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[id], nil
}

func (r *fakeStateRepo) MarkStepCompleted(id string, step database.PipelineStep, result map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[id]
	if !ok {
		return fmt.Errorf("state %s not found", id)
	}
	switch step {
	case database.StepScrape:
		state.ScrapeCompleted = true
		state.ScrapeResult = result
	case database.StepEvaluate:
		state.EvaluateCompleted = true
		state.EvaluateResult = result
	case database.StepGenerate:
		state.GenerateCompleted = true
		state.GenerateResult = result
	}
	return nil
}

func (r *fakeStateRepo) MarkCompleted(id string) error {
	return r.setStatus(id, database.PipelineStatusCompleted)
}

func (r *fakeStateRepo) MarkFailed(id, errorMessage string) error {
	if err := r.setStatus(id, database.PipelineStatusFailed); err != nil {
		return err
	}
	r.mu.Lock()
	r.states[id].ErrorMessage = errorMessage
	r.mu.Unlock()
	return nil
}

func (r *fakeStateRepo) MarkInterrupted(id string) error {
	return r.setStatus(id, database.PipelineStatusInterrupted)
}

func (r *fakeStateRepo) setStatus(id string, status database.PipelineStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[id]
	if !ok {
		return fmt.Errorf("state %s not found", id)
	}
	state.Status = status
	return nil
}

func (r *fakeStateRepo) MarkStaleAsInterrupted(timeout time.Duration) (int, error) {
	return r.staleCount, nil
}

func (r *fakeStateRepo) GetIncomplete(maxAge time.Duration) (*database.PipelineState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.incomplete, nil
}

func (r *fakeStateRepo) GetRecent(limit int) ([]database.PipelineState, error) { return nil, nil }

func (r *fakeStateRepo) CleanupOld(days int) (int, error) { return 0, nil }

var _ database.PipelineStateRepository = (*fakeStateRepo)(nil)

type fakeActivityRepo struct {
	mu         sync.Mutex
	seq        int
	entries    []database.ActivityLog
	staleCount int
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{}
}

func (r *fakeActivityRepo) Create(activityType database.ActivityType, status database.ActivityStatus, message string, details map[string]any) (*database.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry := database.ActivityLog{
		ID:        fmt.Sprintf("log-%d", r.seq),
		Type:      activityType,
		Status:    status,
		Message:   message,
		Details:   details,
		CreatedAt: time.Now(),
	}
	r.entries = append(r.entries, entry)
	return &entry, nil
}

func (r *fakeActivityRepo) GetRecent(filter database.ActivityFilter, limit int) ([]database.ActivityLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.ActivityLog
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		entry := r.entries[i]
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.Since != nil && entry.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *fakeActivityRepo) GetPaginated(filter database.ActivityFilter, page, pageSize int) ([]database.ActivityLog, int, error) {
	return nil, 0, nil
}

func (r *fakeActivityRepo) GetRunningJobs(activityType database.ActivityType) ([]database.ActivityLog, error) {
	return nil, nil
}

func (r *fakeActivityRepo) MarkStaleRunningAsInterrupted(timeout time.Duration) (int, error) {
	return r.staleCount, nil
}

func (r *fakeActivityRepo) DeleteOld(days int) (int, error) { return 0, nil }

func (r *fakeActivityRepo) byType(activityType database.ActivityType) []database.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []database.ActivityLog
	for _, e := range r.entries {
		if e.Type == activityType {
			out = append(out, e)
		}
	}
	return out
}

var _ database.ActivityLogRepository = (*fakeActivityRepo)(nil)

// Stage dependency fakes.

type fakeFeeds struct {
	items   []scraper.ScrapedContent
	err     error
	calls   atomic.Int32
	blockCh chan struct{}
}

func (f *fakeFeeds) ScrapeFeed(ctx context.Context, feedURL string, maxItems int) ([]scraper.ScrapedContent, error) {
	f.calls.Add(1)
	if f.blockCh != nil {
		<-f.blockCh
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakePapers struct {
	items []scraper.ScrapedContent
	err   error
}

func (f *fakePapers) Search(ctx context.Context, category string, maxResults int) ([]scraper.ScrapedContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeEvaluator struct {
	scores map[string]int // by source title
	err    error
}

func (f *fakeEvaluator) EvaluateSource(ctx context.Context, sourceType database.SourceType, title, url, content, summary string) (*generator.SourceEvaluation, error) {
	if f.err != nil {
		return nil, f.err
	}
	score, ok := f.scores[title]
	if !ok {
		score = 50
	}
	return &generator.SourceEvaluation{
		RelevanceScore: score,
		SuggestedTopic: "Topic: " + title,
		Reason:         "test evaluation",
		IsRecommended:  score >= 70,
	}, nil
}

type fakeWriter struct {
	calls int
	err   error
}

func (f *fakeWriter) WriteArticle(ctx context.Context, source *database.Source) (*generator.GeneratedArticle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &generator.GeneratedArticle{
		Title:     "Article About " + source.Title,
		Content:   "Generated content for " + source.Title,
		Tags:      []string{"ai"},
		WordCount: 100,
		CharCount: 600,
		Model:     "fake-model",
	}, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	started   []string
	completed []string
	errored   []string
	resumed   []string
	cleaned   []int
}

func (n *fakeNotifier) PipelineStarted(ctx context.Context, edition string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, edition)
}

func (n *fakeNotifier) PipelineCompleted(ctx context.Context, edition string, scraped, evaluated, generated int, elapsed time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, edition)
}

func (n *fakeNotifier) PipelineError(ctx context.Context, step string, errs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errored = append(n.errored, step)
}

func (n *fakeNotifier) PipelineResumed(ctx context.Context, edition, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resumed = append(n.resumed, edition)
}

func (n *fakeNotifier) StaleJobsCleaned(ctx context.Context, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleaned = append(n.cleaned, count)
}

var _ Notifier = (*fakeNotifier)(nil)

// testEnv bundles a pipeline with all its fakes.
type testEnv struct {
	pipeline  *Pipeline
	sources   *fakeSourceRepo
	articles  *fakeArticleRepo
	states    *fakeStateRepo
	activity  *fakeActivityRepo
	feeds     *fakeFeeds
	papers    *fakePapers
	evaluator *fakeEvaluator
	writer    *fakeWriter
	notifier  *fakeNotifier
}

func newTestEnv(opts Options) *testEnv {
	if opts.MinScore == 0 {
		opts.MinScore = 70
	}
	if opts.MaxArticlesPerEdition == 0 {
		opts.MaxArticlesPerEdition = 3
	}
	if opts.StaleRunTimeout == 0 {
		opts.StaleRunTimeout = 30 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	env := &testEnv{
		sources:   newFakeSourceRepo(),
		articles:  newFakeArticleRepo(),
		states:    newFakeStateRepo(),
		activity:  newFakeActivityRepo(),
		feeds:     &fakeFeeds{},
		papers:    &fakePapers{},
		evaluator: &fakeEvaluator{scores: map[string]int{}},
		writer:    &fakeWriter{},
		notifier:  &fakeNotifier{},
	}

	sourcesConfig := &scraper.SourcesConfig{
		RSSFeeds:        []scraper.FeedConfig{{Name: "test_feed", URL: "https://example.com/feed", MaxItems: 10}},
		ArxivCategories: []string{"cs.AI"},
	}

	env.pipeline = NewPipeline(opts, sourcesConfig,
		env.feeds, env.papers, env.evaluator, env.writer, nil,
		env.notifier, NewMemoryLocker(),
		env.sources, env.articles, env.states, env.activity)

	return env
}
