package pipeline

import (
	"context"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

// Individual stage entry points for manual triggering through the API.
// They log their own activity but do not touch pipeline state records.

func (p *Pipeline) RunScrapeStage(ctx context.Context) ScrapeResult {
	return p.runScrape(ctx)
}

func (p *Pipeline) RunEvaluateStage(ctx context.Context) EvaluateResult {
	return p.runEvaluate(ctx)
}

// RunGenerateStage generates for the given edition, or the current one
// when edition is empty.
func (p *Pipeline) RunGenerateStage(ctx context.Context, edition database.Edition) GenerateResult {
	if edition == "" {
		edition = CurrentEdition(time.Now(), p.opts.Location)
	}
	return p.runGenerate(ctx, edition)
}

// RunHeroImageStage renders pending hero images outside a full run.
func (p *Pipeline) RunHeroImageStage(ctx context.Context) HeroImageResult {
	if p.heroes == nil {
		return HeroImageResult{}
	}
	return p.heroes.Run(ctx)
}
