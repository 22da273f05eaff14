package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dkarpov/annotext/internal/annotation"
	"github.com/dkarpov/annotext/internal/cache"
	"github.com/dkarpov/annotext/internal/model"
	"github.com/dkarpov/annotext/internal/stage"
	"github.com/dkarpov/annotext/internal/worker"
)

// Pipeline wires the loader, the configured stages and the executor
// together for one or more documents.
type Pipeline struct {
	cfg    *model.Config
	loader *Loader
	stages []StageRun
	logf   func(format string, args ...any)
}

// NewPipeline builds the stage list from configuration. All stages share
// one rate limiter and one response cache.
func NewPipeline(cfg *model.Config, logf func(string, ...any)) (*Pipeline, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	limiter := worker.NewLimiter(cfg.Run.RatePerSecond, cfg.Run.Burst)
	var responseCache cache.Cache
	if cfg.Cache.Enabled {
		responseCache = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.TTL)
	}

	stages := make([]StageRun, 0, len(cfg.Stages))
	for _, sc := range cfg.Stages {
		kind, err := stageKind(sc.Kind)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", sc.Name, err)
		}
		remote, err := stage.NewRemote(stage.Config{
			Name:     sc.Name,
			Kind:     kind,
			Endpoint: sc.Endpoint,
			Scale:    sc.Scale,
			Timeout:  sc.Timeout,
			Params:   sc.Params,
		}, stage.Options{
			Limiter:  limiter,
			Cache:    responseCache,
			CacheTTL: cfg.Cache.TTL,
			Logf:     logf,
		})
		if err != nil {
			return nil, err
		}
		stages = append(stages, StageRun{Stage: remote, ContinueOnError: sc.ContinueOnError})
	}

	return &Pipeline{
		cfg:    cfg,
		loader: NewLoader(cfg.HTTP, logf),
		stages: stages,
		logf:   logf,
	}, nil
}

func stageKind(kind string) (annotation.Kind, error) {
	switch annotation.Kind(kind) {
	case annotation.KindSentiment, annotation.KindHate, annotation.KindFactCheck:
		return annotation.Kind(kind), nil
	default:
		return "", fmt.Errorf("unknown stage kind %q", kind)
	}
}

// Run loads one document, seeds it, executes the stage list and aggregates
// the store. A failed run still yields a report over the partial store;
// the error return covers loading and seeding only.
func (p *Pipeline) Run(ctx context.Context, source string, seeds []model.SeedPair) (*model.Report, *annotation.Document, error) {
	doc, err := p.loader.Load(ctx, source, p.cfg.Language)
	if err != nil {
		return nil, nil, fmt.Errorf("load: %w", err)
	}
	p.logf("document loaded: %d characters", len(doc.Text))
	return p.runDocument(ctx, source, doc, seeds)
}

// RunText runs the pipeline over already-loaded text, bypassing the loader.
func (p *Pipeline) RunText(ctx context.Context, name, text string, seeds []model.SeedPair) (*model.Report, *annotation.Document, error) {
	doc := annotation.NewDocument(text, p.cfg.Language)
	return p.runDocument(ctx, name, doc, seeds)
}

func (p *Pipeline) runDocument(ctx context.Context, source string, doc *annotation.Document, seeds []model.SeedPair) (*model.Report, *annotation.Document, error) {
	seeded, err := Seed(doc, seeds, SentenceResolver{}, p.logf)
	if err != nil {
		return nil, nil, fmt.Errorf("seed: %w", err)
	}
	p.logf("seeded %d claim/fact pairs", seeded)

	executor := NewExecutor(Options{
		Timeout:          p.cfg.Run.Timeout,
		SkipVerify:       p.cfg.Run.SkipVerify,
		StrictDuplicates: p.cfg.Run.StrictDuplicates,
		Logf:             p.logf,
	})

	start := time.Now()
	result, err := executor.Run(ctx, doc, p.stages)
	if err != nil {
		return nil, nil, err
	}
	p.logf("pipeline %s in %v", result.Status, time.Since(start))

	report := &model.Report{
		Source:   source,
		Language: doc.Language,
		Status:   string(result.Status),
		Duration: result.Duration,
		Stages:   result.Stages,
		Summary:  Aggregate(doc.Store()),
	}
	return report, doc, nil
}
