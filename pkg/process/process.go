// Package process orchestrates the pipeline: fetch, aggregate, ground,
// connect and persist, with an optional validation pass over the written
// files.
package process

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gyorilab/trialsynth/internal/timing"
	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/pkg/common"
	"github.com/gyorilab/trialsynth/pkg/logger"
	"github.com/gyorilab/trialsynth/pkg/store"
	"github.com/gyorilab/trialsynth/pkg/transform"
)

// Fetcher supplies parsed trials, from the registry API or a saved snapshot.
type Fetcher interface {
	Fetch(ctx context.Context, reload bool, maxPages int) ([]*common.Trial, error)
}

// Resolver grounds a single entity. Both per-kind grounders satisfy it.
type Resolver interface {
	WarmUp(ctx context.Context) error
	Resolve(ctx context.Context, entity *common.BioEntity, contextText string) ([]*common.BioEntity, error)
}

// Validator checks a written flat file against its typed header schema.
type Validator interface {
	Validate(path string) error
}

// OutputPaths names the three flat files and their optional samples.
type OutputPaths struct {
	Trials            string
	TrialsSample      string
	BioEntities       string
	BioEntitiesSample string
	Edges             string
	EdgesSample       string
}

// Params configures a Processor.
type Params struct {
	Fetcher              Fetcher
	ConditionResolver    Resolver
	InterventionResolver Resolver
	// Validator is optional; when nil the validate phase is skipped even if
	// Validate is set.
	Validator Validator

	Registry   string
	Paths      OutputPaths
	NumSamples int

	Reload       bool
	MaxPages     int
	Workers      int
	StoreSamples bool
	Validate     bool

	Log *logger.Logger
}

// Processor runs the pipeline phases in order over one registry.
type Processor struct {
	params Params
	log    *logger.Logger

	trials []*common.Trial
	edges  []common.Edge
}

// NewProcessor creates a pipeline processor.
func NewProcessor(params Params) (*Processor, error) {
	if params.Fetcher == nil {
		return nil, fmt.Errorf("process: fetcher is required")
	}
	if params.ConditionResolver == nil || params.InterventionResolver == nil {
		return nil, fmt.Errorf("process: both resolvers are required")
	}
	if params.Registry == "" {
		return nil, fmt.Errorf("process: registry is required")
	}
	if params.Workers <= 0 {
		params.Workers = 1
	}
	log := params.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{params: params, log: log}, nil
}

// Run executes fetch → aggregate → ground → edges → persist → validate.
// Any phase error aborts the run; files already promoted stay in place.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("[process] fetching trials", "registry", p.params.Registry)
	fetchDone := timing.Phase(p.log, "fetch")
	trials, err := p.params.Fetcher.Fetch(ctx, p.params.Reload, p.params.MaxPages)
	if err != nil {
		return fmt.Errorf("fetch phase: %w", err)
	}
	fetchDone()
	p.log.Info("[process] fetch complete", "trials", len(trials))

	agg, err := aggregate(trials)
	if err != nil {
		return fmt.Errorf("aggregate phase: %w", err)
	}
	// edges and rows are built from the deduplicated list so each trial
	// CURIE yields exactly one row
	p.trials = agg.trials
	if len(agg.trials) != len(trials) {
		p.log.Warn("[process] collapsed duplicate trial records",
			"fetched", len(trials),
			"unique", len(agg.trials),
		)
	}
	p.log.Info("[process] aggregated entities",
		"conditions", len(agg.conditions),
		"interventions", len(agg.interventions),
	)

	err = timing.Timed(p.log, "ground", func() error { return p.ground(ctx, agg) })
	if err != nil {
		return fmt.Errorf("ground phase: %w", err)
	}

	p.createEdges()

	if err := timing.Timed(p.log, "persist", p.saveData); err != nil {
		return fmt.Errorf("persist phase: %w", err)
	}

	if p.params.Validate && p.params.Validator != nil {
		if err := p.validateOutputs(); err != nil {
			return fmt.Errorf("validate phase: %w", err)
		}
	}
	return nil
}

func (p *Processor) ground(ctx context.Context, agg *aggregation) error {
	p.log.Info("[process] warming up resolvers")
	if err := p.params.ConditionResolver.WarmUp(ctx); err != nil {
		return err
	}
	if err := p.params.InterventionResolver.WarmUp(ctx); err != nil {
		return err
	}

	if err := p.groundBucket(ctx, agg, agg.conditions, p.params.ConditionResolver, "condition"); err != nil {
		return err
	}
	return p.groundBucket(ctx, agg, agg.interventions, p.params.InterventionResolver, "intervention")
}

// groundBucket resolves one entity bucket with a bounded worker pool. Results
// land in a position-indexed buffer and are merged onto the origin trials
// sequentially after the pool drains, so trial bags are never appended to
// concurrently and output order is deterministic.
func (p *Processor) groundBucket(
	ctx context.Context,
	agg *aggregation,
	entities []*common.BioEntity,
	resolver Resolver,
	kind string,
) error {
	p.log.Info("[process] grounding entities", "kind", kind, "count", len(entities), "workers", p.params.Workers)

	tracker := util.NewTracker(p.log, "[process] grounding "+kind+"s", kind, len(entities), 0)
	results := make([][]*common.BioEntity, len(entities))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.params.Workers)
	for i, entity := range entities {
		group.Go(func() error {
			trial := agg.curieToTrial[entity.Origin]
			resolved, err := resolver.Resolve(groupCtx, entity, groundingContext(trial))
			if err != nil {
				return fmt.Errorf("resolve %s %q: %w", kind, entity.Text, err)
			}
			results[i] = resolved
			tracker.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	tracker.Finish()

	for i, entity := range entities {
		trial := agg.curieToTrial[entity.Origin]
		trial.Entities = append(trial.Entities, results[i]...)
	}
	return nil
}

func (p *Processor) createEdges() {
	p.edges = p.edges[:0]
	for _, trial := range p.trials {
		for _, entity := range trial.Entities {
			p.edges = append(p.edges, common.NewEdge(trial, entity, p.params.Registry))
		}
	}
	p.log.Info("[process] created edges", "edges", len(p.edges))
}

func (p *Processor) saveData() error {
	trialRows := make([][]string, 0, len(p.trials))
	for _, trial := range p.trials {
		common.WarnEmptyCURIE(p.log, &trial.Node, "trial")
		trialRows = append(trialRows, transform.FlattenTrial(trial))
	}

	entityRows := make([][]string, 0, len(p.trials))
	for _, trial := range p.trials {
		for _, entity := range trial.Entities {
			common.WarnEmptyCURIE(p.log, &entity.Node, "bioentity "+entity.Text)
			entityRows = append(entityRows, transform.FlattenBioEntity(entity))
		}
	}
	// set semantics: dedupe, then sort by (entity CURIE, trial CURIE)
	entityRows = transform.DedupeSortRows(entityRows, 0, 4)

	edgeRows := make([][]string, 0, len(p.edges))
	for _, edge := range p.edges {
		edgeRows = append(edgeRows, transform.FlattenEdge(edge))
	}
	edgeRows = transform.DedupeSortRows(edgeRows, 0, 1, 2)

	saves := []struct {
		rows       [][]string
		headers    []string
		path       string
		samplePath string
	}{
		{trialRows, transform.TrialHeaders, p.params.Paths.Trials, p.params.Paths.TrialsSample},
		{entityRows, transform.BioEntityHeaders, p.params.Paths.BioEntities, p.params.Paths.BioEntitiesSample},
		{edgeRows, transform.EdgeHeaders, p.params.Paths.Edges, p.params.Paths.EdgesSample},
	}
	for _, s := range saves {
		samplePath := ""
		if p.params.StoreSamples {
			samplePath = s.samplePath
		}
		err := store.SaveFlatFile(store.SaveParams{
			Rows:       s.rows,
			Path:       s.path,
			Headers:    s.headers,
			SamplePath: samplePath,
			NumSamples: p.params.NumSamples,
			Log:        p.log,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) validateOutputs() error {
	for _, path := range []string{p.params.Paths.Trials, p.params.Paths.BioEntities, p.params.Paths.Edges} {
		p.log.Info("[process] validating output", "path", path)
		if err := p.params.Validator.Validate(path); err != nil {
			return err
		}
	}
	return nil
}
