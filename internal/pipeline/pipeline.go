package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/pgnscraper/internal/model"
)

// SeedState is the value a Pipeline passes from step to step for one seed.
type SeedState struct {
	// Seed is the seed URL.
	Seed string

	// Links is filled by DiscoverStep.
	Links model.LinkSet

	// Result accumulates what the steps did.
	Result *model.SeedResult
}

// NewSeedState returns the initial state for seed.
func NewSeedState(seed string) *SeedState {
	return &SeedState{
		Seed:   seed,
		Links:  model.NewLinkSet(),
		Result: &model.SeedResult{Seed: seed},
	}
}

// Step is one stage of per-seed processing.
type Step interface {
	// Do executes the step. Recoverable problems are recorded in the state
	// and nil is returned; an error stops the pipeline for this seed.
	Do(ctx context.Context, state *SeedState) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs its steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddSteps appends steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step for state. Cancellation is checked before each
// step; steps themselves decide how to finish work already started.
func (p *Pipeline) Execute(ctx context.Context, state *SeedState) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "seed", state.Seed)
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "seed", state.Seed)
		if err := step.Do(ctx, state); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "seed", state.Seed, "error", err)
			return err
		}
	}
	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
