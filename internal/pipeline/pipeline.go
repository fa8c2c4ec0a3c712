// Package pipeline drives sampled parameter vectors through the forward
// solve and collects the results into a dataset. Each sample walks a
// fixed stage sequence; a failure at any stage skips that sample and
// the run carries on.
package pipeline

import (
	"errors"
	"log/slog"

	"github.com/crimson-sun/thermofin/internal/config"
	"github.com/crimson-sun/thermofin/internal/fem"
	"github.com/crimson-sun/thermofin/internal/geometry"
	"github.com/crimson-sun/thermofin/internal/mesh"
	"github.com/crimson-sun/thermofin/internal/model"
	"github.com/crimson-sun/thermofin/internal/resample"
)

// Pipeline runs the per-sample forward stages: geometry construction,
// meshing with the refinement retry policy, assembly, solve, and
// resampling onto the output grid. One Pipeline is shared by all
// workers; Run is safe for concurrent use.
type Pipeline struct {
	schema model.Schema
	fin    config.FinConfig
	mesh   config.MeshConfig
	solver fem.SolverOptions
	grid   config.GridConfig
}

// NewPipeline builds a pipeline from validated configuration.
func NewPipeline(cfg config.Config, schema model.Schema) *Pipeline {
	return &Pipeline{
		schema: schema,
		fin:    cfg.Fin,
		mesh:   cfg.Mesh,
		solver: fem.SolverOptions{
			Method:        cfg.Solver.Method,
			Tolerance:     cfg.Solver.Tolerance,
			MaxIterations: cfg.Solver.MaxIterations,
		},
		grid: cfg.Grid,
	}
}

// Run takes one parameter vector through every stage and returns the
// resampled temperature grid. On failure it returns a SampleError
// naming the stage that could not be completed.
func (p *Pipeline) Run(index int, params model.ParameterVector) (model.GridSample, *SampleError) {
	stage := StageSampled
	fail := func(at Stage, err error) (model.GridSample, *SampleError) {
		return model.GridSample{}, &SampleError{Index: index, Stage: at, Params: params, Err: err}
	}

	g, err := geometry.FromParams(params, p.schema, p.fin.BaseFlux)
	if err != nil {
		return fail(StageGeometrized, err)
	}
	stage = p.advance(stage, StageGeometrized)

	m, err := p.generateMesh(index, g)
	if err != nil {
		return fail(StageMeshed, err)
	}
	stage = p.advance(stage, StageMeshed)

	sys, err := fem.Assemble(m, g)
	if err != nil {
		return fail(StageAssembled, err)
	}
	stage = p.advance(stage, StageAssembled)

	field, err := fem.Solve(sys, g, p.solver)
	if err != nil {
		return fail(StageSolved, err)
	}
	stage = p.advance(stage, StageSolved)

	r := resample.New(m, p.grid.Domain, p.grid.Width, p.grid.Height)
	grid, err := r.Resample(field)
	if err != nil {
		return fail(StageResampled, err)
	}
	p.advance(stage, StageResampled)

	return grid, nil
}

// generateMesh triangulates the geometry, doubling the density on each
// retryable failure until the retry budget is exhausted.
func (p *Pipeline) generateMesh(index int, g geometry.FinGeometry) (*mesh.Mesh, error) {
	opt := mesh.Options{Density: p.mesh.Density, AspectRatioLimit: p.mesh.AspectRatioLimit}
	for attempt := 0; ; attempt++ {
		m, err := mesh.Generate(g, opt)
		if err == nil {
			return m, nil
		}
		retryable := errors.Is(err, mesh.ErrDegenerate) || errors.Is(err, mesh.ErrAspectRatio)
		if !retryable || attempt >= p.mesh.MaxRetries {
			return nil, err
		}
		opt.Density *= 2
		slog.Debug("mesh retry",
			"index", index,
			"attempt", attempt+1,
			"density", opt.Density,
			"error", err)
	}
}

func (p *Pipeline) advance(from, to Stage) Stage {
	if !CanTransition(from, to) {
		panic("pipeline: invalid stage transition " + from.String() + " -> " + to.String())
	}
	return to
}
