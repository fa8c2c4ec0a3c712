package pipeline

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/crimson-sun/thermofin/internal/config"
	"github.com/crimson-sun/thermofin/internal/model"
	"github.com/crimson-sun/thermofin/internal/sampler"
	"github.com/crimson-sun/thermofin/pkg/findata"
)

// Generator runs the full dataset generation: a feeder draws parameter
// vectors sequentially from the sampler, a bounded worker pool runs the
// per-sample pipeline, and a single collector writes successes to the
// dataset in draw order. Output bytes are identical for any worker
// count and a fixed seed.
type Generator struct {
	cfg    config.Config
	src    *sampler.Sampler
	writer *findata.Writer
	pipe   *Pipeline
}

// NewGenerator wires a generator from validated configuration, a
// sampler, and an open dataset writer. Closing the writer stays with
// the caller.
func NewGenerator(cfg config.Config, src *sampler.Sampler, w *findata.Writer) *Generator {
	return &Generator{
		cfg:    cfg,
		src:    src,
		writer: w,
		pipe:   NewPipeline(cfg, src.Schema()),
	}
}

type job struct {
	index  int
	params model.ParameterVector
}

type result struct {
	index  int
	params model.ParameterVector
	grid   model.GridSample
	err    *SampleError
}

// Run generates samples until the target count is stored, the draw
// budget is exhausted, or the context is cancelled. It returns a report
// either way; records written before an error or cancellation remain
// valid dataset lines.
func (g *Generator) Run(ctx context.Context) (model.RunReport, error) {
	target := g.cfg.Run.TargetSamples
	workers := g.cfg.Run.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	// Headroom for skipped samples; bounds a pathological all-failing run.
	maxDraws := target + max(16, target)

	report := model.RunReport{Target: target, FailedByStage: make(map[string]int)}

	jobs := make(chan job)
	results := make(chan result, workers)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }
	defer halt()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				default:
				}
				grid, serr := g.pipe.Run(j.index, j.params)
				select {
				case results <- result{index: j.index, params: j.params, grid: grid, err: serr}:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// The feeder is the only goroutine touching the sampler, so draws
	// stay in a single reproducible sequence.
	go func() {
		defer close(jobs)
		for i := 0; i < maxDraws; i++ {
			j := job{index: i, params: g.src.Next()}
			select {
			case jobs <- j:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(results)
		close(done)
	}()

	// Collector: release results in strict draw order so the stored
	// record sequence does not depend on worker scheduling.
	pending := make(map[int]result)
	next := 0
	var writeErr error

collect:
	for res := range results {
		pending[res.index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if r.err != nil {
				report.FailedByStage[r.err.Stage.String()]++
				slog.Warn("sample skipped",
					"index", r.err.Index,
					"stage", r.err.Stage.String(),
					"params", []float64(r.err.Params),
					"error", r.err.Err)
				continue
			}
			if report.Stored >= target {
				// Overdrawn in-flight work after the target was hit.
				continue
			}
			rec := findata.Record{
				Index:  report.Stored,
				Params: r.params,
				Values: r.grid.Values,
				Mask:   r.grid.Mask,
			}
			if err := g.writer.Append(rec); err != nil {
				writeErr = err
				halt()
				break collect
			}
			report.Stored++
			if report.Stored == target {
				halt()
			}
		}
	}
	<-done

	if writeErr != nil {
		return report, writeErr
	}
	if err := ctx.Err(); err != nil && report.Stored < target {
		return report, err
	}

	report.Degraded = report.Failed() > 0 && report.FailureRate() > g.cfg.Run.FailureRateThreshold
	if report.Stored < target {
		slog.Warn("draw budget exhausted before reaching target",
			"stored", report.Stored,
			"target", target,
			"failed", report.Failed())
		report.Degraded = true
	}
	slog.Info("generation finished",
		"stored", report.Stored,
		"target", target,
		"failed", report.Failed(),
		"failure_rate", report.FailureRate(),
		"degraded", report.Degraded,
		"workers", workers)
	return report, nil
}
