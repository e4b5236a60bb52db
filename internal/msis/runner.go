package msis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/KI7MT/ki7mt-ai-lab-msis/internal/common"
)

const (
	// minParallelPoints is the grid size below which Run stays on one goroutine.
	minParallelPoints = 512

	// maxChunkPoints bounds the records handed to one Calc call.
	maxChunkPoints = 8192
)

// =============================================================================
// Runner
// =============================================================================

// Runner evaluates a Model over Grids. Runs are serialised because the
// model keeps its switch state between calls; points inside a run are
// split across workers.
type Runner struct {
	model      Model
	numWorkers int
	stats      *common.Stats

	mu          sync.Mutex
	initialized bool
	lastOpts    OptionSet
}

// NewRunner creates a Runner. numWorkers <= 0 uses all CPUs; stats may
// be nil.
func NewRunner(model Model, numWorkers int, stats *common.Stats) *Runner {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Runner{model: model, numWorkers: numWorkers, stats: stats}
}

// Version returns the wrapped model's version.
func (r *Runner) Version() Version {
	if r == nil || r.model == nil {
		return ""
	}
	return r.model.Version()
}

// Evaluate composes q and runs it.
func (r *Runner) Evaluate(ctx context.Context, q Query, aligner IndexAligner, opts OptionSet) (*Tensor, error) {
	g, err := Compose(q, aligner, opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, g)
}

// Run evaluates every record of g and returns the output shaped
// g.Shape x NumVariables. Model sentinels become NaN.
func (r *Runner) Run(ctx context.Context, g *Grid) (*Tensor, error) {
	if r == nil || r.model == nil {
		return nil, fmt.Errorf("no model configured: %w", ErrModelInvocation)
	}
	if g == nil || len(g.Records) == 0 {
		return nil, ErrEmptyGrid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	if !r.initialized || r.lastOpts != g.Options {
		if err := r.model.Init(g.Options); err != nil {
			r.initialized = false
			return nil, invocationError("init", err)
		}
		r.initialized = true
		r.lastOpts = g.Options
		common.Debugf("msis %s initialised with options %v", r.model.Version(), g.Options[:numNamedSwitches])
	}

	out := make([]float64, len(g.Records)*NumVariables)
	var err error
	if len(g.Records) < minParallelPoints || r.numWorkers <= 1 {
		err = r.calcChunk(ctx, g.Records, out)
	} else {
		err = r.calcParallel(ctx, g.Records, out)
	}
	if err != nil {
		return nil, err
	}

	for i, v := range out {
		if IsMissing(v) {
			out[i] = math.NaN()
		}
	}

	t, err := NewTensor(g.Shape, out)
	if err != nil {
		return nil, err
	}

	if r.stats != nil {
		r.stats.SetRunLatency(time.Since(start))
	}
	return t, nil
}

// calcParallel splits records into chunks of at most maxChunkPoints and
// feeds them to numWorkers goroutines. Cancellation is checked per chunk.
func (r *Runner) calcParallel(ctx context.Context, recs []CallRecord, out []float64) error {
	chunkSize := (len(recs) + r.numWorkers - 1) / r.numWorkers
	if chunkSize > maxChunkPoints {
		chunkSize = maxChunkPoints
	}

	type span struct{ start, end int }
	jobs := make(chan span)

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for workerID := 0; workerID < r.numWorkers; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := r.calcChunk(ctx, recs[j.start:j.end], out[j.start*NumVariables:j.end*NumVariables]); err != nil {
					once.Do(func() { firstErr = err })
				}
			}
		}()
	}

	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		jobs <- span{start, end}
	}
	close(jobs)

	wg.Wait()
	return firstErr
}

func (r *Runner) calcChunk(ctx context.Context, recs []CallRecord, out []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.model.Calc(recs, out); err != nil {
		return invocationError("calc", err)
	}
	if r.stats != nil {
		r.stats.AddPoints(uint64(len(recs)))
		r.stats.AddCalls(1)
	}
	return nil
}

func invocationError(op string, err error) error {
	if errors.Is(err, ErrModelInvocation) {
		return err
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrModelInvocation)
}
