package backend

import (
	"runtime"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// Workers runs tasks on a bounded pool of goroutines. Results keep the
// enqueue order regardless of completion order.
type Workers struct {
	queue
	workers int
}

// NewWorkers creates a pool of n goroutines. n <= 0 uses runtime.NumCPU().
func NewWorkers(n int) *Workers {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Workers{workers: n}
}

// NumWorkers returns the pool size.
func (w *Workers) NumWorkers() int { return w.workers }

func (w *Workers) Process() ([]any, error) {
	items := w.take()
	logger := log.GetLoggerWithName("backend")
	logger.Debug("Processing tasks",
		log.BackendKey, w.String(),
		log.TasksKey, len(items),
	)

	results := make([]any, len(items))
	var failed atomic.Bool

	var g errgroup.Group
	g.SetLimit(w.workers)
	for i, it := range items {
		g.Go(func() error {
			// tasks not yet started are skipped once one has failed
			if failed.Load() {
				return nil
			}
			result, err := run(w.String(), i, it.task)
			if err != nil {
				failed.Store(true)
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var taskErr *errors.TaskError
		if errors.As(err, &taskErr) {
			logger.Error("Task failed", err,
				log.BackendKey, w.String(),
				log.TaskIndexKey, taskErr.Index,
				log.ErrorCodeKey, log.ErrorCode(err),
			)
		}
		return nil, err
	}
	complete(items, results)
	return results, nil
}

func (w *Workers) String() string { return "workers(" + strconv.Itoa(w.workers) + ")" }
