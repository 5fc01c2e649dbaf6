// Package backend dispatches independent tasks and collects their results in
// enqueue order.
//
// Enqueue only records a task. Process is the barrier: it runs every queued
// task, waits for all of them and returns one result per task in the order
// the tasks were enqueued. The first task error aborts Process and is
// returned wrapped in a *errors.TaskError. Flush drops queued tasks without
// running them.
//
//	b := backend.NewWorkers(4)
//	for _, tree := range trees {
//	    b.Enqueue(backend.TrainLearner(tree, subset), nil)
//	}
//	results, err := b.Process()
package backend

import (
	"sync"
	"time"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// Task is a unit of work. Name is used in logs, metrics and errors.
type Task struct {
	Name string
	Fn   func() (any, error)
}

// Callback receives the result of a task once Process has collected it.
// Callbacks run on the caller's goroutine in enqueue order.
type Callback func(result any)

// Backend is the task dispatcher used by ensembles and validators.
type Backend interface {
	// Enqueue adds a task to the queue. after may be nil.
	Enqueue(task Task, after Callback)

	// Process runs all queued tasks and blocks until every result is
	// available. The queue is empty afterwards.
	Process() ([]any, error)

	// Flush discards the queue without running it.
	Flush()

	// String names the backend for logs.
	String() string
}

type queued struct {
	task  Task
	after Callback
}

// queue is the enqueue/flush bookkeeping shared by the backends.
type queue struct {
	mu    sync.Mutex
	items []queued
}

func (q *queue) Enqueue(task Task, after Callback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queued{task: task, after: after})
	queueLength.Set(float64(len(q.items)))
}

func (q *queue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	queueLength.Set(0)
}

// take empties the queue and returns its content.
func (q *queue) take() []queued {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	queueLength.Set(0)
	return items
}

// run executes one task, converting panics to errors and recording metrics.
func run(backend string, index int, t Task) (any, error) {
	start := time.Now()
	var result any
	err := errors.SafeExecute(t.Name, func() error {
		var err error
		result, err = t.Fn()
		return err
	})
	taskDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		tasksTotal.WithLabelValues(backend, statusError).Inc()
		return nil, errors.NewTaskError(index, t.Name, err)
	}
	tasksTotal.WithLabelValues(backend, statusSuccess).Inc()
	return result, nil
}

// complete calls the callbacks in enqueue order.
func complete(items []queued, results []any) {
	for i, it := range items {
		if it.after != nil {
			it.after(results[i])
		}
	}
}
