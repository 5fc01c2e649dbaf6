package backend

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

func value(v any, delay time.Duration) Task {
	return Task{Name: fmt.Sprint("value-", v), Fn: func() (any, error) {
		time.Sleep(delay)
		return v, nil
	}}
}

func backends() map[string]Backend {
	return map[string]Backend{
		"serial":  NewSerial(),
		"workers": NewWorkers(4),
	}
}

func TestProcessKeepsEnqueueOrder(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			b.Enqueue(value("a", 20*time.Millisecond), nil)
			b.Enqueue(value("b", 0), nil)
			b.Enqueue(value("c", 5*time.Millisecond), nil)

			results, err := b.Process()
			require.NoError(t, err)
			assert.Equal(t, []any{"a", "b", "c"}, results)

			again, err := b.Process()
			require.NoError(t, err)
			assert.Empty(t, again)
		})
	}
}

func TestCallbacksRunInEnqueueOrder(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			var seen []any
			for i := 0; i < 5; i++ {
				b.Enqueue(value(i, time.Duration(5-i)*time.Millisecond), func(r any) {
					seen = append(seen, r)
				})
			}
			_, err := b.Process()
			require.NoError(t, err)
			assert.Equal(t, []any{0, 1, 2, 3, 4}, seen)
		})
	}
}

func TestFlushDropsQueue(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			var ran atomic.Int32
			b.Enqueue(Task{Name: "count", Fn: func() (any, error) {
				ran.Add(1)
				return nil, nil
			}}, nil)
			b.Flush()

			results, err := b.Process()
			require.NoError(t, err)
			assert.Empty(t, results)
			assert.Equal(t, int32(0), ran.Load())
		})
	}
}

func TestTaskErrorAbortsProcess(t *testing.T) {
	boom := errors.New("boom")
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			called := false
			b.Enqueue(value("ok", 0), func(any) { called = true })
			b.Enqueue(Task{Name: "fail", Fn: func() (any, error) { return nil, boom }}, nil)

			results, err := b.Process()
			require.Error(t, err)
			assert.Nil(t, results)
			assert.False(t, called, "callbacks must not run when a task fails")
			assert.True(t, errors.Is(err, boom))

			var taskErr *errors.TaskError
			require.True(t, errors.As(err, &taskErr))
			assert.Equal(t, 1, taskErr.Index)
			assert.Equal(t, "fail", taskErr.Task)
		})
	}
}

func TestTaskFailureIsLogged(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	previous := log.Provider()
	log.SetProvider(provider)
	defer log.SetProvider(previous)

	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			logger.Clear()
			b.Enqueue(value("ok", 0), nil)
			b.Enqueue(Task{Name: "fail", Fn: func() (any, error) { return nil, errors.New("boom") }}, nil)

			_, err := b.Process()
			require.Error(t, err)
			assert.True(t, logger.ContainsMessage("Task failed"))
			assert.True(t, logger.ContainsField(log.TaskIndexKey, float64(1)))
			assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorTaskFailed))
		})
	}
}

func TestPanicBecomesError(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			b.Enqueue(Task{Name: "panic", Fn: func() (any, error) { panic("bad task") }}, nil)

			_, err := b.Process()
			require.Error(t, err)
			var panicErr *errors.PanicError
			assert.True(t, errors.As(err, &panicErr))
		})
	}
}

func TestNewWorkersDefaultsToNumCPU(t *testing.T) {
	assert.Greater(t, NewWorkers(0).NumWorkers(), 0)
	assert.Equal(t, "workers(3)", NewWorkers(3).String())
	assert.Equal(t, "serial", NewSerial().String())
}
