package backend

import (
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// Serial runs tasks one after another on the calling goroutine.
type Serial struct {
	queue
}

// NewSerial creates a serial backend.
func NewSerial() *Serial {
	return &Serial{}
}

func (s *Serial) Process() ([]any, error) {
	items := s.take()
	logger := log.GetLoggerWithName("backend")
	logger.Debug("Processing tasks", log.BackendKey, s.String(), log.TasksKey, len(items))

	results := make([]any, len(items))
	for i, it := range items {
		result, err := run(s.String(), i, it.task)
		if err != nil {
			logger.Error("Task failed", err,
				log.BackendKey, s.String(),
				log.TaskIndexKey, i,
				log.ErrorCodeKey, log.ErrorCode(err),
			)
			return nil, err
		}
		results[i] = result
	}
	complete(items, results)
	return results, nil
}

func (s *Serial) String() string { return "serial" }
