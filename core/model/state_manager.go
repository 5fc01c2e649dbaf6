package model

import (
	"sync"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/sciforest/pkg/errors"
)

// StateManager manages the trained state of an estimator in a thread-safe
// manner. Estimators hold one by pointer and never copy it.
type StateManager struct {
	Fitted bool // Public for gob encoding
	mu     sync.RWMutex

	// Dimensions seen during training - Public for gob encoding
	NFeatures int
	NSamples  int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// NewID returns a fresh estimator instance id for logs and persisted keys.
func NewID() string {
	return uuid.NewString()
}

// IsFitted returns whether the estimator has been trained.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the estimator as trained on data of the given shape.
func (s *StateManager) SetFitted(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NFeatures = nFeatures
	s.NSamples = nSamples
}

// Reset forgets the trained state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NFeatures = 0
	s.NSamples = 0
}

// GetDimensions returns the number of features and samples seen during training.
func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError naming model and method when the
// estimator has not been trained.
func (s *StateManager) RequireFitted(model, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(model, method)
	}
	return nil
}

// TrainedState is the encodable part of a StateManager.
type TrainedState struct {
	Fitted    bool
	NFeatures int
	NSamples  int
}

// Snapshot returns the state for embedding in a gob encoded struct.
func (s *StateManager) Snapshot() TrainedState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return TrainedState{Fitted: s.Fitted, NFeatures: s.NFeatures, NSamples: s.NSamples}
}

// Restore copies a decoded snapshot into s.
func (s *StateManager) Restore(state TrainedState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = state.Fitted
	s.NFeatures = state.NFeatures
	s.NSamples = state.NSamples
}
