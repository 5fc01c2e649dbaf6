package log

import "github.com/YuminosukeSato/sciforest/pkg/errors"

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForest".
	ModelNameKey = "model.name"

	// EstimatorIDKey is the uuid assigned to an estimator instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey is one of the Operation* values below.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or subsystem emitting the record.
	ComponentKey = "component"

	// PhaseKey is one of the Phase* values below.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey   = "data.samples"
	FeaturesKey  = "data.features"
	ClassesKey   = "data.classes"
	BatchSizeKey = "data.batch_size"
)

// Training progress and results.
const (
	DurationMsKey = "perf.duration_ms"
	LossKey       = "metrics.loss"
	ScoreKey      = "metrics.score"
	EpochKey      = "training.epoch"

	// TreesKey is the number of trees in an ensemble.
	TreesKey = "ensemble.trees"

	// HeightKey and LeavesKey describe a grown tree.
	HeightKey = "tree.height"
	LeavesKey = "tree.leaves"
)

// Backend and execution context.
const (
	TasksKey      = "backend.tasks"
	BackendKey    = "backend.name"
	RandomSeedKey = "config.random_seed"
	PathKey       = "persist.path"

	// TaskIndexKey is the enqueue position of a task within one Process call.
	TaskIndexKey = "backend.task_index"
)

// Error context.
const (
	// ErrorCodeKey carries one of the Error* codes below.
	ErrorCodeKey = "error.code"
)

const (
	OperationTrain    = "train"
	OperationPartial  = "partial"
	OperationPredict  = "predict"
	OperationProba    = "proba"
	OperationValidate = "validate"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorNumerical         = "NUMERICAL_INSTABILITY"
	ErrorTaskFailed        = "TASK_FAILED"
	ErrorUnknown           = "UNKNOWN"
)

// ErrorCode classifies err into one of the Error* codes. A failed backend
// task is reported as ErrorTaskFailed whatever its cause.
func ErrorCode(err error) string {
	var (
		task      *errors.TaskError
		notFitted *errors.NotFittedError
		dimension *errors.DimensionError
		numerical *errors.NumericalInstabilityError
	)
	switch {
	case errors.As(err, &task):
		return ErrorTaskFailed
	case errors.As(err, &notFitted):
		return ErrorNotFitted
	case errors.As(err, &dimension):
		return ErrorDimensionMismatch
	case errors.Is(err, errors.ErrEmptyData):
		return ErrorEmptyData
	case errors.As(err, &numerical):
		return ErrorNumerical
	default:
		return ErrorUnknown
	}
}
