// Package sciforest provides decision forests and feed forward neural networks
// for Go, with an API modeled on scikit-learn.
//
// Estimators train on datasets from core/dataset, report their abilities
// through the capability flags of core/model and fail with the typed errors of
// pkg/errors. Ensembles and validators run their work as tasks on a
// core/backend Backend, so the same code trains serially or on a worker pool.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "math/rand"
//	    "os"
//
//	    "github.com/YuminosukeSato/sciforest/core/backend"
//	    "github.com/YuminosukeSato/sciforest/core/dataset"
//	    "github.com/YuminosukeSato/sciforest/core/model"
//	    "github.com/YuminosukeSato/sciforest/sklearn/ensemble"
//	    "github.com/YuminosukeSato/sciforest/sklearn/tree"
//	)
//
//	func main() {
//	    f, err := os.Open("iris.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer f.Close()
//
//	    data, err := dataset.FromCSV(f, dataset.CSVOptions{Header: true, LabelColumn: -1})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    training, testing, err := data.Randomize(rand.New(rand.NewSource(1))).StratifiedSplit(0.8)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    base, _ := tree.NewClassificationTree(tree.WithMaxDepth(10))
//	    forest, err := ensemble.NewRandomForest(
//	        ensemble.WithBase(base),
//	        ensemble.WithEstimators(100),
//	        ensemble.WithBackend(backend.NewWorkers(4)),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := forest.Train(training); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    predictions, err := forest.Predict(testing)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(predictions[:5])
//
//	    _ = model.SaveModel(forest, model.NewFilesystem("forest.model", true))
//	}
//
// # Packages
//
//   - core/dataset: Labeled and unlabeled datasets, CSV and NPY readers
//   - core/model: Estimator interfaces, state management, persisters
//   - core/backend: Serial and worker pool task backends
//   - core/parallel: Parallel processing utilities
//   - sklearn/tree: CART and Extra-Trees classifiers and regressors
//   - sklearn/ensemble: Random forest
//   - sklearn/neural_network: Multilayer perceptron and Adaline
//   - sklearn/model_selection: K-fold, Monte Carlo and leave-p-out validation
//   - neural: Feed forward network, layers, optimizers and cost functions
//   - metrics: Classification and regression metrics
//   - preprocessing: Standard and min-max scalers
//   - pkg/errors, pkg/log, pkg/config: Error taxonomy, logging, configuration
//
// The sciforest command in cmd/sciforest trains, validates and applies these
// estimators from a YAML configuration.
package sciforest
