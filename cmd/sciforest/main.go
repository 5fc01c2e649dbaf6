// Command sciforest trains, validates and applies the estimators of this
// module from a YAML configuration.
//
//	sciforest train --config forest.yaml
//	sciforest validate --config forest.yaml
//	sciforest predict --config forest.yaml --data new.csv
//	sciforest export-tree --config tree.yaml tree.svg
//	sciforest plot-loss --config mlp.yaml loss.png
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/sciforest/pkg/config"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/pkg/log"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	configPath  string
	logFormat   string
	logLevel    string
	metricsAddr string

	cfg     *config.Config
	metrics *http.Server
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "sciforest",
		Short:        "Train and apply decision forests and neural networks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to the YAML configuration")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: json, console or slog (overrides logging.format)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides logging.level)")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while the command runs")

	root.AddCommand(
		newTrainCmd(a),
		newValidateCmd(a),
		newPredictCmd(a),
		newExportTreeCmd(a),
		newPlotLossCmd(a),
	)
	return root
}

// setup loads the configuration, installs the log provider and starts the
// metrics server.
func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	switch cfg.Logging.Format {
	case "console":
		log.SetProvider(log.NewConsoleProvider(logOut, level))
	case "slog":
		log.SetupLogger(logOut, level)
	default:
		log.SetProvider(log.NewZerologProvider(logOut, level))
	}

	if a.metricsAddr != "" {
		a.serveMetrics()
	}
	return nil
}

func (a *app) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              a.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.metrics = srv
	logger := log.GetLoggerWithName("sciforest")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", err, "addr", a.metricsAddr)
		}
	}()
	logger.Info("Serving metrics", "addr", a.metricsAddr)
}

func (a *app) close() {
	if a.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server shutdown: %v\n", err)
	}
	a.metrics = nil
}
