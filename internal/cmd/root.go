// Package cmd contains the provworker CLI commands.
//
// Every worker subcommand speaks the same protocol: inputs arrive as flags
// or as a JSON document on stdin, exactly one JSON document goes to stdout,
// and all logging goes to stderr. A command exits 0 when it produced a
// result document (including fail-soft embedding records) and 1 when it
// could not.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ocr-provenance/workers/internal/config"
	"github.com/ocr-provenance/workers/internal/device"
	"github.com/ocr-provenance/workers/internal/logger"
)

var (
	flagEnv      string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "provworker",
	Short: "Worker processes for the document provenance pipeline",
	Long: `provworker bundles the compute-heavy workers of the document
provenance pipeline behind one binary: embedding generation, GPU
diagnostics, clustering, reranking, image extraction and PDF form
filling.

Each subcommand reads its inputs from flags or stdin, writes exactly one
JSON document to stdout and logs to stderr, so callers can pipe stdout
straight into a JSON parser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// A .env file is a local convenience; a missing one is fine.
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "config environment: local, dev, prod (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level: debug, info, warn, error")
}

// runtime bundles the pieces every worker command needs.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	prober   *device.SystemProber
	resolver *device.Resolver
}

func newRuntime() (*runtime, error) {
	env := flagEnv
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logger.New(env, level)
	if err != nil {
		return nil, err
	}
	prober := device.NewSystemProber()
	return &runtime{
		cfg:      cfg,
		logger:   log,
		prober:   prober,
		resolver: device.NewResolver(prober, log),
	}, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}
