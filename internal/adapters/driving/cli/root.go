// Package cli provides the finsight command-line interface built on cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/finsight/internal/core/ports/driving"
	"github.com/custodia-labs/finsight/internal/logger"
)

var (
	version = "dev"

	verbose   bool
	envFile   string
	ephemeral bool
)

// settingsService is set by SetSettingsService. Settings commands work
// without a configured AI provider, so it is wired separately from the runtime.
var settingsService driving.SettingsService

// ephemeralSettings replaces settingsService under --ephemeral.
var ephemeralSettings driving.SettingsService

// runtimeBuilder builds the analysis runtime on demand.
var runtimeBuilder RuntimeBuilder

// Watcher runs in the background while a long-lived command is up.
type Watcher interface {
	Start(ctx context.Context)
	Close() error
}

// Runtime holds the services built from the current settings.
type Runtime struct {
	// Analysis runs analyses. Required.
	Analysis driving.AnalysisService

	// Metrics serves Prometheus metrics. Optional.
	Metrics http.Handler

	// Watchers are started by the serve commands and closed with the
	// runtime. Optional.
	Watchers []Watcher

	// Close releases providers and stores. Optional.
	Close func() error
}

// RuntimeBuilder creates the runtime. Called once per command invocation.
type RuntimeBuilder func(ctx context.Context) (*Runtime, error)

var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "Financial document analysis",
	Long: `finsight answers questions about financial documents.

It extracts text from a PDF, a web page or pasted text, retrieves the
passages most relevant to your question and asks a language model for a
structured analysis: summary, sentiment, risks, opportunities and key
metrics with a confidence score.

Run 'finsight settings wizard' first to configure the embedding and
LLM providers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		if ephemeral {
			if ephemeralSettings == nil {
				return errors.New("ephemeral mode not available")
			}
			settingsService = ephemeralSettings
			logger.Debug("Ephemeral mode: settings from the environment, nothing written to disk")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline stages and timings")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file with provider keys")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"ignore the config file and keep settings, index and history in memory")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsService sets the settings service used by settings commands.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetEphemeralSettingsService sets the settings service used instead of
// the configured one when --ephemeral is given.
func SetEphemeralSettingsService(s driving.SettingsService) {
	ephemeralSettings = s
}

// Ephemeral reports whether --ephemeral was given. Runtime builders use it
// to keep the index and history in memory.
func Ephemeral() bool {
	return ephemeral
}

// SetRuntimeBuilder sets the function that builds the analysis runtime.
func SetRuntimeBuilder(b RuntimeBuilder) {
	runtimeBuilder = b
}

// loadRuntime builds the runtime for one command.
func loadRuntime(ctx context.Context) (*Runtime, error) {
	if runtimeBuilder == nil {
		return nil, errors.New("analysis service not configured")
	}
	rt, err := runtimeBuilder(ctx)
	if err != nil {
		return nil, err
	}
	if rt == nil || rt.Analysis == nil {
		return nil, errors.New("analysis service not configured")
	}
	return rt, nil
}

// closeRuntime releases the runtime, logging instead of failing the command.
func closeRuntime(rt *Runtime) {
	for _, w := range rt.Watchers {
		if err := w.Close(); err != nil {
			logger.Warn("Closing watcher: %v", err)
		}
	}
	if rt.Close == nil {
		return
	}
	if err := rt.Close(); err != nil {
		logger.Warn("Closing runtime: %v", err)
	}
}

// startWatchers starts the runtime's watchers. They stop when ctx is
// cancelled or the runtime is closed.
func startWatchers(ctx context.Context, rt *Runtime) {
	for _, w := range rt.Watchers {
		w.Start(ctx)
	}
}

// loadEnvFile loads provider keys from path. A missing file is not an error
// and variables already set in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Debug("Loaded environment from %s", path)
	return nil
}
