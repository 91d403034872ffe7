// Package cmd wires the toolkit's cobra commands to the run-manifest
// pipeline. Every write-capable command goes through manifest.Execute;
// nothing in this package touches the database outside that path.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/adlift/toolkit/internal/config"
	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/log"
	"github.com/adlift/toolkit/internal/manifest"
	"github.com/adlift/toolkit/internal/safety"
)

var (
	flagManifestDir string
	flagLogLevel    string
	flagLogFormat   string

	// cfg is resolved once in the persistent pre-run and read by every
	// subcommand
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "toolkit",
	Short: "Operational CLI for the adlift marketing-data platform",
	Long: `toolkit runs operational database commands (seed, migrate, reset)
behind pre-flight safety gates. Every write-capable run produces a
redacted, schema-versioned manifest for audit, including blocked and
failed runs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotenv(); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if flagManifestDir != "" {
			cfg.ManifestDir = flagManifestDir
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.LogFormat = flagLogFormat
		}

		log.SetDefault(log.New(log.Config{
			Level:  log.ParseLevel(cfg.LogLevel),
			Format: log.ParseFormat(cfg.LogFormat),
		}))
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagManifestDir, "manifest-dir", "", "directory for run manifests (default ./toolkit-manifests)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (text, json)")
}

// safetyOptions builds gate inputs from the resolved configuration
func safetyOptions() *safety.Options {
	return &safety.Options{
		ToolkitEnv:  cfg.ToolkitEnv,
		DatabaseURL: cfg.DatabaseURL,
		SafeDBHosts: cfg.SafeDBHosts,
	}
}

// outcomeError converts a pipeline outcome into the error the command
// returns. The manifest is already written by the time this runs; the
// CodeError only carries the exit code up to main.
func outcomeError(outcome manifest.Outcome) error {
	if outcome.ExitCode == exitcode.Success {
		return nil
	}
	return exitcode.WithCode(outcome.ExitCode,
		string(outcome.Status)+": "+exitcode.Describe(outcome.ExitCode))
}
