package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adlift/toolkit/internal/db"
	"github.com/adlift/toolkit/internal/manifest"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Migrate applies every pending schema migration in order. The run is
safety-gated and produces a manifest with one step per applied
migration.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	outcome := manifest.Execute(manifest.Params{
		Config: manifest.Config{
			Command:        "migrate",
			Classification: manifest.ClassificationWrite,
		},
		SafetyOptions: safetyOptions(),
		ManifestDir:   cfg.ManifestDir,
		Execute: func(b *manifest.Builder) (manifest.ExecResult, error) {
			conn, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return manifest.ExecResult{}, err
			}
			defer conn.Close()

			m := &db.Migrator{Conn: conn}
			return m.Run(ctx, b)
		},
	})

	reportOutcome(outcome)
	return outcomeError(outcome)
}
