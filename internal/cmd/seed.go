package cmd

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adlift/toolkit/internal/db"
	"github.com/adlift/toolkit/internal/manifest"
	"github.com/adlift/toolkit/internal/ux"
)

var seedDryRun bool

var seedCmd = &cobra.Command{
	Use:   "seed <tenant>",
	Short: "Seed demo campaign data for a tenant",
	Long: `Seed inserts the demo campaign dataset for one tenant, identified by
id or slug. The run is safety-gated and produces a manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "plan the writes without applying them")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenantArg := args[0]

	outcome := manifest.Execute(manifest.Params{
		Config: manifest.Config{
			Command:        "seed",
			Classification: manifest.ClassificationWrite,
			Args:           map[string]string{"tenant": tenantArg},
			Flags:          map[string]string{"dry-run": strconv.FormatBool(seedDryRun)},
		},
		SafetyOptions: safetyOptions(),
		ManifestDir:   cfg.ManifestDir,
		Execute: func(b *manifest.Builder) (manifest.ExecResult, error) {
			return withTenant(ctx, b, tenantArg, func(conn *sql.DB, tenant *db.Tenant) (manifest.ExecResult, error) {
				s := &db.Seeder{Conn: conn, Tenant: tenant, DryRun: seedDryRun}
				return s.Run(ctx, b)
			})
		},
	})

	reportOutcome(outcome)
	return outcomeError(outcome)
}

// withTenant opens the gated database connection, resolves the tenant
// and hands both to fn, closing the connection afterwards. Connection
// and resolution failures surface as the callback's error so they land
// in the manifest like any other execution failure.
func withTenant(ctx context.Context, b *manifest.Builder, tenantArg string,
	fn func(conn *sql.DB, tenant *db.Tenant) (manifest.ExecResult, error)) (manifest.ExecResult, error) {

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return manifest.ExecResult{}, err
	}
	defer conn.Close()

	tenant, err := db.ResolveTenant(ctx, conn, tenantArg)
	if err != nil {
		return manifest.ExecResult{}, err
	}
	return fn(conn, tenant)
}

// reportOutcome prints the run result to stderr. The manifest path is
// the authoritative record; this is operator convenience only.
func reportOutcome(outcome manifest.Outcome) {
	switch outcome.Status {
	case manifest.StatusSuccess:
		ux.Successf("%s (manifest: %s)", outcome.Status, outcome.ManifestPath)
	case manifest.StatusBlocked:
		ux.Errorf("%s: safety gate refused execution (manifest: %s)", outcome.Status, outcome.ManifestPath)
	default:
		ux.Errorf("%s (manifest: %s)", outcome.Status, outcome.ManifestPath)
	}
}
