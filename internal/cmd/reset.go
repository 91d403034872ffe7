package cmd

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/adlift/toolkit/internal/db"
	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/manifest"
	"github.com/adlift/toolkit/internal/ux"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset <tenant>",
	Short: "Delete all campaign data for a tenant",
	Long: `Reset deletes every campaign and event row belonging to one tenant.
Destructive: requires --force. The schema itself is left intact.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "confirm the destructive reset")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenantArg := args[0]

	if !resetForce {
		ux.Errorf("reset is destructive; re-run with --force to confirm")
		return exitcode.WithCode(exitcode.UsageError, "reset requires --force")
	}

	outcome := manifest.Execute(manifest.Params{
		Config: manifest.Config{
			Command:        "reset",
			Classification: manifest.ClassificationDestructive,
			Args:           map[string]string{"tenant": tenantArg},
			Flags:          map[string]string{"force": "true"},
		},
		SafetyOptions: safetyOptions(),
		ManifestDir:   cfg.ManifestDir,
		Execute: func(b *manifest.Builder) (manifest.ExecResult, error) {
			b.SetConfirmation(manifest.Confirmation{
				Required: true,
				Received: true,
				Method:   "--force flag",
			})
			return withTenant(ctx, b, tenantArg, func(conn *sql.DB, tenant *db.Tenant) (manifest.ExecResult, error) {
				r := &db.Resetter{Conn: conn, Tenant: tenant}
				return r.Run(ctx, b)
			})
		},
	})

	reportOutcome(outcome)
	return outcomeError(outcome)
}
