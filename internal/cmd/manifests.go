package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adlift/toolkit/internal/manifest"
	"github.com/adlift/toolkit/internal/ux"
)

var manifestsCmd = &cobra.Command{
	Use:   "manifests",
	Short: "Inspect and maintain the run-manifest directory",
}

var manifestsListFormat string

var manifestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs from the run index",
	Args:  cobra.NoArgs,
	RunE:  runManifestsList,
}

var manifestsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify manifest checksums and schema validity",
	Long: `Verify recomputes each indexed manifest's checksum and validates the
document against the manifest schema. Any mismatch fails the command.`,
	Args: cobra.NoArgs,
	RunE: runManifestsVerify,
}

var cleanupMaxAge time.Duration

var manifestsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove orphaned temp files left by interrupted writes",
	Args:  cobra.NoArgs,
	RunE:  runManifestsCleanup,
}

func init() {
	manifestsListCmd.Flags().StringVarP(&manifestsListFormat, "output", "o", "text", "output format (text, json, yaml)")
	manifestsCleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", time.Hour, "only remove temp files older than this")

	manifestsCmd.AddCommand(manifestsListCmd)
	manifestsCmd.AddCommand(manifestsVerifyCmd)
	manifestsCmd.AddCommand(manifestsCleanupCmd)
	rootCmd.AddCommand(manifestsCmd)
}

func runManifestsList(cmd *cobra.Command, args []string) error {
	entries, err := manifest.ReadRunLog(cfg.ManifestDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
			return nil
		}
		return err
	}

	if manifestsListFormat != "text" {
		f, err := ux.NewFormatter(manifestsListFormat, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return f.Format(entries)
	}

	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %-9s exit=%-3d %s\n",
			e.WrittenAt.Format(time.RFC3339), e.Command, e.Status, e.ExitCode, e.File)
	}
	return nil
}

func runManifestsVerify(cmd *cobra.Command, args []string) error {
	entries, err := manifest.ReadRunLog(cfg.ManifestDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
			return nil
		}
		return err
	}

	bad := 0
	for _, e := range entries {
		ok, err := manifest.VerifyChecksum(e, cfg.ManifestDir)
		if err != nil {
			ux.Errorf("%s: %v", e.File, err)
			bad++
			continue
		}
		if !ok {
			ux.Errorf("%s: checksum mismatch", e.File)
			bad++
			continue
		}

		data, err := os.ReadFile(filepath.Join(manifest.ResolveDir(cfg.ManifestDir), e.File))
		if err != nil {
			ux.Errorf("%s: %v", e.File, err)
			bad++
			continue
		}
		if err := manifest.ValidateDocument(data); err != nil {
			ux.Errorf("%s: schema: %v", e.File, err)
			bad++
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d manifests failed verification", bad, len(entries))
	}
	ux.Successf("%d manifests verified", len(entries))
	return nil
}

func runManifestsCleanup(cmd *cobra.Command, args []string) error {
	removed := manifest.CleanupOrphans(cfg.ManifestDir, cleanupMaxAge)
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned temp files\n", removed)
	return nil
}
