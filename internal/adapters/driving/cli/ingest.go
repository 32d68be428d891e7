package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestSource string
	ingestForce  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest every PDF in a directory",
	Long: `Parse and index every PDF in the source directory (default: the inbox).

Each file gets an id derived from its name. Files already indexed are
skipped unless --force is given. Outcomes are recorded in the ingest
registry so failed files can be retried later.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "directory to scan (default from data.inbox)")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-ingest files already indexed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	batch, err := batchService()
	if err != nil {
		return err
	}

	dir := ingestSource
	if dir == "" && app != nil {
		dir = app.Inbox
	}
	if dir == "" {
		return fmt.Errorf("no source directory: pass --source or set data.inbox")
	}

	cmd.Printf("Ingesting %s...\n", dir)
	report, err := batch.Run(cmd.Context(), dir, ingestForce)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Scanned: %d  Indexed: %d  Skipped: %d  Failed: %d\n",
		report.Scanned, report.Indexed, report.Skipped, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d file(s) failed; run with --verbose for details", report.Failed)
	}
	return nil
}
