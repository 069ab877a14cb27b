package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

var (
	watchMeta        metadataFlags
	watchInclude     []string
	watchExclude     []string
	watchSkipInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Index records as they arrive in a directory",
	Long: `Indexes the directory once, then keeps the index in step with it:
new and changed files are re-indexed and removed files are deleted from the
collection. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	registerInboxFlags(watchCmd, &watchMeta, &watchInclude, &watchExclude)
	watchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "do not index existing files first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, err := newInbox(cmd, args[0], &watchMeta, watchInclude, watchExclude)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	printOutcome := func(o domain.IngestOutcome) {
		if !o.OK() {
			cmd.PrintErrln(errorStyle.Render(fmt.Sprintf("  failed %s: %v", o.URI, o.Err)))
			return
		}
		cmd.Println(describeOutcome(o))
	}

	if !watchSkipInitial {
		summary, err := ingestService.IngestAll(ctx, conn, printOutcome)
		if err != nil {
			return fmt.Errorf("initial scan failed: %w", err)
		}
		cmd.Printf("Indexed %d files (%d chunks), %d failed\n", summary.Indexed, summary.Chunks, summary.Failed)
	}

	cmd.Println(mutedStyle.Render(fmt.Sprintf("Watching %s (Ctrl+C to stop)", args[0])))
	if err := ingestService.Follow(ctx, conn, printOutcome); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
