package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/medindex/internal/connectors/filesystem"
	"github.com/custodia-labs/medindex/internal/core/domain"
)

var (
	ingestMeta    metadataFlags
	ingestInclude []string
	ingestExclude []string
	ingestJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Index every record in a directory",
	Long: `Walks a directory and indexes every file matching the include globs.

Per-file metadata is read from an optional sidecar next to each record,
named <file>.meta.yaml:

  patientId: P-1042
  recordType: lab_result
  doctorName: Dr. Okafor

Metadata flags give defaults that sidecars override. A file that fails is
reported and the rest are still indexed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	registerInboxFlags(ingestCmd, &ingestMeta, &ingestInclude, &ingestExclude)
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the summary as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// registerInboxFlags adds the flags shared by ingest and watch.
func registerInboxFlags(cmd *cobra.Command, meta *metadataFlags, include, exclude *[]string) {
	meta.register(cmd, false)
	cmd.Flags().StringSliceVar(include, "include", nil, "doublestar globs to index (default: pdf, txt, docx and html files)")
	cmd.Flags().StringSliceVar(exclude, "exclude", nil, "doublestar globs to skip")
}

// newInbox builds and validates the filesystem connector for root.
func newInbox(cmd *cobra.Command, root string, meta *metadataFlags, include, exclude []string) (*filesystem.Connector, error) {
	defaults, err := meta.metadata()
	if err != nil {
		return nil, err
	}

	conn := filesystem.New(filesystem.Config{
		Root:     root,
		Include:  include,
		Exclude:  exclude,
		Defaults: defaults,
	})
	if err := conn.Validate(cmd.Context()); err != nil {
		return nil, err
	}
	return conn, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	conn, err := newInbox(cmd, args[0], &ingestMeta, ingestInclude, ingestExclude)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	progress := newIngestProgress(cmd.ErrOrStderr())
	summary, err := ingestService.IngestAll(ctx, conn, progress.report)
	progress.finish()
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
	} else {
		cmd.Printf("Indexed %d files (%d chunks), %d failed\n", summary.Indexed, summary.Chunks, summary.Failed)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Indexed+summary.Failed)
	}
	return nil
}

// ingestProgress draws a spinner on a terminal and prints one line per
// file otherwise. Failures are always printed.
type ingestProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newIngestProgress(out io.Writer) *ingestProgress {
	p := &ingestProgress{out: out}
	if isTerminal(out) {
		p.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *ingestProgress) report(o domain.IngestOutcome) {
	if !o.OK() {
		if p.bar != nil {
			p.bar.Clear()
		}
		fmt.Fprintln(p.out, errorStyle.Render(fmt.Sprintf("  failed %s: %v", o.URI, o.Err)))
	}
	if p.bar != nil {
		p.bar.Add(1)
		return
	}
	if o.OK() {
		fmt.Fprintln(p.out, describeOutcome(o))
	}
}

func (p *ingestProgress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

func describeOutcome(o domain.IngestOutcome) string {
	if o.Change == domain.ChangeDeleted {
		return fmt.Sprintf("  removed %s", o.URI)
	}
	if o.Result == nil {
		return fmt.Sprintf("  %s %s", o.Change, o.URI)
	}
	return fmt.Sprintf("  indexed %s -> %s (%d chunks)", o.URI, o.Result.DocumentID, o.Result.ChunkCount)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
