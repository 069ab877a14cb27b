package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/core/domain"
)

var (
	indexMeta        metadataFlags
	indexURL         string
	indexContentType string
	indexJSON        bool
)

var indexCmd = &cobra.Command{
	Use:   "index [file]",
	Short: "Index one clinical record",
	Long: `Extracts, chunks and embeds a single record and upserts its chunks.

The record is read from a local file or downloaded with --url. Re-indexing
the same content, or the same --record-id, replaces the earlier points.

Examples:
  medindex index discharge.pdf --patient-id P-1042 --record-type discharge
  medindex index --url https://files.example.org/lab.pdf --patient-id P-1042`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexMeta.register(indexCmd, true)
	indexCmd.Flags().StringVar(&indexURL, "url", "", "download the record from this URL")
	indexCmd.Flags().StringVar(&indexContentType, "content-type", "", "MIME type hint (default: from file name)")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (indexURL == "") {
		return fmt.Errorf("%w: give either a file or --url", domain.ErrInvalidInput)
	}

	meta, err := indexMeta.metadata()
	if err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	var result *domain.IndexResult
	if indexURL != "" {
		result, err = ingestService.IndexURL(ctx, indexURL, meta)
	} else {
		result, err = indexFile(cmd, args[0], meta)
	}
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	if indexJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("%s %s (%d chunks)\n", successStyle.Render("Indexed"), result.DocumentID, result.ChunkCount)
	return nil
}

func indexFile(cmd *cobra.Command, path string, meta domain.RecordMetadata) (*domain.IndexResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	contentType := indexContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}

	return indexService.Index(cmd.Context(), domain.IndexRequest{
		Content:     data,
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Metadata:    meta,
	})
}
