package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/medindex/internal/core/domain"
)

var collectionJSON bool

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect the vector collection",
}

var collectionEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the collection if needed and check the embedding model",
	Long: `Creates the collection with the embedding model's dimension and cosine
distance if it does not exist, then checks the embedding model responds.
An existing collection with another dimension is reported as a schema error.`,
	Args: cobra.NoArgs,
	RunE: runCollectionEnsure,
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show collection name, dimension and point count",
	Args:  cobra.NoArgs,
	RunE:  runCollectionInfo,
}

func init() {
	collectionInfoCmd.Flags().BoolVar(&collectionJSON, "json", false, "output as JSON")
	collectionCmd.AddCommand(collectionEnsureCmd, collectionInfoCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionEnsure(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	info, err := searchService.EnsureCollection(ctx)
	if err != nil {
		return err
	}

	if embeddingService != nil {
		if err := ai.ValidateEmbeddingService(ctx, embeddingService); err != nil {
			return err
		}
	}

	cmd.Printf("%s %s\n", successStyle.Render("Ready"), describeCollection(info))
	return nil
}

func runCollectionInfo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	info, err := searchService.Collection(ctx)
	if err != nil {
		return fmt.Errorf("collection info: %w", err)
	}

	if collectionJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal collection info: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(describeCollection(info))
	return nil
}

func describeCollection(info domain.CollectionInfo) string {
	return fmt.Sprintf("%s: %d dimensions, %s distance, %d points",
		info.Name, info.Dimension, info.Distance, info.PointCount)
}
