package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete every chunk of an indexed record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireServices(ctx); err != nil {
		return err
	}

	if err := indexService.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("%s %s\n", successStyle.Render("Deleted"), args[0])
	return nil
}
