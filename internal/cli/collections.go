package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage index collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections and their sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := openIndex(GetRootDir(), GetConfig())
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		defer idx.Close()

		infos, err := idx.ListCollections()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No collections.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s\tdim=%d\tmetric=%s\tentries=%d\n",
				info.Name, info.Dimension, info.Metric, info.Entries)
		}
		return nil
	},
}

var collectionsDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Delete a collection and all its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := openIndex(GetRootDir(), GetConfig())
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		defer idx.Close()

		if err := idx.DropCollection(args[0]); err != nil {
			return err
		}
		fmt.Printf("Dropped collection %q\n", args[0])
		return nil
	},
}

func init() {
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsDropCmd)
	rootCmd.AddCommand(collectionsCmd)
}
