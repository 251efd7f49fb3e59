package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/country-catalog/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print catalog size and last refresh time",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		total, err := st.Count(ctx)
		if err != nil {
			return err
		}

		meta, err := st.GetMetadata(ctx, model.MetadataKeyLastRefreshed)
		if err != nil {
			return err
		}

		fmt.Printf("countries: %d\n", total)
		if meta != nil {
			fmt.Printf("last refreshed: %s\n", meta.Value)
		} else {
			fmt.Println("last refreshed: never")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
