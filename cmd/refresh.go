package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run a one-shot catalog refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		result, err := initEngine(st).Refresh(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("refreshed %d countries at %s\n", result.Processed, result.RefreshedAt.Format("2006-01-02 15:04:05 UTC"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
