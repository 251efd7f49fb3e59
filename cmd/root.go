package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/country-catalog/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "country-catalog",
	Short: "Country and currency catalog service",
	Long:  "Aggregates country metadata and exchange rates from upstream feeds, reconciles them into a local catalog, and serves filtered views plus a summary image.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
