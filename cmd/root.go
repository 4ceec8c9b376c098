package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "clustermap",
	Short: "Mesh cluster map server and data tools",
	Long:  "Serves the Fukuoka mesh cluster map (cluster, density, building and usage encodings with station overlays) and prepares its web_data files.",
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
