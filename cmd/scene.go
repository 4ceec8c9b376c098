package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/urban-mesh/clustermap/internal/view"
)

var (
	sceneClusterCount int
	sceneMode         string
	sceneStations     bool
)

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Load the data once and print the map style as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if sceneClusterCount != 0 {
			cfg.View.DefaultClusterCount = sceneClusterCount
		}
		if err := cfg.Validate("scene"); err != nil {
			return err
		}

		ctl, err := newController(cfg)
		if err != nil {
			return eris.Wrap(err, "scene: build controller")
		}
		if err := ctl.Start(ctx); err != nil {
			return eris.Wrap(err, "scene: load")
		}
		if err := ctl.SelectDisplayMode(sceneMode); err != nil {
			return err
		}
		if sceneStations {
			if err := ctl.ShowStations(true); err != nil {
				return err
			}
		}

		out, err := json.MarshalIndent(ctl.Scene(), "", "  ")
		if err != nil {
			return eris.Wrap(err, "scene: encode style")
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	sceneCmd.Flags().IntVar(&sceneClusterCount, "clusters", 0, "cluster count (default from config)")
	sceneCmd.Flags().StringVar(&sceneMode, "mode", string(view.ModeCluster), "display mode")
	sceneCmd.Flags().BoolVar(&sceneStations, "stations", false, "include station layers")
	rootCmd.AddCommand(sceneCmd)
}
