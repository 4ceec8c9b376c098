package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/prepare"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Name clusters and write web_data files from clustered mesh GeoJSON",
	Long: `Reads <input>/kNN/mesh_with_clusters.geojson for each cluster count,
derives cluster names and colors from building usage, simplifies geometries,
and writes web_data/mesh_clusters_k{k}.geojson and cluster_config_k{k}.json.
Cluster counts without an input file are skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		output, _ := cmd.Flags().GetString("output")
		tolerance, _ := cmd.Flags().GetFloat64("tolerance")
		counts, _ := cmd.Flags().GetIntSlice("clusters")
		if len(counts) == 0 {
			counts = cfg.View.ClusterCounts
		}
		if output == "" {
			output = cfg.Data.Dir
		}

		results, err := prepare.Run(ctx, prepare.Options{
			InputDir:      input,
			OutputDir:     output,
			ClusterCounts: counts,
			Tolerance:     tolerance,
		})
		if err != nil {
			return err
		}

		for _, r := range results {
			zap.L().Info("prepared cluster count",
				zap.Int("k", r.ClusterCount),
				zap.Int("meshes", r.Meshes),
				zap.Int("clusters", len(r.Clusters)),
			)
		}
		return nil
	},
}

func init() {
	prepareCmd.Flags().String("input", "", "directory holding kNN/mesh_with_clusters.geojson (required)")
	prepareCmd.Flags().String("output", "", "directory receiving web_data/ (default data.dir)")
	prepareCmd.Flags().IntSlice("clusters", nil, "cluster counts to prepare (default view.cluster_counts)")
	prepareCmd.Flags().Float64("tolerance", prepare.DefaultTolerance, "simplification tolerance in degrees; negative disables")
	_ = prepareCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(prepareCmd)
}
