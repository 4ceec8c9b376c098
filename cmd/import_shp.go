package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/urban-mesh/clustermap/internal/meshimport"
)

var importShpCmd = &cobra.Command{
	Use:   "import-shp",
	Short: "Convert a mesh or station shapefile to GeoJSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		sjis, _ := cmd.Flags().GetBool("sjis")
		renames, _ := cmd.Flags().GetStringSlice("rename")
		fields, _ := cmd.Flags().GetStringSlice("fields")

		rename, err := parseRenames(renames)
		if err != nil {
			return err
		}

		fc, err := meshimport.Read(in, meshimport.Options{
			ShiftJIS: sjis,
			Rename:   rename,
			Fields:   fields,
		})
		if err != nil {
			return err
		}
		if err := meshimport.Write(out, fc); err != nil {
			return err
		}

		zap.L().Info("import-shp complete",
			zap.String("in", in),
			zap.String("out", out),
			zap.Int("features", len(fc.Features)),
		)
		return nil
	},
}

// parseRenames turns FROM=TO pairs into a lookup.
func parseRenames(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		from, to, ok := strings.Cut(p, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, eris.Errorf("import-shp: invalid rename %q, want FROM=TO", p)
		}
		out[from] = to
	}
	return out, nil
}

func init() {
	importShpCmd.Flags().String("in", "", "input .shp path (required)")
	importShpCmd.Flags().String("out", "", "output .geojson path (required)")
	importShpCmd.Flags().Bool("sjis", false, "decode attributes from Shift_JIS")
	importShpCmd.Flags().StringSlice("rename", nil, "field renames as FROM=TO")
	importShpCmd.Flags().StringSlice("fields", nil, "properties to keep after renaming (default all)")
	_ = importShpCmd.MarkFlagRequired("in")
	_ = importShpCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(importShpCmd)
}
