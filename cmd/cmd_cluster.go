// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jcodagnone/denstream/refine"
	"github.com/jcodagnone/denstream/server"
	"github.com/jcodagnone/denstream/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type clusterFlags struct {
	DbPath          string
	Coarse          bool
	RefineMinSize   int
	RefineThreshold float64
	CellResolution  int
	Engine          engineOptions
}

var clusterOptions = &clusterFlags{}

var clusterCmd = &cobra.Command{
	Use:   "cluster <file.json|file.csv>",
	Short: "Clusters the points of a file and prints the groups as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := loadPoints(args[0], clusterOptions.DbPath)
		if err != nil {
			return err
		}

		log.Printf("Loaded %d points from %s", len(points), args[0])

		engine, err := clusterOptions.Engine.newEngine()
		if err != nil {
			return err
		}

		terminate, err := engine.StartMaintenance(context.Background())
		if err != nil {
			return err
		}
		defer terminate()

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(points),
				progressbar.OptionSetDescription("Streaming points"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		for _, p := range points {
			if err := engine.Add(p); err != nil {
				return err
			}

			if bar != nil {
				_ = bar.Add(1)
			}
		}

		if bar != nil {
			_ = bar.Finish()
		}

		cluster := engine.Cluster
		if clusterOptions.Coarse {
			cluster = engine.ClusterCoarse
		}

		groups, err := cluster()
		if err != nil {
			return fmt.Errorf("clustering: %w", err)
		}

		if clusterOptions.RefineMinSize >= 0 {
			refiner, err := refine.New[spatial.GeoPoint](clusterOptions.RefineThreshold, 2)
			if err != nil {
				return err
			}

			if groups, err = refine.Apply(groups, clusterOptions.RefineMinSize, refiner); err != nil {
				return err
			}
		}

		views := make([]server.ClusterView, 0, len(groups))

		for i, g := range groups {
			view, err := server.NewClusterView(i, g, clusterOptions.CellResolution)
			if err != nil {
				return err
			}

			views = append(views, view)
		}

		stats := engine.Statistics()
		log.Printf(
			"Found %d clusters over %d micro-clusters holding %d points",
			len(views),
			stats.MicroClusters,
			stats.Points,
		)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		return enc.Encode(views)
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().StringVar(
		&clusterOptions.DbPath,
		"db",
		"",
		"DuckDB file used to import CSV input, in memory when empty",
	)
	clusterCmd.Flags().BoolVar(
		&clusterOptions.Coarse,
		"coarse",
		false,
		"Use the coarse neighbour distance",
	)
	clusterCmd.Flags().IntVar(
		&clusterOptions.RefineMinSize,
		"refine",
		-1,
		"Split clusters larger than this by text similarity, negative disables",
	)
	clusterCmd.Flags().Float64Var(
		&clusterOptions.RefineThreshold,
		"refine-threshold",
		refine.DefaultThreshold,
		"Text similarity for refinement, in (0, 1]",
	)
	clusterCmd.Flags().IntVar(
		&clusterOptions.CellResolution,
		"h3-resolution",
		8,
		"H3 resolution of the cells reported for cluster centers",
	)
	clusterOptions.Engine.register(clusterCmd)
}
