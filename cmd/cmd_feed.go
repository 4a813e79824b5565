// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/jcodagnone/denstream/feed"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type feedFlags struct {
	Client           feed.ClientOptions
	DbPath           string
	StartMaintenance bool
}

var feedOptions = &feedFlags{}

var feedCmd = &cobra.Command{
	Use:   "feed <file.json|file.csv>",
	Short: "Replays the points of a file into a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		points, err := loadPoints(args[0], feedOptions.DbPath)
		if err != nil {
			return err
		}

		feedOptions.Client.UserAgent = fmt.Sprintf("denstream/%s", Version)

		c, err := feed.NewClient(&feedOptions.Client)
		if err != nil {
			return err
		}

		if feedOptions.StartMaintenance {
			if _, err := c.StartMaintenance(ctx); err != nil {
				return fmt.Errorf("starting maintenance: %w", err)
			}
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(points),
				progressbar.OptionSetDescription("Feeding "+feedOptions.Client.BaseURL),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		err = c.Replay(ctx, points, func(n int) {
			if bar != nil {
				_ = bar.Add(n)
			}
		})

		log.Printf(
			"Feed metrics - %d points sent, %d failed, %d requests",
			c.Metrics.Sent,
			c.Metrics.Failed,
			c.Metrics.Requests,
		)

		if err != nil {
			return err
		}

		stats, err := c.Statistics(ctx)
		if err != nil {
			return err
		}

		log.Printf(
			"Server holds %d points in %d micro-clusters, %d pending",
			stats.Points,
			stats.MicroClusters,
			stats.Pending,
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().StringVar(
		&feedOptions.Client.BaseURL,
		"url",
		"http://localhost:8080",
		"Base URL of the server",
	)
	feedCmd.Flags().Float64Var(
		&feedOptions.Client.Rate,
		"rate",
		0,
		"Requests per second, 0 for unlimited",
	)
	feedCmd.Flags().IntVar(
		&feedOptions.Client.BatchSize,
		"batch",
		1,
		"Points per request",
	)
	feedCmd.Flags().BoolVar(
		&feedOptions.Client.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	feedCmd.Flags().BoolVar(
		&feedOptions.Client.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
	feedCmd.Flags().StringVar(
		&feedOptions.DbPath,
		"db",
		"",
		"DuckDB file used to import CSV input, in memory when empty",
	)
	feedCmd.Flags().BoolVar(
		&feedOptions.StartMaintenance,
		"start-maintenance",
		false,
		"Ask the server to start maintenance before feeding",
	)
}
