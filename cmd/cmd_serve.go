// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcodagnone/denstream/ingest"
	"github.com/jcodagnone/denstream/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveFlags struct {
	Addr           string
	MaxConns       int
	DbPath         string
	CellResolution int
	NoMaintenance  bool
	Engine         engineOptions
}

var serveOptions = &serveFlags{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the clustering HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := serveOptions.Engine.newEngine()
		if err != nil {
			return err
		}

		var repo ingest.Repository
		if serveOptions.DbPath != "" {
			if repo, err = openRepository(serveOptions.DbPath); err != nil {
				return err
			}
			defer repo.DB().Close()
		}

		s, err := server.NewServer(engine, repo, server.Options{CellResolution: serveOptions.CellResolution})
		if err != nil {
			return err
		}

		ln, err := server.Listen(serveOptions.Addr, serveOptions.MaxConns)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)

		if !serveOptions.NoMaintenance {
			terminate, err := engine.StartMaintenance(gctx)
			if err != nil {
				return err
			}

			g.Go(func() error {
				<-gctx.Done()
				terminate()

				return nil
			})
		}

		g.Go(func() error {
			return s.Serve(gctx, ln)
		})

		err = g.Wait()

		stats := engine.Statistics()
		log.Printf(
			"Stopped - %d points in %d micro-clusters, %d pending",
			stats.Points,
			stats.MicroClusters,
			stats.Pending,
		)

		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOptions.Addr,
		"addr",
		":8080",
		"Address to listen on",
	)
	serveCmd.Flags().IntVar(
		&serveOptions.MaxConns,
		"max-conns",
		256,
		"Maximum simultaneous connections, 0 for unlimited",
	)
	serveCmd.Flags().StringVar(
		&serveOptions.DbPath,
		"db",
		"",
		"DuckDB file where accepted points are recorded, empty to disable",
	)
	serveCmd.Flags().IntVar(
		&serveOptions.CellResolution,
		"h3-resolution",
		8,
		"H3 resolution of the cells reported for cluster centers",
	)
	serveCmd.Flags().BoolVar(
		&serveOptions.NoMaintenance,
		"no-maintenance",
		false,
		"Do not start background maintenance, points are merged when clustering",
	)
	serveOptions.Engine.register(serveCmd)
}
