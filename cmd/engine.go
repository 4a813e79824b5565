// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/denstream/denstream"
	"github.com/jcodagnone/denstream/ingest"
	"github.com/jcodagnone/denstream/spatial"
	"github.com/spf13/cobra"
)

// engineOptions are the engine knobs shared by serve and cluster.
type engineOptions struct {
	MaxRadius          float64
	ClusterEps         float64
	ClusterMinPoints   int
	FormationEps       float64
	FormationMinPoints int
	FadingLambda       float64
}

func (o *engineOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Float64Var(&o.MaxRadius, "max-radius", denstream.MaxRadius,
		"Radius in meters a micro-cluster may not exceed")
	flags.Float64Var(&o.ClusterEps, "cluster-eps", denstream.ClusterEps,
		"Distance in meters between micro-cluster centers to be neighbours")
	flags.IntVar(&o.ClusterMinPoints, "cluster-min-points", denstream.ClusterMinPoints,
		"Minimum neighbourhood size, the micro-cluster included, of a dense micro-cluster")
	flags.Float64Var(&o.FormationEps, "coarse-eps", denstream.FormationEps,
		"Neighbour distance in meters for coarse clustering")
	flags.IntVar(&o.FormationMinPoints, "coarse-min-points", denstream.FormationMinPoints,
		"Minimum neighbourhood size for coarse clustering")
	flags.Float64Var(&o.FadingLambda, "fading-lambda", 0,
		"Decay per second of point weights, 0 disables fading")
}

func (o *engineOptions) newEngine() (*denstream.ClusterMap[spatial.GeoPoint], error) {
	opts := denstream.Options[spatial.GeoPoint]{
		MaxRadius:          o.MaxRadius,
		ClusterEps:         o.ClusterEps,
		ClusterMinPoints:   o.ClusterMinPoints,
		FormationEps:       o.FormationEps,
		FormationMinPoints: o.FormationMinPoints,
	}

	if o.FadingLambda > 0 {
		opts.Weighting = denstream.Fading[spatial.GeoPoint](o.FadingLambda, nil)
	}

	engine, err := denstream.NewClusterMap(spatial.GeoDistance, opts)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	return engine, nil
}

// openRepository opens the DuckDB store at path, in memory when empty.
func openRepository(path string) (ingest.Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	repo := ingest.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, nil
}

// loadPoints reads a JSON file, or a CSV file through DuckDB.
func loadPoints(path, dbPath string) ([]spatial.GeoPoint, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return ingest.LoadJSON(path)
	}

	repo, err := openRepository(dbPath)
	if err != nil {
		return nil, err
	}
	defer repo.DB().Close()

	if _, err := repo.ImportCSV(path); err != nil {
		return nil, err
	}

	return repo.ListPoints(0)
}
