// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"

	"github.com/jcodagnone/denstream/denstream"
	"github.com/jcodagnone/denstream/ingest"
	"github.com/jcodagnone/denstream/spatial"
)

// ClusterView is a macro-cluster as returned by GET /api/clusters.
type ClusterView struct {
	ID       int             `json:"id"`
	Size     int             `json:"size"`
	Centroid spatial.Point   `json:"centroid"`
	Cell     string          `json:"h3_cell"`
	Radius   float64         `json:"radius"`
	Points   []ingest.Record `json:"points"`
}

// MicroClusterView summarizes one micro-cluster.
type MicroClusterView struct {
	Center spatial.Point `json:"center"`
	Cell   string        `json:"h3_cell"`
	Radius float64       `json:"radius"`
	Size   int           `json:"size"`
}

func (s *Server) clusterView(id int, group []spatial.GeoPoint) (ClusterView, error) {
	return NewClusterView(id, group, s.opts.CellResolution)
}

// NewClusterView summarizes a group of points, locating its centroid in
// an H3 cell of the given resolution.
func NewClusterView(id int, group []spatial.GeoPoint, res int) (ClusterView, error) {
	mc, err := denstream.NewMicroCluster(group, spatial.GeoDistance, nil)
	if err != nil {
		return ClusterView{}, fmt.Errorf("cluster %d: %w", id, err)
	}

	center, err := mc.Center()
	if err != nil {
		return ClusterView{}, fmt.Errorf("centroid of cluster %d: %w", id, err)
	}

	radius, err := mc.Radius()
	if err != nil {
		return ClusterView{}, fmt.Errorf("radius of cluster %d: %w", id, err)
	}

	records := make([]ingest.Record, 0, len(group))
	for _, p := range group {
		records = append(records, ingest.FromGeoPoint(p))
	}

	return ClusterView{
		ID:       id,
		Size:     len(group),
		Centroid: center.Point,
		Cell:     spatial.CellString(center.Point, res),
		Radius:   radius,
		Points:   records,
	}, nil
}
