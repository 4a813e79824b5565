// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"time"
)

// Engine defaults. Distances are in the unit of the distance function,
// meters for spatial.GeoDistance.
const (
	// MaxRadius is the radius a micro-cluster may not exceed.
	MaxRadius = 15

	// FormationEps and FormationMinPoints parameterize coarse grouping of
	// micro-clusters (ClusterCoarse).
	FormationEps       = 250
	FormationMinPoints = 2

	// ClusterEps and ClusterMinPoints parameterize Cluster.
	ClusterEps       = 50
	ClusterMinPoints = 2

	// SmallClusterThreshold below which a lone micro-cluster is returned
	// as is instead of running density clustering.
	SmallClusterThreshold = 10

	// DefaultPollInterval bounds how long an idle maintenance loop sleeps.
	DefaultPollInterval = 10 * time.Millisecond
)

// Options configures a ClusterMap. Zero fields take the defaults above.
type Options[T Point[T]] struct {
	MaxRadius float64

	FormationEps       float64
	FormationMinPoints int

	ClusterEps       float64
	ClusterMinPoints int

	SmallClusterThreshold int

	PollInterval time.Duration

	// Weighting of points inside micro-clusters, Uniform when nil.
	Weighting Weighting[T]

	// MicroClusterDistance overrides the distance between micro-clusters
	// used by density clustering. Defaults to the distance between centers.
	MicroClusterDistance func(a, b *MicroCluster[T]) float64
}

func (o Options[T]) withDefaults() Options[T] {
	if o.MaxRadius <= 0 {
		o.MaxRadius = MaxRadius
	}

	if o.FormationEps <= 0 {
		o.FormationEps = FormationEps
	}

	if o.FormationMinPoints == 0 {
		o.FormationMinPoints = FormationMinPoints
	}

	if o.ClusterEps <= 0 {
		o.ClusterEps = ClusterEps
	}

	if o.ClusterMinPoints == 0 {
		o.ClusterMinPoints = ClusterMinPoints
	}

	if o.SmallClusterThreshold <= 0 {
		o.SmallClusterThreshold = SmallClusterThreshold
	}

	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	if o.Weighting == nil {
		o.Weighting = Uniform[T]()
	}

	return o
}
