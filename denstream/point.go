// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package denstream maintains a summary of a point stream as micro-clusters
// and derives macro-clusters from it on demand.
//
// Points are queued by Add and merged into micro-clusters by a background
// maintenance loop. Cluster drains whatever is still queued and groups the
// micro-clusters by density connectivity (see package dbscan), returning
// the points of each group.
package denstream

import (
	"time"
)

// Point is the data contract for stream elements. Implementations are
// immutable values: every operation returns a new point.
type Point[T any] interface {
	// ID is the stable identity used by Remove and Update.
	ID() string
	Scale(k float64) T
	// Divide fails when k is zero.
	Divide(k float64) (T, error)
	// Add and Subtract fail when shapes differ.
	Add(other T) (T, error)
	Subtract(other T) (T, error)
}

// DistanceFunc measures the distance between two points. It must be
// symmetric, non-negative and zero for identical positions.
type DistanceFunc[T any] func(a, b T) float64

// Timestamped is implemented by points that carry an observation time.
type Timestamped interface {
	Timestamp() time.Time
}
