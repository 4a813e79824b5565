// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"fmt"
	"math"
	"slices"

	"github.com/jcodagnone/denstream/faults"
	"gonum.org/v1/gonum/floats"
)

// MicroCluster is an ordered set of points with a derived center and
// radius. It is not safe for concurrent use; ClusterMap serializes access.
type MicroCluster[T Point[T]] struct {
	points []T
	dist   DistanceFunc[T]
	weight Weighting[T]
}

// NewMicroCluster returns a micro-cluster seeded with points. A nil
// weighting means Uniform.
func NewMicroCluster[T Point[T]](points []T, dist DistanceFunc[T], weight Weighting[T]) (*MicroCluster[T], error) {
	if len(points) == 0 {
		return nil, faults.InvalidArgument("a micro-cluster needs at least one point")
	}

	if dist == nil {
		return nil, faults.InvalidArgument("a micro-cluster needs a distance function")
	}

	if weight == nil {
		weight = Uniform[T]()
	}

	return &MicroCluster[T]{
		points: slices.Clone(points),
		dist:   dist,
		weight: weight,
	}, nil
}

// Add appends p.
func (mc *MicroCluster[T]) Add(p T) {
	mc.points = append(mc.points, p)
}

// RemoveByID removes every point carrying id and reports whether the
// micro-cluster is now empty.
func (mc *MicroCluster[T]) RemoveByID(id string) bool {
	mc.points = slices.DeleteFunc(mc.points, func(p T) bool { return p.ID() == id })

	return len(mc.points) == 0
}

// removeLast undoes the last Add.
func (mc *MicroCluster[T]) removeLast() {
	var zero T

	mc.points[len(mc.points)-1] = zero
	mc.points = mc.points[:len(mc.points)-1]
}

// Len returns the number of points.
func (mc *MicroCluster[T]) Len() int { return len(mc.points) }

// Points returns a copy of the points in insertion order.
func (mc *MicroCluster[T]) Points() []T { return slices.Clone(mc.points) }

// Weight returns the sum of the point weights.
func (mc *MicroCluster[T]) Weight() float64 {
	w := make([]float64, len(mc.points))
	for i, p := range mc.points {
		w[i] = mc.weight(p)
	}

	return floats.Sum(w)
}

// weights returns the weight of every point and their total. When the
// total is not a positive finite number, as happens once fading weights
// underflow, every point weighs 1.
func (mc *MicroCluster[T]) weights() ([]float64, float64) {
	w := make([]float64, len(mc.points))
	for i, p := range mc.points {
		w[i] = mc.weight(p)
	}

	total := floats.Sum(w)
	if total > 0 && !math.IsInf(total, 1) {
		return w, total
	}

	for i := range w {
		w[i] = 1
	}

	return w, float64(len(w))
}

// Center returns the weighted mean of the points.
func (mc *MicroCluster[T]) Center() (T, error) {
	var sum T

	if len(mc.points) == 0 {
		return sum, faults.New(faults.KindEmptyInput, "center of an empty micro-cluster")
	}

	w, total := mc.weights()

	for i, p := range mc.points {
		scaled := p
		if w[i] != 1 {
			scaled = p.Scale(w[i])
		}

		if i == 0 {
			sum = scaled

			continue
		}

		var err error
		if sum, err = sum.Add(scaled); err != nil {
			return sum, fmt.Errorf("adding point %q: %w", p.ID(), err)
		}
	}

	center, err := sum.Divide(total)
	if err != nil {
		return center, fmt.Errorf("normalizing center: %w", err)
	}

	return center, nil
}

// Radius returns the weighted mean distance of the points to the center.
func (mc *MicroCluster[T]) Radius() (float64, error) {
	center, err := mc.Center()
	if err != nil {
		return 0, err
	}

	w, total := mc.weights()
	d := make([]float64, len(mc.points))

	for i, p := range mc.points {
		d[i] = mc.dist(p, center)
	}

	return floats.Dot(w, d) / total, nil
}

// CenterDistance lifts a point distance to micro-clusters by measuring
// between centers. Micro-clusters without a center are infinitely far.
func CenterDistance[T Point[T]](dist DistanceFunc[T]) func(a, b *MicroCluster[T]) float64 {
	return func(a, b *MicroCluster[T]) float64 {
		ca, err := a.Center()
		if err != nil {
			return math.Inf(1)
		}

		cb, err := b.Center()
		if err != nil {
			return math.Inf(1)
		}

		return dist(ca, cb)
	}
}
