// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"slices"

	"github.com/jcodagnone/denstream/faults"
	"gonum.org/v1/gonum/floats"
)

// Vector is an n-dimensional euclidean point.
type Vector struct {
	Key    string    `json:"id"`
	Coords []float64 `json:"coords"`
}

// NewVector returns a Vector with the given coordinates.
func NewVector(id string, coords ...float64) Vector {
	return Vector{Key: id, Coords: slices.Clone(coords)}
}

// ID returns the point identity.
func (v Vector) ID() string { return v.Key }

// Dim returns the number of coordinates.
func (v Vector) Dim() int { return len(v.Coords) }

func (v Vector) sameShape(other Vector) error {
	if len(v.Coords) != len(other.Coords) {
		return faults.InvalidArgument("vector %q has %d dimensions, %q has %d",
			v.Key, len(v.Coords), other.Key, len(other.Coords))
	}

	return nil
}

// Scale multiplies every coordinate by k.
func (v Vector) Scale(k float64) Vector {
	return Vector{Key: v.Key, Coords: floats.ScaleTo(make([]float64, len(v.Coords)), k, v.Coords)}
}

// Divide divides every coordinate by k.
func (v Vector) Divide(k float64) (Vector, error) {
	if k == 0 {
		return Vector{}, faults.InvalidArgument("cannot divide vector %q by 0", v.Key)
	}

	return v.Scale(1 / k), nil
}

// Add sums element-wise.
func (v Vector) Add(other Vector) (Vector, error) {
	if err := v.sameShape(other); err != nil {
		return Vector{}, err
	}

	return Vector{Key: v.Key, Coords: floats.AddTo(make([]float64, len(v.Coords)), v.Coords, other.Coords)}, nil
}

// Subtract subtracts element-wise.
func (v Vector) Subtract(other Vector) (Vector, error) {
	if err := v.sameShape(other); err != nil {
		return Vector{}, err
	}

	return Vector{Key: v.Key, Coords: floats.SubTo(make([]float64, len(v.Coords)), v.Coords, other.Coords)}, nil
}

// VectorDistance is the euclidean distance between two vectors. Vectors of
// different dimensionality are infinitely far apart.
func VectorDistance(a, b Vector) float64 {
	d, err := Euclidean(a.Coords, b.Coords)
	if err != nil {
		return math.Inf(1)
	}

	return d
}

// Euclidean returns the euclidean distance between u and v.
func Euclidean(u, v []float64) (float64, error) {
	if len(u) == 0 || len(v) == 0 {
		return 0, faults.InvalidArgument("vectors must not be empty")
	}

	if len(u) != len(v) {
		return 0, faults.InvalidArgument("vector lengths differ: %d != %d", len(u), len(v))
	}

	return floats.Distance(u, v, 2), nil
}
