// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package refine splits spatial groups further by the similarity of the
// text attached to their points.
package refine

import (
	"fmt"

	"github.com/jcodagnone/denstream/dbscan"
	"github.com/jcodagnone/denstream/faults"
)

// DefaultThreshold is the cosine similarity above which two texts are
// considered the same subject.
const DefaultThreshold = 0.6

// Textual is anything carrying free text.
type Textual interface {
	Text() string
}

// Clusterer groups points whose texts are similar.
type Clusterer[T Textual] struct {
	threshold float64
	minPts    int
}

// New returns a Clusterer grouping texts at least threshold similar, with
// threshold in (0, 1]. minPts follows dbscan semantics; values below 2
// mean 2.
func New[T Textual](threshold float64, minPts int) (*Clusterer[T], error) {
	if threshold <= 0 || threshold > 1 {
		return nil, faults.InvalidArgument("similarity threshold must be in (0, 1], got %v", threshold)
	}

	return &Clusterer[T]{threshold: threshold, minPts: max(minPts, 2)}, nil
}

// Cluster groups points by text similarity. Points that do not reach any
// group are returned as singleton groups after the others, so every input
// point appears exactly once in the output.
func (c *Clusterer[T]) Cluster(points []T) ([][]T, error) {
	if len(points) == 0 {
		return nil, faults.New(faults.KindEmptyInput, "nothing to refine")
	}

	bags := make([]bag, len(points))
	for i, p := range points {
		bags[i] = vectorize(p.Text())
	}

	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}

	clusterer, err := dbscan.New(1-c.threshold, c.minPts, func(a, b int) float64 {
		return 1 - cosine(bags[a], bags[b])
	})
	if err != nil {
		return nil, err
	}

	labels, n, err := clusterer.Labels(idx)
	if err != nil {
		return nil, fmt.Errorf("refining %d points: %w", len(points), err)
	}

	groups := make([][]T, n)

	var noise [][]T

	for i, label := range labels {
		if label == dbscan.Noise {
			noise = append(noise, []T{points[i]})

			continue
		}

		groups[label] = append(groups[label], points[i])
	}

	return append(groups, noise...), nil
}

// Apply refines every group with more than minSize points and keeps the
// others as they are.
func Apply[T Textual](groups [][]T, minSize int, c *Clusterer[T]) ([][]T, error) {
	out := make([][]T, 0, len(groups))

	for i, g := range groups {
		if len(g) <= minSize {
			out = append(out, g)

			continue
		}

		sub, err := c.Cluster(g)
		if err != nil {
			return nil, fmt.Errorf("refining group %d: %w", i, err)
		}

		out = append(out, sub...)
	}

	return out, nil
}
