// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package dbscan groups arbitrary items by density connectivity.
//
// An item's eps-neighbourhood contains every item, itself included, whose
// distance to it is at most eps. An item whose neighbourhood holds at least
// minPts-1 items is a core item. Groups grow breadth-first from core items;
// items never reached from a core item are noise and are left out of the
// result.
package dbscan

import (
	"github.com/jcodagnone/denstream/faults"
)

// Noise is the label of items that belong to no group.
const Noise = -1

// DistanceFunc measures the distance between two items. It must be
// symmetric and non-negative.
type DistanceFunc[I any] func(a, b I) float64

// Clusterer runs density clustering with fixed parameters. It holds no
// state between calls and is safe for concurrent use.
type Clusterer[I any] struct {
	eps    float64
	minPts int
	dist   DistanceFunc[I]
}

// New returns a Clusterer. eps must not be negative and minPts must be at
// least 2.
func New[I any](eps float64, minPts int, dist DistanceFunc[I]) (*Clusterer[I], error) {
	if eps < 0 {
		return nil, faults.InvalidArgument("dbscan: eps cannot be less than zero (got %f)", eps)
	}

	if minPts < 2 {
		return nil, faults.InvalidArgument("dbscan: minPts cannot be less than 2 (got %d)", minPts)
	}

	if dist == nil {
		return nil, faults.InvalidArgument("dbscan: distance function is required")
	}

	return &Clusterer[I]{eps: eps, minPts: minPts, dist: dist}, nil
}

// Eps returns the neighbourhood radius.
func (c *Clusterer[I]) Eps() float64 { return c.eps }

// MinPts returns the density parameter.
func (c *Clusterer[I]) MinPts() int { return c.minPts }

// Cluster groups items. Groups are returned in the order their seeds were
// found, and each group starts with its seed followed by the items in
// breadth-first order.
func (c *Clusterer[I]) Cluster(items []I) ([][]I, error) {
	r, err := c.run(items)
	if err != nil {
		return nil, err
	}

	groups := make([][]I, r.groups)

	// Claims for a group are contiguous, so claim order is BFS order.
	for _, idx := range r.claimed {
		g := r.labels[idx]
		groups[g] = append(groups[g], items[idx])
	}

	return groups, nil
}

// Labels assigns every item its group index, or Noise. It also returns the
// number of groups.
func (c *Clusterer[I]) Labels(items []I) ([]int, int, error) {
	r, err := c.run(items)
	if err != nil {
		return nil, 0, err
	}

	return r.labels, r.groups, nil
}

type result struct {
	labels  []int
	claimed []int
	groups  int
}

func (c *Clusterer[I]) run(items []I) (*result, error) {
	if len(items) == 0 {
		return nil, faults.New(faults.KindEmptyInput, "dbscan: no items to cluster")
	}

	n := len(items)
	r := &result{labels: make([]int, n)}

	if n < 2 {
		r.labels[0] = 0
		r.claimed = []int{0}
		r.groups = 1

		return r, nil
	}

	for i := range r.labels {
		r.labels[i] = Noise
	}

	visited := make([]bool, n)

	for i := range items {
		if visited[i] {
			continue
		}

		visited[i] = true

		neighbours := c.neighbours(items, i)
		if !c.dense(neighbours) {
			continue
		}

		group := r.groups
		r.groups++

		r.labels[i] = group
		r.claimed = append(r.claimed, i)

		queue := neighbours
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if r.labels[j] == Noise {
				r.labels[j] = group
				r.claimed = append(r.claimed, j)
			}

			if visited[j] {
				continue
			}

			visited[j] = true

			if more := c.neighbours(items, j); c.dense(more) {
				queue = append(queue, more...)
			}
		}
	}

	return r, nil
}

func (c *Clusterer[I]) dense(neighbours []int) bool {
	return len(neighbours) >= c.minPts-1
}

// neighbours returns the indexes of every item within eps of items[i],
// i included, in input order.
func (c *Clusterer[I]) neighbours(items []I, i int) []int {
	var out []int

	for j := range items {
		if j == i || c.dist(items[i], items[j]) <= c.eps {
			out = append(out, j)
		}
	}

	return out
}
