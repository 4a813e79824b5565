// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jcodagnone/denstream/dbscan"
	"github.com/jcodagnone/denstream/faults"
	"gonum.org/v1/gonum/floats"
)

// Summary counts what Clear removed.
type Summary struct {
	MicroClusters int `json:"micro_clusters"`
	Points        int `json:"points"`
	Pending       int `json:"pending"`
}

// Stats describes the current state of a ClusterMap.
type Stats struct {
	MicroClusters int  `json:"micro_clusters"`
	Points        int  `json:"points"`
	Pending       int  `json:"pending"`
	Maintaining   bool `json:"maintaining"`
	Terminated    bool `json:"terminated"`
	Clustering    bool `json:"clustering"`
}

// Snapshot is a read-only view of a micro-cluster.
type Snapshot[T any] struct {
	Center T       `json:"center"`
	Radius float64 `json:"radius"`
	Points []T     `json:"points"`
}

// ClusterMap owns the micro-clusters and the queue of points not merged
// yet. Every accepted point is either queued or in exactly one
// micro-cluster.
type ClusterMap[T Point[T]] struct {
	dist DistanceFunc[T]
	opts Options[T]

	mu            sync.Mutex
	microClusters []*MicroCluster[T]

	pending *queue[T]
	wake    chan struct{}

	clustering  atomic.Int32
	maintaining atomic.Bool
	terminated  atomic.Bool

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClusterMap returns an empty ClusterMap measuring points with dist.
func NewClusterMap[T Point[T]](dist DistanceFunc[T], opts Options[T]) (*ClusterMap[T], error) {
	if dist == nil {
		return nil, faults.InvalidArgument("a distance function is required")
	}

	opts = opts.withDefaults()

	// Both parameter pairs are checked up front so clustering never fails
	// on configuration.
	noDistance := func(a, b *MicroCluster[T]) float64 { return 0 }
	if _, err := dbscan.New(opts.ClusterEps, opts.ClusterMinPoints, noDistance); err != nil {
		return nil, fmt.Errorf("cluster parameters: %w", err)
	}

	if _, err := dbscan.New(opts.FormationEps, opts.FormationMinPoints, noDistance); err != nil {
		return nil, fmt.Errorf("formation parameters: %w", err)
	}

	return &ClusterMap[T]{
		dist:    dist,
		opts:    opts,
		pending: &queue[T]{},
		wake:    make(chan struct{}, 1),
	}, nil
}

// Options returns the effective configuration.
func (m *ClusterMap[T]) Options() Options[T] { return m.opts }

// Add queues p for merging.
func (m *ClusterMap[T]) Add(p T) error {
	if strings.TrimSpace(p.ID()) == "" {
		return faults.InvalidArgument("point identity cannot be empty")
	}

	m.pending.push(p)

	select {
	case m.wake <- struct{}{}:
	default:
	}

	return nil
}

// AddMany adds points in order, stopping at the first failure.
func (m *ClusterMap[T]) AddMany(points []T) error {
	for i, p := range points {
		if err := m.Add(p); err != nil {
			return fmt.Errorf("adding point %d: %w", i, err)
		}
	}

	return nil
}

// Remove deletes every merged point carrying id and drops micro-clusters
// left empty. Queued points are not considered.
func (m *ClusterMap[T]) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.removeLocked(id)
}

func (m *ClusterMap[T]) removeLocked(id string) error {
	found := false
	kept := m.microClusters[:0]

	for _, mc := range m.microClusters {
		before := mc.Len()
		empty := mc.RemoveByID(id)

		if mc.Len() != before {
			found = true
		}

		if !empty {
			kept = append(kept, mc)
		}
	}

	clear(m.microClusters[len(kept):])
	m.microClusters = kept

	if !found {
		return faults.NotFound("no point with id %q in the cluster map", id)
	}

	return nil
}

// Update replaces the point carrying p's identity with p. The identity is
// absent from the map until p is merged again.
func (m *ClusterMap[T]) Update(p T) error {
	if strings.TrimSpace(p.ID()) == "" {
		return faults.InvalidArgument("point identity cannot be empty")
	}

	m.mu.Lock()
	m.pending.removeID(p.ID())
	err := m.removeLocked(p.ID())
	m.mu.Unlock()

	if err != nil && !faults.IsNotFound(err) {
		return err
	}

	return m.Add(p)
}

// Cluster merges every queued point and groups the micro-clusters with
// ClusterEps and ClusterMinPoints. Micro-clusters that are not density
// reachable from a core micro-cluster are dropped.
func (m *ClusterMap[T]) Cluster() ([][]T, error) {
	return m.cluster(m.opts.ClusterEps, m.opts.ClusterMinPoints)
}

// ClusterCoarse is Cluster with FormationEps and FormationMinPoints,
// yielding fewer, wider groups.
func (m *ClusterMap[T]) ClusterCoarse() ([][]T, error) {
	return m.cluster(m.opts.FormationEps, m.opts.FormationMinPoints)
}

func (m *ClusterMap[T]) cluster(eps float64, minPts int) ([][]T, error) {
	if m.terminated.Load() {
		return nil, faults.ErrMaintenanceTerminated
	}

	m.clustering.Add(1)
	defer m.clustering.Add(-1)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.drainLocked()

	switch {
	case len(m.microClusters) == 0:
		return nil, faults.ErrNoMicroClusters
	case len(m.microClusters) == 1 && m.microClusters[0].Len() < m.opts.SmallClusterThreshold:
		return [][]T{m.microClusters[0].Points()}, nil
	}

	clusterer, err := dbscan.New(eps, minPts, m.microClusterDistance())
	if err != nil {
		return nil, err
	}

	groups, err := clusterer.Cluster(m.microClusters)
	if err != nil {
		return nil, fmt.Errorf("clustering micro-clusters: %w", err)
	}

	result := make([][]T, 0, len(groups))

	for _, group := range groups {
		var points []T
		for _, mc := range group {
			points = append(points, mc.points...)
		}

		result = append(result, points)
	}

	return result, nil
}

// microClusterDistance returns the configured distance, or the distance
// between centers computed once per clustering pass.
func (m *ClusterMap[T]) microClusterDistance() func(a, b *MicroCluster[T]) float64 {
	if m.opts.MicroClusterDistance != nil {
		return m.opts.MicroClusterDistance
	}

	centers := make(map[*MicroCluster[T]]T, len(m.microClusters))

	for _, mc := range m.microClusters {
		c, err := mc.Center()
		if err != nil {
			log.Printf("Skipping micro-cluster without center - %v", err)

			continue
		}

		centers[mc] = c
	}

	return func(a, b *MicroCluster[T]) float64 {
		ca, okA := centers[a]
		cb, okB := centers[b]

		if !okA || !okB {
			return math.Inf(1)
		}

		return m.dist(ca, cb)
	}
}

// drainLocked merges the points queued when it starts.
func (m *ClusterMap[T]) drainLocked() {
	for range m.pending.len() {
		p, ok := m.pending.pop()
		if !ok {
			return
		}

		m.mergeSafely(p)
	}
}

// mergeSafely merges p, logging failures instead of returning them.
func (m *ClusterMap[T]) mergeSafely(p T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Merging point %q panicked - %v", p.ID(), r)
		}
	}()

	if err := m.merge(p); err != nil {
		log.Printf("Merging point %q failed - %v", p.ID(), err)
	}
}

// merge inserts p into the nearest micro-cluster if that keeps its radius
// within MaxRadius, and into a new micro-cluster otherwise. Micro-clusters
// without a center are never candidates.
func (m *ClusterMap[T]) merge(p T) error {
	if len(m.microClusters) > 0 {
		distances := make([]float64, len(m.microClusters))

		for i, mc := range m.microClusters {
			c, err := mc.Center()
			if err != nil {
				log.Printf("Skipping micro-cluster %d while merging %q - %v", i, p.ID(), err)

				distances[i] = math.Inf(1)

				continue
			}

			distances[i] = m.dist(p, c)
		}

		// MinIdx keeps the first index on ties.
		nearest := floats.MinIdx(distances)

		if distances[nearest] < m.opts.MaxRadius {
			ok, err := m.tryInsert(m.microClusters[nearest], p)
			if err != nil {
				return err
			}

			if ok {
				return nil
			}
		}
	}

	mc, err := NewMicroCluster([]T{p}, m.dist, m.opts.Weighting)
	if err != nil {
		return err
	}

	m.microClusters = append(m.microClusters, mc)

	return nil
}

// tryInsert appends p to mc and keeps it only when the radius stays within
// MaxRadius. p is taken out again on failure, including a panic.
func (m *ClusterMap[T]) tryInsert(mc *MicroCluster[T], p T) (kept bool, err error) {
	mc.Add(p)

	defer func() {
		if !kept {
			mc.removeLast()
		}
	}()

	radius, err := mc.Radius()
	if err != nil {
		return false, fmt.Errorf("radius after inserting %q: %w", p.ID(), err)
	}

	return radius <= m.opts.MaxRadius, nil
}

// Clear drops every micro-cluster and queued point.
func (m *ClusterMap[T]) Clear() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{MicroClusters: len(m.microClusters)}
	for _, mc := range m.microClusters {
		s.Points += mc.Len()
	}

	m.microClusters = nil
	s.Pending = m.pending.clear()

	return s
}

// Statistics reports counts and maintenance state.
func (m *ClusterMap[T]) Statistics() Stats {
	m.mu.Lock()
	s := Stats{MicroClusters: len(m.microClusters)}

	for _, mc := range m.microClusters {
		s.Points += mc.Len()
	}
	m.mu.Unlock()

	s.Pending = m.pending.len()
	s.Maintaining = m.maintaining.Load()
	s.Terminated = m.terminated.Load()
	s.Clustering = m.clustering.Load() > 0

	return s
}

// MicroClusters returns a snapshot of every micro-cluster.
func (m *ClusterMap[T]) MicroClusters() ([]Snapshot[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot[T], 0, len(m.microClusters))

	for i, mc := range m.microClusters {
		c, err := mc.Center()
		if err != nil {
			return nil, fmt.Errorf("center of micro-cluster %d: %w", i, err)
		}

		r, err := mc.Radius()
		if err != nil {
			return nil, fmt.Errorf("radius of micro-cluster %d: %w", i, err)
		}

		out = append(out, Snapshot[T]{Center: c, Radius: r, Points: mc.Points()})
	}

	return out, nil
}
