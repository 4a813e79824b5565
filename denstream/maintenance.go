// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"context"
	"log"
	"time"

	"github.com/jcodagnone/denstream/faults"
)

// StartMaintenance launches the loop that merges queued points into
// micro-clusters. The returned function terminates the loop and waits for
// it to exit; so does cancelling ctx. Starting an already running map
// returns the same handle. A terminated map cannot be restarted.
func (m *ClusterMap[T]) StartMaintenance(ctx context.Context) (func(), error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.terminated.Load() {
		return nil, faults.ErrMaintenanceTerminated
	}

	if m.done != nil {
		return m.Terminate, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.maintaining.Store(true)

	go m.maintain(ctx, m.done)

	return m.Terminate, nil
}

// Terminate stops maintenance and waits for the loop to exit. Clustering
// fails afterwards. Calling it more than once, or on a map that was never
// started, is safe.
func (m *ClusterMap[T]) Terminate() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.terminated.Store(true)

	if m.cancel == nil {
		return
	}

	m.cancel()
	<-m.done
	m.cancel = nil
}

func (m *ClusterMap[T]) maintain(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer func() {
		m.maintaining.Store(false)
		m.terminated.Store(true)
	}()

	log.Printf("Maintenance started (poll every %v)", m.opts.PollInterval)

	timer := time.NewTimer(m.opts.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			log.Printf("Maintenance stopped - %v", context.Cause(ctx))

			return
		}

		if m.clustering.Load() == 0 && m.step() {
			continue
		}

		timer.Reset(m.opts.PollInterval)

		select {
		case <-ctx.Done():
		case <-m.wake:
		case <-timer.C:
		}
	}
}

// step merges one queued point and reports whether there was one.
func (m *ClusterMap[T]) step() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending.pop()
	if !ok {
		return false
	}

	m.mergeSafely(p)

	return true
}
