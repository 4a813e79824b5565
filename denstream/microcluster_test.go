// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denstream

import (
	"math"
	"testing"
	"time"

	"github.com/jcodagnone/denstream/faults"
	"github.com/jcodagnone/denstream/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(id string, coords ...float64) spatial.Vector {
	return spatial.NewVector(id, coords...)
}

func newVectorCluster(t *testing.T, points ...spatial.Vector) *MicroCluster[spatial.Vector] {
	t.Helper()

	mc, err := NewMicroCluster(points, spatial.VectorDistance, nil)
	require.NoError(t, err)

	return mc
}

func TestNewMicroClusterValidates(t *testing.T) {
	_, err := NewMicroCluster[spatial.Vector](nil, spatial.VectorDistance, nil)
	assert.True(t, faults.IsInvalidArgument(err))

	_, err = NewMicroCluster([]spatial.Vector{vec("a", 1)}, nil, nil)
	assert.True(t, faults.IsInvalidArgument(err))
}

func TestCenterIsOrderInvariant(t *testing.T) {
	points := []spatial.Vector{
		vec("a", 1, 2),
		vec("b", -3, 7.5),
		vec("c", 10, 0),
		vec("d", 0.25, -4),
	}

	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	want, err := newVectorCluster(t, points...).Center()
	require.NoError(t, err)

	for _, order := range orders {
		permuted := make([]spatial.Vector, 0, len(order))
		for _, i := range order {
			permuted = append(permuted, points[i])
		}

		got, err := newVectorCluster(t, permuted...).Center()
		require.NoError(t, err)

		require.Equal(t, want.Dim(), got.Dim())

		for i := range want.Coords {
			assert.InDelta(t, want.Coords[i], got.Coords[i], 1e-9, "order %v axis %d", order, i)
		}
	}

	assert.InDelta(t, 2.0625, want.Coords[0], 1e-9)
	assert.InDelta(t, 1.375, want.Coords[1], 1e-9)
}

func TestRadius(t *testing.T) {
	r, err := newVectorCluster(t, vec("a", 3, 4)).Radius()
	require.NoError(t, err)
	assert.Zero(t, r)

	r, err = newVectorCluster(t, vec("a", 0), vec("b", 10)).Radius()
	require.NoError(t, err)
	assert.InDelta(t, 5, r, 1e-9)

	r, err = newVectorCluster(t, vec("a", 0, 0), vec("b", 1, 9), vec("c", -6, 2)).Radius()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r, 0.0)
}

func TestRemoveByID(t *testing.T) {
	mc := newVectorCluster(t, vec("a", 0), vec("b", 1), vec("a", 2))

	assert.False(t, mc.RemoveByID("a"))
	assert.Equal(t, 1, mc.Len())
	assert.False(t, mc.RemoveByID("missing"))
	assert.True(t, mc.RemoveByID("b"))

	_, err := mc.Center()
	assert.ErrorIs(t, err, faults.ErrEmptyInput)
}

func TestRemoveLastUndoesAdd(t *testing.T) {
	mc := newVectorCluster(t, vec("a", 0), vec("b", 2))
	mc.Add(vec("c", 100))
	mc.removeLast()

	c, err := mc.Center()
	require.NoError(t, err)
	assert.InDelta(t, 1, c.Coords[0], 1e-9)
	assert.Equal(t, 2, mc.Len())
}

func TestPointsReturnsCopy(t *testing.T) {
	mc := newVectorCluster(t, vec("a", 0))
	pts := mc.Points()
	pts[0] = vec("z", 9)

	assert.Equal(t, "a", mc.Points()[0].ID())
}

func TestFadingFavoursRecentPoints(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	old := spatial.NewGeoPoint("old", 0, 0)
	old.Time = now.Add(-10 * time.Second)

	recent := spatial.NewGeoPoint("recent", 0, 0.001)
	recent.Time = now

	weight := Fading[spatial.GeoPoint](0.5, clock)
	assert.InDelta(t, 1.0/32, weight(old), 1e-12)
	assert.InDelta(t, 1, weight(recent), 1e-12)

	mc, err := NewMicroCluster([]spatial.GeoPoint{old, recent}, spatial.GeoDistance, weight)
	require.NoError(t, err)

	c, err := mc.Center()
	require.NoError(t, err)
	assert.InDelta(t, 0.001*32/33, c.Point.Lng, 1e-12)
	assert.InDelta(t, 1+1.0/32, mc.Weight(), 1e-12)
}

func TestFadingWithoutTimestamp(t *testing.T) {
	weight := Fading[spatial.GeoPoint](0.5, nil)

	assert.Equal(t, 1.0, weight(spatial.NewGeoPoint("p", 1, 1)))

	future := spatial.NewGeoPoint("f", 1, 1)
	future.Time = time.Now().Add(time.Hour)
	assert.Equal(t, 1.0, weight(future))
}

func TestCenterDistance(t *testing.T) {
	d := CenterDistance(spatial.VectorDistance)

	a := newVectorCluster(t, vec("a", 0), vec("b", 2))
	b := newVectorCluster(t, vec("c", 10))
	assert.InDelta(t, 9, d(a, b), 1e-9)

	a.RemoveByID("a")
	a.RemoveByID("b")
	assert.True(t, math.IsInf(d(a, b), 1))
}

func TestFadedOutClusterFallsBackToPlainMean(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	a := spatial.NewGeoPoint("a", 0, 0)
	a.Time = now.Add(-5000 * time.Second)

	b := spatial.NewGeoPoint("b", 0, 0.002)
	b.Time = now.Add(-6000 * time.Second)

	weight := Fading[spatial.GeoPoint](1, clock)
	require.Zero(t, weight(a))

	mc, err := NewMicroCluster([]spatial.GeoPoint{a, b}, spatial.GeoDistance, weight)
	require.NoError(t, err)

	assert.Zero(t, mc.Weight())

	c, err := mc.Center()
	require.NoError(t, err)
	assert.InDelta(t, 0.001, c.Point.Lng, 1e-12)

	r, err := mc.Radius()
	require.NoError(t, err)
	assert.InDelta(t, spatial.GeoDistance(a, c), r, 1e-9)
}
