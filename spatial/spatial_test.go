// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/denstream/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineDistance(t *testing.T) {
	// Plaza Independencia to Palacio Legislativo, Montevideo.
	a := &Point{Lat: -34.906558, Lng: -56.199504}
	b := &Point{Lat: -34.891180, Lng: -56.187079}

	d := a.HaversineDistance(b)
	assert.InDelta(t, 2040, d, 60)
	assert.InDelta(t, d, b.HaversineDistance(a), 1e-9)
	assert.Zero(t, a.HaversineDistance(a))
}

func TestPointScan(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    Point
		wantErr bool
	}{
		{name: "nil", value: nil, want: Point{}},
		{name: "bytes", value: []byte("POINT (-56.1 -34.9)"), want: Point{Lat: -34.9, Lng: -56.1}},
		{name: "struct map", value: map[string]any{"x": -56.1, "y": -34.9}, want: Point{Lat: -34.9, Lng: -56.1}},
		{name: "bad map", value: map[string]any{"x": "a"}, wantErr: true},
		{name: "unsupported", value: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point

			err := p.Scan(tt.value)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want.Lat, p.Lat, 1e-9)
			assert.InDelta(t, tt.want.Lng, p.Lng, 1e-9)
		})
	}
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(-34.9, -56.1))
	assert.True(t, faults.IsInvalidArgument(ValidateCoordinates(91, 0)))
	assert.True(t, faults.IsInvalidArgument(ValidateCoordinates(0, -181)))
	assert.True(t, faults.IsInvalidArgument(ValidateCoordinates(math.NaN(), 0)))
}

func TestGeoPointArithmetic(t *testing.T) {
	p := NewGeoPoint("a", 2, 4)
	q := NewGeoPoint("b", 1, 1)

	sum, err := p.Add(q)
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 3, Lng: 5}, sum.Point)
	assert.Equal(t, "a", sum.ID())

	diff, err := p.Subtract(q)
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 1, Lng: 3}, diff.Point)

	assert.Equal(t, Point{Lat: 4, Lng: 8}, p.Scale(2).Point)

	half, err := p.Divide(2)
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 1, Lng: 2}, half.Point)

	_, err = p.Divide(0)
	assert.True(t, faults.IsInvalidArgument(err))

	// The receiver is untouched.
	assert.Equal(t, Point{Lat: 2, Lng: 4}, p.Point)
}

func TestVectorArithmetic(t *testing.T) {
	v := NewVector("v", 1, 2, 3)
	w := NewVector("w", 3, 2, 1)

	sum, err := v.Add(w)
	require.NoError(t, err)

	if diff := cmp.Diff([]float64{4, 4, 4}, sum.Coords); diff != "" {
		t.Errorf("Add() mismatch (-want +got):\n%s", diff)
	}

	sub, err := v.Subtract(w)
	require.NoError(t, err)

	if diff := cmp.Diff([]float64{-2, 0, 2}, sub.Coords); diff != "" {
		t.Errorf("Subtract() mismatch (-want +got):\n%s", diff)
	}

	_, err = v.Add(NewVector("x", 1))
	assert.True(t, faults.IsInvalidArgument(err))

	_, err = v.Divide(0)
	assert.True(t, faults.IsInvalidArgument(err))

	assert.InDelta(t, math.Sqrt(8), VectorDistance(v, w), 1e-12)
	assert.True(t, math.IsInf(VectorDistance(v, NewVector("x", 1)), 1))
}

func TestEuclidean(t *testing.T) {
	d, err := Euclidean([]float64{0, 0, 0}, []float64{1, 2, 2})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, d, 1e-12)

	_, err = Euclidean(nil, nil)
	assert.True(t, faults.IsInvalidArgument(err))

	_, err = Euclidean([]float64{1}, []float64{1, 2})
	assert.True(t, faults.IsInvalidArgument(err))
}

func TestVectorArithmeticKeepsOperands(t *testing.T) {
	v := NewVector("v", 1, 2)
	w := NewVector("w", 3, 4)

	scaled := v.Scale(2)
	sum, err := v.Add(w)
	require.NoError(t, err)

	half, err := w.Divide(2)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4}, scaled.Coords)
	assert.Equal(t, []float64{4, 6}, sum.Coords)
	assert.Equal(t, []float64{1.5, 2}, half.Coords)
	assert.Equal(t, "v", sum.ID())
	assert.Equal(t, []float64{1, 2}, v.Coords)
	assert.Equal(t, []float64{3, 4}, w.Coords)
}

func TestCell(t *testing.T) {
	p := Point{Lat: -34.906558, Lng: -56.199504}

	cell, err := Cell(p, DefaultCellResolution)
	require.NoError(t, err)
	assert.Equal(t, DefaultCellResolution, cell.Resolution())
	assert.Equal(t, cell.String(), CellString(p, DefaultCellResolution))

	_, err = Cell(p, 99)
	assert.Error(t, err)
	assert.Empty(t, CellString(p, 99))
}
