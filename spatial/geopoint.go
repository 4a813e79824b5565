// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"time"

	"github.com/jcodagnone/denstream/faults"
)

// GeoPoint is a geo-tagged stream element.
//
// Arithmetic operates on the coordinates only and keeps the identity,
// content and time of the receiver. Averaging raw lat/lng is only
// meaningful for the small extents micro-clusters cover.
type GeoPoint struct {
	Key     string    `json:"id"`
	Point   Point     `json:"point"`
	Content string    `json:"content,omitempty"`
	Time    time.Time `json:"time,omitzero"`
}

// NewGeoPoint returns a GeoPoint at lat/lng.
func NewGeoPoint(id string, lat, lng float64) GeoPoint {
	return GeoPoint{Key: id, Point: Point{Lat: lat, Lng: lng}}
}

// ID returns the point identity.
func (g GeoPoint) ID() string { return g.Key }

// Text returns the free-text payload.
func (g GeoPoint) Text() string { return g.Content }

// Timestamp returns the observation time.
func (g GeoPoint) Timestamp() time.Time { return g.Time }

func (g GeoPoint) with(lat, lng float64) GeoPoint {
	g.Point = Point{Lat: lat, Lng: lng}

	return g
}

// Scale multiplies both coordinates by k.
func (g GeoPoint) Scale(k float64) GeoPoint {
	return g.with(g.Point.Lat*k, g.Point.Lng*k)
}

// Divide divides both coordinates by k.
func (g GeoPoint) Divide(k float64) (GeoPoint, error) {
	if k == 0 {
		return GeoPoint{}, faults.InvalidArgument("cannot divide point %q by 0", g.Key)
	}

	return g.with(g.Point.Lat/k, g.Point.Lng/k), nil
}

// Add sums coordinates element-wise.
func (g GeoPoint) Add(other GeoPoint) (GeoPoint, error) {
	return g.with(g.Point.Lat+other.Point.Lat, g.Point.Lng+other.Point.Lng), nil
}

// Subtract subtracts coordinates element-wise.
func (g GeoPoint) Subtract(other GeoPoint) (GeoPoint, error) {
	return g.with(g.Point.Lat-other.Point.Lat, g.Point.Lng-other.Point.Lng), nil
}

// GeoDistance is the haversine distance between two points, in meters.
func GeoDistance(a, b GeoPoint) float64 {
	return a.Point.HaversineDistance(&b.Point)
}
