// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest loads geo-tagged points from files and keeps a DuckDB
// store of the raw inputs.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcodagnone/denstream/spatial"
)

// Record is the flat wire form of a point, shared by files and the API.
type Record struct {
	ID      string    `json:"id"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	Content string    `json:"content,omitempty"`
	Time    time.Time `json:"time,omitzero"`
}

// GeoPoint validates the coordinates and converts r.
func (r Record) GeoPoint() (spatial.GeoPoint, error) {
	if err := spatial.ValidateCoordinates(r.Lat, r.Lng); err != nil {
		return spatial.GeoPoint{}, fmt.Errorf("point %q: %w", r.ID, err)
	}

	p := spatial.NewGeoPoint(strings.TrimSpace(r.ID), r.Lat, r.Lng)
	p.Content = r.Content
	p.Time = r.Time

	return p, nil
}

// FromGeoPoint is the inverse of Record.GeoPoint.
func FromGeoPoint(p spatial.GeoPoint) Record {
	return Record{
		ID:      p.Key,
		Lat:     p.Point.Lat,
		Lng:     p.Point.Lng,
		Content: p.Content,
		Time:    p.Time,
	}
}

// Points converts records, giving a random identity to those without one.
func Points(records []Record) ([]spatial.GeoPoint, error) {
	points := make([]spatial.GeoPoint, 0, len(records))

	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			r.ID = uuid.New().String()
		}

		p, err := r.GeoPoint()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		points = append(points, p)
	}

	return points, nil
}

// DecodeRecords reads either a single JSON object or an array of them.
func DecodeRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] != '[' {
		var one Record
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("decoding point: %w", err)
		}

		return []Record{one}, nil
	}

	var many []Record
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, fmt.Errorf("decoding points: %w", err)
	}

	return many, nil
}

// DecodeJSON reads points from r, see DecodeRecords.
func DecodeJSON(r io.Reader) ([]spatial.GeoPoint, error) {
	records, err := DecodeRecords(r)
	if err != nil {
		return nil, err
	}

	return Points(records)
}

// LoadJSON reads points from a JSON file.
func LoadJSON(path string) ([]spatial.GeoPoint, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	points, err := DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return points, nil
}
