// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jcodagnone/denstream/faults"
	"github.com/jcodagnone/denstream/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, Repository) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	repo := NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db, repo
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single object", `{"id": "a", "lat": -34.9, "lng": -56.1}`, []string{"a"}},
		{"array", `[{"id": "a", "lat": 1, "lng": 2}, {"id": "b", "lat": 3, "lng": 4}]`, []string{"a", "b"}},
		{"empty", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeRecords(strings.NewReader(tt.input))
			require.NoError(t, err)

			var got []string
			for _, r := range records {
				got = append(got, r.ID)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeRecords() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	_, err := DecodeRecords(strings.NewReader(`{"id": `))
	assert.Error(t, err)
}

func TestDecodeJSONAssignsIDsAndValidates(t *testing.T) {
	points, err := DecodeJSON(strings.NewReader(`[
		{"lat": -34.9, "lng": -56.1, "content": "radar"},
		{"id": " b ", "lat": -34.8, "lng": -56.2, "time": "2025-03-01T10:00:00Z"}
	]`))
	require.NoError(t, err)
	require.Len(t, points, 2)

	_, err = uuid.Parse(points[0].ID())
	assert.NoError(t, err, "generated id %q", points[0].ID())
	assert.Equal(t, "radar", points[0].Text())

	assert.Equal(t, "b", points[1].ID())
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), points[1].Timestamp())

	_, err = DecodeJSON(strings.NewReader(`{"id": "x", "lat": 91, "lng": 0}`))
	assert.True(t, faults.IsInvalidArgument(err))
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "points.json", `[{"id": "a", "lat": -34.9, "lng": -56.1}]`)

	points, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []spatial.GeoPoint{spatial.NewGeoPoint("a", -34.9, -56.1)}, points)

	_, err = LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRecordRoundTrip(t *testing.T) {
	p := spatial.NewGeoPoint("a", 1, 2)
	p.Content = "c"

	got, err := FromGeoPoint(p).GeoPoint()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestCreateSchema(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	var tableName string

	err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'points'").Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, "points", tableName)

	// Creating the schema twice is harmless.
	require.NoError(t, repo.CreateSchema())
}

func TestSaveAndListPoints(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	observed := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)

	a := spatial.NewGeoPoint("a", -34.8822366, -56.1529602)
	a.Content = "radar"
	a.Time = observed

	b := spatial.NewGeoPoint("b", -34.9, -56.2)

	require.NoError(t, repo.SavePoints([]spatial.GeoPoint{a, b}))

	count, err := repo.CountPoints()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	points, err := repo.ListPoints(0)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "a", points[0].ID())
	assert.InDelta(t, a.Point.Lat, points[0].Point.Lat, 1e-9)
	assert.InDelta(t, a.Point.Lng, points[0].Point.Lng, 1e-9)
	assert.Equal(t, "radar", points[0].Content)
	assert.True(t, observed.Equal(points[0].Time), "got %v", points[0].Time)
	assert.True(t, points[1].Time.IsZero())

	var cell string

	require.NoError(t, db.QueryRow(`SELECT h3_cell FROM points WHERE id = 'a'`).Scan(&cell))
	assert.Equal(t, spatial.CellString(a.Point, spatial.DefaultCellResolution), cell)

	limited, err := repo.ListPoints(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSavePointsReplacesByID(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	require.NoError(t, repo.SavePoints([]spatial.GeoPoint{spatial.NewGeoPoint("a", 1, 1)}))
	require.NoError(t, repo.SavePoints([]spatial.GeoPoint{spatial.NewGeoPoint("a", 2, 2)}))

	points, err := repo.ListPoints(0)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 2, points[0].Point.Lat, 1e-9)
}

func TestImportCSV(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	path := writeFile(t, "points.csv", strings.Join([]string{
		"id,latitude,longitude,description",
		"p1,-34.9011,-56.1645,radar rambla",
		",-34.8836,-56.1819,bache",
		"p3,-34.91,-56.17,",
	}, "\n")+"\n")

	n, err := repo.ImportCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	points, err := repo.ListPoints(0)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "p1", points[0].ID())
	assert.Equal(t, "radar rambla", points[0].Content)
	assert.InDelta(t, -56.1645, points[0].Point.Lng, 1e-9)
	assert.NotEmpty(t, points[1].ID())
	assert.Equal(t, "p3", points[2].ID())
}

func TestImportCSVRequiresCoordinates(t *testing.T) {
	db, repo := setupTestDB(t)
	defer db.Close()

	path := writeFile(t, "bad.csv", "id,name\na,b\n")

	_, err := repo.ImportCSV(path)
	assert.ErrorContains(t, err, "missing latitude or longitude")
}
