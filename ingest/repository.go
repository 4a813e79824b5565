// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jcodagnone/denstream/spatial"
)

// Repository stores raw input points. Cluster state is never persisted.
type Repository interface {
	// CreateSchema creates the points table
	CreateSchema() error

	// SavePoints inserts points, replacing those whose id already exists
	SavePoints(points []spatial.GeoPoint) error

	// ImportCSV loads a CSV file through DuckDB and saves its rows
	ImportCSV(path string) (int, error)

	// ListPoints returns points in insertion order; limit <= 0 means all
	ListPoints(limit int) ([]spatial.GeoPoint, error)

	// CountPoints returns the number of stored points
	CountPoints() (int, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlPointRepository struct {
	db *sql.DB
}

// NewRepository returns a Repository backed by db.
func NewRepository(db *sql.DB) Repository {
	return &sqlPointRepository{db: db}
}

func (r *sqlPointRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlPointRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS points_seq START 1;

		CREATE TABLE IF NOT EXISTS points (
			id VARCHAR PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT nextval('points_seq'),
			point STRUCT(x DOUBLE, y DOUBLE) NOT NULL,
			content VARCHAR,
			observed_at TIMESTAMP,
			h3_cell VARCHAR
		);
	`)

	return err
}

func (r *sqlPointRepository) SavePoints(points []spatial.GeoPoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO points(id, point, content, observed_at, h3_cell)
		VALUES (?, struct_pack(x := CAST(? AS DOUBLE), y := CAST(? AS DOUBLE)), ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			point = excluded.point,
			content = excluded.content,
			observed_at = excluded.observed_at,
			h3_cell = excluded.h3_cell
	`)
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	for _, p := range points {
		var content, observed any
		if p.Content != "" {
			content = p.Content
		}

		if !p.Time.IsZero() {
			observed = p.Time.UTC()
		}

		if _, err := stmt.Exec(
			p.Key,
			p.Point.Lng,
			p.Point.Lat,
			content,
			observed,
			spatial.CellString(p.Point, spatial.DefaultCellResolution),
		); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return fmt.Errorf("saving point %q: %w", p.Key, err)
		}
	}

	return tx.Commit()
}

func (r *sqlPointRepository) ListPoints(limit int) ([]spatial.GeoPoint, error) {
	query := `SELECT id, point, content, observed_at FROM points ORDER BY seq`
	args := []any{}

	if limit > 0 {
		query += ` LIMIT ?`

		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []spatial.GeoPoint

	for rows.Next() {
		var (
			p        spatial.GeoPoint
			content  sql.NullString
			observed sql.NullTime
		)

		if err := rows.Scan(&p.Key, &p.Point, &content, &observed); err != nil {
			return nil, err
		}

		p.Content = content.String
		if observed.Valid {
			p.Time = observed.Time
		}

		points = append(points, p)
	}

	return points, rows.Err()
}

func (r *sqlPointRepository) CountPoints() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM points`).Scan(&count)

	return count, err
}

// ImportCSV lets DuckDB sniff the file, then maps its columns by name.
// Recognized columns are id, lat/latitude, lng/lon/longitude,
// content/description and time/timestamp; others are ignored.
func (r *sqlPointRepository) ImportCSV(path string) (int, error) {
	query := fmt.Sprintf(`SELECT * FROM read_csv_auto('%s', header = true)`, strings.ReplaceAll(path, "'", "''"))

	rows, err := r.db.Query(query)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	var records []Record

	for line := 1; rows.Next(); line++ {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))

		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return 0, fmt.Errorf("%s row %d: %w", path, line, err)
		}

		rec, err := recordFromRow(columns, values)
		if err != nil {
			return 0, fmt.Errorf("%s row %d: %w", path, line, err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return 0, err
	}

	points, err := Points(records)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	if err := r.SavePoints(points); err != nil {
		return 0, err
	}

	log.Printf("Imported %d points from %s", len(points), path)

	return len(points), nil
}

func recordFromRow(columns []string, values []any) (Record, error) {
	var (
		rec            Record
		hasLat, hasLng bool
	)

	for i, col := range columns {
		v := values[i]
		if v == nil {
			continue
		}

		var err error

		switch strings.ToLower(strings.TrimSpace(col)) {
		case "id":
			rec.ID = fmt.Sprint(v)
		case "lat", "latitude":
			rec.Lat, err = toFloat(v)
			hasLat = true
		case "lng", "lon", "longitude":
			rec.Lng, err = toFloat(v)
			hasLng = true
		case "content", "description":
			rec.Content = fmt.Sprint(v)
		case "time", "timestamp":
			rec.Time, err = toTime(v)
		}

		if err != nil {
			return rec, fmt.Errorf("column %s: %w", col, err)
		}
	}

	if !hasLat || !hasLng {
		return rec, fmt.Errorf("missing latitude or longitude")
	}

	return rec, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339, strings.TrimSpace(t))
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}
